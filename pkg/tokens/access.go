package tokens

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SignAccess mints an access token for userID scoped to one client.
func SignAccess(secret []byte, userID, clientID string, scopes []string, now time.Time, ttl time.Duration) (string, error) {
	if scopes == nil {
		scopes = []string{}
	}
	claims := AccessClaims{
		Scopes: scopes,
		Use:    UseAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Audience:  jwt.ClaimStrings{clientID},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	return sign(claims, secret)
}

func AccessClaimsFromToken(tokenStr string, secret []byte) (*AccessClaims, error) {
	var claims AccessClaims
	if err := parse(tokenStr, &claims, secret); err != nil {
		return nil, err
	}
	if claims.Use != UseAccess {
		return nil, ErrWrongUse
	}
	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}
