package httpserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/Biasolis/sso/internal/audit"
	"github.com/Biasolis/sso/internal/hash"
	"github.com/Biasolis/sso/internal/metrics"
	authmw "github.com/Biasolis/sso/internal/middleware/auth"
	"github.com/Biasolis/sso/internal/middleware/ratelimit"
	"github.com/Biasolis/sso/internal/models"
	"github.com/Biasolis/sso/internal/repo"
	"github.com/Biasolis/sso/internal/service"
	"github.com/Biasolis/sso/pkg/db"
)

const (
	frontend    = "http://localhost:5173"
	redirectURI = "https://c1.example.com/callback"
)

type testEnv struct {
	e       *echo.Echo
	repo    *repo.GormRepo
	auth    *service.AuthService
	tokens  *service.TokenService
	metrics *metrics.Metrics
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	ctx := context.Background()
	gdb, err := db.Open(ctx, db.MemoryDSN("http_"+uuid.NewString()))
	require.NoError(t, err)
	require.NoError(t, db.Migrate(ctx, gdb))
	t.Cleanup(func() { _ = db.Close(gdb) })

	rp := &repo.GormRepo{DB: gdb}
	tokens := &service.TokenService{
		Refresh:       rp,
		JWTSecret:     []byte("test-jwt-secret"),
		SessionSecret: []byte("test-session-secret"),
		RefreshScopes: []string{"openid", "profile", "email"},
	}
	gate := &service.Gate{Permissions: rp}
	m := metrics.New()
	authSvc := &service.AuthService{
		Users:    rp,
		Groups:   &service.GroupSync{Groups: rp},
		Sessions: tokens,
	}

	e := echo.New()
	Register(e, &Deps{
		AuthHandler: &AuthHTTP{
			Svc:     authSvc,
			Users:   rp,
			Metrics: m,
		},
		OAuthHandler: &OAuthHTTP{
			Svc: &service.OAuthService{
				Clients:     rp,
				Users:       rp,
				Gate:        gate,
				Codes:       &service.CodeService{Codes: rp},
				Tokens:      tokens,
				Audit:       &audit.Recorder{Store: rp},
				FrontendURL: frontend,
			},
			Metrics: m,
		},
		Session:      authmw.NewSessionAuth(tokens, false),
		LoginLimiter: ratelimit.New(1000, 1000),
		Metrics:      m,
		DB:           gdb,
		Logger:       slog.New(slog.NewJSONHandler(io.Discard, nil)),
	})

	return &testEnv{e: e, repo: rp, auth: authSvc, tokens: tokens, metrics: m}
}

func (env *testEnv) seedUser(t *testing.T, email, password string, verified bool) *models.User {
	t.Helper()

	h, err := hash.HashPassword(password)
	require.NoError(t, err)
	u := &models.User{Email: email, PasswordHash: h, Name: "Ana Souza", Verified: verified}
	require.NoError(t, env.repo.CreateUser(context.Background(), u))
	return u
}

func (env *testEnv) seedClient(t *testing.T, scopes ...string) {
	t.Helper()

	require.NoError(t, env.repo.CreateClient(context.Background(), &models.Client{
		ClientID:      "c1",
		ClientSecret:  "c1-secret",
		Name:          "App One",
		RedirectURIs:  []string{redirectURI},
		AllowedScopes: scopes,
	}))
}

func (env *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func jsonRequest(method, target string, body any) *http.Request {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(method, target, strings.NewReader(string(b)))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func formRequest(target string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

// login returns a session token for email.
func (env *testEnv) login(t *testing.T, email, password string) string {
	t.Helper()

	rec := env.do(jsonRequest(http.MethodPost, "/auth/login", map[string]string{"email": email, "password": password}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	tok, _ := decode(t, rec)["token"].(string)
	require.NotEmpty(t, tok)
	return tok
}

// approve runs consent and returns the issued code.
func (env *testEnv) approve(t *testing.T, session, scopes string) string {
	t.Helper()

	rec := env.do(jsonRequest(http.MethodPost, "/oauth/approve", map[string]string{
		"client_id":     "c1",
		"redirect_uri":  redirectURI,
		"state":         "st4te",
		"session_token": session,
		"scopes":        scopes,
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	loc, err := url.Parse(decode(t, rec)["redirectUrl"].(string))
	require.NoError(t, err)
	code := loc.Query().Get("code")
	require.NotEmpty(t, code)
	return code
}

func tokenForm(code string) url.Values {
	return url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {redirectURI},
		"client_id":     {"c1"},
		"client_secret": {"c1-secret"},
	}
}
