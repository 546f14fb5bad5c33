package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"        json:"id"`
	Email        string    `gorm:"uniqueIndex;not null"        json:"email"`
	PasswordHash string    `gorm:"not null"                    json:"-"`
	Name         string    `gorm:"not null;default:''"         json:"name"`
	Verified     bool      `gorm:"not null;default:false"      json:"is_verified"`
	Superadmin   bool      `gorm:"not null;default:false"      json:"is_superadmin"`
	CreatedAt    time.Time `                                   json:"created_at"`
	UpdatedAt    time.Time `                                   json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// Group is owned by the directory sync when DirectoryDN is set and by
// administrators otherwise.
type Group struct {
	ID          uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string  `gorm:"uniqueIndex;not null"     json:"name"`
	DirectoryDN *string `gorm:"uniqueIndex"              json:"directory_dn,omitempty"`
}

type UserGroup struct {
	UserID  uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	GroupID uint      `gorm:"primaryKey"           json:"group_id"`
}

type Client struct {
	ID            uint     `gorm:"primaryKey;autoIncrement"  json:"id"`
	ClientID      string   `gorm:"uniqueIndex;not null"      json:"client_id"`
	ClientSecret  string   `gorm:"not null"                  json:"-"`
	Name          string   `gorm:"not null;default:''"       json:"name"`
	RedirectURIs  []string `gorm:"serializer:json;not null"  json:"redirect_uris"`
	AllowedScopes []string `gorm:"serializer:json;not null"  json:"allowed_scopes"`
}

type ClientUserPermission struct {
	ClientID string    `gorm:"primaryKey"           json:"client_id"`
	UserID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
}

type ClientGroupPermission struct {
	ClientID string `gorm:"primaryKey" json:"client_id"`
	GroupID  uint   `gorm:"primaryKey" json:"group_id"`
}

// AuthorizationCode stores the sha256 of the code, never the code itself.
type AuthorizationCode struct {
	CodeHash    string    `gorm:"primaryKey"               json:"-"`
	UserID      uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	ClientID    string    `gorm:"not null"                 json:"client_id"`
	RedirectURI string    `gorm:"not null"                 json:"redirect_uri"`
	Scopes      []string  `gorm:"serializer:json;not null" json:"scopes"`
	ExpiresAt   time.Time `gorm:"not null"                 json:"expires_at"`
	CreatedAt   time.Time `                                json:"created_at"`
}

type RefreshToken struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"  json:"id"`
	TokenHash string    `gorm:"uniqueIndex;not null"      json:"-"`
	UserID    uuid.UUID `gorm:"type:uuid;index;not null"  json:"user_id"`
	ClientID  string    `gorm:"index;not null"            json:"client_id"`
	Scopes    []string  `gorm:"serializer:json;not null"  json:"scopes"`
	ExpiresAt time.Time `gorm:"not null"                  json:"expires_at"`
	Revoked   bool      `gorm:"not null;default:false"    json:"revoked"`
	CreatedAt time.Time `                                 json:"created_at"`
}

type AccessLog struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	ClientID  string    `gorm:"index;not null"           json:"client_id"`
	CreatedAt time.Time `gorm:"not null"                 json:"created_at"`
}

// All lists every model for AutoMigrate.
func All() []any {
	return []any{
		&User{},
		&Group{},
		&UserGroup{},
		&Client{},
		&ClientUserPermission{},
		&ClientGroupPermission{},
		&AuthorizationCode{},
		&RefreshToken{},
		&AccessLog{},
	}
}
