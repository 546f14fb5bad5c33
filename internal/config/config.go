package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr    string `env:"HTTP_ADDR"    envDefault:":8080"`
	DatabaseURL string `env:"DATABASE_URL,required"`
	FrontendURL string `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`
	LogLevel    string `env:"LOG_LEVEL"    envDefault:"info"`

	JWTSecret     string `env:"JWT_SECRET,required"`
	SessionSecret string `env:"SESSION_SECRET,required"`
	SecureCookies bool   `env:"SECURE_COOKIES" envDefault:"true"`

	LDAP LDAP

	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"KAFKA_TOPIC" envDefault:"user_events"`

	ESURL      string `env:"ES_URL"`
	ESUser     string `env:"ES_USER"`
	ESPassword string `env:"ES_PASSWORD"`
	ESIndex    string `env:"ES_INDEX" envDefault:"sso-access-log"`

	LoginRatePerSecond float64 `env:"LOGIN_RATE_PER_SECOND" envDefault:"1"`
	LoginRateBurst     int     `env:"LOGIN_RATE_BURST"      envDefault:"10"`

	RefreshScopes         []string `env:"REFRESH_SCOPES" envSeparator:" " envDefault:"openid profile email"`
	RefreshPreserveScopes bool     `env:"REFRESH_PRESERVE_SCOPES" envDefault:"false"`
}

type LDAP struct {
	URL               string        `env:"LDAP_URL"`
	BindDN            string        `env:"LDAP_BIND_DN"`
	BindPassword      string        `env:"LDAP_BIND_PASSWORD"`
	SearchBase        string        `env:"LDAP_SEARCH_BASE"`
	UserAttribute     string        `env:"LDAP_USER_ATTRIBUTE"      envDefault:"sAMAccountName"`
	ActivationGroupDN string        `env:"LDAP_ACTIVATION_GROUP_DN"`
	Timeout           time.Duration `env:"LDAP_TIMEOUT"             envDefault:"5s"`
}

// Enabled reports whether a directory is configured at all.
func (l LDAP) Enabled() bool {
	return l.URL != ""
}

// Load reads .env when present, then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		slog.Debug("no .env file, using process environment", "error", err)
	}
	return Parse(env.Options{})
}

func Parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.JWTSecret) == "" {
		errs = append(errs, errors.New("JWT_SECRET must not be blank"))
	}
	if strings.TrimSpace(c.SessionSecret) == "" {
		errs = append(errs, errors.New("SESSION_SECRET must not be blank"))
	}
	if u, err := url.Parse(c.FrontendURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("FRONTEND_URL %q is not an absolute url", c.FrontendURL))
	}
	if c.LoginRatePerSecond <= 0 || c.LoginRateBurst <= 0 {
		errs = append(errs, errors.New("login rate limit must be positive"))
	}
	if c.LDAP.Enabled() {
		if c.LDAP.SearchBase == "" {
			errs = append(errs, errors.New("LDAP_SEARCH_BASE is required when LDAP_URL is set"))
		}
		if c.LDAP.UserAttribute == "" {
			errs = append(errs, errors.New("LDAP_USER_ATTRIBUTE must not be blank"))
		}
		if c.LDAP.Timeout <= 0 {
			errs = append(errs, errors.New("LDAP_TIMEOUT must be positive"))
		}
	}
	return errors.Join(errs...)
}
