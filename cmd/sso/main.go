package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Biasolis/sso/internal/audit"
	"github.com/Biasolis/sso/internal/config"
	"github.com/Biasolis/sso/internal/directory"
	"github.com/Biasolis/sso/internal/events"
	"github.com/Biasolis/sso/internal/httpserver"
	"github.com/Biasolis/sso/internal/logging"
	"github.com/Biasolis/sso/internal/metrics"
	authmw "github.com/Biasolis/sso/internal/middleware/auth"
	"github.com/Biasolis/sso/internal/middleware/ratelimit"
	"github.com/Biasolis/sso/internal/repo"
	"github.com/Biasolis/sso/internal/service"
	"github.com/Biasolis/sso/pkg/db"
)

const codeSweepInterval = 5 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config error", "error", err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel)
	slog.SetDefault(log)

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	gdb, err := db.Open(initCtx, cfg.DatabaseURL)
	if err == nil {
		err = db.Migrate(initCtx, gdb)
	}
	cancel()
	if err != nil {
		log.Error("db init error", "error", err)
		os.Exit(1)
	}
	rp := &repo.GormRepo{DB: gdb}

	var publisher events.Publisher = events.Nop{}
	var producer *events.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer = events.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		publisher = producer
	}

	recorder := &audit.Recorder{Store: rp, Events: publisher}
	if cfg.ESURL != "" {
		esCtx, esCancel := context.WithTimeout(context.Background(), 10*time.Second)
		client, err := audit.NewESClient(esCtx, audit.ESConfig{
			URL:      cfg.ESURL,
			User:     cfg.ESUser,
			Password: cfg.ESPassword,
			Index:    cfg.ESIndex,
		})
		esCancel()
		if err != nil {
			log.Warn("elasticsearch unavailable, grants are not indexed", "error", err)
		} else {
			recorder.Index = &audit.ESIndexer{Client: client, Index: cfg.ESIndex}
		}
	}

	tokens := &service.TokenService{
		Refresh:        rp,
		JWTSecret:      []byte(cfg.JWTSecret),
		SessionSecret:  []byte(cfg.SessionSecret),
		RefreshScopes:  cfg.RefreshScopes,
		PreserveScopes: cfg.RefreshPreserveScopes,
		Events:         publisher,
	}

	authSvc := &service.AuthService{
		Users:    rp,
		Groups:   &service.GroupSync{Groups: rp},
		Sessions: tokens,
		Events:   publisher,
	}
	if cfg.LDAP.Enabled() {
		authSvc.Directory = directory.NewLDAP(directory.LDAPConfig{
			URL:           cfg.LDAP.URL,
			BindDN:        cfg.LDAP.BindDN,
			BindPassword:  cfg.LDAP.BindPassword,
			SearchBase:    cfg.LDAP.SearchBase,
			UserAttribute: cfg.LDAP.UserAttribute,
			Timeout:       cfg.LDAP.Timeout,
		}, log)
		authSvc.ActivationGroupDN = cfg.LDAP.ActivationGroupDN
		log.Info("directory enabled", "url", cfg.LDAP.URL)
	}

	m := metrics.New()

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second
	e.Server.IdleTimeout = 60 * time.Second
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowCredentials: true,
	}))

	httpserver.Register(e, &httpserver.Deps{
		AuthHandler: &httpserver.AuthHTTP{
			Svc:           authSvc,
			Users:         rp,
			Metrics:       m,
			SecureCookies: cfg.SecureCookies,
		},
		OAuthHandler: &httpserver.OAuthHTTP{
			Svc: &service.OAuthService{
				Clients:     rp,
				Users:       rp,
				Gate:        &service.Gate{Permissions: rp},
				Codes:       &service.CodeService{Codes: rp},
				Tokens:      tokens,
				Audit:       recorder,
				FrontendURL: cfg.FrontendURL,
			},
			Metrics: m,
		},
		Session:      authmw.NewSessionAuth(tokens, cfg.SecureCookies),
		LoginLimiter: ratelimit.New(cfg.LoginRatePerSecond, cfg.LoginRateBurst),
		Metrics:      m,
		DB:           gdb,
		Logger:       log,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sweepCodes(ctx, rp, log)

	go func() {
		log.Info("listening", "addr", cfg.HTTPAddr)
		if err := e.Start(cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("echo start", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("echo shutdown", "error", err)
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			log.Error("kafka close error", "error", err)
		}
	}
	if err := db.Close(gdb); err != nil {
		log.Error("db close error", "error", err)
	}
	log.Info("shutdown complete")
}

// sweepCodes deletes expired authorization codes until ctx is done.
func sweepCodes(ctx context.Context, rp *repo.GormRepo, log *slog.Logger) {
	t := time.NewTicker(codeSweepInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			n, err := rp.DeleteExpiredCodes(ctx, now)
			if err != nil {
				log.Warn("code sweep failed", "error", err)
				continue
			}
			if n > 0 {
				log.Debug("expired codes removed", "count", n)
			}
		}
	}
}
