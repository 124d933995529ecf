package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/avoronin/authd/internal/api/http/cookie"
	"github.com/avoronin/authd/internal/api/http/handler"
	"github.com/avoronin/authd/internal/api/http/router"
	"github.com/avoronin/authd/internal/config"
	"github.com/avoronin/authd/internal/logger"
	"github.com/avoronin/authd/internal/mailer"
	"github.com/avoronin/authd/internal/model"
	"github.com/avoronin/authd/internal/oauth"
	"github.com/avoronin/authd/internal/repository/postgres"
	"github.com/avoronin/authd/internal/server"
	"github.com/avoronin/authd/internal/service"
	"github.com/avoronin/authd/internal/token"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.New(cfg.LogLevel)

	db, err := postgres.NewConnection(ctx, cfg.Database.DSN)
	if err != nil {
		logger.Fatal("failed to initialize storage", "error", err)
	}
	defer db.Close()

	userRepo := postgres.NewUserRepository(db)
	refreshTokenRepo := postgres.NewRefreshTokenRepository(db, cfg.JWT.RefreshTTL)

	codec := token.NewCodec(cfg.JWT.Secret)
	issuer := token.NewIssuer(codec, cfg.JWT.Audience, cfg.JWT.AccessTTL)
	verifier := token.NewVerifier(codec, cfg.JWT.VerificationTTL)

	sender := mailer.New(cfg.SMTP, logger.Component("mailer"))
	google := oauth.NewGoogle(cfg.OAuth, nil)

	authService := service.NewAuth(userRepo, refreshTokenRepo, issuer, google, logger.Component("auth"))
	registrationService := service.NewRegistration(userRepo, verifier, sender, cfg.HTTP.PublicBaseURL, logger.Component("registration"))

	cookies := cookie.NewTransport(cfg.Cookie, cfg.JWT.AccessTTL)
	h := handler.New(authService, registrationService, cookies, google, logger.Component("handler"))
	engine := router.New(h, cookies, issuer, logger.Component("http"))

	httpServer := server.NewHTTPServer(engine, fmt.Sprintf(":%s", cfg.HTTP.Port))

	var sl model.SecurityLayer
	if cfg.HTTP.EnableHTTPS {
		sl = server.NewTLSListener(cfg.HTTP.CertFileName, cfg.HTTP.PrivateKeyFileName)
	} else {
		sl = server.NewPlainListener()
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting server", "address", httpServer.Address())
		return httpServer.Start(sl)
	})

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("received interruption signal, shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Stop(shutdownCtx)
	})

	logAppVersion()

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server exited with error", "error", err)
	}
	logger.Info("shutdown complete")
}

func logAppVersion() {
	tmpl := `
Build version: %s
Build date: %s
Build commit: %s
`

	fmt.Printf(tmpl, buildVersion, buildDate, buildCommit)
}
