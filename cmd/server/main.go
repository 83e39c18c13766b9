package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	passport "github.com/Solsynth/DysonNetwork-sub002"
	cacheredis "github.com/Solsynth/DysonNetwork-sub002/cache/redis"
	"github.com/Solsynth/DysonNetwork-sub002/config"
	"github.com/Solsynth/DysonNetwork-sub002/mongodb"
)

// allowAllCaptcha accepts every captcha token. Deployment wires a real
// provider here.
type allowAllCaptcha struct{}

func (allowAllCaptcha) Verify(context.Context, string) bool { return true }

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	logLevel, parseErr := zerolog.ParseLevel(cfg.LogLevel)
	if parseErr != nil {
		logLevel = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(logLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	if parseErr != nil {
		log.Warn().Str("configured_log_level", cfg.LogLevel).Msg("invalid LOG_LEVEL configured, defaulting to 'info'")
	}

	log.Info().Str("http_port", cfg.HTTPPort).Str("issuer", cfg.IssuerURI).Msg("starting passport server")

	ctx := context.Background()

	db, err := mongodb.Connect(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to MongoDB")
	}

	redisClient := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}

	// Stores and repositories
	codeStore := passport.NewInMemoryAuthCodeStore(cfg.AuthCodeTTL())
	defer codeStore.Close()

	clients := mongodb.NewClientRepository(db)
	refreshTokens := mongodb.NewRefreshTokenRepository(db)
	checkIns := mongodb.NewCheckInRepository(db)
	ledger := mongodb.NewExperienceRepository(db)
	accounts := mongodb.NewAccountRepository(db)

	locker := cacheredis.NewLocker(redisClient, "passport")
	flags := cacheredis.NewFlagCache(redisClient, "passport")

	// Services
	signer := passport.NewTokenSigner([]byte(cfg.SigningKey), cfg.IssuerURI)
	provider := passport.NewProviderService(clients, codeStore, refreshTokens, signer,
		cfg.AccessTokenTTL(), cfg.RefreshTokenTTL())
	checkInEngine := passport.NewCheckInEngine(checkIns, ledger, locker, flags)

	api := passport.NewAPI(provider, checkInEngine, accounts, allowAllCaptcha{})

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	api.RegisterRoutes(e)

	go func() {
		if err := e.Start(":" + cfg.HTTPPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
