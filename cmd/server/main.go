package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"abbleitura/internal/app"
	"abbleitura/internal/config"
	"abbleitura/internal/identity"
	"abbleitura/internal/ratelimit"
	"abbleitura/internal/server"
	"abbleitura/internal/util"
	"abbleitura/pkg/queue"
	"abbleitura/pkg/storage"
	"abbleitura/pkg/store"
	"abbleitura/pkg/translate"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := util.InitLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.NewGormStore(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	sessionTTL, err := config.ParseSessionTTL(cfg.SessionTTL)
	if err != nil {
		return fmt.Errorf("parse session ttl: %w", err)
	}
	sessions, err := store.NewJWTSessionStore(cfg.SessionSecret, sessionTTL)
	if err != nil {
		return fmt.Errorf("session store: %w", err)
	}

	var objects storage.ObjectStore
	if cfg.MinioEndpoint != "" {
		objects, err = storage.NewMinioStore(ctx, storage.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			return fmt.Errorf("object store: %w", err)
		}
	} else {
		logger.Warn("no object store configured, using stub download URLs")
		objects = storage.StubSigner{BaseURL: cfg.DownloadStubBaseURL}
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	defer redisClient.Close()

	newsletterQueue, err := queue.NewRedisQueue(ctx, redisClient, cfg.NewsletterStream)
	if err != nil {
		return fmt.Errorf("newsletter queue: %w", err)
	}

	var verifier app.TokenVerifier
	if cfg.IdentityJWKSURL != "" {
		verifier = identity.NewVerifier(cfg.IdentityJWKSURL, cfg.IdentityIssuer, cfg.IdentityAudience)
	} else {
		logger.Warn("no identity provider configured, sign-in disabled")
	}

	downloadTTL, err := config.ParseDownloadURLTTL(cfg.DownloadURLTTL)
	if err != nil {
		return fmt.Errorf("parse download url ttl: %w", err)
	}

	application := app.New(app.Config{
		Store:         db,
		Sessions:      sessions,
		Objects:       objects,
		Newsletter:    newsletterQueue,
		Translator:    translate.NewService(translate.EchoProvider{}, db),
		Identity:      verifier,
		OwnerOpenID:   cfg.OwnerOpenID,
		DownloadLimit: cfg.DownloadDailyLimit,
		DownloadTTL:   downloadTTL,
		Logger:        logger,
	})

	likeLimiter, err := ratelimit.NewRedisFixedWindowLimiter(
		cfg.RedisAddr, cfg.RedisPassword, "abbleitura:ratelimit:like",
		cfg.LikeRateLimitPerMinute, time.Minute)
	if err != nil {
		return fmt.Errorf("like limiter: %w", err)
	}
	subscribeLimiter, err := ratelimit.NewRedisFixedWindowLimiter(
		cfg.RedisAddr, cfg.RedisPassword, "abbleitura:ratelimit:subscribe",
		cfg.SubscribeRateLimitPerMinute, time.Minute)
	if err != nil {
		return fmt.Errorf("subscribe limiter: %w", err)
	}

	trustedProxies, err := util.NewTrustedProxies(cfg.TrustedProxyCIDRs)
	if err != nil {
		return fmt.Errorf("trusted proxies: %w", err)
	}

	srv := server.New(server.Config{
		App:              application,
		CookieName:       cfg.SessionCookieName,
		CookieSecure:     cfg.SessionCookieSecure,
		SessionTTL:       sessionTTL,
		CORSOrigin:       cfg.CORSOrigin,
		LikeLimiter:      likeLimiter,
		SubscribeLimiter: subscribeLimiter,
		TrustedProxies:   trustedProxies,
		Logger:           logger,
	})

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	mailer := queue.LogMailer{}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server listening", "port", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		logger.Info("newsletter worker starting", "stream", cfg.NewsletterStream, "workers", cfg.NewsletterWorkers)
		return newsletterQueue.Start(ctx, cfg.NewsletterWorkers, mailer.Send)
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("server stopped")
	return nil
}
