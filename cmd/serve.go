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

	"face_verification/internal/auth"
	"face_verification/internal/config"
	"face_verification/internal/decision"
	"face_verification/internal/encoder"
	"face_verification/internal/http_server/router"
	"face_verification/internal/ledger"
	"face_verification/internal/lib/jwt"
	sl "face_verification/internal/lib/logger"
	"face_verification/internal/lib/password"
	"face_verification/internal/metrics"
	"face_verification/internal/rabbitmq"
	"face_verification/internal/storage/redis"
	"face_verification/internal/verification"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

// requestSlack is added to the encoder timeout to bound a whole /verify request.
const requestSlack = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(config.MustLoad(configPath))
	},
}

func serve(cfg *config.Config) error {
	log := setupLogger(cfg.Env)

	log.Info("starting face verification service",
		slog.String("env", cfg.Env),
		slog.String("storage", cfg.Storage.Driver),
	)

	policy, err := decision.NewPolicy(
		cfg.Verification.ModelName,
		cfg.Verification.Threshold,
		decision.Metric(cfg.Verification.DistanceMetric),
	)
	if err != nil {
		log.Error("invalid verification config", sl.Err(err))
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Info("Shutdown signal received")
		cancel()
	}()

	storage, err := openStore(ctx, cfg)
	if err != nil {
		log.Error("failed to open storage", sl.Err(err))
		return err
	}
	defer storage.Close()

	authService := auth.New(
		log,
		storage,
		storage,
		password.New(bcrypt.DefaultCost),
		jwt.New(cfg.Tokens.Secret, cfg.Tokens.AccessTokenTTL),
	)

	if cfg.Redis.Address != "" {
		cache, err := redis.New(ctx, cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.UserTTL)
		if err != nil {
			log.Warn("user cache disabled", sl.Err(err))
		} else {
			defer cache.Close()
			authService.WithCache(cache)
		}
	}

	m := metrics.New()

	l := ledger.New(log, storage, cfg.Verification.HistoryLimit)

	enc := encoder.NewClient(cfg.Encoder.URL, cfg.Verification.ModelName, &http.Client{
		Timeout: cfg.Verification.EncoderTimeout,
	})

	verifier := verification.New(log, policy, enc, l, m, verification.Config{
		UploadDir:      cfg.Verification.UploadDir,
		MaxFileSize:    cfg.Verification.MaxFileSize,
		EncoderTimeout: cfg.Verification.EncoderTimeout,
	})

	if cfg.RabbitMQ.URL != "" {
		msgBroker, err := rabbitmq.New(cfg.RabbitMQ.URL, cfg.RabbitMQ.QueueName)
		if err != nil {
			log.Warn("verification events disabled", sl.Err(err))
		} else {
			defer msgBroker.Close()
			verifier.WithPublisher(msgBroker)
		}
	}

	handler := router.New(router.Deps{
		Log:            log,
		Validate:       validator.New(),
		Auth:           authService,
		Verification:   verifier,
		Ledger:         l,
		Metrics:        m.Handler(),
		AllowedOrigins: cfg.HTTPServer.AllowedOrigins,
	})

	requestTimeout := cfg.HTTPServer.Timeout
	if need := cfg.Verification.EncoderTimeout + requestSlack; need > requestTimeout {
		requestTimeout = need
	}

	srv := &http.Server{
		Addr:              cfg.HTTPServer.Address,
		Handler:           handler,
		ReadHeaderTimeout: cfg.HTTPServer.Timeout,
		ReadTimeout:       requestTimeout,
		WriteTimeout:      requestTimeout,
		IdleTimeout:       cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server is running", slog.String("address", cfg.HTTPServer.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed", sl.Err(err))
			cancel()
		}
	}()

	<-ctx.Done()

	log.Info("Shutting down HTTP server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", sl.Err(err))
	} else {
		log.Info("Server stopped gracefully")
	}

	log.Info("Main service stopped")

	return nil
}
