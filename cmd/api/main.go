package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chat-otp/internal/application/auth"
	"github.com/go-chat-otp/internal/config"
	"github.com/go-chat-otp/internal/infrastructure/dynamo"
	"github.com/go-chat-otp/internal/infrastructure/memory"
	mongoinfra "github.com/go-chat-otp/internal/infrastructure/mongo"
	redisinfra "github.com/go-chat-otp/internal/infrastructure/redis"
	"github.com/go-chat-otp/internal/infrastructure/smtp"
	"github.com/go-chat-otp/internal/pkg/validate"
	transporthttp "github.com/go-chat-otp/internal/transport/http"
	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "err", err)
		os.Exit(1)
	}
}

// run returns only after the stores are closed.
func run() error {
	envErr := godotenv.Load()

	cfg := config.Load()
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)})))
	if envErr != nil {
		slog.Info("no .env file found, reading from environment")
	}

	ctx := context.Background()
	users, otps, closeStores, err := openStores(ctx, cfg)
	if err != nil {
		return fmt.Errorf("store setup: %w", err)
	}
	defer closeStores()

	mailer := smtp.NewMailer(cfg)

	deps := &transporthttp.Deps{
		UserRepo:  users,
		OtpRepo:   otps,
		Notifier:  smtp.NewOtpNotifier(mailer, cfg.OtpTTL),
		Validator: validate.New(),
	}

	router := transporthttp.NewRouter(cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("server starting", "port", cfg.AppPort, "env", cfg.AppEnv,
		"store", cfg.StoreBackend, "otp_store", cfg.OtpStoreBackend())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	return serve(srv, quit)
}

// serve runs srv until it fails or a signal arrives on quit, then shuts it
// down gracefully. Listen errors are returned to the caller.
func serve(srv *http.Server, quit <-chan os.Signal) error {
	serveErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("serve: %w", err)
	case <-quit:
	}

	slog.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	slog.Info("server stopped")
	return nil
}

// openStores builds the user and OTP stores selected by STORE_BACKEND and
// OTP_BACKEND. The returned func releases any client connections.
func openStores(ctx context.Context, cfg *config.Config) (auth.UserStore, auth.OtpStore, func(), error) {
	var (
		users   auth.UserStore
		otps    auth.OtpStore
		closers []func()
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	switch cfg.StoreBackend {
	case config.BackendMongo:
		client, err := mongoinfra.NewClient(ctx, cfg)
		if err != nil {
			return nil, nil, nil, err
		}
		closers = append(closers, func() {
			if err := client.Disconnect(context.Background()); err != nil {
				slog.Warn("mongo disconnect", "err", err)
			}
		})
		db := client.Database(cfg.MongoDatabase)
		if err := mongoinfra.Bootstrap(ctx, db, cfg); err != nil {
			closeAll()
			return nil, nil, nil, err
		}
		users = mongoinfra.NewUserRepo(db.Collection(cfg.MongoUsersCollection))
		otps = mongoinfra.NewOtpRepo(db.Collection(cfg.MongoOtpsCollection))
	case config.BackendDynamo:
		client := dynamo.NewClient(cfg)
		dynamo.Bootstrap(ctx, client, cfg.DynamoTables)
		users = dynamo.NewUserRepo(client, cfg.DynamoTables.Users, cfg.DynamoTables.UserEmails)
		otps = dynamo.NewOtpRepo(client, cfg.DynamoTables.Otps)
	case config.BackendMemory:
		slog.Warn("using in-memory stores, data is lost on restart")
		users = memory.NewUserRepo()
		otps = memory.NewOtpRepo()
	default:
		return nil, nil, nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}

	switch cfg.OtpStoreBackend() {
	case cfg.StoreBackend:
	case config.BackendRedis:
		client, err := redisinfra.NewClient(ctx, cfg)
		if err != nil {
			closeAll()
			return nil, nil, nil, err
		}
		closers = append(closers, func() { _ = client.Close() })
		otps = redisinfra.NewOtpRepo(client)
	default:
		closeAll()
		return nil, nil, nil, fmt.Errorf("OTP_BACKEND %q must be empty, %q or %q",
			cfg.OtpBackend, cfg.StoreBackend, config.BackendRedis)
	}

	return users, otps, closeAll, nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
