package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"swiftfiles/internal/api"
	"swiftfiles/internal/config"
	"swiftfiles/internal/handlers"
	"swiftfiles/internal/logging"
	"swiftfiles/internal/models"
	"swiftfiles/internal/repositories"
	"swiftfiles/internal/services"
	"swiftfiles/internal/storage"
	"swiftfiles/pkg/rabbitmq"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// App bundles the HTTP application with the resources it owns.
type App struct {
	Fiber  *fiber.App
	Logger logging.Logger

	mq      *rabbitmq.Client
	closers []func() error
}

// NewApp wires repositories, blob storage, optional events, services and routes.
func NewApp(ctx context.Context, cfg *config.Config, log logging.Logger) (*App, error) {
	app := &App{Logger: log}

	// --- Repositories ---
	var (
		userRepo repositories.UserRepository
		fileRepo repositories.FileRepository
	)
	switch cfg.DatabaseDriver {
	case "memory":
		userRepo = repositories.NewMockUserRepository()
		fileRepo = repositories.NewMockFileRepository()
		log.Warn(ctx, "using in-memory metadata store, data is lost on exit")
	default:
		db, err := repositories.OpenDatabase(cfg.DatabaseDriver, cfg.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database handle: %w", err)
		}
		app.closers = append(app.closers, sqlDB.Close)
		userRepo = repositories.NewGORMUserRepository(db)
		fileRepo = repositories.NewGORMFileRepository(db)
	}

	// --- Blob storage ---
	blobs, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	var staticRoot string
	if local, ok := blobs.(*storage.LocalStorage); ok {
		staticRoot = local.Root()
	}

	// --- Events (optional) ---
	var events services.EventPublisher
	if cfg.RabbitMQURL != "" {
		mq, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL})
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to initialize RabbitMQ client: %w", err)
		}
		app.mq = mq
		app.closers = append(app.closers, mq.Close)
		events = mq
	}

	// --- Services ---
	if cfg.JWTSecret == config.DefaultJWTSecret {
		log.Warn(ctx, "JWT_SECRET is the development default; set a real secret in production")
	}
	authService := services.NewAuthService(userRepo, cfg.JWTSecret, cfg.TokenTTL, log)
	fileService := services.NewFileService(fileRepo, blobs, events, cfg.MaxUploadBytes, log)

	app.Fiber = api.NewRouter(api.Options{
		AuthService: authService,
		FileService: fileService,
		Links: handlers.LinkConfig{
			PublicBaseURL: cfg.PublicBaseURL,
			APIBaseURL:    cfg.APIBaseURL,
		},
		StaticRoot:         staticRoot,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		Logger:             log,
		AccessLog:          os.Stdout,
	})
	return app, nil
}

// Close releases the database and broker connections.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Run serves until ctx is cancelled, then shuts the server down gracefully.
func (a *App) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.Info(ctx, "starting server", "addr", ln.Addr().String())
		if err := a.Fiber.Listener(ln); err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		a.Logger.Info(context.Background(), "shutting down server")
		err := a.Fiber.ShutdownWithTimeout(shutdownTimeout)
		// Shutdown misses a listener that is not being served yet.
		if closeErr := ln.Close(); closeErr != nil && !errors.Is(closeErr, net.ErrClosed) && err == nil {
			err = closeErr
		}
		return err
	})

	if a.mq != nil {
		// Log lifecycle events for operators; orphaned blobs need manual cleanup.
		if err := a.mq.ConsumeFileEvents(func(event models.FileEvent) error {
			if event.Type == models.EventBlobOrphaned {
				a.Logger.Warn(ctx, "orphaned blob reported", "file_id", event.FileID, "storage_key", event.StorageKey)
				return nil
			}
			a.Logger.Debug(ctx, "file event", "type", event.Type, "file_id", event.FileID)
			return nil
		}); err != nil {
			a.Logger.Error(ctx, "failed to start RabbitMQ consumer", "error", err)
		}
	}

	return g.Wait()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	log := logging.New(os.Stdout, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := NewApp(ctx, cfg, log)
	if err != nil {
		log.Error(ctx, "failed to start", "error", err)
		os.Exit(1)
	}

	runErr := app.Run(ctx, cfg.AppPort)
	if err := app.Close(); err != nil {
		log.Error(context.Background(), "error during shutdown", "error", err)
	}
	if runErr != nil {
		log.Error(context.Background(), "server stopped with error", "error", runErr)
		os.Exit(1)
	}
	log.Info(context.Background(), "server gracefully stopped")
}
