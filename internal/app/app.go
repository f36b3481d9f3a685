package app

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

	"s3-explorer/internal/config"
	"s3-explorer/internal/database"
	"s3-explorer/internal/handler"
	"s3-explorer/internal/metrics"
	"s3-explorer/internal/middleware"
	"s3-explorer/internal/repository"
	"s3-explorer/internal/router"
	"s3-explorer/internal/service"
	"s3-explorer/internal/storage"
)

type App struct {
	server       *http.Server
	handler      http.Handler
	cleanupFuncs []func()
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return Build(context.Background(), cfg)
}

type records struct {
	users   repository.UserStore
	grants  repository.GrantStore
	audit   repository.AuditStore
	trash   repository.TrashStore
	healthy handler.HealthCheck
	close   func()
}

// Build wires every component for cfg. The returned App owns the sweeper
// goroutine and the database pool until Run returns or Close is called.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	m := metrics.New()

	rawStore, err := openStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize object store: %w", err)
	}
	store := metrics.InstrumentStore(rawStore, m)

	recs, err := openRecords(ctx, cfg)
	if err != nil {
		return nil, err
	}

	auditService := service.NewAuditService(recs.audit, m)
	authService, err := service.NewAuthService(cfg.JWTSecret, cfg.JWTAccessTTL, recs.users)
	if err != nil {
		recs.close()
		return nil, fmt.Errorf("failed to initialize auth service: %w", err)
	}
	if err := authService.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		recs.close()
		return nil, fmt.Errorf("failed to bootstrap admin user: %w", err)
	}

	permissionService := service.NewPermissionService(recs.grants, recs.users, auditService, m)
	browserService := service.NewBrowserService(store, permissionService, auditService, service.BrowserConfig{
		TrashPrefix:      cfg.TrashPrefix,
		PresignTTL:       cfg.PresignTTL,
		SearchMaxResults: cfg.SearchMaxResults,
		MoveConcurrency:  cfg.MoveConcurrency,
	})
	trashService := service.NewTrashService(store, recs.trash, permissionService, auditService, m, service.TrashConfig{
		Prefix:      cfg.TrashPrefix,
		Retention:   cfg.TrashRetention,
		Concurrency: cfg.MoveConcurrency,
	})
	bulkService := service.NewBulkService(browserService, trashService, store, permissionService, auditService, cfg.TrashPrefix)

	sweeper := service.NewTrashSweeper(trashService, auditService, m, cfg.TrashSweepInterval, cfg.AuditRetention)
	sweeper.Start(context.Background())

	authMiddleware := middleware.NewAuthMiddleware(authService).RecordDenials(auditService)
	appRouter := router.New(cfg, authMiddleware, router.Handlers{
		Auth:    handler.NewAuthHandler(authService, auditService),
		Browser: handler.NewBrowserHandler(browserService, trashService, cfg.MaxUploadSize),
		Bulk:    handler.NewBulkHandler(bulkService),
		Trash:   handler.NewTrashHandler(trashService),
		Admin:   handler.NewAdminHandler(authService, permissionService, auditService, browserService),
		Health: handler.NewHealthHandler(map[string]handler.HealthCheck{
			"database": recs.healthy,
			"storage":  storeHealth(store),
		}),
	}, m)

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return &App{
		server:  server,
		handler: appRouter,
		cleanupFuncs: []func(){
			sweeper.Stop,
			recs.close,
		},
	}, nil
}

func openStore(ctx context.Context, cfg *config.Config) (storage.ObjectStore, error) {
	if cfg.StorageBackend == config.StorageBackendMemory {
		slog.Warn("using in-memory object store; contents are lost on restart")
		return storage.NewMemoryStore("memory"), nil
	}

	s3Store, err := storage.NewS3Store(storage.S3Config{
		Endpoint:       cfg.S3Endpoint,
		Region:         cfg.S3Region,
		Bucket:         cfg.S3Bucket,
		AccessKey:      cfg.S3AccessKey,
		SecretKey:      cfg.S3SecretKey,
		UseSSL:         cfg.S3UseSSL,
		ForcePathStyle: cfg.S3ForcePathStyle,
		PartSize:       cfg.S3PartSize,
	})
	if err != nil {
		return nil, err
	}

	if cfg.S3CreateBucket {
		if err := s3Store.EnsureBucket(ctx); err != nil {
			return nil, err
		}
	}

	slog.Info("object store ready", "endpoint", cfg.S3Endpoint, "bucket", cfg.S3Bucket)
	return s3Store, nil
}

func openRecords(ctx context.Context, cfg *config.Config) (records, error) {
	if cfg.DatabaseURL == "" {
		slog.Warn("DATABASE_URL not set; users, grants, trash and audit are kept in memory")
		return records{
			users:   repository.NewMemoryUserStore(),
			grants:  repository.NewMemoryGrantStore(),
			audit:   repository.NewMemoryAuditStore(),
			trash:   repository.NewMemoryTrashStore(),
			healthy: func(context.Context) error { return nil },
			close:   func() {},
		}, nil
	}

	slog.Info("connecting to PostgreSQL")
	db, err := database.New(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return records{}, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		return records{}, fmt.Errorf("failed to ensure database schema: %w", err)
	}
	slog.Info("database ready")

	pool := db.Pool
	return records{
		users:   repository.NewUserRepository(pool),
		grants:  repository.NewGrantRepository(pool),
		audit:   repository.NewAuditRepository(pool),
		trash:   repository.NewTrashRepository(pool),
		healthy: db.Health,
		close:   db.Close,
	}, nil
}

func storeHealth(store storage.ObjectStore) handler.HealthCheck {
	return func(ctx context.Context) error {
		_, err := store.ListPage(ctx, "", "/", "", 1)
		return err
	}
}

// Handler exposes the router without starting a listener.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Close releases background work and connections.
func (a *App) Close() {
	for _, cleanup := range a.cleanupFuncs {
		cleanup()
	}
}

func (a *App) Run() error {
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if serveErr := a.server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("server failed", "error", serveErr)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	shutdownErr := a.server.Shutdown(ctx)
	a.Close()

	if shutdownErr != nil {
		return fmt.Errorf("graceful shutdown failed: %w", shutdownErr)
	}

	slog.Info("server stopped")
	return nil
}
