package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"leaveflow/internal/domain/auth"
	"leaveflow/internal/domain/directory"
	"leaveflow/internal/domain/leave"
	"leaveflow/internal/platform/config"
	"leaveflow/internal/platform/db"
	"leaveflow/internal/platform/fixtures"
	"leaveflow/internal/platform/lock"
	"leaveflow/internal/platform/metrics"
	"leaveflow/internal/transport/http/api"
	authhandler "leaveflow/internal/transport/http/handlers/auth"
	leavehandler "leaveflow/internal/transport/http/handlers/leave"
	"leaveflow/internal/transport/http/middleware"
)

type App struct {
	Config  config.Config
	Router  http.Handler
	Leave   *leave.Service
	Metrics *metrics.Collector

	logger *zap.Logger
	pool   *pgxpool.Pool
	redis  *redis.Client
}

type storage struct {
	directory directory.Directory
	leave     leave.Store
	creds     auth.CredentialStore
}

// New wires storage, locking and HTTP routing from cfg. Callers must Close the App.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	app := &App{Config: cfg, Metrics: metrics.New(), logger: logger}

	if cfg.JWTSecret == "" {
		if cfg.IsProduction() {
			return nil, errors.New("JWT_SECRET is required in production")
		}
		cfg.JWTSecret = uuid.NewString()
		app.Config.JWTSecret = cfg.JWTSecret
		logger.Warn("JWT_SECRET not set, using a random secret; tokens will not survive a restart")
	}

	users, err := loadFixtures(cfg)
	if err != nil {
		return nil, err
	}

	store, err := app.openStorage(ctx, cfg, users)
	if err != nil {
		app.Close()
		return nil, err
	}

	locker, err := app.openLocker(ctx, cfg)
	if err != nil {
		app.Close()
		return nil, err
	}

	enforcer, err := auth.NewEnforcer()
	if err != nil {
		app.Close()
		return nil, err
	}

	app.Leave = leave.NewService(store.leave, store.directory,
		leave.WithLocker(locker),
		leave.WithRecorder(app.Metrics),
		leave.WithLogger(logger),
		leave.WithRecordFont(cfg.PDFFontPath),
	)
	authService := auth.NewService(store.creds, cfg.JWTSecret, cfg.TokenTTL, logger)

	app.Router = app.routes(cfg, enforcer, authService, store.directory)
	return app, nil
}

func loadFixtures(cfg config.Config) (fixtures.File, error) {
	var users fixtures.File
	if cfg.FixturesPath != "" {
		loaded, err := fixtures.Load(cfg.FixturesPath)
		if err != nil {
			return fixtures.File{}, err
		}
		users = loaded
	}
	if cfg.RunSeed {
		users = users.WithAdmin(cfg.SeedAdminUsername, cfg.SeedAdminPassword)
	}
	return users, nil
}

func (a *App) openStorage(ctx context.Context, cfg config.Config, users fixtures.File) (storage, error) {
	if cfg.StorageDriver == config.StorageDriverMemory {
		dir := directory.NewMemory()
		creds := auth.NewMemoryStore()
		if err := users.Populate(dir, creds); err != nil {
			return storage{}, err
		}
		a.logger.Info("using in-memory storage", zap.Int("users", len(users.Users)))
		return storage{directory: dir, leave: leave.NewMemoryStore(), creds: creds}, nil
	}

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return storage{}, fmt.Errorf("db connect failed: %w", err)
	}
	a.pool = pool

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, cfg.MigrationsDir, a.logger); err != nil {
			return storage{}, fmt.Errorf("migrations failed: %w", err)
		}
	}
	if cfg.RunSeed || cfg.FixturesPath != "" {
		if err := db.Seed(ctx, pool, users, a.logger); err != nil {
			return storage{}, fmt.Errorf("seed failed: %w", err)
		}
	}
	return storage{
		directory: directory.NewStore(pool),
		leave:     leave.NewStore(pool),
		creds:     auth.NewStore(pool),
	}, nil
}

func (a *App) openLocker(ctx context.Context, cfg config.Config) (lock.Locker, error) {
	if cfg.LockDriver != config.LockDriverRedis {
		return lock.NewLocal(), nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	a.redis = client
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return lock.NewRedis(client, cfg.LockTTL, a.logger), nil
}

func (a *App) routes(cfg config.Config, enforcer *auth.Enforcer, authService *auth.Service, users directory.Directory) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(a.logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Metrics(a.Metrics))
	router.Use(middleware.SecureHeaders(cfg.IsProduction()))
	router.Use(middleware.Auth(cfg.JWTSecret, a.logger))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.ready(ctx); err != nil {
			a.logger.Warn("readiness check failed", zap.Error(err))
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	router.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, a.Metrics.Snapshot(), middleware.GetRequestID(r.Context()))
	})

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
		r.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))
		r.Use(middleware.SensitiveMutationRateLimit(cfg.RateLimitPerMinute, time.Minute))

		authHandler := authhandler.NewHandler(authService, users)
		r.Post("/auth/login", authHandler.HandleLogin)
		r.With(middleware.RequirePermission(auth.PermDirectoryRead, enforcer)).Get("/auth/me", authHandler.HandleMe)

		leavehandler.NewHandler(a.Leave, enforcer).RegisterRoutes(r)
	})

	return router
}

func (a *App) ready(ctx context.Context) error {
	if a.pool != nil {
		if err := a.pool.Ping(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

// Run serves HTTP until ctx is cancelled, then drains connections for up to
// Config.ShutdownTimeout.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.Config.Addr,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("leaveflow listening", zap.String("addr", a.Config.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		timeout := a.Config.ShutdownTimeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		a.logger.Info("shutting down", zap.Duration("timeout", timeout))
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func (a *App) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("redis close failed", zap.Error(err))
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
