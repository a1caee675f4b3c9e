package cmd

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

	"github.com/go-chi/chi"
	"github.com/hibiken/asynq"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/frahmantamala/rbac-api/internal"
	"github.com/frahmantamala/rbac-api/internal/auth"
	authPostgres "github.com/frahmantamala/rbac-api/internal/auth/postgres"
	"github.com/frahmantamala/rbac-api/internal/cache"
	"github.com/frahmantamala/rbac-api/internal/core/events"
	"github.com/frahmantamala/rbac-api/internal/file"
	filePostgres "github.com/frahmantamala/rbac-api/internal/file/postgres"
	"github.com/frahmantamala/rbac-api/internal/mailer"
	"github.com/frahmantamala/rbac-api/internal/notification"
	notificationPostgres "github.com/frahmantamala/rbac-api/internal/notification/postgres"
	"github.com/frahmantamala/rbac-api/internal/permission"
	permissionPostgres "github.com/frahmantamala/rbac-api/internal/permission/postgres"
	"github.com/frahmantamala/rbac-api/internal/role"
	rolePostgres "github.com/frahmantamala/rbac-api/internal/role/postgres"
	"github.com/frahmantamala/rbac-api/internal/transport"
	"github.com/frahmantamala/rbac-api/internal/transport/rest"
	"github.com/frahmantamala/rbac-api/internal/transport/swagger"
	"github.com/frahmantamala/rbac-api/internal/twofactor"
	twoFactorPostgres "github.com/frahmantamala/rbac-api/internal/twofactor/postgres"
	"github.com/frahmantamala/rbac-api/internal/user"
	userPostgres "github.com/frahmantamala/rbac-api/internal/user/postgres"
	"github.com/frahmantamala/rbac-api/pkg/logger"
)

const shutdownTimeout = 30 * time.Second

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config *internal.Config
	DB     *sqlx.DB
	Gorm   *gorm.DB
	Redis  *redis.Client
	Queue  *mailer.Queue
	Events *events.EventBus
	Router *chi.Mux
	Logger *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}
	defer deps.Close()

	if err := setupRoutes(deps); err != nil {
		deps.Logger.Error("failed to set up routes", "error", err)
		return
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("Starting HTTP server", "address", addr, "env", deps.Config.App.Env)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
		deps.Events.Wait()
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			deps.Logger.Error("Server failed to start", "error", err)
			return
		}
	}

	deps.Logger.Info("Server stopped")
}

func setupRoutes(deps *Dependencies) error {
	cfg := deps.Config
	lg := deps.Logger
	base := transport.NewBaseHandler(lg)

	permissionCache := cache.NewPermissionCache(deps.Redis, cfg.Security.PermissionCacheTTL)

	permissionService := permission.NewService(permissionPostgres.NewPermissionRepository(deps.Gorm), permissionCache, lg)
	roleService := role.NewService(rolePostgres.NewRoleRepository(deps.Gorm), permissionService, permissionCache, lg)
	userService := user.NewService(userPostgres.NewUserRepository(deps.Gorm), roleService, permissionService, lg).
		WithInvalidator(permissionCache).
		WithPublisher(deps.Events).
		WithBCryptCost(cfg.Security.BCryptCost)

	authRepo := authPostgres.NewRepository(deps.Gorm)
	twoFactorService := twofactor.NewService(twoFactorPostgres.NewTwoFactorRepository(deps.Gorm), authRepo, cfg.Security.TwoFactorIssuer, lg)
	authService := auth.NewService(authRepo, auth.NewJWTTokenGenerator(cfg.Security.JWTSecretKey, cfg.Security.AccessTokenDuration), lg).
		WithPasswordReset(cache.NewOTPStore(deps.Redis), deps.Queue, cfg.Security.PasswordResetOTPTTL).
		WithGrantCache(permissionCache).
		WithTwoFactor(twoFactorService).
		WithPublisher(deps.Events).
		WithBCryptCost(cfg.Security.BCryptCost)

	notificationService := notification.NewService(notificationPostgres.NewNotificationRepository(deps.Gorm), notification.NewLogPusher(lg), lg)
	notificationService.RegisterEventHandlers(deps.Events)

	var doc *swagger.Document
	if cfg.Server.OpenAPIPath != "" {
		d, err := swagger.Load(cfg.Server.OpenAPIPath)
		if err != nil {
			return err
		}
		lg.Info("openapi document loaded", "title", d.Title(), "paths", d.PathCount())
		doc = d
	}

	checks := map[string]rest.Check{
		"postgres": deps.DB.PingContext,
		"redis": func(ctx context.Context) error {
			return deps.Redis.Ping(ctx).Err()
		},
	}

	var fileHandler *file.Handler
	if cfg.Storage.Enabled() {
		store, err := file.NewS3Storage(context.Background(), cfg.Storage)
		if err != nil {
			return err
		}
		fileService := file.NewService(filePostgres.NewFileRepository(deps.Gorm), store, cfg.Storage.MaxUploadBytes, lg)
		fileHandler = file.NewHandler(base, fileService)
		checks["storage"] = store.Ping
		lg.Info("file storage enabled", "provider", store.Provider(), "bucket", cfg.Storage.Bucket)
	}

	health := rest.NewHealthHandler(checks)

	rest.RegisterAllRoutes(deps.Router, rest.Handlers{
		Auth:         auth.NewHandler(base, authService),
		User:         user.NewHandler(base, userService),
		Role:         role.NewHandler(base, roleService),
		Permission:   permission.NewHandler(base, permissionService),
		TwoFactor:    twofactor.NewHandler(base, twoFactorService),
		Notification: notification.NewHandler(base, notificationService),
		File:         fileHandler,
		Health:       health,
		OpenAPI:      doc,
	}, rest.Options{
		AllowedOrigins:        cfg.Server.Origins(),
		Production:            cfg.IsProduction(),
		AuthRequestsPerMinute: cfg.RateLimit.AuthRequestsPerMinute,
	}, lg)
	return nil
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	lg := logger.LoggerWrapper()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gdb, err := initGorm(db, config.App.Debug)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize orm: %w", err)
	}

	rdb, err := cache.New(context.Background(), config.Redis)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}

	return &Dependencies{
		Config: config,
		DB:     db,
		Gorm:   gdb,
		Redis:  rdb,
		Queue:  mailer.NewQueue(redisClientOpt(config.Redis)),
		Events: events.NewEventBus(lg),
		Router: chi.NewRouter(),
		Logger: lg,
	}, nil
}

func (d *Dependencies) Close() {
	if err := d.Queue.Close(); err != nil {
		d.Logger.Error("Queue close error", "error", err)
	}
	if err := d.Redis.Close(); err != nil {
		d.Logger.Error("Cache close error", "error", err)
	}
	if err := d.DB.Close(); err != nil {
		d.Logger.Error("Database close error", "error", err)
	}
}

// initDB opens the pgx-backed pool shared by the ORM and the health check.
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

func initGorm(db *sqlx.DB, debug bool) (*gorm.DB, error) {
	level := gormLogger.Warn
	if debug {
		level = gormLogger.Info
	}
	return gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{
		Logger:         gormLogger.Default.LogMode(level),
		TranslateError: true,
	})
}

func redisClientOpt(cfg internal.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}
