package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"opd-room-tracker/config"
	deliveryHttp "opd-room-tracker/internal/delivery/http"
	"opd-room-tracker/internal/delivery/http/handler"
	"opd-room-tracker/internal/delivery/http/middleware"
	"opd-room-tracker/internal/infrastructure/cache"
	"opd-room-tracker/internal/infrastructure/database"
	"opd-room-tracker/internal/repository"
	"opd-room-tracker/internal/service"
	"opd-room-tracker/internal/usecase"
	"opd-room-tracker/pkg/clock"
	"opd-room-tracker/pkg/jwt"
	"opd-room-tracker/pkg/validator"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// App holds all dependencies for the application
type App struct {
	Config      *config.Config
	DB          *gorm.DB
	RedisClient *redis.Client
	Server      *http.Server
	Sweeper     *service.StaleVisitSweeper
	SlotGuard   *service.VisitSlotGuard
}

// New creates a new App instance with all dependencies initialized
func New() (*App, error) {
	app := &App{}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	app.Config = cfg

	// Setup logger
	setupLogger(cfg.App.LogLevel)
	logrus.Info("Configuration loaded successfully")

	clk, err := clock.New(cfg.App.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone: %w", err)
	}
	logrus.Infof("Civil day resolved in %s", clk.Location())

	// Initialize database
	db, err := database.NewPostgresConnection(cfg.DB, cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	app.DB = db
	logrus.Info("Database connected successfully")

	if cfg.DB.MigrateOnStart {
		if err := database.Migrate(db, cfg.DB.Name); err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	// Redis only backs the cross-instance slot lease; without it each instance still
	// serializes locally and the visits unique index rejects the rest.
	redisClient, err := cache.NewRedisClient(cfg.Redis)
	if err != nil {
		logrus.Warnf("Redis unavailable, visit slot locks are process-local: %v", err)
	} else {
		app.RedisClient = redisClient
		logrus.Info("Redis connected successfully")
	}

	// Initialize all layers
	app.initialize(cfg, clk)

	return app, nil
}

// setupLogger configures the logrus logger
func setupLogger(level string) {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetOutput(os.Stdout)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
}

// initialize wires repositories, usecases, background workers and the HTTP server
func (app *App) initialize(cfg *config.Config, clk clock.Clock) {
	log := logrus.StandardLogger()

	// Initialize JWT service
	jwtService := jwt.NewJWTService(cfg.JWT)

	// Initialize validator
	customValidator := validator.NewValidator()

	// Initialize repositories
	txManager := repository.NewTxManager(app.DB)
	roomRepo := repository.NewRoomRepository()
	doctorRepo := repository.NewDoctorRepository()
	patientRepo := repository.NewPatientRepository()
	visitRepo := repository.NewVisitRepository()
	auditLogRepo := repository.NewAuditLogRepository()

	// Initialize services
	auditSvc := service.NewAuditService(log, auditLogRepo)
	app.SlotGuard = service.NewVisitSlotGuard(app.RedisClient, log, cfg.Visit.SlotLockTTL)

	// Initialize usecases
	roomUsecase := usecase.NewRoomUsecase(txManager, log, clk, roomRepo, doctorRepo, patientRepo, visitRepo, auditSvc)
	doctorRoomUsecase := usecase.NewDoctorRoomUsecase(txManager, log, clk, doctorRepo, roomRepo, visitRepo, auditSvc)
	visitUsecase := usecase.NewVisitUsecase(txManager, log, clk, doctorRepo, visitRepo, app.SlotGuard, auditSvc)
	assignmentUsecase := usecase.NewAssignmentUsecase(txManager, log, clk, roomRepo, doctorRepo, patientRepo, visitRepo, app.SlotGuard, auditSvc)
	auditLogUsecase := usecase.NewAuditLogUsecase(txManager, log, auditLogRepo)

	// Background auto-close of visits left open on previous days
	app.Sweeper = service.NewStaleVisitSweeper(visitUsecase, log, cfg.Visit.SweepInterval)

	// Initialize handlers
	roomHandler := handler.NewRoomHandler(roomUsecase, customValidator)
	doctorRoomHandler := handler.NewDoctorRoomHandler(doctorRoomUsecase, customValidator)
	patientHandler := handler.NewPatientHandler(assignmentUsecase, visitUsecase, customValidator)
	visitHandler := handler.NewVisitHandler(visitUsecase, clk)
	auditLogHandler := handler.NewAuditLogHandler(auditLogUsecase)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(jwtService)
	corsMiddleware := middleware.NewCORSMiddleware()
	requestLogger := middleware.NewRequestLogger(log)

	// Initialize router
	router := deliveryHttp.NewRouter(
		roomHandler,
		doctorRoomHandler,
		patientHandler,
		visitHandler,
		auditLogHandler,
		authMiddleware,
		corsMiddleware,
		requestLogger,
	)
	httpRouter := router.Setup()

	// Create server
	serverAddr := fmt.Sprintf(":%s", cfg.App.Port)
	app.Server = &http.Server{
		Addr:              serverAddr,
		Handler:           httpRouter,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// Run starts the HTTP server and handles graceful shutdown
func (app *App) Run() {
	app.Sweeper.Start()

	// Start server in goroutine
	go func() {
		logrus.Infof("Server starting on port %s", app.Config.App.Port)
		logrus.Infof("Environment: %s", app.Config.App.Env)
		if err := app.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	app.waitForShutdown()
}

// waitForShutdown blocks until an interrupt signal is received
func (app *App) waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	// Create shutdown context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown HTTP server gracefully
	if err := app.Server.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	// Close connections
	app.Close()

	logrus.Info("Server shutdown complete")
}

// Close stops background workers, then closes all connections (database, redis)
func (app *App) Close() {
	if app.Sweeper != nil {
		app.Sweeper.Stop()
	}
	if app.SlotGuard != nil {
		app.SlotGuard.Stop()
	}

	// Close database connection
	if app.DB != nil {
		sqlDB, err := app.DB.DB()
		if err == nil {
			sqlDB.Close()
		}
	}

	// Close Redis connection
	if app.RedisClient != nil {
		app.RedisClient.Close()
	}
}
