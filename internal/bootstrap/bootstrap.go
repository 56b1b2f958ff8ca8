package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	appControllers "github.com/yigit/studentinfo/internal/app/controllers"
	"github.com/yigit/studentinfo/internal/app/models/dto"
	appRepos "github.com/yigit/studentinfo/internal/app/repositories"
	appRoutes "github.com/yigit/studentinfo/internal/app/routes"
	"github.com/yigit/studentinfo/internal/app/schema"
	appServices "github.com/yigit/studentinfo/internal/app/services"
	"github.com/yigit/studentinfo/internal/config"
	"github.com/yigit/studentinfo/internal/db"
	appMiddleware "github.com/yigit/studentinfo/internal/middleware"
	"github.com/yigit/studentinfo/internal/pkg/filestorage"
	"github.com/yigit/studentinfo/internal/pkg/logger"
	"github.com/yigit/studentinfo/internal/pkg/metrics"
)

// Dependencies holds all the application dependencies
type Dependencies struct {
	StudentService     appServices.StudentService
	ContactService     appServices.ContactService
	ReconcileService   appServices.ReconcileService
	StudentController  *appControllers.StudentController
	ContactController  *appControllers.ContactController
	ArtifactController *appControllers.ArtifactController
	Repos              *appRepos.Repositories
	Metrics            *metrics.Metrics
	Logger             zerolog.Logger
	FileStorage        *filestorage.LocalStorage
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger() (*config.Config, zerolog.Logger, error) {
	configPath := filepath.Join("config", "config.yaml")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	format := logger.FormatJSON
	if strings.EqualFold(cfg.Logging.Format, string(logger.FormatConsole)) {
		format = logger.FormatConsole
	}
	logger.Configure(logger.Config{
		Level:  cfg.Logging.Level,
		Format: format,
	})

	lgr := logger.Get()
	lgr.Info().Str("logLevel", cfg.Logging.Level).Str("logFormat", string(format)).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupDatabase establishes the database connection, ensures the schema and checks it
// against the repository row mappings.
func SetupDatabase(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (*db.PostgresDB, error) {
	lgr.Info().Msg("Establishing database connection...")
	database, err := db.NewPostgresDB(ctx, cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}
	lgr.Info().Msg("Database connection successfully established.")

	if err := schema.Ensure(ctx, database); err != nil {
		database.Close()
		lgr.Error().Err(err).Msg("Failed to ensure database schema")
		return nil, fmt.Errorf("failed to ensure database schema: %w", err)
	}

	if err := appRepos.VerifySchema(ctx, database.Pool); err != nil {
		database.Close()
		lgr.Error().Err(err).Msg("Database schema does not match row mappings")
		return nil, err
	}

	return database, nil
}

// BuildDependencies initializes application repositories, services, and controllers.
func BuildDependencies(cfg *config.Config, database *db.PostgresDB, reg prometheus.Registerer, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Logger: lgr}

	deps.Repos = appRepos.NewRepositories(database.Pool)
	deps.Metrics = metrics.New(reg)

	var err error
	deps.FileStorage, err = filestorage.NewLocalStorage(cfg.Artifacts.Root, cfg.Artifacts.MaxFileSize)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to initialize file storage")
		return nil, fmt.Errorf("failed to initialize file storage: %w", err)
	}

	transactor := appServices.NewTransactor(database)

	deps.StudentService = appServices.NewStudentService(
		deps.Repos.StudentRepository,
		transactor,
		deps.FileStorage,
		deps.Metrics,
		lgr,
	)
	deps.ContactService = appServices.NewContactService(
		deps.Repos.ContactRepository,
		transactor,
		deps.Metrics,
		lgr,
	)
	deps.ReconcileService = appServices.NewReconcileService(
		deps.Repos.StudentRepository,
		deps.FileStorage,
		deps.Metrics,
		lgr,
	)

	deps.StudentController = appControllers.NewStudentController(deps.StudentService, deps.ContactService, cfg.Artifacts.PublicPath)
	deps.ContactController = appControllers.NewContactController(deps.ContactService)
	deps.ArtifactController = appControllers.NewArtifactController(deps.FileStorage)

	return deps, nil
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, database *db.PostgresDB, gatherer prometheus.Gatherer, lgr zerolog.Logger) *gin.Engine {
	if strings.ToLower(cfg.Server.Mode) == "production" {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	router := gin.New()
	router.Use(appMiddleware.RequestLogger(logger.Component("http")))
	router.Use(gin.Recovery())
	router.Use(appMiddleware.ErrorHandler())

	appRoutes.SetupRouter(router,
		deps.StudentController,
		deps.ContactController,
		deps.ArtifactController,
		cfg.Artifacts.PublicPath,
		cfg.Artifacts.MaxFileSize,
	)
	lgr.Info().Str("path", deps.FileStorage.Root()).Str("url", cfg.Artifacts.PublicPath).Msg("Artifact serving configured")

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	router.GET("/health", healthHandler(database))

	return router
}

func healthHandler(database *db.PostgresDB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := database.Pool.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, dto.APIResponse{
				Data: dto.HealthResponse{Status: "degraded", Database: "unreachable"},
			})
			return
		}
		c.JSON(http.StatusOK, dto.APIResponse{
			Data: dto.HealthResponse{Status: "ok", Database: "ok"},
		})
	}
}
