package bootstrap

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	appControllers "github.com/GuilhermeRVaz/ceeja-painel-vite/internal/app/controllers"
	appMigrations "github.com/GuilhermeRVaz/ceeja-painel-vite/internal/app/migrations"
	appRepos "github.com/GuilhermeRVaz/ceeja-painel-vite/internal/app/repositories"
	appRoutes "github.com/GuilhermeRVaz/ceeja-painel-vite/internal/app/routes"
	appServices "github.com/GuilhermeRVaz/ceeja-painel-vite/internal/app/services"
	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/config"
	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/db"
	appMiddleware "github.com/GuilhermeRVaz/ceeja-painel-vite/internal/middleware"
	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/pkg/filestorage"
	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/pkg/logger"
	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/pkg/metrics"
	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/pkg/retry"
	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/seed"
)

// DefaultConfigPath is where the config file is looked up when none is given
var DefaultConfigPath = filepath.Join("configs", "config.yaml")

// Dependencies holds all the application dependencies
type Dependencies struct {
	Repos                 *appRepos.Repositories
	ReconciliationService *appServices.ReconciliationService
	AggregateService      *appServices.AggregateService
	DocumentService       *appServices.DocumentService
	EnrollmentController  *appControllers.EnrollmentController
	StudentController     *appControllers.StudentController
	DocumentController    *appControllers.DocumentController
	Signer                filestorage.URLSigner
	LocalStorage          *filestorage.LocalStorage // set for the local driver only
	Metrics               *metrics.Metrics
	Registry              *prometheus.Registry
	Logger                zerolog.Logger
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger(configPath string) (*config.Config, zerolog.Logger, error) {
	if configPath == "" {
		configPath = DefaultConfigPath
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Str("path", configPath).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.ParseLevel(cfg.Logging.Level)
	prettyLog := strings.ToLower(cfg.Logging.Format) == "text"

	logger.Configure(logger.Config{
		Level:  logLevel,
		Pretty: prettyLog,
	})

	lgr := logger.Get()
	lgr.Info().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupDatabase establishes the database connection and runs migrations.
func SetupDatabase(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (*db.Database, error) {
	lgr.Info().Str("driver", cfg.Database.Driver).Msg("Establishing database connection...")
	database, err := db.Open(cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}

	if err := database.Ping(ctx); err != nil {
		lgr.Error().Err(err).Msg("Failed to ping database")
		database.Close()
		return nil, err
	}
	lgr.Info().Msg("Database connection successfully established.")

	lgr.Info().Msg("Running database migrations...")
	migrator := appMigrations.NewMigrator(database)
	if dir := cfg.Database.MigrationsDir; dir != "" {
		err = migrator.MigrateFromDirectory(ctx, dir)
	} else {
		err = migrator.MigrateEmbedded(ctx)
	}
	if err != nil {
		lgr.Error().Err(err).Msg("Database migration error")
		database.Close()
		return nil, fmt.Errorf("database migrations failed: %w", err)
	}
	lgr.Info().Msg("Database migrations successfully applied.")

	return database, nil
}

// SetupSigner builds the document URL signer selected in the configuration.
// The local driver also returns the storage so its directory can be served.
func SetupSigner(ctx context.Context, cfg *config.Config) (filestorage.URLSigner, *filestorage.LocalStorage, error) {
	st := cfg.Storage
	switch st.Driver {
	case config.StorageS3:
		signer, err := filestorage.NewS3Signer(ctx, filestorage.S3Config{
			Bucket:          st.Bucket,
			Region:          st.Region,
			Endpoint:        st.Endpoint,
			AccessKeyID:     st.AccessKeyID,
			SecretAccessKey: st.SecretAccessKey,
			PathStyle:       st.PathStyle,
			Expiry:          st.SignedURLExpiry,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize s3 signer: %w", err)
		}
		return signer, nil, nil
	default:
		baseURL := st.PublicBaseURL
		if baseURL == "" {
			baseURL = "http://localhost:" + cfg.Server.Port + "/uploads"
		}
		local, err := filestorage.NewLocalStorage(cfg.Server.StoragePath, baseURL, st.SignedURLExpiry)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize file storage: %w", err)
		}
		return local, local, nil
	}
}

// RetryPolicy converts the reconciliation section into a retry policy
func RetryPolicy(cfg *config.Config) retry.Policy {
	p := retry.DefaultPolicy()
	p.MaxAttempts = cfg.Reconciliation.MaxAttempts
	p.InitialBackoff = cfg.Reconciliation.InitialBackoff
	p.Multiplier = cfg.Reconciliation.Multiplier
	return p
}

// BuildServices wires repositories and services. signer may be nil when only
// reconciliation is needed.
func BuildServices(cfg *config.Config, database *db.Database, signer filestorage.URLSigner, lgr zerolog.Logger) *Dependencies {
	deps := &Dependencies{Logger: lgr, Signer: signer}

	deps.Registry = prometheus.NewRegistry()
	deps.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	deps.Metrics = metrics.New(deps.Registry)

	deps.Repos = appRepos.NewRepositories(database)

	upserter := appServices.NewEntityUpserter(deps.Repos)
	identity := appServices.NewIdentityService(deps.Repos.Students)

	deps.ReconciliationService = appServices.NewReconciliationService(deps.Repos, identity, upserter, RetryPolicy(cfg), deps.Metrics)
	deps.AggregateService = appServices.NewAggregateService(deps.Repos, deps.Metrics)
	deps.DocumentService = appServices.NewDocumentService(deps.Repos, signer, deps.Metrics)

	policy := RetryPolicy(cfg)
	lgr.Info().
		Int("maxAttempts", policy.MaxAttempts).
		Interface("delays", policy.Delays()).
		Msg("Reconciliation retry policy configured")

	return deps
}

// BuildDependencies initializes application repositories, services, and controllers.
func BuildDependencies(ctx context.Context, cfg *config.Config, database *db.Database, lgr zerolog.Logger) (*Dependencies, error) {
	signer, local, err := SetupSigner(ctx, cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to initialize document storage")
		return nil, err
	}

	deps := BuildServices(cfg, database, signer, lgr)
	deps.LocalStorage = local

	if cfg.Database.SeedDemoData {
		if err := seed.CreateDemoData(ctx, deps.Repos, lgr); err != nil {
			lgr.Warn().Err(err).Msg("Demo data was only partially created")
		}
	}

	deps.EnrollmentController = appControllers.NewEnrollmentController(deps.ReconciliationService)
	deps.StudentController = appControllers.NewStudentController(deps.AggregateService, deps.DocumentService)
	deps.DocumentController = appControllers.NewDocumentController(deps.DocumentService)

	return deps, nil
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	appMiddleware.RegisterValidationRules()

	router := gin.New()
	router.Use(gin.Recovery(), appMiddleware.RequestLogger())

	appRoutes.SetupRouter(router,
		deps.EnrollmentController,
		deps.StudentController,
		deps.DocumentController,
	)

	if cfg.Metrics.Enabled {
		router.GET(cfg.Metrics.Path, gin.WrapH(promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})))
		lgr.Info().Str("path", cfg.Metrics.Path).Msg("Metrics endpoint enabled")
	}

	return router
}
