package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"

	"gradelens/adapters/postgres"
	"gradelens/app"
	"gradelens/internal"
	"gradelens/internal/analysis"
	"gradelens/internal/config"
	"gradelens/internal/loader"
	"gradelens/internal/session"
	"gradelens/internal/storage"
	"gradelens/ui"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := internal.NewLogger(internal.ParseLogLevel(appConfig.Log.Level), os.Stderr)
	internal.SetDefault(logger)
	gin.SetMode(appConfig.Server.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	uploads := storage.NewLocalFileStorage(&storage.StorageConfig{
		BasePath:    appConfig.Data.UploadDir,
		MaxFileSize: int64(appConfig.Data.MaxUploadMB) << 20,
	})
	service := app.NewAnalysisService(
		loader.NewCache(appConfig.Analysis.BinSpecs, logger),
		session.NewManager(),
		uploads,
		analysis.DashboardOptions{CohortSize: appConfig.Analysis.DefaultCohortSize},
		logger,
	)

	// Configure default data sources
	if appConfig.Data.File != "" {
		if _, err := service.OpenFile(ctx, appConfig.Data.File, appConfig.Data.Sheet); err != nil {
			log.Fatalf("Failed to open %s: %v", appConfig.Data.File, err)
		}
	}
	if appConfig.Database.Enabled() {
		db, err := openDatabaseSession(ctx, service, appConfig.Database)
		if err != nil {
			log.Fatalf("Failed to open table %s: %v", appConfig.Database.Table, err)
		}
		defer db.Close()
	}

	server := ui.NewServer(service, ui.ServerOptions{
		MaxUploadBytes:  int64(appConfig.Data.MaxUploadMB) << 20,
		AllowLocalFiles: appConfig.Server.GinMode != gin.ReleaseMode,
		Metrics:         appConfig.Metrics.Enabled,
	}, logger)

	if err := server.Start(ctx, ":"+appConfig.Server.Port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// openDatabaseSession opens a session over the configured Postgres table.
// The connection stays open for the lifetime of the process.
func openDatabaseSession(ctx context.Context, service *app.AnalysisService, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := postgres.Connect(ctx, cfg.URL)
	if err != nil {
		return nil, err
	}
	src, err := postgres.NewTableSource(db, cfg.Table)
	if err == nil {
		_, err = service.Open(ctx, cfg.Table, src)
	}
	if err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
