package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	gormlogger "gorm.io/gorm/logger"

	"github.com/duetapp/duet-server/internal/config"
	"github.com/duetapp/duet-server/internal/domain/janitor"
	mediadomain "github.com/duetapp/duet-server/internal/domain/media"
	momentdomain "github.com/duetapp/duet-server/internal/domain/moment"
	syncdomain "github.com/duetapp/duet-server/internal/domain/sync"
	uploaddomain "github.com/duetapp/duet-server/internal/domain/upload"
	"github.com/duetapp/duet-server/internal/infrastructure/blob"
	"github.com/duetapp/duet-server/internal/infrastructure/database"
	"github.com/duetapp/duet-server/internal/infrastructure/logger"
	"github.com/duetapp/duet-server/internal/infrastructure/observability"
	mediarepo "github.com/duetapp/duet-server/internal/infrastructure/repository/media"
	momentrepo "github.com/duetapp/duet-server/internal/infrastructure/repository/moment"
	uploadrepo "github.com/duetapp/duet-server/internal/infrastructure/repository/upload"
	"github.com/duetapp/duet-server/internal/interfaces/httpserver"
	"github.com/duetapp/duet-server/internal/interfaces/httpserver/handlers"
)

type Application struct {
	httpServer *httpserver.HttpServer
	janitor    *janitor.Janitor
	log        zerolog.Logger
}

func NewApplication(httpServer *httpserver.HttpServer, sweeper *janitor.Janitor, log zerolog.Logger) *Application {
	return &Application{
		httpServer: httpServer,
		janitor:    sweeper,
		log:        log,
	}
}

func (a *Application) Start(ctx context.Context) error {
	go a.janitor.Run(ctx)
	return a.httpServer.Run(ctx)
}

func main() {
	loadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observability.Setup(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize observability")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown telemetry")
		}
	}()

	db, err := database.Connect(database.Config{
		DSN:             cfg.DatabaseDSN,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
		LogLevel:        gormlogger.Warn,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}

	if err := database.AutoMigrate(ctx, db, log); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	blobs, err := provideBlobStore(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize blob store")
	}

	mediaRepository := mediarepo.NewRepository(db)
	momentRepository := momentrepo.NewRepository(db)
	uploadRepository := uploadrepo.NewRepository(db)

	pipeline := mediadomain.NewService(cfg, mediaRepository, blobs, log)
	coordinator := momentdomain.NewCoordinator(cfg, momentRepository, mediaRepository, blobs, log)
	uploads := uploaddomain.NewService(cfg, uploadRepository, pipeline, coordinator, log)
	syncer := syncdomain.NewService(mediaRepository, coordinator, log)
	sweeper := janitor.New(cfg, momentRepository, uploads, log)

	provider := handlers.NewProvider(cfg, pipeline, uploads, coordinator, syncer, log)
	httpServer := httpserver.New(cfg, log, provider, db, blobs)
	app := NewApplication(httpServer, sweeper, log)

	if err := app.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("application stopped with error")
	}

	log.Info().Msg("application exited cleanly")
}

// provideBlobStore creates the configured blob backend.
func provideBlobStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (blob.Store, error) {
	if cfg.IsLocalBlob() {
		return blob.NewLocalStore(cfg, log)
	}
	return blob.NewS3Store(ctx, cfg, log)
}

func loadEnvFiles() {
	paths := []string{".env", "../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}
