//go:build wireinject

package main

import (
	"context"

	"github.com/google/wire"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/duetapp/duet-server/internal/config"
	"github.com/duetapp/duet-server/internal/domain/janitor"
	mediadomain "github.com/duetapp/duet-server/internal/domain/media"
	momentdomain "github.com/duetapp/duet-server/internal/domain/moment"
	syncdomain "github.com/duetapp/duet-server/internal/domain/sync"
	uploaddomain "github.com/duetapp/duet-server/internal/domain/upload"
	"github.com/duetapp/duet-server/internal/infrastructure/database"
	"github.com/duetapp/duet-server/internal/infrastructure/logger"
	mediarepo "github.com/duetapp/duet-server/internal/infrastructure/repository/media"
	momentrepo "github.com/duetapp/duet-server/internal/infrastructure/repository/moment"
	uploadrepo "github.com/duetapp/duet-server/internal/infrastructure/repository/upload"
	"github.com/duetapp/duet-server/internal/interfaces/httpserver"
	"github.com/duetapp/duet-server/internal/interfaces/httpserver/handlers"
)

var domainSet = wire.NewSet(
	mediarepo.NewRepository,
	wire.Bind(new(mediadomain.Repository), new(*mediarepo.Repository)),
	momentrepo.NewRepository,
	wire.Bind(new(momentdomain.Repository), new(*momentrepo.Repository)),
	uploadrepo.NewRepository,
	wire.Bind(new(uploaddomain.Repository), new(*uploadrepo.Repository)),
	provideBlobStore,
	mediadomain.NewService,
	momentdomain.NewCoordinator,
	wire.Bind(new(syncdomain.MomentAdmin), new(*momentdomain.Coordinator)),
	uploaddomain.NewService,
	syncdomain.NewService,
	janitor.New,
)

// BuildApplication assembles the server with Wire.
func BuildApplication(ctx context.Context) (*Application, error) {
	wire.Build(
		config.Load,
		logger.New,
		newDatabaseConfig,
		newGormDB,
		domainSet,
		handlers.NewProvider,
		httpserver.New,
		NewApplication,
	)
	return nil, nil
}

func newDatabaseConfig(cfg *config.Config) database.Config {
	return database.Config{
		DSN:             cfg.DatabaseDSN,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
		LogLevel:        gormlogger.Warn,
	}
}

func newGormDB(ctx context.Context, cfg database.Config, log zerolog.Logger) (*gorm.DB, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.AutoMigrate(ctx, db, log); err != nil {
		return nil, err
	}
	return db, nil
}
