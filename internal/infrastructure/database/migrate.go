package database

import (
	"context"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/duetapp/duet-server/internal/infrastructure/database/entities"
)

// AutoMigrate applies database schema changes.
func AutoMigrate(ctx context.Context, db *gorm.DB, log zerolog.Logger) error {
	if err := db.WithContext(ctx).AutoMigrate(
		&entities.Moment{},
		&entities.MediaAsset{},
		&entities.UploadSession{},
	); err != nil {
		return err
	}
	log.Info().Msg("applied moment, media asset and upload session migrations")
	return nil
}
