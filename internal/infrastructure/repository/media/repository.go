package media

import (
	"context"
	"errors"

	"gorm.io/gorm"

	domain "github.com/duetapp/duet-server/internal/domain/media"
	"github.com/duetapp/duet-server/internal/infrastructure/database/entities"
	"github.com/duetapp/duet-server/internal/utils/platformerrors"
)

// Repository handles media asset persistence.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByHashInCouple returns the asset with the given content hash owned by
// the couple, or nil when no match exists. The couple scope is what keeps
// dedup from leaking media across tenants.
func (r *Repository) FindByHashInCouple(ctx context.Context, coupleID, hash string) (*domain.Asset, error) {
	var entity entities.MediaAsset
	err := r.db.WithContext(ctx).
		Where("couple_id = ? AND sha256 = ?", coupleID, hash).
		First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError, "failed to find media by hash", err,
			"b41f6f2c-8c3a-4f7e-9a4d-2e1b5c6d7f80")
	}
	asset := FromEntity(entity)
	return &asset, nil
}

func (r *Repository) Create(ctx context.Context, asset *domain.Asset) error {
	entity := ToEntity(asset)
	if err := r.db.WithContext(ctx).Create(&entity).Error; err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError, "failed to create media asset", err,
			"3f9a1d2b-7c4e-4b8a-9d0f-6e5a4b3c2d1e")
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, coupleID, id string) (*domain.Asset, error) {
	var entity entities.MediaAsset
	err := r.db.WithContext(ctx).
		Where("id = ? AND couple_id = ?", id, coupleID).
		First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository,
				platformerrors.ErrorTypeNotFound, "media asset not found", err,
				"8d2c4e6f-1a3b-4c5d-8e9f-0a1b2c3d4e5f")
		}
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError, "failed to get media asset", err,
			"5a6b7c8d-9e0f-4a1b-8c2d-3e4f5a6b7c8d")
	}
	asset := FromEntity(entity)
	return &asset, nil
}

func (r *Repository) ListByMomentID(ctx context.Context, coupleID, momentID string) ([]*domain.Asset, error) {
	var rows []entities.MediaAsset
	err := r.db.WithContext(ctx).
		Where("couple_id = ? AND moment_id = ?", coupleID, momentID).
		Find(&rows).Error
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError, "failed to list media by moment", err,
			"0c1d2e3f-4a5b-4c6d-8e7f-9a0b1c2d3e4f")
	}
	assets := make([]*domain.Asset, 0, len(rows))
	for _, row := range rows {
		asset := FromEntity(row)
		assets = append(assets, &asset)
	}
	return assets, nil
}

func (r *Repository) DeleteByMomentID(ctx context.Context, coupleID, momentID string) error {
	err := r.db.WithContext(ctx).
		Where("couple_id = ? AND moment_id = ?", coupleID, momentID).
		Delete(&entities.MediaAsset{}).Error
	if err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError, "failed to delete media by moment", err,
			"7e8f9a0b-1c2d-4e3f-8a4b-5c6d7e8f9a0b")
	}
	return nil
}

// SetFavorite is idempotent: repeating it with the same value is a no-op.
func (r *Repository) SetFavorite(ctx context.Context, coupleID, id string, favorite bool) error {
	result := r.db.WithContext(ctx).
		Model(&entities.MediaAsset{}).
		Where("id = ? AND couple_id = ?", id, coupleID).
		Update("is_favorite", favorite)
	if result.Error != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError, "failed to update favorite flag", result.Error,
			"2b3c4d5e-6f7a-4b8c-9d0e-1f2a3b4c5d6e")
	}
	if result.RowsAffected == 0 {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeNotFound, "media asset not found", nil,
			"9f0a1b2c-3d4e-4f5a-8b6c-7d8e9f0a1b2c")
	}
	return nil
}

// ToEntity maps a domain asset onto its persistence row.
func ToEntity(asset *domain.Asset) entities.MediaAsset {
	return entities.MediaAsset{
		ID:            asset.ID,
		CoupleID:      asset.CoupleID,
		Sha256:        asset.Sha256,
		Filename:      asset.Filename,
		OriginalName:  asset.OriginalName,
		StoragePath:   asset.StoragePath,
		ThumbnailPath: asset.ThumbnailPath,
		VideoPath:     asset.VideoPath,
		MimeType:      asset.MimeType,
		Bytes:         asset.Bytes,
		Width:         asset.Width,
		Height:        asset.Height,
		Category:      asset.Category,
		IsCombined:    asset.IsCombined,
		IsFavorite:    asset.IsFavorite,
		MemoryID:      asset.MemoryID,
		MomentID:      asset.MomentID,
		CreatedBy:     asset.CreatedBy,
	}
}

// FromEntity maps a persistence row back to the domain asset.
func FromEntity(entity entities.MediaAsset) domain.Asset {
	return domain.Asset{
		ID:            entity.ID,
		CoupleID:      entity.CoupleID,
		Sha256:        entity.Sha256,
		Filename:      entity.Filename,
		OriginalName:  entity.OriginalName,
		StoragePath:   entity.StoragePath,
		ThumbnailPath: entity.ThumbnailPath,
		VideoPath:     entity.VideoPath,
		MimeType:      entity.MimeType,
		Bytes:         entity.Bytes,
		Width:         entity.Width,
		Height:        entity.Height,
		Category:      entity.Category,
		IsCombined:    entity.IsCombined,
		IsFavorite:    entity.IsFavorite,
		MemoryID:      entity.MemoryID,
		MomentID:      entity.MomentID,
		CreatedBy:     entity.CreatedBy,
		CreatedAt:     entity.CreatedAt,
		UpdatedAt:     entity.UpdatedAt,
	}
}
