package upload

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	domain "github.com/duetapp/duet-server/internal/domain/upload"
	"github.com/duetapp/duet-server/internal/infrastructure/database/entities"
	"github.com/duetapp/duet-server/internal/utils/platformerrors"
)

// Repository handles upload session persistence.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, s *domain.Session) error {
	entity := toEntity(s)
	if err := r.db.WithContext(ctx).Create(&entity).Error; err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError, "failed to create upload session", err,
			"6d7e8f9a-0b1c-4d2e-8f3a-4b5c6d7e8f9a")
	}
	s.CreatedAt = entity.CreatedAt
	s.UpdatedAt = entity.UpdatedAt
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	var entity entities.UploadSession
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository,
				platformerrors.ErrorTypeNotFound, "upload session not found", err,
				"8f9a0b1c-2d3e-4f4a-8b5c-6d7e8f9a0b1c")
		}
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError, "failed to get upload session", err,
			"0b1c2d3e-4f5a-4b6c-8d7e-8f9a0b1c2d3e")
	}
	sess := fromEntity(entity)
	return &sess, nil
}

func (r *Repository) UpdateReceived(ctx context.Context, id string, received int64) error {
	err := r.db.WithContext(ctx).
		Model(&entities.UploadSession{}).
		Where("id = ?", id).
		Update("received", received).Error
	if err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError, "failed to advance upload offset", err,
			"2d3e4f5a-6b7c-4d8e-8f9a-0b1c2d3e4f5a")
	}
	return nil
}

// MarkFinalizing flips the session out of the receiving state. The guarded
// update dedupes concurrent finalizes: only one caller sees true.
func (r *Repository) MarkFinalizing(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&entities.UploadSession{}).
		Where("id = ? AND status = ?", id, entities.UploadStatusReceiving).
		Update("status", entities.UploadStatusFinalizing)
	if res.Error != nil {
		return false, platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError, "failed to mark upload finalizing", res.Error,
			"4f5a6b7c-8d9e-4f0a-8b1c-2d3e4f5a6b7c")
	}
	return res.RowsAffected == 1, nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&entities.UploadSession{}).Error
	if err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError, "failed to delete upload session", err,
			"6b7c8d9e-0f1a-4b2c-8d3e-4f5a6b7c8d9e")
	}
	return nil
}

func (r *Repository) ListIdleBefore(ctx context.Context, cutoff time.Time) ([]*domain.Session, error) {
	var rows []entities.UploadSession
	err := r.db.WithContext(ctx).Where("updated_at < ?", cutoff).Find(&rows).Error
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError, "failed to list idle upload sessions", err,
			"8d9e0f1a-2b3c-4d4e-8f5a-6b7c8d9e0f1a")
	}
	sessions := make([]*domain.Session, 0, len(rows))
	for _, row := range rows {
		sess := fromEntity(row)
		sessions = append(sessions, &sess)
	}
	return sessions, nil
}

func toEntity(s *domain.Session) entities.UploadSession {
	return entities.UploadSession{
		ID:         s.ID,
		CoupleID:   s.Metadata.CoupleID,
		ClientID:   s.Metadata.ClientID,
		Filename:   s.Metadata.Filename,
		MimeType:   s.Metadata.MimeType,
		MomentID:   s.Metadata.MomentID,
		MemoryID:   s.Metadata.MemoryID,
		UploadType: s.Metadata.UploadType,
		TotalSize:  s.TotalSize,
		Received:   s.Received,
		Status:     string(s.Status),
	}
}

func fromEntity(entity entities.UploadSession) domain.Session {
	return domain.Session{
		ID: entity.ID,
		Metadata: domain.Metadata{
			Filename:   entity.Filename,
			MimeType:   entity.MimeType,
			CoupleID:   entity.CoupleID,
			ClientID:   entity.ClientID,
			MomentID:   entity.MomentID,
			MemoryID:   entity.MemoryID,
			UploadType: entity.UploadType,
		},
		TotalSize: entity.TotalSize,
		Received:  entity.Received,
		Status:    domain.Status(entity.Status),
		CreatedAt: entity.CreatedAt,
		UpdatedAt: entity.UpdatedAt,
	}
}
