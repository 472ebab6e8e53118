package moment

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "github.com/duetapp/duet-server/internal/domain/moment"
	"github.com/duetapp/duet-server/internal/infrastructure/database/entities"
	mediarepo "github.com/duetapp/duet-server/internal/infrastructure/repository/media"
	"github.com/duetapp/duet-server/internal/utils/platformerrors"
)

// Repository handles moment persistence. Submit is the atomic
// read-decide-write primitive the capture state machine runs inside.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, m *domain.Moment) error {
	entity := toEntity(m)
	if err := r.db.WithContext(ctx).Create(&entity).Error; err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError, "failed to create moment", err,
			"a1b2c3d4-e5f6-4a7b-8c9d-0e1f2a3b4c5d")
	}
	m.CreatedAt = entity.CreatedAt
	m.UpdatedAt = entity.UpdatedAt
	return nil
}

func (r *Repository) GetByID(ctx context.Context, coupleID, id string) (*domain.Moment, error) {
	var entity entities.Moment
	err := r.db.WithContext(ctx).
		Where("id = ? AND couple_id = ?", id, coupleID).
		First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository,
				platformerrors.ErrorTypeNotFound, "moment not found", err,
				"2b3c4d5e-6f7a-4b8c-9d0e-1f2a3b4c5d6e")
		}
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError, "failed to get moment", err,
			"9c0d1e2f-3a4b-4c5d-8e6f-7a8b9c0d1e2f")
	}
	m := fromEntity(entity)
	return &m, nil
}

// Submit locks the moment row FOR UPDATE, re-reads its state, runs the
// decision, and persists the post-state — plus the combined asset row when
// the decision completes the moment — in one transaction. Two concurrent
// submissions for the same moment serialize on the row lock; the loser's
// decision sees the winner's committed state.
func (r *Repository) Submit(ctx context.Context, coupleID, momentID string, decide domain.DecideFunc) (*domain.Moment, error) {
	var out *domain.Moment
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entity entities.Moment
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND couple_id = ?", momentID, coupleID).
			First(&entity).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return platformerrors.NewError(ctx, platformerrors.LayerRepository,
					platformerrors.ErrorTypeNotFound, "moment not found", err,
					"4d5e6f7a-8b9c-4d0e-8f1a-2b3c4d5e6f7a")
			}
			return platformerrors.NewError(ctx, platformerrors.LayerRepository,
				platformerrors.ErrorTypeDatabaseError, "failed to lock moment", err,
				"6f7a8b9c-0d1e-4f2a-8b3c-4d5e6f7a8b9c")
		}

		m := fromEntity(entity)
		decision, err := decide(&m)
		if err != nil {
			return err
		}

		updated := toEntity(decision.Moment)
		updated.CreatedAt = entity.CreatedAt
		if err := tx.Save(&updated).Error; err != nil {
			return platformerrors.NewError(ctx, platformerrors.LayerRepository,
				platformerrors.ErrorTypeDatabaseError, "failed to persist moment state", err,
				"8b9c0d1e-2f3a-4b4c-8d5e-6f7a8b9c0d1e")
		}

		if decision.CombinedAsset != nil {
			assetEntity := mediarepo.ToEntity(decision.CombinedAsset)
			if err := tx.Create(&assetEntity).Error; err != nil {
				return platformerrors.NewError(ctx, platformerrors.LayerRepository,
					platformerrors.ErrorTypeDatabaseError, "failed to create combined asset", err,
					"0d1e2f3a-4b5c-4d6e-8f7a-8b9c0d1e2f3a")
			}
		}

		result := fromEntity(updated)
		out = &result
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repository) Delete(ctx context.Context, coupleID, id string) error {
	err := r.db.WithContext(ctx).
		Where("id = ? AND couple_id = ?", id, coupleID).
		Delete(&entities.Moment{}).Error
	if err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError, "failed to delete moment", err,
			"2f3a4b5c-6d7e-4f8a-8b9c-0d1e2f3a4b5c")
	}
	return nil
}

// MarkExpired flips past-expiry moments that never completed to the
// terminal expired state. Returns the number of rows updated.
func (r *Repository) MarkExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&entities.Moment{}).
		Where("expires_at < ? AND status NOT IN ?", now,
			[]string{entities.MomentStatusCompleted, entities.MomentStatusExpired}).
		Update("status", entities.MomentStatusExpired)
	if res.Error != nil {
		return 0, platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError, "failed to mark expired moments", res.Error,
			"4b5c6d7e-8f9a-4b0c-8d1e-2f3a4b5c6d7e")
	}
	return res.RowsAffected, nil
}

func toEntity(m *domain.Moment) entities.Moment {
	return entities.Moment{
		ID:                   m.ID,
		CoupleID:             m.CoupleID,
		InitiatorID:          m.InitiatorID,
		ParticipantID:        m.ParticipantID,
		Status:               string(m.Status),
		TempPhotoPath:        m.TempPhotoPath,
		PendingContributorID: m.PendingContributorID,
		CombinedImagePath:    m.CombinedImagePath,
		CapturedBy:           m.CapturedBy,
		ExpiresAt:            m.ExpiresAt,
		CompletedAt:          m.CompletedAt,
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
	}
}

func fromEntity(entity entities.Moment) domain.Moment {
	return domain.Moment{
		ID:                   entity.ID,
		CoupleID:             entity.CoupleID,
		InitiatorID:          entity.InitiatorID,
		ParticipantID:        entity.ParticipantID,
		Status:               domain.Status(entity.Status),
		TempPhotoPath:        entity.TempPhotoPath,
		PendingContributorID: entity.PendingContributorID,
		CombinedImagePath:    entity.CombinedImagePath,
		CapturedBy:           entity.CapturedBy,
		ExpiresAt:            entity.ExpiresAt,
		CompletedAt:          entity.CompletedAt,
		CreatedAt:            entity.CreatedAt,
		UpdatedAt:            entity.UpdatedAt,
	}
}
