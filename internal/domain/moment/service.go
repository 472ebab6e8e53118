package moment

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/duetapp/duet-server/internal/config"
	"github.com/duetapp/duet-server/internal/domain/media"
	duetimaging "github.com/duetapp/duet-server/internal/imaging"
	"github.com/duetapp/duet-server/internal/infrastructure/blob"
	"github.com/duetapp/duet-server/internal/infrastructure/metrics"
	"github.com/duetapp/duet-server/internal/utils/platformerrors"
	"github.com/duetapp/duet-server/utils/assetid"
)

// Coordinator owns the per-moment capture state machine.
type Coordinator struct {
	cfg       *config.Config
	repo      Repository
	mediaRepo media.Repository
	blobs     blob.Store
	log       zerolog.Logger
}

func NewCoordinator(cfg *config.Config, repo Repository, mediaRepo media.Repository, blobs blob.Store, log zerolog.Logger) *Coordinator {
	return &Coordinator{
		cfg:       cfg,
		repo:      repo,
		mediaRepo: mediaRepo,
		blobs:     blobs,
		log:       log.With().Str("component", "moment-coordinator").Logger(),
	}
}

// Create opens a new pending moment for the couple.
func (c *Coordinator) Create(ctx context.Context, coupleID, initiatorID string) (*Moment, error) {
	if coupleID == "" || initiatorID == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeValidation, "couple id and initiator id are required", nil, "")
	}
	m := &Moment{
		ID:          assetid.NewMoment(),
		CoupleID:    coupleID,
		InitiatorID: initiatorID,
		Status:      StatusPending,
		ExpiresAt:   time.Now().UTC().Add(c.cfg.MomentTTL),
	}
	if err := c.repo.Create(ctx, m); err != nil {
		return nil, err
	}
	c.log.Info().Str("moment_id", m.ID).Str("couple_id", coupleID).Msg("moment created")
	return m, nil
}

// Get loads a moment scoped to its couple.
func (c *Coordinator) Get(ctx context.Context, coupleID, momentID string) (*Moment, error) {
	return c.repo.GetByID(ctx, coupleID, momentID)
}

// SubmitPhoto applies one partner's contribution. The decision runs against
// the locked moment row so two concurrent submissions are serialized by the
// store: the loser re-reads the winner's post-state and becomes the second
// contributor (or a retake).
//
// A repeat submission from the side whose photo is already pending replaces
// that photo; it is never combined with itself.
func (c *Coordinator) SubmitPhoto(ctx context.Context, coupleID, momentID, contributorID string, photo []byte) (Role, *Moment, error) {
	if contributorID == "" {
		return "", nil, platformerrors.NewError(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeValidation, "contributor id is required", nil, "")
	}

	// Decode and normalize before taking the row lock.
	normalized, err := duetimaging.Normalize(photo)
	if err != nil {
		return "", nil, platformerrors.NewError(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeValidation, "photo is not a decodable image", err, "")
	}

	var (
		role      Role
		staleTemp string
		now       = time.Now().UTC()
	)

	updated, err := c.repo.Submit(ctx, coupleID, momentID, func(m *Moment) (*Decision, error) {
		switch {
		case m.Status == StatusCompleted:
			return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain,
				platformerrors.ErrorTypeInvalidState, "moment is already completed", nil, "")
		case m.Status == StatusExpired || now.After(m.ExpiresAt):
			return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain,
				platformerrors.ErrorTypeInvalidState, "moment has expired", nil, "")
		}

		sameSideRetake := m.PendingContributorID != nil && *m.PendingContributorID == contributorID
		if m.TempPhotoPath == nil || sameSideRetake {
			return c.acceptFirst(ctx, m, contributorID, normalized, &role, &staleTemp)
		}
		return c.complete(ctx, m, contributorID, normalized, now, &role, &staleTemp)
	})
	if err != nil {
		return "", nil, err
	}

	// The prior temp photo (consumed into the composite, or replaced by a
	// retake) is removed only after the transaction committed. A failed
	// delete leaves an orphan blob, never a broken moment.
	if staleTemp != "" {
		if derr := c.blobs.Delete(ctx, staleTemp); derr != nil {
			c.log.Warn().Err(derr).Str("path", staleTemp).Msg("failed to delete temp photo")
		}
	}

	return role, updated, nil
}

func (c *Coordinator) acceptFirst(ctx context.Context, m *Moment, contributorID string, normalized *duetimaging.Normalized, role *Role, staleTemp *string) (*Decision, error) {
	ext := "jpg"
	if normalized.MimeType == "image/png" {
		ext = "png"
	}
	path := fmt.Sprintf("moments/%s/%s/pending_%s.%s", m.CoupleID, m.ID, assetid.New(), ext)
	if err := c.blobs.Put(ctx, path, normalized.Data, normalized.MimeType); err != nil {
		return nil, err
	}

	if m.TempPhotoPath != nil {
		*staleTemp = *m.TempPhotoPath
	}

	m.TempPhotoPath = &path
	m.PendingContributorID = &contributorID
	m.CapturedBy = contributorID
	if contributorID == m.InitiatorID {
		m.Status = StatusPartner1Captured
	} else {
		m.Status = StatusPartner2Captured
		if m.ParticipantID == nil {
			id := contributorID
			m.ParticipantID = &id
		}
	}

	*role = RoleFirst
	return &Decision{Moment: m}, nil
}

func (c *Coordinator) complete(ctx context.Context, m *Moment, contributorID string, normalized *duetimaging.Normalized, now time.Time, role *Role, staleTemp *string) (*Decision, error) {
	first, err := c.blobs.Get(ctx, *m.TempPhotoPath)
	if err != nil {
		return nil, err
	}

	// Fixed order: the initiator's photo is always the left half, so the
	// composite is reproducible no matter which side finished last.
	var left, right []byte
	if m.PendingContributorID != nil && *m.PendingContributorID == m.InitiatorID {
		left, right = first, normalized.Data
	} else {
		left, right = normalized.Data, first
	}

	combined, err := c.buildComposite(left, right)
	if err != nil {
		// Roll back: the moment stays in its captured state and the temp
		// photo survives, so the failure is recoverable by resubmission.
		return nil, err
	}

	combinedPath := fmt.Sprintf("moments/%s/%s/combined.jpg", m.CoupleID, m.ID)
	thumb, err := duetimaging.Thumbnail(combined, c.cfg.ThumbnailMaxPx)
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeCompositionFailed, "combined image thumbnail failed", err, "")
	}
	thumbPath := fmt.Sprintf("moments/%s/%s/combined_thumb.jpg", m.CoupleID, m.ID)

	// Combined bytes must be durable before the completed state commits.
	if err := c.blobs.Put(ctx, combinedPath, combined, "image/jpeg"); err != nil {
		return nil, err
	}
	if err := c.blobs.Put(ctx, thumbPath, thumb, "image/jpeg"); err != nil {
		return nil, err
	}

	width, height, err := duetimaging.Dimensions(combined)
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeCompositionFailed, "combined image is unreadable", err, "")
	}

	sum := sha256.Sum256(combined)
	momentID := m.ID
	assetID := assetid.New()
	asset := &media.Asset{
		ID:            assetID,
		CoupleID:      m.CoupleID,
		Sha256:        fmt.Sprintf("%x", sum[:]),
		Filename:      assetID + ".jpg",
		StoragePath:   combinedPath,
		ThumbnailPath: &thumbPath,
		MimeType:      "image/jpeg",
		Bytes:         int64(len(combined)),
		Width:         width,
		Height:        height,
		Category:      media.CategoryUnclassified,
		IsCombined:    true,
		MomentID:      &momentID,
		CreatedBy:     contributorID,
	}

	*staleTemp = *m.TempPhotoPath
	m.TempPhotoPath = nil
	m.PendingContributorID = nil
	m.CombinedImagePath = &combinedPath
	m.Status = StatusCompleted
	m.CompletedAt = &now
	m.CapturedBy = contributorID
	if m.ParticipantID == nil && contributorID != m.InitiatorID {
		id := contributorID
		m.ParticipantID = &id
	}

	*role = RoleSecond

	c.log.Info().Str("moment_id", m.ID).Str("asset_id", assetID).Msg("moment completed")

	return &Decision{Moment: m, CombinedAsset: asset}, nil
}

func (c *Coordinator) buildComposite(left, right []byte) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= c.cfg.CompositeRetries; attempt++ {
		combined, err := duetimaging.Combine(left, right)
		if err == nil {
			metrics.CompositesTotal.WithLabelValues("success").Inc()
			return combined, nil
		}
		lastErr = err
		c.log.Warn().Err(err).Int("attempt", attempt).Msg("composite build failed")
		if attempt < c.cfg.CompositeRetries {
			time.Sleep(c.cfg.CompositeRetryBackoff)
		}
	}
	metrics.CompositesTotal.WithLabelValues("failed").Inc()
	return nil, platformerrors.NewError(context.Background(), platformerrors.LayerDomain,
		platformerrors.ErrorTypeCompositionFailed,
		fmt.Sprintf("composite build failed after %d attempts", c.cfg.CompositeRetries), lastErr, "")
}

// Delete removes the moment and cascades to its media assets and blobs.
func (c *Coordinator) Delete(ctx context.Context, coupleID, momentID string) error {
	m, err := c.repo.GetByID(ctx, coupleID, momentID)
	if err != nil {
		return err
	}

	assets, err := c.mediaRepo.ListByMomentID(ctx, coupleID, momentID)
	if err != nil {
		return err
	}

	paths := make([]string, 0, len(assets)*3+2)
	for _, a := range assets {
		paths = append(paths, a.StoragePath)
		if a.ThumbnailPath != nil {
			paths = append(paths, *a.ThumbnailPath)
		}
		if a.VideoPath != nil {
			paths = append(paths, *a.VideoPath)
		}
	}
	if m.TempPhotoPath != nil {
		paths = append(paths, *m.TempPhotoPath)
	}

	if err := c.mediaRepo.DeleteByMomentID(ctx, coupleID, momentID); err != nil {
		return err
	}
	if err := c.repo.Delete(ctx, coupleID, momentID); err != nil {
		return err
	}

	for _, p := range paths {
		if derr := c.blobs.Delete(ctx, p); derr != nil {
			c.log.Warn().Err(derr).Str("path", p).Msg("failed to delete blob during cascade")
		}
	}

	c.log.Info().Str("moment_id", momentID).Int("assets", len(assets)).Msg("moment deleted")
	return nil
}
