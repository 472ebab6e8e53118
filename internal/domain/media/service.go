package media

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"

	"github.com/duetapp/duet-server/internal/config"
	duetimaging "github.com/duetapp/duet-server/internal/imaging"
	"github.com/duetapp/duet-server/internal/infrastructure/blob"
	"github.com/duetapp/duet-server/internal/infrastructure/metrics"
	"github.com/duetapp/duet-server/utils/assetid"
)

var mimeExtensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
}

// Service is the media post-processing pipeline: normalize, dedup,
// thumbnail, classify, persist.
type Service struct {
	cfg   *config.Config
	repo  Repository
	blobs blob.Store
	log   zerolog.Logger
}

func NewService(cfg *config.Config, repo Repository, blobs blob.Store, log zerolog.Logger) *Service {
	return &Service{
		cfg:   cfg,
		repo:  repo,
		blobs: blobs,
		log:   log.With().Str("component", "media-pipeline").Logger(),
	}
}

// Process runs one upload through the pipeline. pairedVideo, when non-nil,
// is a live-photo companion clip stored alongside the image. The result is
// tagged: Duplicate is a recognized outcome, not a failure.
func (s *Service) Process(ctx context.Context, data []byte, pairedVideo []byte, pctx Context) Result {
	start := time.Now()
	res := s.process(ctx, data, pairedVideo, pctx)
	metrics.PipelineDuration.Observe(time.Since(start).Seconds())
	metrics.PipelineOutcomes.WithLabelValues(string(res.Outcome)).Inc()
	return res
}

func (s *Service) process(ctx context.Context, data []byte, pairedVideo []byte, pctx Context) Result {
	if len(data) == 0 {
		return failed(fmt.Errorf("file is empty"))
	}
	if int64(len(data)) > s.cfg.MaxMediaBytes {
		return failed(fmt.Errorf("file exceeds max size of %d bytes", s.cfg.MaxMediaBytes))
	}
	if pctx.CoupleID == "" {
		return failed(fmt.Errorf("couple id is required"))
	}
	if pctx.MomentID != "" && pctx.MemoryID != "" {
		return failed(fmt.Errorf("at most one of moment id and memory id may be set"))
	}

	if !strings.HasPrefix(mimetype.Detect(data).String(), "image/") {
		return failed(fmt.Errorf("unsupported content type %s", mimetype.Detect(data).String()))
	}

	normalized, err := duetimaging.Normalize(data)
	if err != nil {
		return failed(fmt.Errorf("normalize: %w", err))
	}

	sum := sha256.Sum256(normalized.Data)
	hash := fmt.Sprintf("%x", sum[:])

	// Dedup lookup is scoped to the couple; identical content owned by a
	// different couple is stored again under its own row.
	existing, err := s.repo.FindByHashInCouple(ctx, pctx.CoupleID, hash)
	if err != nil {
		return failed(err)
	}
	if existing != nil {
		s.log.Debug().Str("asset_id", existing.ID).Str("sha256", hash).Msg("duplicate content")
		return Result{Outcome: OutcomeDuplicate, Existing: existing}
	}

	thumb, err := duetimaging.Thumbnail(normalized.Data, s.cfg.ThumbnailMaxPx)
	if err != nil {
		return failed(fmt.Errorf("thumbnail: %w", err))
	}

	category, err := Classify(pctx.OriginalName, normalized.Width, normalized.Height)
	if err != nil {
		s.log.Warn().Err(err).Msg("classification failed, falling back to unclassified")
		category = CategoryUnclassified
	}

	id := assetid.New()
	ext := mimeExtensions[normalized.MimeType]
	storagePath := fmt.Sprintf("media/%s/%s.%s", pctx.CoupleID, id, ext)
	thumbPath := fmt.Sprintf("media/%s/%s_thumb.jpg", pctx.CoupleID, id)

	if err := s.blobs.Put(ctx, storagePath, normalized.Data, normalized.MimeType); err != nil {
		return failed(err)
	}
	if err := s.blobs.Put(ctx, thumbPath, thumb, "image/jpeg"); err != nil {
		return failed(err)
	}

	var videoPath *string
	if len(pairedVideo) > 0 {
		p := fmt.Sprintf("media/%s/%s_live.mov", pctx.CoupleID, id)
		if err := s.blobs.Put(ctx, p, pairedVideo, "video/quicktime"); err != nil {
			return failed(err)
		}
		videoPath = &p
	}

	asset := &Asset{
		ID:            id,
		CoupleID:      pctx.CoupleID,
		Sha256:        hash,
		Filename:      fmt.Sprintf("%s.%s", id, ext),
		OriginalName:  pctx.OriginalName,
		StoragePath:   storagePath,
		ThumbnailPath: &thumbPath,
		VideoPath:     videoPath,
		MimeType:      normalized.MimeType,
		Bytes:         int64(len(normalized.Data)),
		Width:         normalized.Width,
		Height:        normalized.Height,
		Category:      category,
		CreatedBy:     pctx.UserID,
	}
	if pctx.MomentID != "" {
		asset.MomentID = &pctx.MomentID
	}
	if pctx.MemoryID != "" {
		asset.MemoryID = &pctx.MemoryID
	}

	if err := s.repo.Create(ctx, asset); err != nil {
		return failed(err)
	}

	s.log.Info().
		Str("asset_id", id).
		Str("couple_id", pctx.CoupleID).
		Str("category", category).
		Int("bytes", len(normalized.Data)).
		Msg("media asset stored")

	return Result{Outcome: OutcomeStored, Asset: asset}
}

func failed(err error) Result {
	return Result{Outcome: OutcomeFailed, Err: err}
}
