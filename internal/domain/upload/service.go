package upload

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/duetapp/duet-server/internal/config"
	"github.com/duetapp/duet-server/internal/domain/media"
	"github.com/duetapp/duet-server/internal/domain/moment"
	"github.com/duetapp/duet-server/internal/infrastructure/metrics"
	"github.com/duetapp/duet-server/internal/utils/platformerrors"
)

// FinalizeOutcome reports what happened to the assembled bytes. Exactly one
// of Pipeline or Moment is set, matching the session's upload type.
type FinalizeOutcome struct {
	Pipeline *media.Result
	Role     moment.Role
	Moment   *moment.Moment
}

// AppendResult is the state after one accepted chunk.
type AppendResult struct {
	Offset    int64
	Completed bool
	Outcome   *FinalizeOutcome
}

// Service is the resumable ingestion service: it tracks per-upload progress
// in the shared store, stages chunk bytes on local disk, and hands the fully
// assembled upload to the post-processing pipeline.
type Service struct {
	cfg      *config.Config
	repo     Repository
	pipeline *media.Service
	moments  *moment.Coordinator
	log      zerolog.Logger
}

func NewService(cfg *config.Config, repo Repository, pipeline *media.Service, moments *moment.Coordinator, log zerolog.Logger) *Service {
	return &Service{
		cfg:      cfg,
		repo:     repo,
		pipeline: pipeline,
		moments:  moments,
		log:      log.With().Str("component", "resumable-upload").Logger(),
	}
}

// Create opens a new upload session. Metadata is immutable from here on.
func (s *Service) Create(ctx context.Context, meta Metadata, totalSize int64) (*Session, error) {
	if totalSize <= 0 {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeValidation, "upload length must be positive", nil, "")
	}
	if totalSize > s.cfg.MaxMediaBytes {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeValidation,
			fmt.Sprintf("upload exceeds max size of %d bytes", s.cfg.MaxMediaBytes), nil, "")
	}

	if err := os.MkdirAll(s.cfg.UploadStagingPath, 0o755); err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure,
			platformerrors.ErrorTypeStorageUnavailable, "create staging directory failed", err, "")
	}

	sess := &Session{
		ID:        uuid.NewString(),
		Metadata:  meta,
		TotalSize: totalSize,
		Status:    StatusReceiving,
	}
	if err := s.repo.Create(ctx, sess); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("upload_id", sess.ID).
		Str("couple_id", meta.CoupleID).
		Int64("total_size", totalSize).
		Msg("upload session created")

	return sess, nil
}

// Offset reports how many contiguous bytes have been received.
func (s *Service) Offset(ctx context.Context, id string) (int64, error) {
	sess, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}
	return sess.Received, nil
}

// Append writes one chunk at the declared offset. When the final byte
// arrives the assembled upload is finalized in the same call; the caller
// gets the finalize outcome in the result.
func (s *Service) Append(ctx context.Context, id string, offset int64, data []byte) (*AppendResult, error) {
	sess, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if sess.Status != StatusReceiving {
		// A finalize is already running (or ran) for this id; repeating
		// the final chunk is a no-op.
		return &AppendResult{Offset: sess.Received, Completed: true}, nil
	}
	if offset > sess.Received {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeConflict,
			fmt.Sprintf("offset %d is ahead of received bytes %d", offset, sess.Received), nil, "")
	}
	if offset+int64(len(data)) > sess.TotalSize {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeValidation, "chunk exceeds declared upload length", nil, "")
	}

	if err := s.writeChunk(ctx, id, offset, data); err != nil {
		return nil, err
	}

	newReceived := offset + int64(len(data))
	if newReceived < sess.Received {
		newReceived = sess.Received
	}
	if newReceived != sess.Received {
		if err := s.repo.UpdateReceived(ctx, id, newReceived); err != nil {
			return nil, err
		}
	}
	sess.Received = newReceived

	metrics.UploadChunksTotal.Inc()
	metrics.UploadBytesTotal.Add(float64(len(data)))

	if sess.Received < sess.TotalSize {
		return &AppendResult{Offset: sess.Received}, nil
	}
	return s.finalize(ctx, sess)
}

func (s *Service) writeChunk(ctx context.Context, id string, offset int64, data []byte) error {
	file, err := os.OpenFile(s.stagingPath(id), os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerInfrastructure,
			platformerrors.ErrorTypeStorageUnavailable, "open staging file failed", err, "")
	}
	defer file.Close()

	if _, err := file.WriteAt(data, offset); err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerInfrastructure,
			platformerrors.ErrorTypeStorageUnavailable, "write staging chunk failed", err, "")
	}
	return nil
}

// finalize hands the assembled bytes to the pipeline (or the moment
// coordinator for tagged capture uploads). Temporary storage is released on
// every exit path, whatever the pipeline outcome.
func (s *Service) finalize(ctx context.Context, sess *Session) (*AppendResult, error) {
	won, err := s.repo.MarkFinalizing(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	if !won {
		return &AppendResult{Offset: sess.Received, Completed: true}, nil
	}

	defer s.cleanup(ctx, sess.ID)

	data, err := os.ReadFile(s.stagingPath(sess.ID))
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure,
			platformerrors.ErrorTypeStorageUnavailable, "read assembled upload failed", err, "")
	}

	outcome := &FinalizeOutcome{}
	if sess.Metadata.UploadType == TypeMomentCapture && sess.Metadata.MomentID != "" {
		role, m, err := s.moments.SubmitPhoto(ctx, sess.Metadata.CoupleID, sess.Metadata.MomentID, sess.Metadata.ClientID, data)
		if err != nil {
			return nil, err
		}
		outcome.Role = role
		outcome.Moment = m
	} else {
		result := s.pipeline.Process(ctx, data, nil, media.Context{
			CoupleID:     sess.Metadata.CoupleID,
			UserID:       sess.Metadata.ClientID,
			OriginalName: sess.Metadata.Filename,
			MomentID:     sess.Metadata.MomentID,
			MemoryID:     sess.Metadata.MemoryID,
		})
		outcome.Pipeline = &result
	}

	s.log.Info().Str("upload_id", sess.ID).Msg("upload finalized")

	return &AppendResult{Offset: sess.Received, Completed: true, Outcome: outcome}, nil
}

// cleanup releases the staging file and the session row. Failures are
// logged, never surfaced: cleanup must not fail the user-visible operation.
func (s *Service) cleanup(ctx context.Context, id string) {
	if err := os.Remove(s.stagingPath(id)); err != nil && !os.IsNotExist(err) {
		s.log.Warn().Err(err).Str("upload_id", id).Msg("failed to remove staging file")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		s.log.Warn().Err(err).Str("upload_id", id).Msg("failed to delete upload session")
	}
}

// SweepIdle removes sessions idle since before the cutoff together with
// their staging files. Returns the number of sessions removed.
func (s *Service) SweepIdle(ctx context.Context, cutoff time.Time) (int, error) {
	stale, err := s.repo.ListIdleBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	for _, sess := range stale {
		s.cleanup(ctx, sess.ID)
		s.log.Info().Str("upload_id", sess.ID).Msg("stale upload session swept")
	}
	return len(stale), nil
}

func (s *Service) stagingPath(id string) string {
	return filepath.Join(s.cfg.UploadStagingPath, id+".part")
}
