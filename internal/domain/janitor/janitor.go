// Package janitor sweeps expired moments and abandoned upload sessions.
package janitor

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/duetapp/duet-server/internal/config"
	"github.com/duetapp/duet-server/internal/domain/moment"
	"github.com/duetapp/duet-server/internal/domain/upload"
	"github.com/duetapp/duet-server/internal/infrastructure/metrics"
)

// Janitor periodically marks past-expiry moments and removes stale
// resumable upload sessions.
type Janitor struct {
	cfg     *config.Config
	moments moment.Repository
	uploads *upload.Service
	log     zerolog.Logger
}

func New(cfg *config.Config, moments moment.Repository, uploads *upload.Service, log zerolog.Logger) *Janitor {
	return &Janitor{
		cfg:     cfg,
		moments: moments,
		uploads: uploads,
		log:     log.With().Str("component", "janitor").Logger(),
	}
}

// Run sweeps on the configured interval until the context is cancelled.
func (j *Janitor) Run(ctx context.Context) {
	if !j.cfg.SweepEnabled {
		j.log.Info().Msg("sweeper disabled")
		return
	}

	ticker := time.NewTicker(j.cfg.SweepInterval)
	defer ticker.Stop()

	j.log.Info().Dur("interval", j.cfg.SweepInterval).Msg("sweeper started")

	for {
		select {
		case <-ctx.Done():
			j.log.Info().Msg("sweeper stopped")
			return
		case <-ticker.C:
			j.Sweep(ctx)
		}
	}
}

// Sweep runs one pass. Failures are logged and retried on the next tick.
func (j *Janitor) Sweep(ctx context.Context) {
	now := time.Now().UTC()

	expired, err := j.moments.MarkExpired(ctx, now)
	if err != nil {
		j.log.Error().Err(err).Msg("failed to mark expired moments")
	} else if expired > 0 {
		metrics.MomentsExpiredTotal.Add(float64(expired))
		j.log.Info().Int64("count", expired).Msg("moments marked expired")
	}

	swept, err := j.uploads.SweepIdle(ctx, now.Add(-j.cfg.UploadSessionTTL))
	if err != nil {
		j.log.Error().Err(err).Msg("failed to sweep idle upload sessions")
	} else if swept > 0 {
		j.log.Info().Int("count", swept).Msg("idle upload sessions swept")
	}
}
