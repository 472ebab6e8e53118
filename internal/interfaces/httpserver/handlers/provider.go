package handlers

import (
	"github.com/rs/zerolog"

	"github.com/duetapp/duet-server/internal/config"
	"github.com/duetapp/duet-server/internal/domain/media"
	"github.com/duetapp/duet-server/internal/domain/moment"
	syncdomain "github.com/duetapp/duet-server/internal/domain/sync"
	"github.com/duetapp/duet-server/internal/domain/upload"
)

// Provider wires HTTP handlers.
type Provider struct {
	Media  *MediaHandler
	Upload *UploadHandler
	Moment *MomentHandler
	Sync   *SyncHandler
}

func NewProvider(cfg *config.Config, pipeline *media.Service, uploads *upload.Service, moments *moment.Coordinator, syncer *syncdomain.Service, log zerolog.Logger) *Provider {
	return &Provider{
		Media:  NewMediaHandler(cfg, pipeline, log),
		Upload: NewUploadHandler(cfg, uploads, log),
		Moment: NewMomentHandler(cfg, moments, log),
		Sync:   NewSyncHandler(syncer, log),
	}
}
