// Package sync is the server side of the client outbox: it applies an
// ordered batch of queued actions and acknowledges all-or-nothing.
package sync

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/duetapp/duet-server/internal/domain/media"
	"github.com/duetapp/duet-server/internal/domain/moment"
	"github.com/duetapp/duet-server/internal/utils/platformerrors"
)

// Action types a client may queue while offline.
const (
	ActionFavorite     = "favorite"
	ActionMomentDelete = "moment_delete"
)

// Action is one queued client action. ID is the client's local sequence
// number, carried through for logging only.
type Action struct {
	ID      int64           `json:"id"`
	Payload json.RawMessage `json:"payload"`
}

type actionPayload struct {
	Type     string `json:"type"`
	AssetID  string `json:"asset_id,omitempty"`
	MomentID string `json:"moment_id,omitempty"`
	Favorite bool   `json:"favorite,omitempty"`
}

// MomentAdmin is the slice of the moment coordinator the applier needs.
type MomentAdmin interface {
	Delete(ctx context.Context, coupleID, momentID string) error
}

// Service applies flushed outbox batches.
type Service struct {
	assets  media.Repository
	moments MomentAdmin
	log     zerolog.Logger
}

func NewService(assets media.Repository, moments MomentAdmin, log zerolog.Logger) *Service {
	return &Service{
		assets:  assets,
		moments: moments,
		log:     log.With().Str("component", "sync").Logger(),
	}
}

var _ MomentAdmin = (*moment.Coordinator)(nil)

// Apply runs the batch in order and stops at the first failure so the
// client keeps its queue and retries the whole batch. Actions are
// idempotent: a replay of an already-applied batch (after a lost ack)
// must succeed, so a delete of something already gone is treated as
// applied.
func (s *Service) Apply(ctx context.Context, coupleID string, actions []Action) (int, error) {
	if coupleID == "" {
		return 0, platformerrors.NewError(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeValidation, "couple id is required", nil, "")
	}

	for i, action := range actions {
		if err := s.apply(ctx, coupleID, action); err != nil {
			s.log.Warn().Err(err).Int64("action_id", action.ID).Msg("sync batch aborted")
			return i, err
		}
	}

	s.log.Info().Str("couple_id", coupleID).Int("applied", len(actions)).Msg("sync batch applied")
	return len(actions), nil
}

func (s *Service) apply(ctx context.Context, coupleID string, action Action) error {
	var p actionPayload
	if err := json.Unmarshal(action.Payload, &p); err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeValidation, "action payload is not valid JSON", err, "")
	}

	switch p.Type {
	case ActionFavorite:
		err := s.assets.SetFavorite(ctx, coupleID, p.AssetID, p.Favorite)
		if platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
			s.log.Debug().Str("asset_id", p.AssetID).Msg("favorite target gone, treating as applied")
			return nil
		}
		return err
	case ActionMomentDelete:
		err := s.moments.Delete(ctx, coupleID, p.MomentID)
		if platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
			return nil
		}
		return err
	default:
		return platformerrors.NewError(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeValidation, "unknown action type "+p.Type, nil, "")
	}
}
