package moment

import (
	"context"
	"time"

	"github.com/duetapp/duet-server/internal/domain/media"
)

// Status is the moment lifecycle state.
type Status string

const (
	StatusPending          Status = "pending"
	StatusPartner1Captured Status = "partner1_captured"
	StatusPartner2Captured Status = "partner2_captured"
	StatusCompleted        Status = "completed"
	StatusExpired          Status = "expired"
)

// Role reports which side of the capture a submission landed on.
type Role string

const (
	RoleFirst  Role = "first"
	RoleSecond Role = "second"
)

// Moment is the shared two-party capture record.
//
// Invariants: TempPhotoPath (and PendingContributorID) are non-nil iff
// Status is one of the captured states; CombinedImagePath is non-nil iff
// Status is completed.
type Moment struct {
	ID                   string     `json:"id"`
	CoupleID             string     `json:"couple_id"`
	InitiatorID          string     `json:"initiator_id"`
	ParticipantID        *string    `json:"participant_id,omitempty"`
	Status               Status     `json:"status"`
	TempPhotoPath        *string    `json:"-"`
	PendingContributorID *string    `json:"-"`
	CombinedImagePath    *string    `json:"combined_image_path,omitempty"`
	CapturedBy           string     `json:"captured_by,omitempty"`
	ExpiresAt            time.Time  `json:"expires_at"`
	CompletedAt          *time.Time `json:"completed_at,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// Decision is the outcome of one submit closure: the moment post-state to
// persist and, when the submission completes the moment, the combined
// media asset row created atomically with it.
type Decision struct {
	Moment        *Moment
	CombinedAsset *media.Asset
}

// DecideFunc runs against the locked moment row inside the store's
// transaction. Returning an error rolls the transaction back.
type DecideFunc func(m *Moment) (*Decision, error)

// Repository defines persistence operations for moments. Submit is the
// single atomic read-decide-write primitive: implementations must serialize
// concurrent calls for the same moment through the backing store, not
// through in-process locks, because requests may land on any worker.
type Repository interface {
	Create(ctx context.Context, m *Moment) error
	GetByID(ctx context.Context, coupleID, id string) (*Moment, error)
	Submit(ctx context.Context, coupleID, momentID string, decide DecideFunc) (*Moment, error)
	Delete(ctx context.Context, coupleID, id string) error
	MarkExpired(ctx context.Context, now time.Time) (int64, error)
}
