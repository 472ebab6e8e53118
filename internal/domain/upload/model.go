package upload

import (
	"context"
	"time"
)

// Upload type tags.
const (
	// TypeMomentCapture routes the finalized bytes to the moment capture
	// coordinator instead of the plain media pipeline.
	TypeMomentCapture = "moment_capture"
)

// Status is the upload session state.
type Status string

const (
	StatusReceiving  Status = "receiving"
	StatusFinalizing Status = "finalizing"
)

// Metadata is the caller-supplied upload metadata, immutable once the
// session is created.
type Metadata struct {
	Filename   string
	MimeType   string
	CoupleID   string
	ClientID   string
	MomentID   string
	MemoryID   string
	UploadType string
}

// Session tracks one resumable upload.
type Session struct {
	ID        string
	Metadata  Metadata
	TotalSize int64
	Received  int64
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository defines persistence operations for upload sessions. Sessions
// live in the shared store, not process memory, so chunks for one upload may
// be served by any worker.
type Repository interface {
	Create(ctx context.Context, s *Session) error
	GetByID(ctx context.Context, id string) (*Session, error)
	UpdateReceived(ctx context.Context, id string, received int64) error
	// MarkFinalizing flips the session out of the receiving state. It
	// returns false when another finalize already won the flip.
	MarkFinalizing(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) error
	ListIdleBefore(ctx context.Context, cutoff time.Time) ([]*Session, error)
}
