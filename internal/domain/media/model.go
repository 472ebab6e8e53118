package media

import (
	"context"
	"time"
)

// Asset represents stored media metadata.
type Asset struct {
	ID            string    `json:"id"`
	CoupleID      string    `json:"couple_id"`
	Sha256        string    `json:"sha256"`
	Filename      string    `json:"filename"`
	OriginalName  string    `json:"original_name"`
	StoragePath   string    `json:"storage_path"`
	ThumbnailPath *string   `json:"thumbnail_path,omitempty"`
	VideoPath     *string   `json:"video_path,omitempty"`
	MimeType      string    `json:"mime"`
	Bytes         int64     `json:"bytes"`
	Width         int       `json:"width"`
	Height        int       `json:"height"`
	Category      string    `json:"category"`
	IsCombined    bool      `json:"is_combined"`
	IsFavorite    bool      `json:"is_favorite"`
	MemoryID      *string   `json:"memory_id,omitempty"`
	MomentID      *string   `json:"moment_id,omitempty"`
	CreatedBy     string    `json:"created_by"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Context carries the caller-supplied metadata for one pipeline run.
type Context struct {
	CoupleID     string
	UserID       string
	OriginalName string
	MomentID     string
	MemoryID     string
}

// Outcome tags a pipeline result.
type Outcome string

const (
	OutcomeStored    Outcome = "stored"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeFailed    Outcome = "error"
)

// Result is the tagged outcome of one pipeline run. Exactly one of Asset,
// Existing or Err is set depending on Outcome.
type Result struct {
	Outcome  Outcome
	Asset    *Asset
	Existing *Asset
	Err      error
}

// Repository defines persistence operations needed by the pipeline.
type Repository interface {
	FindByHashInCouple(ctx context.Context, coupleID, hash string) (*Asset, error)
	Create(ctx context.Context, asset *Asset) error
	GetByID(ctx context.Context, coupleID, id string) (*Asset, error)
	ListByMomentID(ctx context.Context, coupleID, momentID string) ([]*Asset, error)
	DeleteByMomentID(ctx context.Context, coupleID, momentID string) error
	SetFavorite(ctx context.Context, coupleID, id string, favorite bool) error
}
