package entities

import "time"

// Moment statuses as persisted.
const (
	MomentStatusPending          = "pending"
	MomentStatusPartner1Captured = "partner1_captured"
	MomentStatusPartner2Captured = "partner2_captured"
	MomentStatusCompleted        = "completed"
	MomentStatusExpired          = "expired"
)

// Moment represents the persisted two-party capture record.
type Moment struct {
	ID                   string  `gorm:"type:varchar(40);primaryKey"`
	CoupleID             string  `gorm:"type:varchar(40);index;not null"`
	InitiatorID          string  `gorm:"type:varchar(64);not null"`
	ParticipantID        *string `gorm:"type:varchar(64)"`
	Status               string  `gorm:"type:varchar(24);not null"`
	TempPhotoPath        *string `gorm:"type:varchar(255)"`
	PendingContributorID *string `gorm:"type:varchar(64)"`
	CombinedImagePath    *string `gorm:"type:varchar(255)"`
	CapturedBy           string  `gorm:"type:varchar(64)"`
	ExpiresAt            time.Time
	CompletedAt          *time.Time
	CreatedAt            time.Time `gorm:"autoCreateTime"`
	UpdatedAt            time.Time `gorm:"autoUpdateTime"`
}

func (Moment) TableName() string {
	return "moments"
}
