package entities

import "time"

// Upload session statuses as persisted.
const (
	UploadStatusReceiving  = "receiving"
	UploadStatusFinalizing = "finalizing"
)

// UploadSession represents a resumable upload in progress.
type UploadSession struct {
	ID         string    `gorm:"type:varchar(36);primaryKey"`
	CoupleID   string    `gorm:"type:varchar(40);index;not null"`
	ClientID   string    `gorm:"type:varchar(64);not null"`
	Filename   string    `gorm:"type:varchar(255);not null"`
	MimeType   string    `gorm:"type:varchar(64);not null"`
	MomentID   string    `gorm:"type:varchar(40)"`
	MemoryID   string    `gorm:"type:varchar(40)"`
	UploadType string    `gorm:"type:varchar(32)"`
	TotalSize  int64     `gorm:"not null"`
	Received   int64     `gorm:"not null;default:0"`
	Status     string    `gorm:"type:varchar(16);not null;default:receiving"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

func (UploadSession) TableName() string {
	return "upload_sessions"
}
