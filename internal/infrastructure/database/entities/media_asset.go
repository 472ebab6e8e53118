package entities

import "time"

// MediaAsset represents the persisted media metadata.
type MediaAsset struct {
	ID            string    `gorm:"type:varchar(40);primaryKey"`
	CoupleID      string    `gorm:"type:varchar(40);uniqueIndex:idx_couple_sha256,priority:1;not null"`
	Sha256        string    `gorm:"type:char(64);uniqueIndex:idx_couple_sha256,priority:2;not null"`
	Filename      string    `gorm:"type:varchar(255);not null"`
	OriginalName  string    `gorm:"type:varchar(255)"`
	StoragePath   string    `gorm:"type:varchar(255);not null"`
	ThumbnailPath *string   `gorm:"type:varchar(255)"`
	VideoPath     *string   `gorm:"type:varchar(255)"`
	MimeType      string    `gorm:"type:varchar(64);not null"`
	Bytes         int64     `gorm:"not null"`
	Width         int
	Height        int
	Category      string    `gorm:"type:varchar(32)"`
	IsCombined    bool      `gorm:"not null;default:false"`
	IsFavorite    bool      `gorm:"not null;default:false"`
	MemoryID      *string   `gorm:"type:varchar(40);index"`
	MomentID      *string   `gorm:"type:varchar(40);index"`
	CreatedBy     string    `gorm:"type:varchar(64)"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime"`
}

func (MediaAsset) TableName() string {
	return "media_assets"
}
