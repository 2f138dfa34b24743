package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EphemeralAsset is the metadata record of a short-lived derived file. The
// payload itself lives in the object store under ObjectKey. An asset is
// logically gone once ExpiresAt is reached, whether or not the reaper has
// physically removed it yet.
type EphemeralAsset struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UUID      string    `gorm:"type:varchar(36);not null;uniqueIndex" json:"uuid"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Size      int64     `gorm:"not null;default:0" json:"size"`
	Type      string    `gorm:"type:varchar(100)" json:"type"`
	ObjectKey string    `gorm:"type:varchar(255)" json:"-"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
}

func (a *EphemeralAsset) BeforeCreate(tx *gorm.DB) error {
	if a.UUID == "" {
		a.UUID = uuid.New().String()
	}
	return nil
}

// IsExpired reports whether the asset is logically expired at the given instant.
func (a *EphemeralAsset) IsExpired(now time.Time) bool {
	return !now.Before(a.ExpiresAt)
}
