package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

const (
	TIER_FREE    = "free"
	TIER_PREMIUM = "premium"
)

type User struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	ExternalID      string         `gorm:"uniqueIndex;type:varchar(64);not null" json:"external_id" validate:"required,min=1,max=64"`
	Username        string         `gorm:"type:varchar(150);default:null" json:"username" validate:"max=150"`
	FirstName       string         `gorm:"type:varchar(150);default:null" json:"first_name" validate:"max=150"`
	LastName        string         `gorm:"type:varchar(150);default:null" json:"last_name" validate:"max=150"`
	LanguageCode    string         `gorm:"type:varchar(10);default:null" json:"language_code" validate:"max=10"`
	PremiumUntil    *time.Time     `gorm:"type:timestamp;default:null" json:"premium_until"`
	DailyUsage      int            `gorm:"not null;default:0" json:"daily_usage"`
	LastResetDate   string         `gorm:"type:varchar(10);default:''" json:"last_reset_date"` // YYYY-MM-DD
	TotalOperations int64          `gorm:"not null;default:0" json:"total_operations"`
	LastActivityAt  *time.Time     `gorm:"type:timestamp;default:null" json:"last_activity_at"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) Validate() error {
	v := validator.New()

	return v.Struct(u)
}

// Tier reports the user's subscription tier at the given instant. Premium
// requires a stored expiry strictly in the future; everything else is free.
func (u *User) Tier(now time.Time) string {
	if u.PremiumUntil != nil && u.PremiumUntil.After(now) {
		return TIER_PREMIUM
	}
	return TIER_FREE
}

// IsPremium reports whether the user is on the premium tier at the given instant.
func (u *User) IsPremium(now time.Time) bool {
	return u.Tier(now) == TIER_PREMIUM
}

// ResetUsageIfStale zeroes the daily counter once per calendar day. The
// counter is only meaningful for the day stored in LastResetDate.
func (u *User) ResetUsageIfStale(now time.Time) bool {
	today := now.Format("2006-01-02")
	if u.LastResetDate == today {
		return false
	}
	u.DailyUsage = 0
	u.LastResetDate = today
	return true
}

// DisplayName returns the best available human-readable name.
func (u *User) DisplayName() string {
	if u.Username != "" {
		return u.Username
	}
	if u.FirstName != "" {
		return u.FirstName
	}
	return u.ExternalID
}
