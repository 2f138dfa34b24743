package models

import (
	"time"
)

const (
	BillingIntervalMonth = "month"
	BillingIntervalYear  = "year"
)

// BillingEvent is a revenue event delivered by the payment provider webhook.
// The analytics rollup sums these per day; the feed may be empty.
type BillingEvent struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"index;not null" json:"user_id"`
	Provider   string    `gorm:"type:varchar(50);not null" json:"provider"`
	EventRef   string    `gorm:"type:varchar(100);uniqueIndex" json:"event_ref"`
	Interval   string    `gorm:"type:varchar(10);not null" json:"interval"`
	Amount     float64   `gorm:"not null;default:0" json:"amount"`
	OccurredAt time.Time `gorm:"not null;index" json:"occurred_at"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}
