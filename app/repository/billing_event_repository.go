package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/docmill/docmill/app/models"
)

// billingEventRepository implements the BillingEventRepository interface
type billingEventRepository struct {
	db *gorm.DB
}

// NewBillingEventRepository creates a new billing event repository instance
func NewBillingEventRepository(db *gorm.DB) BillingEventRepository {
	return &billingEventRepository{db: db}
}

// Create stores a revenue event. The unique event_ref index makes webhook
// redelivery a duplicate-key error rather than double revenue.
func (r *billingEventRepository) Create(event *models.BillingEvent) error {
	return r.db.Create(event).Error
}

// SumAmountBetween sums revenue with occurred_at in [start, end)
func (r *billingEventRepository) SumAmountBetween(start, end time.Time) (float64, error) {
	var total float64
	err := r.db.Model(&models.BillingEvent{}).
		Where("occurred_at >= ? AND occurred_at < ?", start, end).
		Select("COALESCE(SUM(amount), 0)").
		Row().Scan(&total)
	return total, err
}
