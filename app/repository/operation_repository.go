package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/docmill/docmill/app/models"
)

// operationRepository implements the OperationRepository interface
type operationRepository struct {
	db *gorm.DB
}

// NewOperationRepository creates a new operation repository instance
func NewOperationRepository(db *gorm.DB) OperationRepository {
	return &operationRepository{db: db}
}

// Create appends a record to the operations log
func (r *operationRepository) Create(record *models.OperationRecord) error {
	return r.db.Create(record).Error
}

// ListRange returns up to limit records with created_at in [start, end) and
// id greater than afterID, ordered by id. Paging on the id keeps the scan
// restartable from any point.
func (r *operationRepository) ListRange(start, end time.Time, afterID uint, limit int) ([]models.OperationRecord, error) {
	var records []models.OperationRecord
	err := r.db.
		Where("created_at >= ? AND created_at < ? AND id > ?", start, end, afterID).
		Order("id").
		Limit(limit).
		Find(&records).Error
	return records, err
}

// CountSince counts records created at or after the cutoff
func (r *operationRepository) CountSince(cutoff time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.OperationRecord{}).
		Where("created_at >= ?", cutoff).
		Count(&count).Error
	return count, err
}
