package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/docmill/docmill/app/models"
)

// statRepository implements the StatRepository interface
type statRepository struct {
	db *gorm.DB
}

// NewStatRepository creates a new stat repository instance
func NewStatRepository(db *gorm.DB) StatRepository {
	return &statRepository{db: db}
}

// Upsert writes the daily stat row, replacing any existing row for the date
func (r *statRepository) Upsert(stat *models.DailyStat) error {
	var existing models.DailyStat
	err := r.db.Where("date = ?", stat.Date).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.db.Create(stat).Error
	} else if err != nil {
		return err
	}

	stat.ID = existing.ID
	stat.CreatedAt = existing.CreatedAt
	return r.db.Save(stat).Error
}

// GetByDate retrieves the stat row for a date (YYYY-MM-DD)
func (r *statRepository) GetByDate(date string) (*models.DailyStat, error) {
	var stat models.DailyStat
	err := r.db.Where("date = ?", date).First(&stat).Error
	if err != nil {
		return nil, err
	}
	return &stat, nil
}
