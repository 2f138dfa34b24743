package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/docmill/docmill/app/models"
)

// settingRepository implements the SettingRepository interface
type settingRepository struct {
	db *gorm.DB
}

// NewSettingRepository creates a new setting repository instance
func NewSettingRepository(db *gorm.DB) SettingRepository {
	return &settingRepository{db: db}
}

// GetAll retrieves every persisted setting
func (r *settingRepository) GetAll() ([]models.Setting, error) {
	var settings []models.Setting
	err := r.db.Find(&settings).Error
	return settings, err
}

// GetByKey retrieves a specific setting by key
func (r *settingRepository) GetByKey(key string) (*models.Setting, error) {
	var setting models.Setting
	err := r.db.Where("setting_key = ?", key).First(&setting).Error
	if err != nil {
		return nil, err
	}
	return &setting, nil
}

// Upsert creates the setting or updates its value and description in place
func (r *settingRepository) Upsert(setting *models.Setting) error {
	var existing models.Setting
	err := r.db.Where("setting_key = ?", setting.Key).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.db.Create(setting).Error
	} else if err != nil {
		return err
	}

	existing.Value = setting.Value
	existing.Type = setting.Type
	if setting.Description != "" {
		existing.Description = setting.Description
	}
	if err := r.db.Save(&existing).Error; err != nil {
		return err
	}
	*setting = existing
	return nil
}
