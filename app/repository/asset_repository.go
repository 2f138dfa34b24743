package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/docmill/docmill/app/models"
)

// assetRepository implements the AssetRepository interface
type assetRepository struct {
	db *gorm.DB
}

// NewAssetRepository creates a new asset repository instance
func NewAssetRepository(db *gorm.DB) AssetRepository {
	return &assetRepository{db: db}
}

// Create registers a new ephemeral asset record
func (r *assetRepository) Create(asset *models.EphemeralAsset) error {
	return r.db.Create(asset).Error
}

// GetByUUID retrieves an asset by its public identifier
func (r *assetRepository) GetByUUID(uuid string) (*models.EphemeralAsset, error) {
	var asset models.EphemeralAsset
	err := r.db.Where("uuid = ?", uuid).First(&asset).Error
	if err != nil {
		return nil, err
	}
	return &asset, nil
}

// ListExpired returns up to limit assets whose expiry is strictly before the cutoff
func (r *assetRepository) ListExpired(cutoff time.Time, limit int) ([]models.EphemeralAsset, error) {
	var assets []models.EphemeralAsset
	err := r.db.Where("expires_at < ?", cutoff).Order("id").Limit(limit).Find(&assets).Error
	return assets, err
}

// DeleteByIDs hard-deletes asset records and reports how many rows went away
func (r *assetRepository) DeleteByIDs(ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.Where("id IN ?", ids).Delete(&models.EphemeralAsset{})
	return res.RowsAffected, res.Error
}
