package repository

import (
	"time"

	"github.com/docmill/docmill/app/models"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByExternalID(externalID string) (*models.User, error)
	Update(user *models.User) error
	List(offset, limit int) ([]models.User, error)
	Count() (int64, error)
	CountCreatedBefore(cutoff time.Time) (int64, error)
	CountCreatedBetween(start, end time.Time) (int64, error)
	CountPremiumAt(instant time.Time) (int64, error)
}

// SettingRepository defines the interface for setting-related database operations
type SettingRepository interface {
	GetAll() ([]models.Setting, error)
	GetByKey(key string) (*models.Setting, error)
	Upsert(setting *models.Setting) error
}

// OperationRepository defines the interface for the append-only operations log.
// Rows are written once and never mutated.
type OperationRepository interface {
	Create(record *models.OperationRecord) error
	ListRange(start, end time.Time, afterID uint, limit int) ([]models.OperationRecord, error)
	CountSince(cutoff time.Time) (int64, error)
}

// AssetRepository defines the interface for ephemeral asset metadata.
type AssetRepository interface {
	Create(asset *models.EphemeralAsset) error
	GetByUUID(uuid string) (*models.EphemeralAsset, error)
	ListExpired(cutoff time.Time, limit int) ([]models.EphemeralAsset, error)
	DeleteByIDs(ids []uint) (int64, error)
}

// StatRepository defines the interface for derived daily statistics.
type StatRepository interface {
	Upsert(stat *models.DailyStat) error
	GetByDate(date string) (*models.DailyStat, error)
}

// BillingEventRepository defines the interface for revenue events.
type BillingEventRepository interface {
	Create(event *models.BillingEvent) error
	SumAmountBetween(start, end time.Time) (float64, error)
}

// Repositories bundles all repository implementations behind one handle.
type Repositories struct {
	User    UserRepository
	Setting SettingRepository
	Op      OperationRepository
	Asset   AssetRepository
	Stat    StatRepository
	Billing BillingEventRepository
}
