package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/docmill/docmill/app/models"
)

// userRepository implements the UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository instance
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create creates a new user in the database
func (r *userRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// GetByID retrieves a user by their ID
func (r *userRepository) GetByID(id uint) (*models.User, error) {
	var user models.User
	err := r.db.First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByExternalID retrieves a user by their external identity
func (r *userRepository) GetByExternalID(externalID string) (*models.User, error) {
	var user models.User
	err := r.db.Where("external_id = ?", externalID).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Update updates an existing user in the database
func (r *userRepository) Update(user *models.User) error {
	return r.db.Save(user).Error
}

// List retrieves a paginated list of users
func (r *userRepository) List(offset, limit int) ([]models.User, error) {
	var users []models.User
	err := r.db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&users).Error
	return users, err
}

// Count returns the total number of users
func (r *userRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.User{}).Count(&count).Error
	return count, err
}

// CountCreatedBefore counts users that joined before the cutoff
func (r *userRepository) CountCreatedBefore(cutoff time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.User{}).Where("created_at < ?", cutoff).Count(&count).Error
	return count, err
}

// CountCreatedBetween counts users that joined within [start, end)
func (r *userRepository) CountCreatedBetween(start, end time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.User{}).
		Where("created_at >= ? AND created_at < ?", start, end).
		Count(&count).Error
	return count, err
}

// CountPremiumAt counts users whose premium entitlement is active at the instant
func (r *userRepository) CountPremiumAt(instant time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.User{}).
		Where("premium_until IS NOT NULL AND premium_until > ?", instant).
		Count(&count).Error
	return count, err
}
