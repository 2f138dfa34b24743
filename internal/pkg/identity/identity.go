package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/docmill/docmill/app/models"
	"github.com/docmill/docmill/app/repository"
)

// Profile carries the identity fields the transport layer knows about a user.
type Profile struct {
	Username     string
	FirstName    string
	LastName     string
	LanguageCode string
}

// Registry maps external identities to internal user records and answers
// tier questions. Tier is always computed from the stored premium expiry,
// never stored on its own.
type Registry struct {
	users repository.UserRepository
}

func NewRegistry(users repository.UserRepository) *Registry {
	return &Registry{users: users}
}

// GetOrCreate resolves an external identity to its user record, creating one
// on first contact. The unique index on external_id makes concurrent first
// contact safe: the loser of the insert race re-reads the winner's row.
func (r *Registry) GetOrCreate(externalID string, profile Profile) (*models.User, error) {
	user, err := r.users.GetByExternalID(externalID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to resolve user %s: %w", externalID, err)
	}

	user = &models.User{
		ExternalID:   externalID,
		Username:     profile.Username,
		FirstName:    profile.FirstName,
		LastName:     profile.LastName,
		LanguageCode: profile.LanguageCode,
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}
	err = r.users.Create(user)
	if err == nil {
		log.Infof("[Identity] Created user %d for external id %s", user.ID, externalID)
		return user, nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// Lost the first-contact race; the row exists now.
		return r.users.GetByExternalID(externalID)
	}
	return nil, fmt.Errorf("failed to create user %s: %w", externalID, err)
}

// GetByID loads a user record.
func (r *Registry) GetByID(userID uint) (*models.User, error) {
	return r.users.GetByID(userID)
}

// SetPremium stores the premium expiry for a user. A timestamp in the past is
// accepted as-is; the user simply computes to free tier from then on.
func (r *Registry) SetPremium(userID uint, expiresAt time.Time) error {
	user, err := r.users.GetByID(userID)
	if err != nil {
		return fmt.Errorf("failed to load user %d: %w", userID, err)
	}
	user.PremiumUntil = &expiresAt
	if err := r.users.Update(user); err != nil {
		return fmt.Errorf("failed to update user %d: %w", userID, err)
	}
	log.Infof("[Identity] User %d premium until %s", userID, expiresAt.Format(time.RFC3339))
	return nil
}

// TierOf computes the user's tier at the given instant.
func (r *Registry) TierOf(userID uint, now time.Time) (string, error) {
	user, err := r.users.GetByID(userID)
	if err != nil {
		return "", err
	}
	return user.Tier(now), nil
}

// Touch records user activity.
func (r *Registry) Touch(userID uint, now time.Time) error {
	user, err := r.users.GetByID(userID)
	if err != nil {
		return err
	}
	user.LastActivityAt = &now
	return r.users.Update(user)
}

// List returns a page of users for the admin surface.
func (r *Registry) List(offset, limit int) ([]models.User, error) {
	return r.users.List(offset, limit)
}
