package settings

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/docmill/docmill/app/models"
	"github.com/docmill/docmill/app/repository"
)

var (
	// ErrNotFound is returned for keys the registry does not know.
	ErrNotFound = errors.New("setting not found")
	// ErrValidation is returned when a value does not parse to the key's type.
	ErrValidation = errors.New("setting validation failed")
)

const (
	KeyMaxFileSize         = "max_file_size"
	KeyFreeDailyLimit      = "free_daily_limit"
	KeyPremiumDailyLimit   = "premium_daily_limit"
	KeyPremiumMonthlyPrice = "premium_monthly_price"
	KeyPremiumYearlyPrice  = "premium_yearly_price"
	KeyMaintenanceMode     = "maintenance_mode"
	KeyWelcomeMessage      = "welcome_message"
	KeyDefaultAssetTTL     = "default_asset_ttl_hours"
)

type keySpec struct {
	Type        string
	Default     string
	Description string
	Required    bool
}

// keySpecs declares every known setting, its value type and seeded default.
var keySpecs = map[string]keySpec{
	KeyMaxFileSize:         {models.SettingTypeInteger, "52428800", "Maximum accepted file size in bytes", true},
	KeyFreeDailyLimit:      {models.SettingTypeInteger, "5", "Daily operation limit for free tier", true},
	KeyPremiumDailyLimit:   {models.SettingTypeInteger, "100", "Daily operation limit for premium tier", true},
	KeyPremiumMonthlyPrice: {models.SettingTypeDecimal, "9.99", "Premium subscription price per month", true},
	KeyPremiumYearlyPrice:  {models.SettingTypeDecimal, "99.99", "Premium subscription price per year", true},
	KeyMaintenanceMode:     {models.SettingTypeBoolean, "false", "Deny all operation admission while active", true},
	KeyWelcomeMessage:      {models.SettingTypeString, "Welcome to DocMill!", "Greeting shown to new users", false},
	KeyDefaultAssetTTL:     {models.SettingTypeInteger, "24", "Default time-to-live for derived files, in hours", true},
}

// Registry serves validated runtime configuration. Reads come from an
// in-process cache refreshed on every accepted write; writes validate the
// value against the key's declared type before anything is persisted.
type Registry struct {
	repo    repository.SettingRepository
	mu      sync.RWMutex
	values  map[string]string
	version uint64
}

func NewRegistry(repo repository.SettingRepository) *Registry {
	return &Registry{
		repo:   repo,
		values: make(map[string]string),
	}
}

// Load seeds missing defaults, fills the read cache and verifies that every
// required key is present and parseable. A failure here is fatal for the
// caller: the service must not serve requests without its configuration.
func (r *Registry) Load() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	persisted, err := r.repo.GetAll()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	existing := make(map[string]string, len(persisted))
	for _, s := range persisted {
		existing[s.Key] = s.Value
	}

	for key, spec := range keySpecs {
		value, ok := existing[key]
		if !ok {
			value = spec.Default
			seed := &models.Setting{Key: key, Value: value, Type: spec.Type, Description: spec.Description}
			if err := r.repo.Upsert(seed); err != nil {
				return fmt.Errorf("failed to seed setting %s: %w", key, err)
			}
			log.Infof("[Settings] Seeded default %s=%s", key, value)
		}
		if spec.Required {
			if err := validateValue(spec.Type, value); err != nil {
				return fmt.Errorf("required setting %s has invalid value %q: %w", key, value, err)
			}
		}
		r.values[key] = value
	}

	r.version++
	return nil
}

// Get returns the cached value for a key.
func (r *Registry) Get(key string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	value, ok := r.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

// Set validates and persists a new value, then refreshes the read cache.
// On validation failure the previous value stays in place.
func (r *Registry) Set(key, value string) error {
	spec, ok := keySpecs[key]
	if !ok {
		return ErrNotFound
	}
	if err := validateValue(spec.Type, value); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	setting := &models.Setting{Key: key, Value: value, Type: spec.Type, Description: spec.Description}
	if err := r.repo.Upsert(setting); err != nil {
		return fmt.Errorf("failed to persist setting %s: %w", key, err)
	}
	r.values[key] = value
	r.version++
	return nil
}

// Version increases on every accepted write, so cached readers can detect
// that their snapshot is stale.
func (r *Registry) Version() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

// All returns a copy of the current cached settings.
func (r *Registry) All() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

func validateValue(settingType, value string) error {
	switch settingType {
	case models.SettingTypeInteger:
		if _, err := strconv.ParseInt(value, 10, 64); err != nil {
			return fmt.Errorf("%w: %q is not an integer", ErrValidation, value)
		}
	case models.SettingTypeBoolean:
		if _, err := strconv.ParseBool(value); err != nil {
			return fmt.Errorf("%w: %q is not a boolean", ErrValidation, value)
		}
	case models.SettingTypeDecimal:
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return fmt.Errorf("%w: %q is not a decimal", ErrValidation, value)
		}
	}
	return nil
}

func (r *Registry) intValue(key string, def int64) int64 {
	value, err := r.Get(key)
	if err != nil {
		return def
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func (r *Registry) floatValue(key string, def float64) float64 {
	value, err := r.Get(key)
	if err != nil {
		return def
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return f
}

// FreeDailyLimit returns the daily operation allowance for free users.
func (r *Registry) FreeDailyLimit() int {
	return int(r.intValue(KeyFreeDailyLimit, 5))
}

// PremiumDailyLimit returns the daily operation allowance for premium users.
func (r *Registry) PremiumDailyLimit() int {
	return int(r.intValue(KeyPremiumDailyLimit, 100))
}

// MaxFileSize returns the maximum accepted file size in bytes.
func (r *Registry) MaxFileSize() int64 {
	return r.intValue(KeyMaxFileSize, 52428800)
}

// MaintenanceMode reports whether operation admission is globally disabled.
func (r *Registry) MaintenanceMode() bool {
	value, err := r.Get(KeyMaintenanceMode)
	if err != nil {
		return false
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false
	}
	return b
}

// DefaultAssetTTL returns the default lifetime of a derived file.
func (r *Registry) DefaultAssetTTL() time.Duration {
	return time.Duration(r.intValue(KeyDefaultAssetTTL, 24)) * time.Hour
}

// MonthlyPrice returns the premium monthly subscription price.
func (r *Registry) MonthlyPrice() float64 {
	return r.floatValue(KeyPremiumMonthlyPrice, 9.99)
}

// YearlyPrice returns the premium yearly subscription price.
func (r *Registry) YearlyPrice() float64 {
	return r.floatValue(KeyPremiumYearlyPrice, 99.99)
}

// WelcomeMessage returns the greeting for new users.
func (r *Registry) WelcomeMessage() string {
	value, err := r.Get(KeyWelcomeMessage)
	if err != nil {
		return ""
	}
	return value
}
