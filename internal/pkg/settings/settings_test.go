package settings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docmill/docmill/app/repository"
)

func newLoadedRegistry(t *testing.T) *Registry {
	t.Helper()

	repos := repository.NewMemoryRepositories()
	reg := NewRegistry(repos.Setting)
	require.NoError(t, reg.Load())
	return reg
}

func TestLoadSeedsDefaults(t *testing.T) {
	repos := repository.NewMemoryRepositories()
	reg := NewRegistry(repos.Setting)
	require.NoError(t, reg.Load())

	for key, spec := range keySpecs {
		value, err := reg.Get(key)
		require.NoError(t, err, "key %s", key)
		assert.Equal(t, spec.Default, value, "key %s", key)
	}

	// The seeded defaults must also be persisted, not just cached.
	persisted, err := repos.Setting.GetAll()
	require.NoError(t, err)
	assert.Len(t, persisted, len(keySpecs))
}

func TestLoadKeepsPersistedValues(t *testing.T) {
	repos := repository.NewMemoryRepositories()
	reg := NewRegistry(repos.Setting)
	require.NoError(t, reg.Load())
	require.NoError(t, reg.Set(KeyFreeDailyLimit, "7"))

	// A fresh registry over the same store picks up the stored value.
	reg2 := NewRegistry(repos.Setting)
	require.NoError(t, reg2.Load())
	assert.Equal(t, 7, reg2.FreeDailyLimit())
}

func TestGetUnknownKey(t *testing.T) {
	reg := newLoadedRegistry(t)

	_, err := reg.Get("no_such_key")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetValidatesType(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		ok    bool
	}{
		{"valid integer", KeyFreeDailyLimit, "10", true},
		{"non-numeric integer", KeyFreeDailyLimit, "ten", false},
		{"decimal into integer", KeyFreeDailyLimit, "5.5", false},
		{"valid boolean", KeyMaintenanceMode, "true", true},
		{"invalid boolean", KeyMaintenanceMode, "maybe", false},
		{"valid decimal", KeyPremiumMonthlyPrice, "12.50", true},
		{"invalid decimal", KeyPremiumMonthlyPrice, "cheap", false},
		{"any string", KeyWelcomeMessage, "Hello there", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := newLoadedRegistry(t)

			err := reg.Set(tt.key, tt.value)
			if tt.ok {
				require.NoError(t, err)
				got, err := reg.Get(tt.key)
				require.NoError(t, err)
				assert.Equal(t, tt.value, got)
			} else {
				assert.ErrorIs(t, err, ErrValidation)
			}
		})
	}
}

func TestSetUnknownKey(t *testing.T) {
	reg := newLoadedRegistry(t)

	err := reg.Set("no_such_key", "1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRejectedWriteLeavesValueUntouched(t *testing.T) {
	reg := newLoadedRegistry(t)
	before := reg.Version()

	err := reg.Set(KeyFreeDailyLimit, "not-a-number")
	require.ErrorIs(t, err, ErrValidation)

	assert.Equal(t, 5, reg.FreeDailyLimit())
	assert.Equal(t, before, reg.Version(), "rejected write must not bump the version")
}

func TestVersionAdvancesOnWrite(t *testing.T) {
	reg := newLoadedRegistry(t)
	before := reg.Version()

	require.NoError(t, reg.Set(KeyFreeDailyLimit, "8"))
	assert.Greater(t, reg.Version(), before)
}

func TestTypedHelpers(t *testing.T) {
	reg := newLoadedRegistry(t)

	assert.Equal(t, 5, reg.FreeDailyLimit())
	assert.Equal(t, 100, reg.PremiumDailyLimit())
	assert.Equal(t, int64(52428800), reg.MaxFileSize())
	assert.False(t, reg.MaintenanceMode())
	assert.Equal(t, 9.99, reg.MonthlyPrice())
	assert.Equal(t, 99.99, reg.YearlyPrice())
	assert.Equal(t, "24h0m0s", reg.DefaultAssetTTL().String())

	require.NoError(t, reg.Set(KeyMaintenanceMode, "true"))
	assert.True(t, reg.MaintenanceMode())
}
