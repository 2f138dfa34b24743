package repository

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/docmill/docmill/app/models"
)

// NewMemoryRepositories returns a fully in-memory repository set. It backs
// tests and local development without a MySQL instance; the implementations
// honor the same uniqueness rules as the schema (external_id, setting_key,
// date, event_ref) and return the gorm sentinel errors callers already check.
func NewMemoryRepositories() *Repositories {
	return &Repositories{
		User:    &memoryUserRepository{users: make(map[uint]models.User)},
		Setting: &memorySettingRepository{settings: make(map[string]models.Setting)},
		Op:      &memoryOperationRepository{},
		Asset:   &memoryAssetRepository{assets: make(map[uint]models.EphemeralAsset)},
		Stat:    &memoryStatRepository{stats: make(map[string]models.DailyStat)},
		Billing: &memoryBillingEventRepository{refs: make(map[string]struct{})},
	}
}

type memoryUserRepository struct {
	mu     sync.RWMutex
	users  map[uint]models.User
	nextID uint
}

func (r *memoryUserRepository) Create(user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ExternalID == user.ExternalID {
			return gorm.ErrDuplicatedKey
		}
	}
	r.nextID++
	user.ID = r.nextID
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	user.UpdatedAt = user.CreatedAt
	r.users[user.ID] = *user
	return nil
}

func (r *memoryUserRepository) GetByID(id uint) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &u, nil
}

func (r *memoryUserRepository) GetByExternalID(externalID string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.ExternalID == externalID {
			out := u
			return &out, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memoryUserRepository) Update(user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	user.UpdatedAt = time.Now()
	r.users[user.ID] = *user
	return nil
}

func (r *memoryUserRepository) List(offset, limit int) ([]models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := make([]models.User, 0, len(r.users))
	for _, u := range r.users {
		all = append(all, u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (r *memoryUserRepository) Count() (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.users)), nil
}

func (r *memoryUserRepository) CountCreatedBefore(cutoff time.Time) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n int64
	for _, u := range r.users {
		if u.CreatedAt.Before(cutoff) {
			n++
		}
	}
	return n, nil
}

func (r *memoryUserRepository) CountCreatedBetween(start, end time.Time) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n int64
	for _, u := range r.users {
		if !u.CreatedAt.Before(start) && u.CreatedAt.Before(end) {
			n++
		}
	}
	return n, nil
}

func (r *memoryUserRepository) CountPremiumAt(instant time.Time) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n int64
	for _, u := range r.users {
		if u.PremiumUntil != nil && u.PremiumUntil.After(instant) {
			n++
		}
	}
	return n, nil
}

type memorySettingRepository struct {
	mu       sync.RWMutex
	settings map[string]models.Setting
	nextID   uint
}

func (r *memorySettingRepository) GetAll() ([]models.Setting, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := make([]models.Setting, 0, len(r.settings))
	for _, s := range r.settings {
		all = append(all, s)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Key < all[j].Key })
	return all, nil
}

func (r *memorySettingRepository) GetByKey(key string) (*models.Setting, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.settings[key]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &s, nil
}

func (r *memorySettingRepository) Upsert(setting *models.Setting) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.settings[setting.Key]; ok {
		setting.ID = existing.ID
		setting.CreatedAt = existing.CreatedAt
	} else {
		r.nextID++
		setting.ID = r.nextID
		setting.CreatedAt = time.Now()
	}
	setting.UpdatedAt = time.Now()
	r.settings[setting.Key] = *setting
	return nil
}

type memoryOperationRepository struct {
	mu      sync.RWMutex
	records []models.OperationRecord
	nextID  uint
}

func (r *memoryOperationRepository) Create(record *models.OperationRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	record.ID = r.nextID
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	r.records = append(r.records, *record)
	return nil
}

func (r *memoryOperationRepository) ListRange(start, end time.Time, afterID uint, limit int) ([]models.OperationRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.OperationRecord
	for _, rec := range r.records {
		if rec.ID <= afterID {
			continue
		}
		if rec.CreatedAt.Before(start) || !rec.CreatedAt.Before(end) {
			continue
		}
		out = append(out, rec)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *memoryOperationRepository) CountSince(cutoff time.Time) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n int64
	for _, rec := range r.records {
		if !rec.CreatedAt.Before(cutoff) {
			n++
		}
	}
	return n, nil
}

type memoryAssetRepository struct {
	mu     sync.RWMutex
	assets map[uint]models.EphemeralAsset
	nextID uint
}

func (r *memoryAssetRepository) Create(asset *models.EphemeralAsset) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if asset.UUID == "" {
		asset.UUID = uuid.New().String()
	}
	r.nextID++
	asset.ID = r.nextID
	if asset.CreatedAt.IsZero() {
		asset.CreatedAt = time.Now()
	}
	r.assets[asset.ID] = *asset
	return nil
}

func (r *memoryAssetRepository) GetByUUID(id string) (*models.EphemeralAsset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.assets {
		if a.UUID == id {
			out := a
			return &out, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memoryAssetRepository) ListExpired(cutoff time.Time, limit int) ([]models.EphemeralAsset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.EphemeralAsset
	for _, a := range r.assets {
		if a.ExpiresAt.Before(cutoff) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memoryAssetRepository) DeleteByIDs(ids []uint) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, id := range ids {
		if _, ok := r.assets[id]; ok {
			delete(r.assets, id)
			n++
		}
	}
	return n, nil
}

type memoryStatRepository struct {
	mu     sync.RWMutex
	stats  map[string]models.DailyStat
	nextID uint
}

func (r *memoryStatRepository) Upsert(stat *models.DailyStat) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.stats[stat.Date]; ok {
		stat.ID = existing.ID
		stat.CreatedAt = existing.CreatedAt
	} else {
		r.nextID++
		stat.ID = r.nextID
		stat.CreatedAt = time.Now()
	}
	stat.UpdatedAt = time.Now()
	r.stats[stat.Date] = *stat
	return nil
}

func (r *memoryStatRepository) GetByDate(date string) (*models.DailyStat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.stats[date]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &s, nil
}

type memoryBillingEventRepository struct {
	mu     sync.RWMutex
	events []models.BillingEvent
	refs   map[string]struct{}
	nextID uint
}

func (r *memoryBillingEventRepository) Create(event *models.BillingEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if event.EventRef != "" {
		if _, ok := r.refs[event.EventRef]; ok {
			return gorm.ErrDuplicatedKey
		}
		r.refs[event.EventRef] = struct{}{}
	}
	r.nextID++
	event.ID = r.nextID
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	r.events = append(r.events, *event)
	return nil
}

func (r *memoryBillingEventRepository) SumAmountBetween(start, end time.Time) (float64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var total float64
	for _, ev := range r.events {
		if !ev.OccurredAt.Before(start) && ev.OccurredAt.Before(end) {
			total += ev.Amount
		}
	}
	return total, nil
}
