package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/docmill/docmill/app/models"
	"github.com/docmill/docmill/app/repository"
	"github.com/docmill/docmill/internal/pkg/objectstore"
)

var (
	// ErrAssetNotFound is returned when no asset exists under the id.
	ErrAssetNotFound = errors.New("asset not found")
	// ErrAssetExpired is returned when the asset exists but its lifetime is
	// over, whether or not the reaper has removed it yet.
	ErrAssetExpired = errors.New("asset expired")
	// ErrAssetTooLarge is returned when the payload exceeds max_file_size.
	ErrAssetTooLarge = errors.New("asset exceeds maximum file size")
)

// reapBatchSize bounds how many rows one reaper pass deletes at a time.
const reapBatchSize = 500

// Config supplies the store's runtime limits. The settings registry
// implements it.
type Config interface {
	DefaultAssetTTL() time.Duration
	MaxFileSize() int64
}

// Upload describes a derived file to be registered.
type Upload struct {
	Name    string
	Size    int64
	Type    string
	Payload io.Reader // optional; nil registers metadata only
}

// Store manages the metadata and lifecycle of short-lived derived files.
// Payloads live behind the object store; expiry is lazy, so an asset can be
// logically gone long before its row is physically purged.
type Store struct {
	repo    repository.AssetRepository
	objects objectstore.Store
	config  Config
}

func NewStore(repo repository.AssetRepository, objects objectstore.Store, config Config) *Store {
	return &Store{repo: repo, objects: objects, config: config}
}

// Register records a derived file with a time-to-live. A non-positive ttl
// falls back to the configured default.
func (s *Store) Register(ctx context.Context, userID uint, upload Upload, ttl time.Duration, now time.Time) (*models.EphemeralAsset, error) {
	if max := s.config.MaxFileSize(); max > 0 && upload.Size > max {
		return nil, fmt.Errorf("%w: %d > %d bytes", ErrAssetTooLarge, upload.Size, max)
	}
	if ttl <= 0 {
		ttl = s.config.DefaultAssetTTL()
	}

	asset := &models.EphemeralAsset{
		UUID:      uuid.New().String(),
		UserID:    userID,
		Name:      upload.Name,
		Size:      upload.Size,
		Type:      upload.Type,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	if upload.Payload != nil && s.objects != nil {
		key := fmt.Sprintf("assets/%04d/%02d/%s", now.Year(), int(now.Month()), asset.UUID)
		if err := s.objects.Put(ctx, key, upload.Payload, upload.Size, upload.Type); err != nil {
			return nil, fmt.Errorf("failed to store payload: %w", err)
		}
		asset.ObjectKey = key
	}

	if err := s.repo.Create(asset); err != nil {
		// Roll back the payload so failed registrations leave nothing behind.
		if asset.ObjectKey != "" && s.objects != nil {
			if derr := s.objects.Delete(ctx, asset.ObjectKey); derr != nil {
				log.Errorf("[Assets] Failed to clean up payload %s: %v", asset.ObjectKey, derr)
			}
		}
		return nil, fmt.Errorf("failed to register asset: %w", err)
	}

	return asset, nil
}

// Get returns the asset metadata if it is still alive at the given instant.
func (s *Store) Get(assetID string, now time.Time) (*models.EphemeralAsset, error) {
	asset, err := s.repo.GetByUUID(assetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssetNotFound
		}
		return nil, err
	}
	if asset.IsExpired(now) {
		return nil, ErrAssetExpired
	}
	return asset, nil
}

// Open streams the payload of a live asset.
func (s *Store) Open(ctx context.Context, assetID string, now time.Time) (io.ReadCloser, error) {
	asset, err := s.Get(assetID, now)
	if err != nil {
		return nil, err
	}
	if asset.ObjectKey == "" || s.objects == nil {
		return nil, ErrAssetNotFound
	}
	return s.objects.Open(ctx, asset.ObjectKey)
}

// Reap physically removes every asset that was already expired at the
// snapshot instant, in bounded batches, and returns how many rows went away.
// A second immediate run finds nothing new to delete.
func (s *Store) Reap(ctx context.Context, now time.Time) (int64, error) {
	tReap := now
	var total int64

	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		expired, err := s.repo.ListExpired(tReap, reapBatchSize)
		if err != nil {
			return total, fmt.Errorf("failed to list expired assets: %w", err)
		}
		if len(expired) == 0 {
			break
		}

		kept := 0
		ids := make([]uint, 0, len(expired))
		for _, a := range expired {
			if a.ObjectKey != "" && s.objects != nil {
				if err := s.objects.Delete(ctx, a.ObjectKey); err != nil {
					// The row is kept so the next run retries the payload.
					log.Errorf("[Assets] Failed to delete payload %s: %v", a.ObjectKey, err)
					kept++
					continue
				}
			}
			ids = append(ids, a.ID)
		}

		deleted, err := s.repo.DeleteByIDs(ids)
		if err != nil {
			return total, fmt.Errorf("failed to delete expired assets: %w", err)
		}
		total += deleted

		// Kept rows would show up again on the next ListExpired call; stop
		// instead of spinning on them.
		if len(expired) < reapBatchSize || kept > 0 {
			break
		}
	}

	if total > 0 {
		log.Infof("[Assets] Reaped %d expired asset(s)", total)
	}
	return total, nil
}
