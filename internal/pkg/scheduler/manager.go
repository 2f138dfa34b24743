package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/docmill/docmill/internal/pkg/analytics"
	"github.com/docmill/docmill/internal/pkg/assets"
)

const (
	// DefaultReapInterval is how often the reaper scans for expired assets.
	DefaultReapInterval = 1 * time.Hour
	// DefaultRollupInterval is how often the aggregator reconsiders the
	// previous day. Rollup is idempotent, so re-running is safe.
	DefaultRollupInterval = 1 * time.Hour
)

// Manager drives the two background schedules: the reaper purging expired
// assets and the aggregator rolling up the previous day. Each run gets a
// context bounded by its own interval, so a stuck run cannot prevent the
// next tick from attempting a fresh lease.
type Manager struct {
	assets     *assets.Store
	aggregator *analytics.Aggregator

	reapInterval   time.Duration
	rollupInterval time.Duration

	reapTicker   *time.Ticker
	rollupTicker *time.Ticker
	stopCh       chan struct{}
	wg           sync.WaitGroup
	mu           sync.Mutex
	running      bool
}

func NewManager(store *assets.Store, aggregator *analytics.Aggregator) *Manager {
	return &Manager{
		assets:         store,
		aggregator:     aggregator,
		reapInterval:   DefaultReapInterval,
		rollupInterval: DefaultRollupInterval,
	}
}

// Start launches the background workers.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	// Recreate the stop channel each cycle so the manager can be restarted.
	m.stopCh = make(chan struct{})
	m.running = true
	log.Info("[Scheduler] Starting background tasks")

	m.reapTicker = time.NewTicker(m.reapInterval)
	m.wg.Add(1)
	go m.reapWorker()

	m.rollupTicker = time.NewTicker(m.rollupInterval)
	m.wg.Add(1)
	go m.rollupWorker()

	log.Info("[Scheduler] Started successfully")
}

// Stop shuts the background workers down and waits for them.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	log.Info("[Scheduler] Stopping background tasks...")
	if m.reapTicker != nil {
		m.reapTicker.Stop()
	}
	if m.rollupTicker != nil {
		m.rollupTicker.Stop()
	}
	close(m.stopCh)
	m.running = false
	m.wg.Wait()
	log.Info("[Scheduler] All background tasks stopped")
}

func (m *Manager) reapWorker() {
	defer m.wg.Done()
	for {
		select {
		case <-m.stopCh:
			return
		case <-m.reapTicker.C:
			m.RunReap(time.Now())
		}
	}
}

func (m *Manager) rollupWorker() {
	defer m.wg.Done()
	for {
		select {
		case <-m.stopCh:
			return
		case <-m.rollupTicker.C:
			m.RunRollup(time.Now().AddDate(0, 0, -1))
		}
	}
}

// RunReap performs one reaper pass. It is also the entry point for manual
// operator triggers and is safe to re-invoke.
func (m *Manager) RunReap(now time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), m.reapInterval)
	defer cancel()

	deleted, err := m.assets.Reap(ctx, now)
	if err != nil {
		log.Errorf("[Scheduler] Reap run failed after %d deletion(s): %v", deleted, err)
	}
}

// RunRollup aggregates one date. Lease conflicts are expected when several
// scheduler instances overlap and are swallowed here.
func (m *Manager) RunRollup(date time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), m.rollupInterval)
	defer cancel()

	if _, err := m.aggregator.Rollup(ctx, date); err != nil {
		if errors.Is(err, analytics.ErrLeaseHeld) {
			log.Infof("[Scheduler] Rollup for %s already running elsewhere", date.Format("2006-01-02"))
			return
		}
		log.Errorf("[Scheduler] Rollup for %s failed: %v", date.Format("2006-01-02"), err)
	}
}
