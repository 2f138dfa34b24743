package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/docmill/docmill/app/models"
	"github.com/docmill/docmill/app/repository"
	"github.com/docmill/docmill/internal/pkg/cache"
	"github.com/docmill/docmill/internal/pkg/journal"
)

// leaseTTL bounds how long a crashed rollup can block the next attempt.
const leaseTTL = 10 * time.Minute

// statCacheTTL keeps served stat rows hot without letting a re-rollup go
// unnoticed for long.
const statCacheTTL = 15 * time.Minute

// Aggregator computes the daily statistics row for a date from the user
// snapshot, the operations log and the revenue feed. Rollup is a pure
// function of that underlying data: re-running it for any past date
// overwrites the row with identical content.
type Aggregator struct {
	users   repository.UserRepository
	stats   repository.StatRepository
	billing repository.BillingEventRepository
	journal *journal.Journal
	lease   Lease
}

func NewAggregator(
	users repository.UserRepository,
	stats repository.StatRepository,
	billing repository.BillingEventRepository,
	j *journal.Journal,
	lease Lease,
) *Aggregator {
	return &Aggregator{
		users:   users,
		stats:   stats,
		billing: billing,
		journal: j,
		lease:   lease,
	}
}

// Rollup aggregates one calendar day. The single-runner lease makes a
// concurrent attempt for the same date return ErrLeaseHeld instead of
// blocking or double counting. Safe to re-invoke for any past date.
func (a *Aggregator) Rollup(ctx context.Context, date time.Time) (*models.DailyStat, error) {
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	dayEnd := dayStart.Add(24 * time.Hour)
	day := dayStart.Format("2006-01-02")

	ok, err := a.lease.Acquire(ctx, day, leaseTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire rollup lease for %s: %w", day, err)
	}
	if !ok {
		return nil, ErrLeaseHeld
	}
	defer a.lease.Release(ctx, day)

	stat, err := a.compute(ctx, day, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}

	if err := a.stats.Upsert(stat); err != nil {
		return nil, fmt.Errorf("failed to store daily stat for %s: %w", day, err)
	}
	a.cacheStat(stat)

	log.Infof("[Analytics] Rolled up %s: %d ops, %d active / %d total users, revenue %.2f",
		day, stat.TotalOperations, stat.ActiveUsers, stat.TotalUsers, stat.Revenue)
	return stat, nil
}

func (a *Aggregator) compute(ctx context.Context, day string, dayStart, dayEnd time.Time) (*models.DailyStat, error) {
	totalUsers, err := a.users.CountCreatedBefore(dayEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	newUsers, err := a.users.CountCreatedBetween(dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to count new users: %w", err)
	}
	// Premium is evaluated at end-of-date: an entitlement that lapsed during
	// the day does not count.
	premiumUsers, err := a.users.CountPremiumAt(dayEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to count premium users: %w", err)
	}

	var totalOps int64
	byType := make(map[string]int64)
	active := make(map[uint]struct{})

	// Any journaled attempt, success or failure, marks its user active.
	cursor := a.journal.QueryByDateRange(dayStart, dayEnd)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := cursor.Next()
		if err != nil {
			return nil, err
		}
		if rec == nil {
			break
		}
		totalOps++
		byType[rec.Operation]++
		active[rec.UserID] = struct{}{}
	}

	revenue, err := a.billing.SumAmountBetween(dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to sum revenue: %w", err)
	}

	stat := &models.DailyStat{
		Date:            day,
		TotalUsers:      totalUsers,
		ActiveUsers:     int64(len(active)),
		NewUsers:        newUsers,
		PremiumUsers:    premiumUsers,
		TotalOperations: totalOps,
		Revenue:         revenue,
	}
	if err := stat.SetOperationsMap(byType); err != nil {
		return nil, fmt.Errorf("failed to encode operation counts: %w", err)
	}
	return stat, nil
}

// GetDaily returns the stat row for a date. Reads go through a best-effort
// redis cache; a cache miss or unreachable cache falls back to the store.
func (a *Aggregator) GetDaily(date time.Time) (*models.DailyStat, error) {
	day := date.Format("2006-01-02")

	if raw, err := cache.Get(statCacheKey(day)); err == nil {
		var stat models.DailyStat
		if json.Unmarshal([]byte(raw), &stat) == nil {
			return &stat, nil
		}
	}

	stat, err := a.stats.GetByDate(day)
	if err != nil {
		return nil, err
	}
	a.cacheStat(stat)
	return stat, nil
}

func statCacheKey(day string) string {
	return "analytics:daily:" + day
}

func (a *Aggregator) cacheStat(stat *models.DailyStat) {
	data, err := json.Marshal(stat)
	if err != nil {
		return
	}
	if err := cache.Set(statCacheKey(stat.Date), data, statCacheTTL); err != nil {
		log.Debugf("[Analytics] Stat cache write for %s skipped: %v", stat.Date, err)
	}
}
