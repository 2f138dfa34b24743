package quota

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/docmill/docmill/app/models"
	"github.com/docmill/docmill/app/repository"
)

// ErrQuotaExceeded is returned when an admission would push a user past
// their daily limit. The counter is left untouched.
var ErrQuotaExceeded = errors.New("daily quota exceeded")

// Decision is the outcome of an admission check.
type Decision struct {
	Granted   bool
	Remaining int
	Limit     int
}

// Limits resolves the per-tier daily allowances. The settings registry
// implements it.
type Limits interface {
	FreeDailyLimit() int
	PremiumDailyLimit() int
}

// Ledger enforces per-user daily operation quotas. All counter access for a
// single user runs under that user's lock, so the read-check-increment
// sequence is linearizable: concurrent callers never jointly exceed the
// limit and never lose an increment. Different users use different locks and
// never contend.
type Ledger struct {
	users  repository.UserRepository
	limits Limits

	mu    sync.Mutex
	locks map[uint]*sync.Mutex
}

func NewLedger(users repository.UserRepository, limits Limits) *Ledger {
	return &Ledger{
		users:  users,
		limits: limits,
		locks:  make(map[uint]*sync.Mutex),
	}
}

func (l *Ledger) userLock(userID uint) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[userID] = lock
	}
	return lock
}

// TryConsume reserves cost units of today's quota for the user. The stale
// daily counter is reset in the same critical section, so the reset happens
// exactly once per user per day no matter how many callers race.
func (l *Ledger) TryConsume(userID uint, now time.Time, cost int) (Decision, error) {
	if cost <= 0 {
		cost = 1
	}

	lock := l.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	user, err := l.users.GetByID(userID)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to load user %d: %w", userID, err)
	}

	limit := l.limitFor(user, now)
	reset := user.ResetUsageIfStale(now)

	if user.DailyUsage+cost > limit {
		if reset {
			// Persist the once-per-day reset even when the request is denied.
			if err := l.users.Update(user); err != nil {
				return Decision{}, fmt.Errorf("failed to persist usage reset for user %d: %w", userID, err)
			}
		}
		return Decision{Granted: false, Limit: limit}, ErrQuotaExceeded
	}

	user.DailyUsage += cost
	user.TotalOperations++
	user.LastActivityAt = &now
	if err := l.users.Update(user); err != nil {
		return Decision{}, fmt.Errorf("failed to persist usage for user %d: %w", userID, err)
	}

	return Decision{Granted: true, Remaining: limit - user.DailyUsage, Limit: limit}, nil
}

// Release compensates a reservation after the downstream operation failed,
// so a failed operation does not permanently consume quota. The counter
// never goes below zero.
func (l *Ledger) Release(userID uint, now time.Time, cost int) error {
	if cost <= 0 {
		cost = 1
	}

	lock := l.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	user, err := l.users.GetByID(userID)
	if err != nil {
		return fmt.Errorf("failed to load user %d: %w", userID, err)
	}

	user.ResetUsageIfStale(now)
	user.DailyUsage -= cost
	if user.DailyUsage < 0 {
		user.DailyUsage = 0
	}
	if err := l.users.Update(user); err != nil {
		return fmt.Errorf("failed to release quota for user %d: %w", userID, err)
	}

	log.Debugf("[Quota] Released %d unit(s) for user %d, usage now %d", cost, userID, user.DailyUsage)
	return nil
}

// Remaining reports how much of today's quota the user has left, without
// consuming anything.
func (l *Ledger) Remaining(userID uint, now time.Time) (int, int, error) {
	lock := l.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	user, err := l.users.GetByID(userID)
	if err != nil {
		return 0, 0, err
	}

	limit := l.limitFor(user, now)
	if user.ResetUsageIfStale(now) {
		if err := l.users.Update(user); err != nil {
			return 0, 0, err
		}
	}
	return limit - user.DailyUsage, limit, nil
}

func (l *Ledger) limitFor(user *models.User, now time.Time) int {
	if user.IsPremium(now) {
		return l.limits.PremiumDailyLimit()
	}
	return l.limits.FreeDailyLimit()
}
