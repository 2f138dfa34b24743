package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/docmill/docmill/app/models"
	"github.com/docmill/docmill/app/repository"
	"github.com/docmill/docmill/internal/pkg/identity"
)

// SubscriptionEvent is a premium purchase or renewal delivered by the
// payment provider webhook.
type SubscriptionEvent struct {
	ExternalUserID string    `json:"external_user_id"`
	Provider       string    `json:"provider"`
	EventRef       string    `json:"event_ref"`
	Interval       string    `json:"interval"` // month or year
	OccurredAt     time.Time `json:"occurred_at"`
}

// Prices resolves subscription prices; the settings registry implements it.
type Prices interface {
	MonthlyPrice() float64
	YearlyPrice() float64
}

// Service applies provider webhook events: it extends the user's premium
// entitlement and records the revenue the aggregator later sums.
type Service struct {
	identity *identity.Registry
	events   repository.BillingEventRepository
	prices   Prices
}

func NewService(reg *identity.Registry, events repository.BillingEventRepository, prices Prices) *Service {
	return &Service{identity: reg, events: events, prices: prices}
}

// HandleSubscriptionEvent processes one webhook delivery. Redeliveries of the
// same event_ref are recognized and applied at most once.
func (s *Service) HandleSubscriptionEvent(ctx context.Context, ev SubscriptionEvent) error {
	if ev.ExternalUserID == "" || ev.EventRef == "" {
		return errors.New("external_user_id and event_ref are required")
	}

	interval := strings.ToLower(strings.TrimSpace(ev.Interval))
	var amount float64
	var expiry time.Time
	switch interval {
	case models.BillingIntervalYear:
		amount = s.prices.YearlyPrice()
		expiry = ev.OccurredAt.AddDate(1, 0, 0)
	case models.BillingIntervalMonth:
		amount = s.prices.MonthlyPrice()
		expiry = ev.OccurredAt.AddDate(0, 1, 0)
	default:
		return fmt.Errorf("unknown billing interval %q", ev.Interval)
	}

	user, err := s.identity.GetOrCreate(ev.ExternalUserID, identity.Profile{})
	if err != nil {
		return fmt.Errorf("failed to resolve subscriber %s: %w", ev.ExternalUserID, err)
	}

	record := &models.BillingEvent{
		UserID:     user.ID,
		Provider:   strings.ToLower(strings.TrimSpace(ev.Provider)),
		EventRef:   ev.EventRef,
		Interval:   interval,
		Amount:     amount,
		OccurredAt: ev.OccurredAt,
	}
	if err := s.events.Create(record); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			log.Infof("[Billing] Event %s already processed, skipping", ev.EventRef)
			return nil
		}
		return fmt.Errorf("failed to record billing event %s: %w", ev.EventRef, err)
	}

	if err := s.identity.SetPremium(user.ID, expiry); err != nil {
		return err
	}

	log.Infof("[Billing] User %d premium extended to %s (%s, %.2f)",
		user.ID, expiry.Format(time.RFC3339), interval, amount)
	return nil
}
