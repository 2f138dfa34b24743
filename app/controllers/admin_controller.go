package controllers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/docmill/docmill/app/repository"
	"github.com/docmill/docmill/internal/pkg/analytics"
	"github.com/docmill/docmill/internal/pkg/identity"
	"github.com/docmill/docmill/internal/pkg/journal"
	"github.com/docmill/docmill/internal/pkg/scheduler"
	"github.com/docmill/docmill/internal/pkg/settings"
)

// AdminController serves the operator surface: live statistics, runtime
// settings and manual triggers for the background entry points.
type AdminController struct {
	Settings   *settings.Registry
	Identity   *identity.Registry
	Users      repository.UserRepository
	Journal    *journal.Journal
	Aggregator *analytics.Aggregator
	Scheduler  *scheduler.Manager
}

// HandleStats returns a live snapshot of today's service activity.
func (ac *AdminController) HandleStats(c *fiber.Ctx) error {
	now := time.Now()
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	totalUsers, err := ac.Users.Count()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to count users"})
	}
	premiumUsers, err := ac.Users.CountPremiumAt(now)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to count premium users"})
	}
	todayOps, err := ac.Journal.CountSince(todayStart)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to count operations"})
	}

	var conversionRate float64
	if totalUsers > 0 {
		conversionRate = float64(premiumUsers) / float64(totalUsers) * 100
	}

	return c.JSON(fiber.Map{
		"total_users":      totalUsers,
		"premium_users":    premiumUsers,
		"today_operations": todayOps,
		"conversion_rate":  conversionRate,
		"maintenance_mode": ac.Settings.MaintenanceMode(),
	})
}

// HandleDailyStat returns the stored rollup row for a date.
func (ac *AdminController) HandleDailyStat(c *fiber.Ctx) error {
	date, err := time.Parse("2006-01-02", c.Params("date"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Date must be YYYY-MM-DD"})
	}
	stat, err := ac.Aggregator.GetDaily(date)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "No statistics for that date"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load statistics"})
	}
	return c.JSON(stat)
}

// HandleListUsers returns a paginated user listing.
func (ac *AdminController) HandleListUsers(c *fiber.Ctx) error {
	offset := c.QueryInt("offset", 0)
	limit := c.QueryInt("limit", 50)
	if limit > 200 {
		limit = 200
	}
	users, err := ac.Identity.List(offset, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to list users"})
	}
	return c.JSON(fiber.Map{"users": users, "offset": offset, "limit": limit})
}

// HandleGetSetting returns one runtime setting.
func (ac *AdminController) HandleGetSetting(c *fiber.Ctx) error {
	key := c.Params("key")
	value, err := ac.Settings.Get(key)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Unknown setting"})
	}
	return c.JSON(fiber.Map{"key": key, "value": value, "version": ac.Settings.Version()})
}

// HandleListSettings returns all runtime settings.
func (ac *AdminController) HandleListSettings(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"settings": ac.Settings.All(), "version": ac.Settings.Version()})
}

// HandleUpdateSetting validates and stores a new setting value.
func (ac *AdminController) HandleUpdateSetting(c *fiber.Ctx) error {
	key := c.Params("key")
	var body struct {
		Value string `json:"value"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid JSON body"})
	}

	if err := ac.Settings.Set(key, body.Value); err != nil {
		switch {
		case errors.Is(err, settings.ErrNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Unknown setting"})
		case errors.Is(err, settings.ErrValidation):
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to store setting"})
		}
	}
	return c.JSON(fiber.Map{"key": key, "value": body.Value, "version": ac.Settings.Version()})
}

// HandleReap triggers one reaper pass right now.
func (ac *AdminController) HandleReap(c *fiber.Ctx) error {
	ac.Scheduler.RunReap(time.Now())
	return c.SendStatus(fiber.StatusAccepted)
}

// HandleRollup recomputes the statistics for a date (default: yesterday).
// Re-invoking for any past date is safe; it overwrites deterministically.
func (ac *AdminController) HandleRollup(c *fiber.Ctx) error {
	date := time.Now().AddDate(0, 0, -1)
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Date must be YYYY-MM-DD"})
		}
		date = parsed
	}

	stat, err := ac.Aggregator.Rollup(c.Context(), date)
	if err != nil {
		if errors.Is(err, analytics.ErrLeaseHeld) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "rollup_in_progress", "message": "Another rollup for this date is running"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Rollup failed"})
	}
	return c.JSON(stat)
}
