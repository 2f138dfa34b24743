package controllers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/docmill/docmill/internal/pkg/assets"
	"github.com/docmill/docmill/internal/pkg/identity"
	"github.com/docmill/docmill/internal/pkg/processing"
	"github.com/docmill/docmill/internal/pkg/quota"
)

// OperationController submits document operations on behalf of an external
// identity. The transport layer (bot, CLI, test harness) is the caller; it
// owns no state of this subsystem.
type OperationController struct {
	Processor *processing.Processor
}

type operationRequest struct {
	ExternalID string `json:"external_id"`
	Username   string `json:"username"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Operation  string `json:"operation"`
	InputName  string `json:"input_name"`
	InputSize  int64  `json:"input_size"`
}

// HandleExecute runs one operation end to end.
func (oc *OperationController) HandleExecute(c *fiber.Ctx) error {
	var body operationRequest
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid JSON body"})
	}
	if body.ExternalID == "" || body.Operation == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "external_id and operation are required"})
	}

	outcome, err := oc.Processor.Handle(c.Context(), body.ExternalID, identity.Profile{
		Username:  body.Username,
		FirstName: body.FirstName,
		LastName:  body.LastName,
	}, processing.Request{
		Operation: body.Operation,
		InputName: body.InputName,
		InputSize: body.InputSize,
	}, time.Now())

	if err != nil {
		switch {
		case errors.Is(err, processing.ErrMaintenanceMode):
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "maintenance_mode", "message": "Service is under maintenance, try again later"})
		case errors.Is(err, quota.ErrQuotaExceeded):
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":   "quota_exceeded",
				"message": "Daily operation limit reached",
				"limit":   outcome.Decision.Limit,
			})
		case errors.Is(err, assets.ErrAssetTooLarge):
			return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{"error": "file_too_large", "message": err.Error()})
		default:
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "operation_failed", "message": err.Error()})
		}
	}

	resp := fiber.Map{
		"operation": body.Operation,
		"remaining": outcome.Decision.Remaining,
		"limit":     outcome.Decision.Limit,
	}
	if outcome.Asset != nil {
		resp["asset"] = fiber.Map{
			"id":         outcome.Asset.UUID,
			"name":       outcome.Asset.Name,
			"size":       outcome.Asset.Size,
			"expires_at": outcome.Asset.ExpiresAt,
		}
	}
	return c.JSON(resp)
}
