package controllers

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/docmill/docmill/internal/pkg/billing"
)

// WebhookController receives payment-provider callbacks.
type WebhookController struct {
	Billing *billing.Service
	Secret  string
}

// HandleBillingWebhook verifies the signature and applies the subscription
// event. Redeliveries are safe; the event reference is applied at most once.
func (wc *WebhookController) HandleBillingWebhook(c *fiber.Ctx) error {
	payload := c.Body()
	signature := c.Get("X-Webhook-Signature")

	if !billing.VerifyWebhookSignature(payload, signature, wc.Secret) {
		log.Warnf("[Webhook] Rejected billing webhook with bad signature from %s", c.IP())
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid_signature", "message": "Signature verification failed"})
	}

	var event billing.SubscriptionEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid event payload"})
	}

	if err := wc.Billing.HandleSubscriptionEvent(c.Context(), event); err != nil {
		log.Errorf("[Webhook] Failed to apply billing event %s: %v", event.EventRef, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to process event"})
	}
	return c.JSON(fiber.Map{"status": "ok"})
}
