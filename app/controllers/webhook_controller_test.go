package controllers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docmill/docmill/app/repository"
	"github.com/docmill/docmill/internal/pkg/billing"
	"github.com/docmill/docmill/internal/pkg/identity"
	"github.com/docmill/docmill/internal/pkg/settings"
)

const testWebhookSecret = "whsec_test"

func newWebhookApp(t *testing.T) (*fiber.App, *repository.Repositories) {
	t.Helper()

	repos := repository.NewMemoryRepositories()
	registry := settings.NewRegistry(repos.Setting)
	require.NoError(t, registry.Load())

	svc := billing.NewService(identity.NewRegistry(repos.User), repos.Billing, registry)
	wc := &WebhookController{Billing: svc, Secret: testWebhookSecret}

	app := fiber.New()
	app.Post("/api/webhooks/billing", wc.HandleBillingWebhook)
	return app, repos
}

func postWebhook(t *testing.T, app *fiber.App, payload []byte, signature string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/billing", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set("X-Webhook-Signature", signature)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestBillingWebhookAppliesEvent(t *testing.T) {
	app, repos := newWebhookApp(t)

	payload := []byte(`{"external_user_id":"ext-1","provider":"stripe","event_ref":"evt-1","interval":"month","occurred_at":"2026-03-10T12:00:00Z"}`)
	resp := postWebhook(t, app, payload, billing.SignWebhookPayload(payload, testWebhookSecret))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	user, err := repos.User.GetByExternalID("ext-1")
	require.NoError(t, err)
	require.NotNil(t, user.PremiumUntil)
	expected := time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)
	assert.True(t, user.PremiumUntil.Equal(expected))
}

func TestBillingWebhookRejectsBadSignature(t *testing.T) {
	app, repos := newWebhookApp(t)

	payload := []byte(`{"external_user_id":"ext-1","event_ref":"evt-1","interval":"month","occurred_at":"2026-03-10T12:00:00Z"}`)
	resp := postWebhook(t, app, payload, "deadbeef")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, err := repos.User.GetByExternalID("ext-1")
	assert.Error(t, err, "a rejected delivery must have no side effects")
}

func TestBillingWebhookRejectsMissingSignature(t *testing.T) {
	app, _ := newWebhookApp(t)

	payload := []byte(`{"external_user_id":"ext-1","event_ref":"evt-1","interval":"month"}`)
	resp := postWebhook(t, app, payload, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestBillingWebhookRejectsMalformedPayload(t *testing.T) {
	app, _ := newWebhookApp(t)

	payload := []byte(`{not json`)
	resp := postWebhook(t, app, payload, billing.SignWebhookPayload(payload, testWebhookSecret))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
