package controllers

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"

	"github.com/MitchCasey/ReviewPing/internal/pkg/dedup"
	"github.com/MitchCasey/ReviewPing/internal/pkg/payments"
	"github.com/MitchCasey/ReviewPing/internal/pkg/reviews"
)

const webhookTestKey = "controller-test-key"

func newWebhookTestApp(t *testing.T) *fiber.App {
	t.Helper()

	InitializeWebhookControllers(
		reviews.NewService(reviews.Config{
			Deduper:    dedup.NewMemory(10),
			WebhookKey: webhookTestKey,
		}),
		payments.NewService(nil, nil, dedup.NewMemory(10), "whsec_controller_test"),
	)

	app := fiber.New()
	app.Post("/webhook/xero", HandleXeroWebhook)
	app.Post("/webhook/stripe", HandleStripeWebhook)
	return app
}

func signXero(payload []byte) string {
	mac := hmac.New(sha256.New, []byte(webhookTestKey))
	mac.Write(payload)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestXeroWebhookRejectsInvalidSignature(t *testing.T) {
	app := newWebhookTestApp(t)

	payload := []byte(`{"events":[],"firstEventSequence":0,"lastEventSequence":0}`)
	req := httptest.NewRequest("POST", "/webhook/xero", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-xero-signature", "not-a-signature")

	resp, err := app.Test(req)
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestXeroWebhookAcksHandshake(t *testing.T) {
	app := newWebhookTestApp(t)

	payload := []byte(`{"events":[],"firstEventSequence":0,"lastEventSequence":0}`)
	req := httptest.NewRequest("POST", "/webhook/xero", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-xero-signature", signXero(payload))

	resp, err := app.Test(req)
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "handshake acknowledged", body["message"])
}

func TestStripeWebhookRejectsInvalidSignature(t *testing.T) {
	app := newWebhookTestApp(t)

	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed","data":{"object":{}}}`)
	req := httptest.NewRequest("POST", "/webhook/stripe", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Stripe-Signature", "t=1,v1=deadbeef")

	resp, err := app.Test(req)
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var body map[string]interface{}
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "invalid_signature", body["error"])
}
