package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/MitchCasey/ReviewPing/internal/pkg/payments"
	"github.com/MitchCasey/ReviewPing/internal/pkg/reviews"
)

var (
	reviewsService  *reviews.Service
	paymentsService *payments.Service
)

// InitializeWebhookControllers wires the webhook handlers to their processors.
func InitializeWebhookControllers(reviewsSvc *reviews.Service, paymentsSvc *payments.Service) {
	reviewsService = reviewsSvc
	paymentsService = paymentsSvc
}

// HandleXeroWebhook receives Xero event deliveries. Signature verification
// runs over the raw body exactly as received; any mutation would break the
// HMAC.
func HandleXeroWebhook(c *fiber.Ctx) error {
	if reviewsService == nil {
		log.Error("[Webhook] Xero handler called before initialization")
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	// Fiber reuses the request buffer after the handler returns; the
	// processor may outlive that, so take a copy.
	raw := make([]byte, len(c.Body()))
	copy(raw, c.Body())

	result, err := reviewsService.HandleWebhook(c.UserContext(), raw, c.Get("x-xero-signature"))
	if err != nil {
		log.Errorf("[Webhook] Xero webhook processing failed: %v", err)
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	switch result.Outcome {
	case reviews.OutcomeInvalidSignature:
		// Xero's intent-to-receive validation requires a 401 here.
		return c.SendStatus(fiber.StatusUnauthorized)
	case reviews.OutcomeHandshake:
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"message":          "handshake acknowledged",
			"processingTimeMs": result.ProcessingTimeMs,
		})
	case reviews.OutcomeDuplicate:
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"message":          "duplicate delivery ignored",
			"processingTimeMs": result.ProcessingTimeMs,
		})
	default:
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"message":          "processed",
			"eventsProcessed":  result.EventsProcessed,
			"processingTimeMs": result.ProcessingTimeMs,
		})
	}
}

// HandleStripeWebhook receives Stripe payment events and credits balances.
func HandleStripeWebhook(c *fiber.Ctx) error {
	if paymentsService == nil {
		log.Error("[Webhook] Stripe handler called before initialization")
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	raw := make([]byte, len(c.Body()))
	copy(raw, c.Body())

	if err := paymentsService.HandleWebhook(raw, c.Get("Stripe-Signature")); err != nil {
		if errors.Is(err, payments.ErrInvalidSignature) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_signature", "message": "Invalid Stripe signature"})
		}
		log.Errorf("[Webhook] Stripe webhook processing failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to process event"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"received": true})
}
