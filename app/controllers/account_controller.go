package controllers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/MitchCasey/ReviewPing/app/models"
	"github.com/MitchCasey/ReviewPing/app/repository"
	"github.com/MitchCasey/ReviewPing/internal/pkg/middleware"
	"github.com/MitchCasey/ReviewPing/internal/pkg/reviews"
	"github.com/MitchCasey/ReviewPing/internal/pkg/sms"
)

// HandleGetAccount returns the authenticated account's profile, balance and
// sending statistics.
func HandleGetAccount(c *fiber.Ctx) error {
	account := middleware.AccountFromContext(c)
	if account == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing or invalid authentication"})
	}

	requests := repository.GetGlobalRepositories().ReviewRequest
	sent, err := requests.CountByAccount(account.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load statistics"})
	}

	return c.JSON(fiber.Map{
		"id":                    account.ID,
		"business_name":         account.BusinessName,
		"email":                 account.Email,
		"review_url":            account.ReviewURL,
		"sms_template":          templateOrDefault(account),
		"sms_enabled":           account.SMSEnabled,
		"balance_cents":         account.Balance,
		"lifetime_funded_cents": account.LifetimeFunded,
		"is_active":             account.IsActive,
		"created_at":            account.CreatedAt.UTC().Format(time.RFC3339),
		"api_key_last_used_at":  formatTimePtr(account.APIKeyLastUsedAt),
		"stats": fiber.Map{
			"review_requests": sent,
		},
	})
}

type updateAccountRequest struct {
	ReviewURL   *string `json:"review_url"`
	SMSTemplate *string `json:"sms_template"`
	SMSEnabled  *bool   `json:"sms_enabled"`
}

// HandleUpdateAccount updates the review link, SMS template and sending
// switch. A template that cannot fit a message under the gateway limit with
// realistic placeholder values is rejected before it can break live sends.
func HandleUpdateAccount(c *fiber.Ctx) error {
	account := middleware.AccountFromContext(c)
	if account == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing or invalid authentication"})
	}

	var req updateAccountRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid JSON body"})
	}

	if req.ReviewURL != nil {
		account.ReviewURL = strings.TrimSpace(*req.ReviewURL)
	}
	if req.SMSTemplate != nil {
		account.SMSTemplate = strings.TrimSpace(*req.SMSTemplate)
	}
	if req.SMSEnabled != nil {
		account.SMSEnabled = *req.SMSEnabled
	}

	if err := account.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}

	preview := previewTemplateCost(account)
	if !preview.Valid {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "template_too_long",
			"message": "Rendered template exceeds the maximum SMS length",
			"preview": previewPayload(preview),
		})
	}

	if err := repository.GetGlobalRepositories().Account.Update(account); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to save account"})
	}

	return c.JSON(fiber.Map{
		"sms_template": templateOrDefault(account),
		"review_url":   account.ReviewURL,
		"sms_enabled":  account.SMSEnabled,
		"preview":      previewPayload(preview),
	})
}

// HandleListReviewRequests returns the account's review request history,
// newest first.
func HandleListReviewRequests(c *fiber.Ctx) error {
	account := middleware.AccountFromContext(c)
	if account == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing or invalid authentication"})
	}

	limit := c.QueryInt("limit", 50)
	if limit < 1 || limit > 200 {
		limit = 50
	}
	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	repo := repository.GetGlobalRepositories().ReviewRequest
	items, err := repo.ListByAccount(account.ID, offset, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load review requests"})
	}
	total, err := repo.CountByAccount(account.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load review requests"})
	}

	return c.JSON(fiber.Map{
		"items":  items,
		"total":  total,
		"offset": offset,
		"limit":  limit,
	})
}

// HandleRotateAPIKey replaces the account's API key and returns the new raw
// key once. Requests authenticated with the old key stop working immediately.
func HandleRotateAPIKey(c *fiber.Ctx) error {
	account := middleware.AccountFromContext(c)
	if account == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing or invalid authentication"})
	}

	rawKey, err := account.GenerateAPIKey()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Key generation failed"})
	}
	if err := repository.GetGlobalRepositories().Account.Update(account); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to save account"})
	}

	return c.JSON(fiber.Map{
		"api_key":        rawKey,
		"api_key_prefix": account.APIKeyPrefix,
	})
}

// previewSampleData stands in for a typical customer when estimating what a
// template will cost per message.
var previewSampleData = map[string]string{
	"customerName": "Alexandra",
}

func previewTemplateCost(account *models.Account) sms.Analysis {
	data := map[string]string{
		"customerName": previewSampleData["customerName"],
		"businessName": account.BusinessName,
		"reviewUrl":    account.ReviewURL,
	}
	rendered := reviews.RenderTemplate(templateOrDefault(account), data)
	return sms.NewCalculator().Analyze(rendered)
}

func previewPayload(a sms.Analysis) fiber.Map {
	return fiber.Map{
		"encoding":   a.Encoding,
		"chars":      a.Chars,
		"segments":   a.Segments,
		"cost_cents": a.CostCents,
	}
}

func templateOrDefault(account *models.Account) string {
	if strings.TrimSpace(account.SMSTemplate) != "" {
		return account.SMSTemplate
	}
	return models.DefaultSMSTemplate
}

func formatTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
