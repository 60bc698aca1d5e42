package controllers

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/MitchCasey/ReviewPing/app/models"
	"github.com/MitchCasey/ReviewPing/internal/pkg/sms"
)

func TestFormatTimePtr(t *testing.T) {
	assert.Nil(t, formatTimePtr(nil))

	now := time.Date(2026, 5, 1, 12, 34, 56, 0, time.Local)
	formatted := formatTimePtr(&now)
	assert.IsType(t, "", formatted)

	expected := now.UTC().Format(time.RFC3339)
	assert.Equal(t, expected, formatted)
}

func TestTemplateOrDefault(t *testing.T) {
	account := &models.Account{}
	assert.Equal(t, models.DefaultSMSTemplate, templateOrDefault(account))

	account.SMSTemplate = "Thanks from {businessName}!"
	assert.Equal(t, "Thanks from {businessName}!", templateOrDefault(account))

	account.SMSTemplate = "   "
	assert.Equal(t, models.DefaultSMSTemplate, templateOrDefault(account))
}

func TestPreviewTemplateCost(t *testing.T) {
	account := &models.Account{
		BusinessName: "Casey Plumbing",
		ReviewURL:    "https://g.page/r/casey-plumbing/review",
	}

	preview := previewTemplateCost(account)
	assert.True(t, preview.Valid)
	assert.Equal(t, sms.EncodingGSM, preview.Encoding)
	assert.Equal(t, 1, preview.Segments)

	account.SMSTemplate = strings.Repeat("x", 1200)
	preview = previewTemplateCost(account)
	assert.False(t, preview.Valid)
}
