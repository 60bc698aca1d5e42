package controllers

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	gothfiber "github.com/shareed2k/goth_fiber"

	"github.com/MitchCasey/ReviewPing/app/models"
	"github.com/MitchCasey/ReviewPing/app/repository"
	"github.com/MitchCasey/ReviewPing/internal/pkg/session"
	"github.com/MitchCasey/ReviewPing/internal/pkg/xero"
)

const (
	sessionKeyXeroState     = "xero_oauth_state"
	sessionKeyXeroAccount   = "xero_connect_account"
	sessionKeyGoogleAccount = "google_connect_account"
	connectedRedirectTarget = "/connected"
)

var xeroClient *xero.Client

// InitializeOAuthController wires the Xero client used by the connect flow.
func InitializeOAuthController(client *xero.Client) {
	xeroClient = client
}

// HandleXeroConnect starts the Xero consent flow for an account. The random
// state is bound to the caller's session and checked on callback.
func HandleXeroConnect(c *fiber.Ctx) error {
	account, err := connectingAccount(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": err.Error()})
	}

	state := uuid.New().String()
	if err := session.SetSessionValue(c, sessionKeyXeroState, state); err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString("session init failed")
	}
	if err := session.SetSessionValue(c, sessionKeyXeroAccount, strconv.FormatUint(uint64(account.ID), 10)); err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString("session init failed")
	}

	authorizeURL, err := xeroClient.AuthorizeURLWithState(state)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString(fmt.Sprintf("Xero connect unavailable: %v", err))
	}
	return c.Redirect(authorizeURL, fiber.StatusSeeOther)
}

// HandleXeroCallback completes the Xero consent flow: state check, code
// exchange, then one provider connection upserted per authorized organisation.
func HandleXeroCallback(c *fiber.Ctx) error {
	state := c.Query("state")
	if state == "" || state != session.GetSessionValue(c, sessionKeyXeroState) {
		return c.Status(fiber.StatusBadRequest).SendString("state mismatch")
	}

	accountID, err := strconv.ParseUint(session.GetSessionValue(c, sessionKeyXeroAccount), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("no connecting account in session")
	}

	token, err := xeroClient.ExchangeCode(c.UserContext(), c.Query("code"))
	if err != nil {
		return c.Status(fiber.StatusBadGateway).SendString(fmt.Sprintf("code exchange failed: %v", err))
	}

	connections, err := xeroClient.Connections(c.UserContext(), token.AccessToken)
	if err != nil {
		return c.Status(fiber.StatusBadGateway).SendString(fmt.Sprintf("listing organisations failed: %v", err))
	}
	if len(connections) == 0 {
		return c.Status(fiber.StatusBadRequest).SendString("no organisation was authorized")
	}

	expires := time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	repo := repository.GetGlobalRepositories().ProviderConnection
	for _, conn := range connections {
		pc := &models.ProviderConnection{
			AccountID:    uint(accountID),
			TenantID:     conn.TenantID,
			TenantName:   conn.TenantName,
			AccessToken:  token.AccessToken,
			RefreshToken: token.RefreshToken,
			ExpiresAt:    &expires,
			IsActive:     true,
		}
		if err := repo.Upsert(pc); err != nil {
			return c.Status(fiber.StatusInternalServerError).SendString(fmt.Sprintf("saving connection failed: %v", err))
		}
	}

	return c.Redirect(connectedRedirectTarget, fiber.StatusSeeOther)
}

// HandleGoogleConnect starts the Google consent flow for an account.
func HandleGoogleConnect(c *fiber.Ctx) error {
	account, err := connectingAccount(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": err.Error()})
	}
	if err := session.SetSessionValue(c, sessionKeyGoogleAccount, strconv.FormatUint(uint64(account.ID), 10)); err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString("session init failed")
	}
	return gothfiber.BeginAuthHandler(c)
}

// HandleGoogleCallback completes the Google consent flow and stores the
// offline credential for background refresh.
func HandleGoogleCallback(c *fiber.Ctx) error {
	u, err := gothfiber.CompleteUserAuth(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString(fmt.Sprintf("OAuth failed: %v", err))
	}

	accountID, err := strconv.ParseUint(session.GetSessionValue(c, sessionKeyGoogleAccount), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("no connecting account in session")
	}

	cred := &models.GoogleCredential{
		AccountID:    uint(accountID),
		AccessToken:  u.AccessToken,
		RefreshToken: u.RefreshToken,
		IsActive:     true,
	}
	if !u.ExpiresAt.IsZero() {
		t := u.ExpiresAt
		cred.ExpiresAt = &t
	}

	if err := repository.GetGlobalRepositories().GoogleCredential.Upsert(cred); err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString(fmt.Sprintf("saving credential failed: %v", err))
	}

	return c.Redirect(connectedRedirectTarget, fiber.StatusSeeOther)
}

// connectingAccount resolves which account a consent flow is for. The flow
// runs in a browser, so the account is named explicitly and validated against
// the store.
func connectingAccount(c *fiber.Ctx) (*models.Account, error) {
	rawID := c.Query("account_id")
	if rawID == "" {
		return nil, fmt.Errorf("account_id query parameter is required")
	}
	id, err := strconv.ParseUint(rawID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("account_id must be numeric")
	}
	account, err := repository.GetGlobalRepositories().Account.GetByID(uint(id))
	if err != nil {
		return nil, fmt.Errorf("unknown account")
	}
	if !account.IsActive {
		return nil, fmt.Errorf("account is inactive")
	}
	return account, nil
}
