package xero

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/MitchCasey/ReviewPing/app/models"
	"github.com/MitchCasey/ReviewPing/internal/pkg/env"
)

const (
	defaultAuthorizeURL   = "https://login.xero.com/identity/connect/authorize"
	defaultTokenURL       = "https://identity.xero.com/connect/token"
	defaultAPIBaseURL     = "https://api.xero.com/api.xro/2.0"
	defaultConnectionsURL = "https://api.xero.com/connections"

	// RefreshMargin is how long before actual expiry we treat a token as
	// stale and refresh proactively.
	RefreshMargin = 5 * time.Minute

	oauthScopes = "offline_access openid accounting.transactions accounting.contacts"
)

// ErrReauthRequired means the refresh token itself was rejected; the
// connection has been deactivated and the business owner must reconnect.
var ErrReauthRequired = errors.New("xero: refresh token revoked, reauthentication required")

// ConnectionStore persists token changes made by the client. Satisfied by
// the provider connection repository.
type ConnectionStore interface {
	SaveTokens(conn *models.ProviderConnection) error
	MarkInactive(conn *models.ProviderConnection) error
}

// Client talks to the Xero identity and accounting APIs.
type Client struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string

	AuthorizeURL   string
	TokenURL       string
	APIBaseURL     string
	ConnectionsURL string

	HTTPClient *http.Client

	// One refresh in flight per connection; concurrent callers wait and then
	// see the already-refreshed token instead of racing the token endpoint.
	refreshLocks sync.Map
}

// NewClientFromEnv builds a client from environment configuration.
func NewClientFromEnv() *Client {
	base := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", ""), "/")
	redirectURI := strings.TrimSpace(env.GetEnv("XERO_REDIRECT_URI", ""))
	if redirectURI == "" && base != "" {
		redirectURI = base + "/connect/xero/callback"
	}

	return &Client{
		ClientID:       strings.TrimSpace(env.GetEnv("XERO_CLIENT_ID", "")),
		ClientSecret:   strings.TrimSpace(env.GetEnv("XERO_CLIENT_SECRET", "")),
		RedirectURI:    redirectURI,
		AuthorizeURL:   strings.TrimSpace(env.GetEnv("XERO_AUTHORIZE_URL", defaultAuthorizeURL)),
		TokenURL:       strings.TrimSpace(env.GetEnv("XERO_TOKEN_URL", defaultTokenURL)),
		APIBaseURL:     strings.TrimSpace(env.GetEnv("XERO_API_BASE_URL", defaultAPIBaseURL)),
		ConnectionsURL: strings.TrimSpace(env.GetEnv("XERO_CONNECTIONS_URL", defaultConnectionsURL)),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// AuthorizeURLWithState builds the consent redirect URL.
func (c *Client) AuthorizeURLWithState(state string) (string, error) {
	if strings.TrimSpace(c.ClientID) == "" {
		return "", errors.New("XERO_CLIENT_ID is not configured")
	}
	if strings.TrimSpace(c.RedirectURI) == "" {
		return "", errors.New("XERO_REDIRECT_URI is not configured")
	}
	u, err := url.Parse(c.AuthorizeURL)
	if err != nil {
		return "", fmt.Errorf("invalid XERO_AUTHORIZE_URL: %w", err)
	}
	q := u.Query()
	q.Set("response_type", "code")
	q.Set("client_id", c.ClientID)
	q.Set("redirect_uri", c.RedirectURI)
	q.Set("scope", oauthScopes)
	q.Set("state", state)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ExchangeCode swaps an authorization code for a token set.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*TokenResponse, error) {
	if strings.TrimSpace(code) == "" {
		return nil, errors.New("oauth code is required")
	}

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", strings.TrimSpace(code))
	form.Set("redirect_uri", c.RedirectURI)

	return c.postToken(ctx, form)
}

// Connections lists the organisations the given access token can reach.
func (c *Client) Connections(ctx context.Context, accessToken string) ([]Connection, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.ConnectionsURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("xero connections request failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	var out []Connection
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// EnsureValidToken returns an access token for the connection, refreshing it
// first when it is inside the safety margin. On a revoked refresh token the
// connection is invalidated and persisted, and ErrReauthRequired is
// returned. Transient failures leave the stored state untouched.
func (c *Client) EnsureValidToken(ctx context.Context, conn *models.ProviderConnection, store ConnectionStore) (string, error) {
	if !conn.IsActive {
		return "", ErrReauthRequired
	}
	if !conn.TokenExpiresWithin(RefreshMargin) {
		return conn.AccessToken, nil
	}

	mu := c.lockFor(conn.ID)
	mu.Lock()
	defer mu.Unlock()

	// Another caller may have refreshed while we waited for the lock.
	if !conn.TokenExpiresWithin(RefreshMargin) {
		return conn.AccessToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", conn.RefreshToken)

	token, err := c.postToken(ctx, form)
	if err != nil {
		if isInvalidGrant(err) {
			conn.Invalidate()
			if saveErr := store.MarkInactive(conn); saveErr != nil {
				return "", saveErr
			}
			return "", ErrReauthRequired
		}
		// Transient (network, 5xx): caller may retry on the next pass.
		return "", err
	}

	expires := time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	conn.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		// Xero rotates the refresh token on every use.
		conn.RefreshToken = token.RefreshToken
	}
	conn.ExpiresAt = &expires

	if err := store.SaveTokens(conn); err != nil {
		return "", err
	}
	return conn.AccessToken, nil
}

// GetInvoice fetches one invoice by id within a tenant.
func (c *Client) GetInvoice(ctx context.Context, accessToken, tenantID, invoiceID string) (*Invoice, error) {
	u := strings.TrimRight(c.APIBaseURL, "/") + "/Invoices/" + url.PathEscape(invoiceID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Xero-tenant-id", tenantID)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("%w: invoice fetch rejected status=%d", ErrReauthRequired, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("xero invoice request failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	var out struct {
		Invoices []Invoice `json:"Invoices"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	if len(out.Invoices) == 0 {
		return nil, fmt.Errorf("xero invoice %s not found in response", invoiceID)
	}
	return &out.Invoices[0], nil
}

func (c *Client) postToken(ctx context.Context, form url.Values) (*TokenResponse, error) {
	if strings.TrimSpace(c.ClientID) == "" || strings.TrimSpace(c.ClientSecret) == "" {
		return nil, errors.New("XERO_CLIENT_ID/XERO_CLIENT_SECRET are not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(c.ClientID, c.ClientSecret)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var oauthErr struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(body, &oauthErr)
		if resp.StatusCode < 500 && (oauthErr.Error == "invalid_grant" || oauthErr.Error == "unauthorized_client" || oauthErr.Error == "invalid_client") {
			return nil, fmt.Errorf("%w: %s", errInvalidGrant, oauthErr.Error)
		}
		return nil, fmt.Errorf("xero token request failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	var out TokenResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.AccessToken) == "" {
		return nil, errors.New("xero token response returned empty access_token")
	}
	return &out, nil
}

var errInvalidGrant = errors.New("xero: invalid grant")

func isInvalidGrant(err error) bool {
	return errors.Is(err, errInvalidGrant)
}

func (c *Client) lockFor(connID uint) *sync.Mutex {
	v, _ := c.refreshLocks.LoadOrStore(connID, &sync.Mutex{})
	return v.(*sync.Mutex)
}
