package googleauth

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/MitchCasey/ReviewPing/app/models"
	"github.com/MitchCasey/ReviewPing/internal/pkg/env"
	"github.com/markbates/goth"
	"github.com/markbates/goth/providers/google"
	"golang.org/x/oauth2"
)

// RefreshMargin is wider than Xero's: Google access tokens live an hour and
// the refresh endpoint throttles aggressively, so we renew well ahead.
const RefreshMargin = 15 * time.Minute

// ErrReauthRequired means Google rejected the refresh token; the credential
// has been deactivated and the business owner must reconnect.
var ErrReauthRequired = errors.New("googleauth: refresh token revoked, reauthentication required")

// CredentialStore persists token changes. Satisfied by the Google credential
// repository.
type CredentialStore interface {
	SaveTokens(cred *models.GoogleCredential) error
	MarkInactive(cred *models.GoogleCredential) error
}

// Refresher keeps Google credentials valid via the goth Google provider.
type Refresher struct {
	provider goth.Provider

	refreshLocks sync.Map
}

// NewRefresherFromEnv builds a refresher from environment configuration.
func NewRefresherFromEnv() *Refresher {
	base := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", ""), "/")
	return &Refresher{
		provider: google.New(
			env.GetEnv("GOOGLE_KEY", ""),
			env.GetEnv("GOOGLE_SECRET", ""),
			base+"/connect/google/callback",
			"email", "profile",
		),
	}
}

// NewRefresher builds a refresher around an existing goth provider. Used by
// tests to substitute a fake.
func NewRefresher(provider goth.Provider) *Refresher {
	return &Refresher{provider: provider}
}

// EnsureValid returns a valid access token for the credential, refreshing if
// it is inside the safety margin. Semantics mirror the Xero client: revoked
// refresh tokens invalidate the credential, transient failures leave the
// stored state untouched.
func (r *Refresher) EnsureValid(cred *models.GoogleCredential, store CredentialStore) (string, error) {
	if !cred.IsActive {
		return "", ErrReauthRequired
	}
	if !cred.TokenExpiresWithin(RefreshMargin) {
		return cred.AccessToken, nil
	}

	mu := r.lockFor(cred.ID)
	mu.Lock()
	defer mu.Unlock()

	if !cred.TokenExpiresWithin(RefreshMargin) {
		return cred.AccessToken, nil
	}

	token, err := r.provider.RefreshToken(cred.RefreshToken)
	if err != nil {
		if isTerminalOAuthError(err) {
			cred.Invalidate()
			if saveErr := store.MarkInactive(cred); saveErr != nil {
				return "", saveErr
			}
			return "", ErrReauthRequired
		}
		return "", err
	}

	cred.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		cred.RefreshToken = token.RefreshToken
	}
	if !token.Expiry.IsZero() {
		expiry := token.Expiry
		cred.ExpiresAt = &expiry
	}

	if err := store.SaveTokens(cred); err != nil {
		return "", err
	}
	return cred.AccessToken, nil
}

// isTerminalOAuthError distinguishes a revoked/invalid grant from transient
// network or server trouble.
func isTerminalOAuthError(err error) bool {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		if retrieveErr.ErrorCode == "invalid_grant" || retrieveErr.ErrorCode == "unauthorized_client" {
			return true
		}
		if retrieveErr.Response != nil {
			code := retrieveErr.Response.StatusCode
			return code == 400 || code == 401 || code == 403
		}
	}
	return false
}

func (r *Refresher) lockFor(credID uint) *sync.Mutex {
	v, _ := r.refreshLocks.LoadOrStore(credID, &sync.Mutex{})
	return v.(*sync.Mutex)
}
