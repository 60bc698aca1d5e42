package googleauth

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/markbates/goth"
	"golang.org/x/oauth2"

	"github.com/MitchCasey/ReviewPing/app/models"
)

type fakeProvider struct {
	goth.Provider
	token *oauth2.Token
	err   error
	calls int
}

func (f *fakeProvider) RefreshToken(refreshToken string) (*oauth2.Token, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.token, nil
}

type fakeStore struct {
	saved          *models.GoogleCredential
	markedInactive bool
}

func (f *fakeStore) SaveTokens(cred *models.GoogleCredential) error {
	f.saved = cred
	return nil
}

func (f *fakeStore) MarkInactive(cred *models.GoogleCredential) error {
	f.markedInactive = true
	return nil
}

func expiringCredential() *models.GoogleCredential {
	soon := time.Now().Add(time.Minute)
	return &models.GoogleCredential{
		ID:           1,
		AccountID:    1,
		AccessToken:  "old-access",
		RefreshToken: "old-refresh",
		ExpiresAt:    &soon,
		IsActive:     true,
	}
}

func TestEnsureValidRefreshesExpiringToken(t *testing.T) {
	expiry := time.Now().Add(time.Hour)
	provider := &fakeProvider{token: &oauth2.Token{
		AccessToken:  "new-access",
		RefreshToken: "new-refresh",
		Expiry:       expiry,
	}}
	store := &fakeStore{}
	cred := expiringCredential()

	token, err := NewRefresher(provider).EnsureValid(cred, store)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "new-access" {
		t.Fatalf("expected refreshed access token, got %q", token)
	}
	if cred.RefreshToken != "new-refresh" {
		t.Fatalf("rotated refresh token must be kept, got %q", cred.RefreshToken)
	}
	if store.saved == nil {
		t.Fatalf("refreshed tokens must be persisted")
	}
}

func TestEnsureValidSkipsFreshToken(t *testing.T) {
	provider := &fakeProvider{}
	later := time.Now().Add(time.Hour)
	cred := expiringCredential()
	cred.ExpiresAt = &later

	token, err := NewRefresher(provider).EnsureValid(cred, &fakeStore{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "old-access" {
		t.Fatalf("fresh token should be returned unchanged, got %q", token)
	}
	if provider.calls != 0 {
		t.Fatalf("no refresh call expected for a fresh token")
	}
}

func TestEnsureValidRevokedGrant(t *testing.T) {
	provider := &fakeProvider{err: &oauth2.RetrieveError{
		Response:  &http.Response{StatusCode: 400},
		ErrorCode: "invalid_grant",
	}}
	store := &fakeStore{}
	cred := expiringCredential()

	_, err := NewRefresher(provider).EnsureValid(cred, store)
	if !errors.Is(err, ErrReauthRequired) {
		t.Fatalf("expected ErrReauthRequired, got %v", err)
	}
	if !store.markedInactive {
		t.Fatalf("revoked credential must be marked inactive")
	}
	if cred.IsActive || cred.RefreshToken != "" {
		t.Fatalf("revoked credential must be invalidated: %+v", cred)
	}
}

func TestEnsureValidTransientErrorLeavesStateUntouched(t *testing.T) {
	provider := &fakeProvider{err: errors.New("connection refused")}
	store := &fakeStore{}
	cred := expiringCredential()

	_, err := NewRefresher(provider).EnsureValid(cred, store)
	if err == nil || errors.Is(err, ErrReauthRequired) {
		t.Fatalf("transient failure must surface as a plain error, got %v", err)
	}
	if store.markedInactive || store.saved != nil {
		t.Fatalf("transient failure must not touch the stored credential")
	}
	if !cred.IsActive || cred.RefreshToken != "old-refresh" {
		t.Fatalf("credential must be untouched: %+v", cred)
	}
}

func TestEnsureValidInactiveCredential(t *testing.T) {
	cred := expiringCredential()
	cred.IsActive = false

	_, err := NewRefresher(&fakeProvider{}).EnsureValid(cred, &fakeStore{})
	if !errors.Is(err, ErrReauthRequired) {
		t.Fatalf("inactive credential requires reauth, got %v", err)
	}
}
