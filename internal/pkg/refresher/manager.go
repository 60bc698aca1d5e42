package refresher

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/MitchCasey/ReviewPing/app/repository"
	"github.com/MitchCasey/ReviewPing/internal/pkg/googleauth"
	"github.com/MitchCasey/ReviewPing/internal/pkg/mail"
	"github.com/MitchCasey/ReviewPing/internal/pkg/xero"
	"github.com/gofiber/fiber/v2/log"
)

const (
	// SweepInterval is how often the background sweep runs.
	SweepInterval = 5 * time.Minute
	// LookaheadWindow selects credentials whose expiry falls close enough
	// that the next sweep might miss them.
	LookaheadWindow = 10 * time.Minute

	sweepTimeout = 2 * time.Minute
)

// Manager proactively refreshes provider credentials on a fixed timer so
// webhook processing rarely pays the refresh round-trip on the hot path.
type Manager struct {
	repos      *repository.Repositories
	xeroClient *xero.Client
	google     *googleauth.Refresher

	ticker  *time.Ticker
	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

var (
	globalManager *Manager
	managerOnce   sync.Once
)

// GetManager returns the global refresher manager (singleton).
func GetManager(repos *repository.Repositories, xeroClient *xero.Client, google *googleauth.Refresher) *Manager {
	managerOnce.Do(func() {
		globalManager = &Manager{
			repos:      repos,
			xeroClient: xeroClient,
			google:     google,
		}
	})
	return globalManager
}

// Start launches the background sweep.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	m.stopCh = make(chan struct{})
	m.running = true
	m.ticker = time.NewTicker(SweepInterval)

	m.wg.Add(1)
	go m.sweepWorker()

	log.Info("[Refresher] Started credential refresh sweep")
}

// Stop halts the background sweep and waits for an in-flight pass.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	m.ticker.Stop()
	close(m.stopCh)
	m.running = false
	m.wg.Wait()

	log.Info("[Refresher] Stopped")
}

// IsRunning returns whether the manager is currently running.
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Manager) sweepWorker() {
	defer m.wg.Done()
	for {
		select {
		case <-m.stopCh:
			log.Info("[Refresher] Sweep worker stopping")
			return
		case <-m.ticker.C:
			m.RunSweepOnce()
		}
	}
}

// RunSweepOnce refreshes every credential expiring inside the lookahead
// window. One tenant's failure never aborts the rest of the batch.
func (m *Manager) RunSweepOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	m.sweepXeroConnections(ctx)
	m.sweepGoogleCredentials()
}

func (m *Manager) sweepXeroConnections(ctx context.Context) {
	conns, err := m.repos.ProviderConnection.ListExpiring(LookaheadWindow)
	if err != nil {
		log.Errorf("[Refresher] Listing expiring connections failed: %v", err)
		return
	}

	for i := range conns {
		conn := &conns[i]
		_, err := m.xeroClient.EnsureValidToken(ctx, conn, m.repos.ProviderConnection)
		switch {
		case err == nil:
			log.Debugf("[Refresher] Refreshed Xero connection %d (tenant %s)", conn.ID, conn.TenantID)
		case errors.Is(err, xero.ErrReauthRequired):
			log.Warnf("[Refresher] Xero connection %d revoked, reauthentication required", conn.ID)
			m.notifyReconnect(conn.AccountID, "Xero")
		default:
			// Transient; the next sweep retries.
			log.Errorf("[Refresher] Refreshing Xero connection %d failed: %v", conn.ID, err)
		}
	}
}

func (m *Manager) sweepGoogleCredentials() {
	creds, err := m.repos.GoogleCredential.ListExpiring(LookaheadWindow)
	if err != nil {
		log.Errorf("[Refresher] Listing expiring Google credentials failed: %v", err)
		return
	}

	for i := range creds {
		cred := &creds[i]
		_, err := m.google.EnsureValid(cred, m.repos.GoogleCredential)
		switch {
		case err == nil:
			log.Debugf("[Refresher] Refreshed Google credential %d", cred.ID)
		case errors.Is(err, googleauth.ErrReauthRequired):
			log.Warnf("[Refresher] Google credential %d revoked, reauthentication required", cred.ID)
			m.notifyReconnect(cred.AccountID, "Google")
		default:
			log.Errorf("[Refresher] Refreshing Google credential %d failed: %v", cred.ID, err)
		}
	}
}

func (m *Manager) notifyReconnect(accountID uint, providerName string) {
	account, err := m.repos.Account.GetByID(accountID)
	if err != nil {
		log.Errorf("[Refresher] Loading account %d for reconnect notice failed: %v", accountID, err)
		return
	}
	if err := mail.SendReconnectNotice(account.Email, account.BusinessName, providerName); err != nil {
		log.Errorf("[Refresher] Sending reconnect notice to account %d failed: %v", accountID, err)
	}
}
