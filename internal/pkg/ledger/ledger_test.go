package ledger

import (
	"errors"
	"sync"
	"testing"
)

// fakeBalanceStore mimics the repository's conditional-update semantics.
type fakeBalanceStore struct {
	mu       sync.Mutex
	balance  int64
	lifetime int64
}

func (f *fakeBalanceStore) DebitBalance(accountID uint, cents int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.balance < cents {
		return false, nil
	}
	f.balance -= cents
	return true, nil
}

func (f *fakeBalanceStore) CreditBalance(accountID uint, cents int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balance += cents
	f.lifetime += cents
	return nil
}

func TestDebitRefusedWhenInsufficient(t *testing.T) {
	store := &fakeBalanceStore{balance: 20}
	svc := NewService(store)

	if err := svc.Debit(1, 25); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if store.balance != 20 {
		t.Fatalf("refused debit must leave balance unchanged, got %d", store.balance)
	}
}

func TestDebitRejectsNonPositiveAmounts(t *testing.T) {
	svc := NewService(&fakeBalanceStore{balance: 100})
	for _, cents := range []int64{0, -1} {
		if err := svc.Debit(1, cents); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("Debit(%d) = %v, want ErrInvalidAmount", cents, err)
		}
	}
}

func TestConcurrentDebits(t *testing.T) {
	const (
		balance = int64(100)
		cost    = int64(25)
		callers = 10
	)
	store := &fakeBalanceStore{balance: balance}
	svc := NewService(store)

	var wg sync.WaitGroup
	results := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- svc.Debit(1, cost)
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		} else if !errors.Is(err, ErrInsufficientBalance) {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	// At most floor(B/C) debits may win, and the winners drain the balance.
	if want := int(balance / cost); succeeded != want {
		t.Fatalf("expected %d successful debits, got %d", want, succeeded)
	}
	if store.balance != 0 {
		t.Fatalf("expected drained balance, got %d", store.balance)
	}
}

func TestCreditIncrementsLifetimeTotal(t *testing.T) {
	store := &fakeBalanceStore{balance: 50, lifetime: 500}
	svc := NewService(store)

	if err := svc.Credit(1, 1000); err != nil {
		t.Fatalf("unexpected credit error: %v", err)
	}
	if store.balance != 1050 || store.lifetime != 1500 {
		t.Fatalf("credit must raise balance and lifetime, got balance=%d lifetime=%d", store.balance, store.lifetime)
	}
}
