package ledger

import "errors"

// Ledger errors.
var (
	ErrInsufficientBalance = errors.New("ledger: insufficient balance")
	ErrInvalidAmount       = errors.New("ledger: amount must be positive")
)

// BalanceStore is the persistence contract for the two mutation paths.
// Satisfied by repository.AccountRepository.
type BalanceStore interface {
	DebitBalance(accountID uint, cents int64) (bool, error)
	CreditBalance(accountID uint, cents int64) error
}

// Service guards the prepaid balance on an account. Debits happen only after
// a successful external send, credits only from a verified payment webhook.
type Service struct {
	store BalanceStore
}

// NewService creates a ledger service from an injected balance store.
func NewService(store BalanceStore) *Service {
	return &Service{store: store}
}

// Debit subtracts cents from the account balance. The store performs the
// balance check and the subtraction as one conditional update, so the
// balance can never be driven negative by concurrent debits.
func (s *Service) Debit(accountID uint, cents int64) error {
	if cents <= 0 {
		return ErrInvalidAmount
	}
	ok, err := s.store.DebitBalance(accountID, cents)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInsufficientBalance
	}
	return nil
}

// Credit adds cents to the account balance and the lifetime funded total.
func (s *Service) Credit(accountID uint, cents int64) error {
	if cents <= 0 {
		return ErrInvalidAmount
	}
	return s.store.CreditBalance(accountID, cents)
}
