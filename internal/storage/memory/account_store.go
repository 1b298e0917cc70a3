package memory

import (
	"context"
	"sync"

	"tokenforge/internal/domain"
	"tokenforge/internal/pda"
	"tokenforge/internal/storage"
)

// AccountStore is an in-memory implementation of storage.AccountStore.
// Units of work are admitted optimistically: every account a tx reads or
// writes is version-checked at commit, and a mismatch aborts the tx.
type AccountStore struct {
	mu   sync.RWMutex
	data map[pda.Pubkey]*versioned // keyed by address
}

type versioned struct {
	account *domain.Account
	version uint64
}

// NewAccountStore creates a new in-memory account store.
func NewAccountStore() *AccountStore {
	return &AccountStore{
		data: make(map[pda.Pubkey]*versioned),
	}
}

// Get returns the committed state of an account. Returns ErrNotFound if not exists.
func (s *AccountStore) Get(_ context.Context, addr pda.Pubkey) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, exists := s.data[addr]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return v.account.Clone(), nil
}

// Begin opens a unit of work.
func (s *AccountStore) Begin(_ context.Context) (storage.Tx, error) {
	return &tx{
		store:    s,
		observed: make(map[pda.Pubkey]uint64),
		writes:   make(map[pda.Pubkey]*domain.Account),
	}, nil
}

// Len returns the number of committed accounts.
func (s *AccountStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// committed returns a copy of the account and its version; version 0 means absent.
func (s *AccountStore) committed(addr pda.Pubkey) (*domain.Account, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, exists := s.data[addr]
	if !exists {
		return nil, 0
	}
	return v.account.Clone(), v.version
}

// tx is a staged unit of work against AccountStore.
type tx struct {
	store *AccountStore

	mu       sync.Mutex
	observed map[pda.Pubkey]uint64          // version seen on first touch
	writes   map[pda.Pubkey]*domain.Account // staged state
	done     bool
}

func (t *tx) Get(_ context.Context, addr pda.Pubkey) (*domain.Account, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done {
		return nil, storage.ErrTxDone
	}
	if staged, ok := t.writes[addr]; ok {
		return staged.Clone(), nil
	}

	acc := t.observe(addr)
	if acc == nil {
		return nil, storage.ErrNotFound
	}
	return acc, nil
}

func (t *tx) Create(_ context.Context, a *domain.Account) error {
	if a == nil {
		return storage.ErrInvalidInput
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done {
		return storage.ErrTxDone
	}
	if _, ok := t.writes[a.Address]; ok {
		return storage.ErrDuplicateKey
	}
	if existing := t.observe(a.Address); existing != nil {
		return storage.ErrDuplicateKey
	}

	t.writes[a.Address] = a.Clone()
	return nil
}

func (t *tx) Update(_ context.Context, a *domain.Account) error {
	if a == nil {
		return storage.ErrInvalidInput
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done {
		return storage.ErrTxDone
	}
	if _, ok := t.writes[a.Address]; !ok {
		if existing := t.observe(a.Address); existing == nil {
			return storage.ErrNotFound
		}
	}

	t.writes[a.Address] = a.Clone()
	return nil
}

func (t *tx) Commit(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done {
		return storage.ErrTxDone
	}
	t.done = true

	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	// First pass: validate every touched account is unchanged since first observed
	for addr, seen := range t.observed {
		var current uint64
		if v, exists := s.data[addr]; exists {
			current = v.version
		}
		if current != seen {
			return storage.ErrConflict
		}
	}

	// Second pass: publish
	for addr, acc := range t.writes {
		next := uint64(1)
		if v, exists := s.data[addr]; exists {
			next = v.version + 1
		}
		s.data[addr] = &versioned{account: acc, version: next}
	}

	t.writes = nil
	return nil
}

func (t *tx) Rollback(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.done = true
	t.writes = nil
	return nil
}

// observe reads the committed account and records its version on first touch.
// Caller holds t.mu.
func (t *tx) observe(addr pda.Pubkey) *domain.Account {
	acc, version := t.store.committed(addr)
	if _, seen := t.observed[addr]; !seen {
		t.observed[addr] = version
	}
	return acc
}

var _ storage.AccountStore = (*AccountStore)(nil)
