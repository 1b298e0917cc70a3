package storage

import (
	"context"

	"tokenforge/internal/domain"
	"tokenforge/internal/pda"
)

// Reader reads single accounts. Both AccountStore and Tx satisfy it.
type Reader interface {
	// Get returns the account. Returns ErrNotFound if absent.
	Get(ctx context.Context, addr pda.Pubkey) (*domain.Account, error)
}

// AccountStore provides access to ledger accounts.
// All mutation goes through a Tx so that multi-account writes commit or abort together.
type AccountStore interface {
	// Get returns the committed state of an account. Returns ErrNotFound if absent.
	Get(ctx context.Context, addr pda.Pubkey) (*domain.Account, error)

	// Begin opens a unit of work.
	Begin(ctx context.Context) (Tx, error)
}

// Tx is one atomic unit of work over accounts.
// Writes are staged and become visible to other readers only after Commit.
type Tx interface {
	// Get returns the account as seen by this unit of work, including its own staged writes.
	// Returns ErrNotFound if absent.
	Get(ctx context.Context, addr pda.Pubkey) (*domain.Account, error)

	// Create stages a new account. Returns ErrDuplicateKey if the address is live.
	Create(ctx context.Context, a *domain.Account) error

	// Update stages a new state for an existing account. Returns ErrNotFound if absent.
	Update(ctx context.Context, a *domain.Account) error

	// Commit publishes all staged writes. Returns ErrConflict if a concurrent
	// unit of work committed a write to any account this one touched.
	Commit(ctx context.Context) error

	// Rollback discards all staged writes. Safe to call after Commit.
	Rollback(ctx context.Context) error
}

// RunInTx runs fn inside a unit of work, committing on success and rolling back otherwise.
func RunInTx(ctx context.Context, store AccountStore, fn func(tx Tx) error) error {
	tx, err := store.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
