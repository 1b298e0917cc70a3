package ledger

import (
	"context"
	"errors"
	"fmt"

	"tokenforge/internal/domain"
	"tokenforge/internal/pda"
	"tokenforge/internal/rent"
	"tokenforge/internal/storage"
)

// System allocates accounts and moves lamports.
type System struct{}

// NewSystem creates the system program.
func NewSystem() *System {
	return &System{}
}

// CreateAccount allocates a zeroed account of space bytes owned by owner and
// funds it with the rent-exempt minimum taken from payer.
//
// An address that only holds lamports (system-owned, no data) is taken over:
// payer covers the shortfall to the minimum and the account is allocated and
// assigned in place.
func (s *System) CreateAccount(ctx context.Context, tx storage.Tx, payer, addr pda.Pubkey, space int, owner pda.Pubkey) error {
	if space < 0 {
		return fmt.Errorf("%w: negative space", storage.ErrInvalidInput)
	}
	if payer == addr {
		return fmt.Errorf("%w: %s", ErrAccountInUse, addr)
	}

	from, err := tx.Get(ctx, payer)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w: payer %s has no account", ErrInsufficientFunds, payer)
		}
		return err
	}
	if from.Owner != pda.SystemProgramID {
		return fmt.Errorf("%w: %s", ErrInvalidPayer, payer)
	}

	existing, err := tx.Get(ctx, addr)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	if existing != nil && (existing.Owner != pda.SystemProgramID || len(existing.Data) > 0) {
		return fmt.Errorf("%w: %s", ErrAccountInUse, addr)
	}

	need := rent.MinimumBalance(space)
	var held uint64
	if existing != nil {
		held = existing.Lamports
	}
	var shortfall uint64
	if held < need {
		shortfall = need - held
	}
	if from.Lamports < shortfall {
		return fmt.Errorf("%w: need %d lamports, payer %s has %d", ErrInsufficientFunds, shortfall, payer, from.Lamports)
	}

	acc := &domain.Account{
		Address:  addr,
		Owner:    owner,
		Lamports: held + shortfall,
		Data:     make([]byte, space),
	}
	if existing == nil {
		err = tx.Create(ctx, acc)
	} else {
		err = tx.Update(ctx, acc)
	}
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return fmt.Errorf("%w: %s", ErrAccountInUse, addr)
		}
		return err
	}

	if shortfall == 0 {
		return nil
	}
	from.Lamports -= shortfall
	return tx.Update(ctx, from)
}

// Airdrop credits lamports to a system account, creating it if needed.
// It runs as its own unit of work.
func (s *System) Airdrop(ctx context.Context, store storage.AccountStore, to pda.Pubkey, lamports uint64) error {
	return storage.RunInTx(ctx, store, func(tx storage.Tx) error {
		acc, err := tx.Get(ctx, to)
		if errors.Is(err, storage.ErrNotFound) {
			return tx.Create(ctx, &domain.Account{
				Address:  to,
				Owner:    pda.SystemProgramID,
				Lamports: lamports,
			})
		}
		if err != nil {
			return err
		}
		if acc.Owner != pda.SystemProgramID {
			return fmt.Errorf("%w: %s", ErrInvalidPayer, to)
		}
		if acc.Lamports+lamports < acc.Lamports {
			return ErrOverflow
		}
		acc.Lamports += lamports
		return tx.Update(ctx, acc)
	})
}

// Lamports returns the balance of any account; absent accounts hold zero.
func (s *System) Lamports(ctx context.Context, r storage.Reader, addr pda.Pubkey) (uint64, error) {
	acc, err := r.Get(ctx, addr)
	if errors.Is(err, storage.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return acc.Lamports, nil
}
