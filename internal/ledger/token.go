package ledger

import (
	"context"
	"errors"
	"fmt"

	"tokenforge/internal/domain"
	"tokenforge/internal/layout"
	"tokenforge/internal/pda"
	"tokenforge/internal/storage"
)

// TokenProgram is the asset ledger contract the forge consumes. Each call
// either succeeds or leaves tx untouched for the caller to roll back.
type TokenProgram interface {
	// ProgramID is the owner of every mint and holding record.
	ProgramID() pda.Pubkey

	// InitializeMint turns an allocated account into an asset class descriptor.
	InitializeMint(ctx context.Context, tx storage.Tx, mint pda.Pubkey, decimals uint8, authority pda.Pubkey) error

	// InitializeAccount turns an allocated account into owner's holding record for mint.
	InitializeAccount(ctx context.Context, tx storage.Tx, account, mint, owner pda.Pubkey) error

	// MintTo credits amount new units to account. authority must be the mint's authority.
	MintTo(ctx context.Context, tx storage.Tx, mint, account pda.Pubkey, amount uint64, authority pda.Signer) error

	// Balance reads the amount held by a holding record.
	Balance(ctx context.Context, r storage.Reader, account pda.Pubkey) (uint64, error)
}

// Token is the in-process SPL token program.
type Token struct {
	programID pda.Pubkey
	// issuer is the only program whose derived addresses may sign MintTo.
	issuer pda.Pubkey
}

// NewToken creates a token program owning accounts under pda.TokenProgramID
// that accepts mint authority signers derived under issuer.
func NewToken(issuer pda.Pubkey) *Token {
	return &Token{programID: pda.TokenProgramID, issuer: issuer}
}

// Compile-time interface check.
var _ TokenProgram = (*Token)(nil)

// ProgramID returns the token program id.
func (t *Token) ProgramID() pda.Pubkey { return t.programID }

// InitializeMint writes a fresh mint with zero supply.
func (t *Token) InitializeMint(ctx context.Context, tx storage.Tx, mint pda.Pubkey, decimals uint8, authority pda.Pubkey) error {
	acc, err := t.owned(ctx, tx, mint, layout.MintSize)
	if err != nil {
		return fmt.Errorf("mint %s: %w", mint, err)
	}
	if current, err := layout.DecodeMint(acc.Data); err == nil && current.IsInitialized {
		return fmt.Errorf("mint %s: %w", mint, ErrAlreadyInitialized)
	}

	acc.Data = layout.EncodeMint(&domain.Mint{
		MintAuthority: &authority,
		Decimals:      decimals,
		IsInitialized: true,
	})
	return tx.Update(ctx, acc)
}

// InitializeAccount writes an empty holding record.
func (t *Token) InitializeAccount(ctx context.Context, tx storage.Tx, account, mint, owner pda.Pubkey) error {
	acc, err := t.owned(ctx, tx, account, layout.TokenAccountSize)
	if err != nil {
		return fmt.Errorf("account %s: %w", account, err)
	}
	if current, err := layout.DecodeTokenAccount(acc.Data); err == nil && current.State != domain.TokenAccountUninitialized {
		return fmt.Errorf("account %s: %w", account, ErrAlreadyInitialized)
	}

	if _, err := t.loadMint(ctx, tx, mint); err != nil {
		return err
	}

	acc.Data = layout.EncodeTokenAccount(&domain.TokenAccount{
		Mint:  mint,
		Owner: owner,
		State: domain.TokenAccountInitialized,
	})
	return tx.Update(ctx, acc)
}

// MintTo increases the mint supply and the holding record balance by amount.
func (t *Token) MintTo(ctx context.Context, tx storage.Tx, mint, account pda.Pubkey, amount uint64, authority pda.Signer) error {
	if err := authority.Verify(t.issuer); err != nil {
		return fmt.Errorf("%w: %v", ErrMissingSigner, err)
	}

	m, err := t.loadMint(ctx, tx, mint)
	if err != nil {
		return err
	}
	if m.MintAuthority == nil {
		return fmt.Errorf("mint %s: %w", mint, ErrFixedSupply)
	}
	if *m.MintAuthority != authority.Address() {
		return fmt.Errorf("mint %s: %w", mint, ErrOwnerMismatch)
	}

	holderAcc, err := t.owned(ctx, tx, account, layout.TokenAccountSize)
	if err != nil {
		return fmt.Errorf("account %s: %w", account, err)
	}
	holder, err := layout.DecodeTokenAccount(holderAcc.Data)
	if err != nil {
		return fmt.Errorf("account %s: %w", account, ErrInvalidAccountData)
	}
	switch {
	case holder.State == domain.TokenAccountUninitialized:
		return fmt.Errorf("account %s: %w", account, ErrUninitializedAccount)
	case holder.State == domain.TokenAccountFrozen:
		return fmt.Errorf("account %s: %w", account, ErrAccountFrozen)
	case holder.Mint != mint:
		return fmt.Errorf("account %s: %w", account, ErrMintMismatch)
	}

	if m.Supply+amount < m.Supply || holder.Amount+amount < holder.Amount {
		return ErrOverflow
	}
	m.Supply += amount
	holder.Amount += amount

	mintAcc, err := tx.Get(ctx, mint)
	if err != nil {
		return err
	}
	mintAcc.Data = layout.EncodeMint(m)
	if err := tx.Update(ctx, mintAcc); err != nil {
		return err
	}

	holderAcc.Data = layout.EncodeTokenAccount(holder)
	return tx.Update(ctx, holderAcc)
}

// Mint reads an asset class descriptor.
func (t *Token) Mint(ctx context.Context, r storage.Reader, mint pda.Pubkey) (*domain.Mint, error) {
	return t.loadMint(ctx, r, mint)
}

// Account reads a holding record.
func (t *Token) Account(ctx context.Context, r storage.Reader, account pda.Pubkey) (*domain.TokenAccount, error) {
	acc, err := t.owned(ctx, r, account, layout.TokenAccountSize)
	if err != nil {
		return nil, fmt.Errorf("account %s: %w", account, err)
	}
	holder, err := layout.DecodeTokenAccount(acc.Data)
	if err != nil {
		return nil, fmt.Errorf("account %s: %w", account, ErrInvalidAccountData)
	}
	if holder.State == domain.TokenAccountUninitialized {
		return nil, fmt.Errorf("account %s: %w", account, ErrUninitializedAccount)
	}
	return holder, nil
}

// Balance returns the amount held by a holding record.
func (t *Token) Balance(ctx context.Context, r storage.Reader, account pda.Pubkey) (uint64, error) {
	holder, err := t.Account(ctx, r, account)
	if err != nil {
		return 0, err
	}
	return holder.Amount, nil
}

func (t *Token) loadMint(ctx context.Context, r storage.Reader, mint pda.Pubkey) (*domain.Mint, error) {
	acc, err := t.owned(ctx, r, mint, layout.MintSize)
	if err != nil {
		return nil, fmt.Errorf("mint %s: %w", mint, err)
	}
	m, err := layout.DecodeMint(acc.Data)
	if err != nil {
		return nil, fmt.Errorf("mint %s: %w", mint, ErrInvalidAccountData)
	}
	if !m.IsInitialized {
		return nil, fmt.Errorf("mint %s: %w", mint, ErrUninitializedAccount)
	}
	return m, nil
}

// owned loads an account and checks owner and size.
func (t *Token) owned(ctx context.Context, r storage.Reader, addr pda.Pubkey, size int) (*domain.Account, error) {
	acc, err := r.Get(ctx, addr)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrUninitializedAccount
		}
		return nil, err
	}
	if acc.Owner != t.programID {
		return nil, ErrInvalidAccountOwner
	}
	if len(acc.Data) != size {
		return nil, ErrInvalidAccountData
	}
	return acc, nil
}
