// Package ledger is the asset ledger the forge issues instructions to: a system
// program that allocates rent-paid accounts and an SPL-style token program that
// keeps mints and holding records. Every instruction runs inside the caller's
// storage.Tx and has no effect unless that tx commits.
package ledger

import "errors"

var (
	// ErrInsufficientFunds is returned when a payer cannot cover an allocation.
	ErrInsufficientFunds = errors.New("insufficient funds for rent")

	// ErrAccountInUse is returned when allocating an address that is already live.
	ErrAccountInUse = errors.New("account already in use")

	// ErrInvalidPayer is returned when the payer is not a system account.
	ErrInvalidPayer = errors.New("payer is not a system account")

	// ErrInvalidAccountOwner is returned when an account is not owned by the token program.
	ErrInvalidAccountOwner = errors.New("account not owned by token program")

	// ErrInvalidAccountData is returned when an account has the wrong size or cannot be decoded.
	ErrInvalidAccountData = errors.New("invalid account data for instruction")

	// ErrAlreadyInitialized is returned when initializing a mint or holding record twice.
	ErrAlreadyInitialized = errors.New("account already initialized")

	// ErrUninitializedAccount is returned when an instruction needs an initialized account.
	ErrUninitializedAccount = errors.New("account not initialized")

	// ErrOwnerMismatch is returned when a signer is not the mint authority.
	ErrOwnerMismatch = errors.New("owner does not match")

	// ErrFixedSupply is returned when minting against a mint whose authority was revoked.
	ErrFixedSupply = errors.New("mint has fixed supply")

	// ErrMintMismatch is returned when a holding record belongs to another mint.
	ErrMintMismatch = errors.New("account not associated with this mint")

	// ErrAccountFrozen is returned when crediting a frozen holding record.
	ErrAccountFrozen = errors.New("account is frozen")

	// ErrOverflow is returned when a balance or supply would exceed u64.
	ErrOverflow = errors.New("operation overflowed")

	// ErrMissingSigner is returned when the signing capability does not verify.
	ErrMissingSigner = errors.New("missing required signature")
)
