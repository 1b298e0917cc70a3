package domain

import "tokenforge/internal/pda"

// TokenData is the metadata record of one issued token.
// Its address is derived from (creator, name); see pda.TokenDataAddress.
type TokenData struct {
	Creator                 pda.Pubkey // issuing principal, immutable
	Name                    string     // <= 50 bytes, immutable
	Symbol                  string     // <= 10 bytes, immutable
	Supply                  uint64     // units minted at issuance
	Decimals                uint8      // fractional-unit exponent
	CreatedAt               int64      // unix seconds from the execution clock
	TradingEnabled          bool       // false -> true exactly once
	TotalRevenueDistributed uint64     // monotonically non-decreasing
}

// Mint is the asset class descriptor kept by the token ledger.
type Mint struct {
	MintAuthority   *pda.Pubkey // nil once authority is revoked
	Supply          uint64
	Decimals        uint8
	IsInitialized   bool
	FreezeAuthority *pda.Pubkey
}

// TokenAccountState mirrors the ledger's holding record state byte.
type TokenAccountState uint8

const (
	TokenAccountUninitialized TokenAccountState = iota
	TokenAccountInitialized
	TokenAccountFrozen
)

// TokenAccount is a holding record: one owner's balance of one mint.
type TokenAccount struct {
	Mint   pda.Pubkey
	Owner  pda.Pubkey
	Amount uint64
	State  TokenAccountState
}
