// Package pda derives program addresses: deterministic 32-byte identities that
// are guaranteed to sit off the ed25519 curve and therefore have no private key.
package pda

import (
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

// PubkeyLen is the size of an account identity in bytes.
const PubkeyLen = 32

// ErrInvalidPubkey is returned when a textual key does not decode to 32 bytes.
var ErrInvalidPubkey = errors.New("invalid public key")

// Pubkey is an opaque account identity. Equality is plain value equality.
type Pubkey [PubkeyLen]byte

// ParsePubkey decodes a base58 public key.
func ParsePubkey(s string) (Pubkey, error) {
	var pk Pubkey
	raw, err := base58.Decode(s)
	if err != nil {
		return pk, fmt.Errorf("%w: %v", ErrInvalidPubkey, err)
	}
	if len(raw) != PubkeyLen {
		return pk, fmt.Errorf("%w: decoded %d bytes", ErrInvalidPubkey, len(raw))
	}
	copy(pk[:], raw)
	return pk, nil
}

// MustParsePubkey is ParsePubkey for compile-time constants. It panics on error.
func MustParsePubkey(s string) Pubkey {
	pk, err := ParsePubkey(s)
	if err != nil {
		panic(err)
	}
	return pk
}

// PubkeyFromBytes copies b into a Pubkey.
func PubkeyFromBytes(b []byte) (Pubkey, error) {
	var pk Pubkey
	if len(b) != PubkeyLen {
		return pk, fmt.Errorf("%w: got %d bytes", ErrInvalidPubkey, len(b))
	}
	copy(pk[:], b)
	return pk, nil
}

// String returns the base58 form.
func (p Pubkey) String() string {
	return base58.Encode(p[:])
}

// Bytes returns a copy of the raw key.
func (p Pubkey) Bytes() []byte {
	b := make([]byte, PubkeyLen)
	copy(b, p[:])
	return b
}

// IsZero reports whether p is the all-zero key (the system program id).
func (p Pubkey) IsZero() bool {
	return p == Pubkey{}
}

// MarshalText implements encoding.TextMarshaler.
func (p Pubkey) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Pubkey) UnmarshalText(text []byte) error {
	pk, err := ParsePubkey(string(text))
	if err != nil {
		return err
	}
	*p = pk
	return nil
}

// Well-known program ids.
var (
	SystemProgramID          = Pubkey{}
	TokenProgramID           = MustParsePubkey("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	AssociatedTokenProgramID = MustParsePubkey("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNqAJA8knL")
	DefaultForgeProgramID    = MustParsePubkey("Fg6PaFpoGXkYsidMpWTK6W2BeZ7FEfcYkg476zPFsLnS")
)
