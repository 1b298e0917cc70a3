package pda

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
)

// Derivation limits, matching the runtime's create_program_address.
const (
	MaxSeeds   = 16
	MaxSeedLen = 32
)

// pdaMarker is appended to every derivation preimage.
const pdaMarker = "ProgramDerivedAddress"

var (
	// ErrInvalidSeeds is returned when the seed count or a seed length exceeds the limits.
	ErrInvalidSeeds = errors.New("invalid seeds")

	// ErrOnCurve is returned when a candidate address is a valid ed25519 point
	// and could therefore have a private key.
	ErrOnCurve = errors.New("derived address is on the ed25519 curve")

	// ErrDerivationExhausted is returned when no bump in [1, 255] yields an
	// off-curve address. It is fatal: retrying with the same inputs cannot succeed.
	ErrDerivationExhausted = errors.New("unable to find a viable program address bump")
)

// CreateProgramAddress hashes seeds and programID into an address and fails if
// the result lies on the curve.
func CreateProgramAddress(seeds [][]byte, programID Pubkey) (Pubkey, error) {
	if len(seeds) > MaxSeeds {
		return Pubkey{}, fmt.Errorf("%w: %d seeds, max %d", ErrInvalidSeeds, len(seeds), MaxSeeds)
	}
	for i, seed := range seeds {
		if len(seed) > MaxSeedLen {
			return Pubkey{}, fmt.Errorf("%w: seed %d is %d bytes, max %d", ErrInvalidSeeds, i, len(seed), MaxSeedLen)
		}
	}

	h := sha256.New()
	for _, seed := range seeds {
		h.Write(seed)
	}
	h.Write(programID[:])
	h.Write([]byte(pdaMarker))

	var addr Pubkey
	copy(addr[:], h.Sum(nil))

	if onCurve(addr[:]) {
		return Pubkey{}, ErrOnCurve
	}
	return addr, nil
}

// FindProgramAddress searches bumps from 255 down to 1 and returns the first
// off-curve address together with its bump.
func FindProgramAddress(seeds [][]byte, programID Pubkey) (Pubkey, uint8, error) {
	if len(seeds) >= MaxSeeds {
		// one slot is reserved for the bump
		return Pubkey{}, 0, fmt.Errorf("%w: %d seeds, max %d", ErrInvalidSeeds, len(seeds), MaxSeeds-1)
	}

	withBump := make([][]byte, len(seeds)+1)
	copy(withBump, seeds)

	for bump := 255; bump > 0; bump-- {
		withBump[len(seeds)] = []byte{byte(bump)}
		addr, err := CreateProgramAddress(withBump, programID)
		if err == nil {
			return addr, uint8(bump), nil
		}
		if !errors.Is(err, ErrOnCurve) {
			return Pubkey{}, 0, err
		}
	}

	return Pubkey{}, 0, ErrDerivationExhausted
}

// onCurve is swapped in tests to force bump exhaustion.
var onCurve = IsOnCurve

// IsOnCurve reports whether b decodes to a point on the ed25519 curve.
func IsOnCurve(b []byte) bool {
	if len(b) != PubkeyLen {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(b)
	return err == nil
}
