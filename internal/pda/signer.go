package pda

import "errors"

// ErrInvalidSigner is returned by Verify when a Signer does not re-derive to its address.
var ErrInvalidSigner = errors.New("signer does not match its derivation")

// Signer is the capability granted to a program for one of its derived
// addresses. Only FindSigner can build a usable value; privileged calls take a
// Signer and call Verify instead of checking a signature.
type Signer struct {
	addr    Pubkey
	bump    uint8
	seeds   [][]byte
	program Pubkey
}

// FindSigner derives the address for seeds under programID and returns the
// capability to act as it.
func FindSigner(seeds [][]byte, programID Pubkey) (Signer, error) {
	addr, bump, err := FindProgramAddress(seeds, programID)
	if err != nil {
		return Signer{}, err
	}
	owned := make([][]byte, len(seeds))
	for i, s := range seeds {
		owned[i] = append([]byte(nil), s...)
	}
	return Signer{addr: addr, bump: bump, seeds: owned, program: programID}, nil
}

// Address returns the derived address the signer stands for.
func (s Signer) Address() Pubkey { return s.addr }

// Bump returns the derivation proof.
func (s Signer) Bump() uint8 { return s.bump }

// Program returns the program the address was derived under.
func (s Signer) Program() Pubkey { return s.program }

// Verify re-derives the address from the stored seeds and bump under programID.
func (s Signer) Verify(programID Pubkey) error {
	if s.seeds == nil || s.program != programID {
		return ErrInvalidSigner
	}
	seeds := make([][]byte, 0, len(s.seeds)+1)
	seeds = append(seeds, s.seeds...)
	seeds = append(seeds, []byte{s.bump})
	addr, err := CreateProgramAddress(seeds, programID)
	if err != nil || addr != s.addr {
		return ErrInvalidSigner
	}
	return nil
}
