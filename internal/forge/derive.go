package forge

import (
	"errors"

	"tokenforge/internal/pda"
)

// Addresses are every account a launch touches, derived from (creator, name).
type Addresses struct {
	TokenData           pda.Pubkey `json:"token_data"`
	TokenDataBump       uint8      `json:"token_data_bump"`
	Mint                pda.Pubkey `json:"mint"`
	MintBump            uint8      `json:"mint_bump"`
	MintAuthority       pda.Pubkey `json:"mint_authority"`
	MintAuthorityBump   uint8      `json:"mint_authority_bump"`
	CreatorTokenAccount pda.Pubkey `json:"creator_token_account"`
}

// Derive computes the launch addresses of (creator, name) without touching
// the store.
func (p *Program) Derive(creator pda.Pubkey, name string) (*Addresses, error) {
	tokenData, bump, err := p.deriveTokenData(creator, name)
	if err != nil {
		return nil, err
	}

	mint, mintBump, err := pda.MintAddress(p.programID, tokenData)
	if err != nil {
		return nil, fail(ErrAddressDerivationExhausted, err)
	}
	holding, _, err := pda.AssociatedTokenAddress(creator, mint)
	if err != nil {
		return nil, fail(ErrAddressDerivationExhausted, err)
	}

	return &Addresses{
		TokenData:           tokenData,
		TokenDataBump:       bump,
		Mint:                mint,
		MintBump:            mintBump,
		MintAuthority:       p.mintAuthority.Address(),
		MintAuthorityBump:   p.mintAuthority.Bump(),
		CreatorTokenAccount: holding,
	}, nil
}

// deriveTokenData maps seed errors to forge kinds. A name past the per-seed
// limit cannot address a record.
func (p *Program) deriveTokenData(creator pda.Pubkey, name string) (pda.Pubkey, uint8, error) {
	if name == "" {
		return pda.Pubkey{}, 0, fail(ErrInvalidName, errors.New("name is empty"))
	}
	addr, bump, err := pda.TokenDataAddress(p.programID, creator, name)
	switch {
	case errors.Is(err, pda.ErrInvalidSeeds):
		return pda.Pubkey{}, 0, fail(ErrInvalidName, err)
	case err != nil:
		return pda.Pubkey{}, 0, fail(ErrAddressDerivationExhausted, err)
	}
	return addr, bump, nil
}
