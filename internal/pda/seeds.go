package pda

// Seed namespaces used by the token forge program.
const (
	TokenDataTag     = "token_data"
	MintAuthorityTag = "mint_authority"
	MintTag          = "mint"
)

// TokenDataSeeds returns the seeds of the metadata record for (creator, name).
func TokenDataSeeds(creator Pubkey, name string) [][]byte {
	return [][]byte{[]byte(TokenDataTag), creator.Bytes(), []byte(name)}
}

// TokenDataAddress derives the metadata record address for (creator, name).
func TokenDataAddress(programID, creator Pubkey, name string) (Pubkey, uint8, error) {
	return FindProgramAddress(TokenDataSeeds(creator, name), programID)
}

// MintAuthority derives the singleton minting capability of programID.
func MintAuthority(programID Pubkey) (Signer, error) {
	return FindSigner([][]byte{[]byte(MintAuthorityTag)}, programID)
}

// MintAddress derives the asset class descriptor owned by one metadata record.
func MintAddress(programID, tokenData Pubkey) (Pubkey, uint8, error) {
	return FindProgramAddress([][]byte{[]byte(MintTag), tokenData.Bytes()}, programID)
}

// AssociatedTokenAddress derives the canonical holding record of owner for mint.
func AssociatedTokenAddress(owner, mint Pubkey) (Pubkey, uint8, error) {
	return FindProgramAddress(
		[][]byte{owner.Bytes(), TokenProgramID.Bytes(), mint.Bytes()},
		AssociatedTokenProgramID,
	)
}
