package domain

import "tokenforge/internal/pda"

// Account is one addressable storage slot of the ledger.
// Corresponds to the accounts table in PostgreSQL.
type Account struct {
	Address  pda.Pubkey // PRIMARY KEY
	Owner    pda.Pubkey // program allowed to mutate Data
	Lamports uint64     // balance paying for the allocation
	Data     []byte     // fixed-size, zeroed at creation
}

// Clone returns a deep copy so stores never hand out shared buffers.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	c := *a
	c.Data = append([]byte(nil), a.Data...)
	return &c
}
