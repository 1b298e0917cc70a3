// Package solana is a read-only JSON-RPC client for a Solana cluster.
package solana

import (
	"context"

	"tokenforge/internal/domain"
	"tokenforge/internal/pda"
)

// RPCClient defines the cluster queries the forge tooling needs.
type RPCClient interface {
	// GetAccountInfo retrieves an account. Returns nil, nil if it does not exist.
	GetAccountInfo(ctx context.Context, addr pda.Pubkey) (*domain.Account, error)

	// GetBalance retrieves the lamport balance of an address.
	GetBalance(ctx context.Context, addr pda.Pubkey) (uint64, error)

	// GetSlot retrieves the current slot.
	GetSlot(ctx context.Context) (int64, error)
}

var _ RPCClient = (*HTTPClient)(nil)
