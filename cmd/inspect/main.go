// Package main fetches a deployed TokenData account over JSON-RPC and prints
// the decoded record together with its mint.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"tokenforge/internal/config"
	"tokenforge/internal/domain"
	"tokenforge/internal/layout"
	"tokenforge/internal/pda"
	"tokenforge/internal/solana"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	rpcEndpoint := flag.String("rpc-endpoint", cfg.RPCEndpoint, "Solana RPC HTTP endpoint")
	programID := flag.String("program-id", cfg.ProgramID.String(), "Forge program ID (base58)")
	address := flag.String("address", "", "TokenData account address (base58)")
	creator := flag.String("creator", "", "Creator public key, used with --name instead of --address")
	name := flag.String("name", "", "Token name, used with --creator")
	mintFlag := flag.String("mint", "", "Mint address (base58). Defaults to the forge's derived mint PDA [\"mint\", token_data]; deployments that launch with a keypair mint must pass it here")
	commitment := flag.String("commitment", solana.DefaultCommitment, "RPC commitment level")
	timeout := flag.Duration("timeout", 30*time.Second, "Overall request timeout")
	flag.Parse()

	programKey, err := pda.ParsePubkey(*programID)
	if err != nil {
		fail("program id: %v", err)
	}

	var tokenData pda.Pubkey
	switch {
	case *address != "":
		if tokenData, err = pda.ParsePubkey(*address); err != nil {
			fail("address: %v", err)
		}
	case *creator != "" && *name != "":
		creatorKey, err := pda.ParsePubkey(*creator)
		if err != nil {
			fail("creator: %v", err)
		}
		if tokenData, _, err = pda.TokenDataAddress(programKey, creatorKey, *name); err != nil {
			fail("derive token data: %v", err)
		}
	default:
		fmt.Fprintln(os.Stderr, "Error: --address or both --creator and --name are required")
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client := solana.NewHTTPClient(*rpcEndpoint, solana.WithCommitment(*commitment))

	slot, err := client.GetSlot(ctx)
	if err != nil {
		fail("get slot: %v", err)
	}

	record, err := fetchTokenData(ctx, client, programKey, tokenData)
	if err != nil {
		fail("%v", err)
	}

	fmt.Printf("slot:           %d\n", slot)
	fmt.Printf("token data:     %s\n", tokenData)
	fmt.Printf("creator:        %s\n", record.Creator)
	fmt.Printf("name:           %s\n", record.Name)
	fmt.Printf("symbol:         %s\n", record.Symbol)
	fmt.Printf("supply:         %d\n", record.Supply)
	fmt.Printf("decimals:       %d\n", record.Decimals)
	fmt.Printf("created at:     %s\n", time.Unix(record.CreatedAt, 0).UTC().Format(time.RFC3339))
	fmt.Printf("trading:        %v\n", record.TradingEnabled)
	fmt.Printf("revenue total:  %d\n", record.TotalRevenueDistributed)

	lamports, err := client.GetBalance(ctx, tokenData)
	if err != nil {
		fail("get balance: %v", err)
	}
	fmt.Printf("rent lamports:  %d\n", lamports)

	mint, err := resolveMint(programKey, tokenData, *mintFlag)
	if err != nil {
		fail("%v", err)
	}
	mintInfo, err := client.GetAccountInfo(ctx, mint)
	if err != nil {
		fail("get mint: %v", err)
	}
	if mintInfo == nil {
		fmt.Printf("mint:           %s (not found)\n", mint)
		return
	}
	m, err := layout.DecodeMint(mintInfo.Data)
	if err != nil {
		fail("decode mint %s: %v", mint, err)
	}
	fmt.Printf("mint:           %s supply=%d decimals=%d\n", mint, m.Supply, m.Decimals)
}

// fetchTokenData loads and decodes the record, checking it belongs to programID.
func fetchTokenData(ctx context.Context, client solana.RPCClient, programID, addr pda.Pubkey) (*domain.TokenData, error) {
	info, err := client.GetAccountInfo(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("get account %s: %w", addr, err)
	}
	if info == nil {
		return nil, fmt.Errorf("account %s not found", addr)
	}
	if info.Owner != programID {
		return nil, fmt.Errorf("account %s is owned by %s, not %s", addr, info.Owner, programID)
	}
	record, err := layout.DecodeTokenData(info.Data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", addr, err)
	}
	return record, nil
}

// resolveMint returns the explicit mint when given, else the derived mint PDA.
func resolveMint(programID, tokenData pda.Pubkey, explicit string) (pda.Pubkey, error) {
	if explicit != "" {
		mint, err := pda.ParsePubkey(explicit)
		if err != nil {
			return pda.Pubkey{}, fmt.Errorf("mint: %w", err)
		}
		return mint, nil
	}
	mint, _, err := pda.MintAddress(programID, tokenData)
	if err != nil {
		return pda.Pubkey{}, fmt.Errorf("derive mint: %w", err)
	}
	return mint, nil
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
