// Package main prints the addresses a launch of (creator, name) would use.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"tokenforge/internal/config"
	"tokenforge/internal/forge"
	"tokenforge/internal/pda"
	"tokenforge/internal/storage/memory"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	creator := flag.String("creator", "", "Creator public key (base58)")
	name := flag.String("name", "", "Token name")
	programID := flag.String("program-id", cfg.ProgramID.String(), "Forge program ID (base58)")
	asJSON := flag.Bool("json", false, "Print addresses as JSON")
	flag.Parse()

	if *creator == "" || *name == "" {
		fmt.Fprintln(os.Stderr, "Error: --creator and --name are required")
		flag.Usage()
		os.Exit(2)
	}

	creatorKey, err := pda.ParsePubkey(*creator)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: creator: %v\n", err)
		os.Exit(1)
	}
	programKey, err := pda.ParsePubkey(*programID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: program id: %v\n", err)
		os.Exit(1)
	}

	// Derivation never touches the store.
	program, err := forge.NewProgram(forge.Options{
		Store:     memory.NewAccountStore(),
		ProgramID: programKey,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	addrs, err := program.Derive(creatorKey, *name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v (code %d)\n", err, forge.Code(err))
		os.Exit(1)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(addrs); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	fmt.Printf("program:         %s\n", programKey)
	fmt.Printf("token data:      %s (bump %d)\n", addrs.TokenData, addrs.TokenDataBump)
	fmt.Printf("mint:            %s (bump %d)\n", addrs.Mint, addrs.MintBump)
	fmt.Printf("mint authority:  %s (bump %d)\n", addrs.MintAuthority, addrs.MintAuthorityBump)
	fmt.Printf("creator holding: %s\n", addrs.CreatorTokenAccount)
}
