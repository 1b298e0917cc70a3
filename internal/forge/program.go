// Package forge is the token issuance registry: it launches fixed-supply tokens
// in one atomic unit of work and gates the metadata record's lifecycle fields
// behind the creator's identity.
package forge

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"tokenforge/internal/domain"
	"tokenforge/internal/events"
	"tokenforge/internal/layout"
	"tokenforge/internal/ledger"
	"tokenforge/internal/observability"
	"tokenforge/internal/pda"
	"tokenforge/internal/storage"
)

// Clock supplies the creation timestamp of new records.
type Clock func() time.Time

// Program executes forge operations against an account store.
type Program struct {
	store         storage.AccountStore
	system        *ledger.System
	token         ledger.TokenProgram
	programID     pda.Pubkey
	mintAuthority pda.Signer
	clock         Clock
	logger        *log.Logger
	sink          events.Sink
}

// Options contains configuration for creating a Program.
type Options struct {
	Store     storage.AccountStore
	System    *ledger.System
	Token     ledger.TokenProgram
	ProgramID pda.Pubkey
	Clock     Clock
	Logger    *log.Logger
	Sink      events.Sink
}

// NewProgram creates a forge program. Store is required; every other option
// has a default.
func NewProgram(opts Options) (*Program, error) {
	if opts.Store == nil {
		return nil, errors.New("forge: store is required")
	}

	programID := opts.ProgramID
	if programID.IsZero() {
		programID = pda.DefaultForgeProgramID
	}

	mintAuthority, err := pda.MintAuthority(programID)
	if err != nil {
		return nil, fail(ErrAddressDerivationExhausted, err)
	}

	system := opts.System
	if system == nil {
		system = ledger.NewSystem()
	}

	var token ledger.TokenProgram = ledger.NewToken(programID)
	if opts.Token != nil {
		token = opts.Token
	}

	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	var sink events.Sink = events.Discard{}
	if opts.Sink != nil {
		sink = opts.Sink
	}

	return &Program{
		store:         opts.Store,
		system:        system,
		token:         token,
		programID:     programID,
		mintAuthority: mintAuthority,
		clock:         clock,
		logger:        logger,
		sink:          sink,
	}, nil
}

// ProgramID returns the id that owns every metadata record.
func (p *Program) ProgramID() pda.Pubkey { return p.programID }

// MintAuthority returns the signing capability shared by every mint.
func (p *Program) MintAuthority() pda.Signer { return p.mintAuthority }

// LaunchParams are the arguments of Launch.
type LaunchParams struct {
	Creator  pda.Pubkey
	Name     string
	Symbol   string
	Supply   uint64
	Decimals uint8
}

// LaunchResult is the outcome of a successful Launch.
type LaunchResult struct {
	Addresses
	Record *domain.TokenData
}

// Launch creates the metadata record, the mint and the creator's holding
// record, and mints the whole supply to the creator. Rent for all three
// accounts is paid by the creator. Either everything commits or nothing does.
func (p *Program) Launch(ctx context.Context, params LaunchParams) (res *LaunchResult, err error) {
	start := time.Now()
	defer func() { p.observe("launch", start, err) }()

	if params.Name == "" {
		return nil, fail(ErrInvalidName, errors.New("name is empty"))
	}
	if err := layout.ValidateName(params.Name); err != nil {
		return nil, fail(ErrInvalidName, err)
	}
	if params.Symbol == "" {
		return nil, fail(ErrInvalidSymbol, errors.New("symbol is empty"))
	}
	if err := layout.ValidateSymbol(params.Symbol); err != nil {
		return nil, fail(ErrInvalidSymbol, err)
	}
	if params.Supply == 0 {
		return nil, ErrInvalidSupply
	}

	addrs, err := p.Derive(params.Creator, params.Name)
	if err != nil {
		return nil, err
	}

	record := &domain.TokenData{
		Creator:   params.Creator,
		Name:      params.Name,
		Symbol:    params.Symbol,
		Supply:    params.Supply,
		Decimals:  params.Decimals,
		CreatedAt: p.clock().Unix(),
	}
	data, err := layout.EncodeTokenData(record)
	if err != nil {
		return nil, fmt.Errorf("encode token data: %w", err)
	}

	err = storage.RunInTx(ctx, p.store, func(tx storage.Tx) error {
		if err := p.system.CreateAccount(ctx, tx, params.Creator, addrs.TokenData, layout.TokenDataSpace, p.programID); err != nil {
			if errors.Is(err, ledger.ErrAccountInUse) {
				return fail(ErrDuplicateIssuance, err)
			}
			return ledgerFailure(err)
		}
		acc, err := tx.Get(ctx, addrs.TokenData)
		if err != nil {
			return err
		}
		acc.Data = data
		if err := tx.Update(ctx, acc); err != nil {
			return err
		}

		tokenProgram := p.token.ProgramID()
		if err := p.system.CreateAccount(ctx, tx, params.Creator, addrs.Mint, layout.MintSize, tokenProgram); err != nil {
			return ledgerFailure(err)
		}
		if err := p.token.InitializeMint(ctx, tx, addrs.Mint, params.Decimals, p.mintAuthority.Address()); err != nil {
			return ledgerFailure(err)
		}
		if err := p.system.CreateAccount(ctx, tx, params.Creator, addrs.CreatorTokenAccount, layout.TokenAccountSize, tokenProgram); err != nil {
			return ledgerFailure(err)
		}
		if err := p.token.InitializeAccount(ctx, tx, addrs.CreatorTokenAccount, addrs.Mint, params.Creator); err != nil {
			return ledgerFailure(err)
		}
		if err := p.token.MintTo(ctx, tx, addrs.Mint, addrs.CreatorTokenAccount, params.Supply, p.mintAuthority); err != nil {
			return ledgerFailure(err)
		}
		return nil
	})
	if err != nil {
		return nil, commitFailure(err)
	}

	p.logger.Printf("Token launched: %s (%s) - Supply: %d", params.Name, params.Symbol, params.Supply)
	observability.RecordLaunch()
	p.publish(ctx, events.Event{
		Kind:      events.KindTokenLaunched,
		TokenData: addrs.TokenData,
		Creator:   params.Creator,
		Mint:      addrs.Mint,
		Amount:    params.Supply,
		Timestamp: record.CreatedAt,
	})

	return &LaunchResult{Addresses: *addrs, Record: record}, nil
}

// EnableTrading flips trading_enabled to true. Only the creator may call it,
// and only once.
func (p *Program) EnableTrading(ctx context.Context, caller, tokenData pda.Pubkey) (rec *domain.TokenData, err error) {
	start := time.Now()
	defer func() { p.observe("enable_trading", start, err) }()

	rec, err = p.mutate(ctx, tokenData, func(t *domain.TokenData) error {
		if t.Creator != caller {
			return ErrUnauthorized
		}
		if t.TradingEnabled {
			return ErrTradingAlreadyEnabled
		}
		t.TradingEnabled = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.logger.Printf("Trading enabled for token %s", tokenData)
	p.publish(ctx, events.Event{
		Kind:      events.KindTradingEnabled,
		TokenData: tokenData,
		Creator:   rec.Creator,
		Mint:      p.mintOf(tokenData),
		Timestamp: p.clock().Unix(),
	})
	return rec, nil
}

// DistributeRevenue adds amount to the record's revenue counter. Only the
// creator may call it. Nothing is paid out to holders.
func (p *Program) DistributeRevenue(ctx context.Context, authority, tokenData pda.Pubkey, amount uint64) (rec *domain.TokenData, err error) {
	start := time.Now()
	defer func() { p.observe("distribute_revenue", start, err) }()

	rec, err = p.mutate(ctx, tokenData, func(t *domain.TokenData) error {
		if t.Creator != authority {
			return ErrUnauthorized
		}
		next := t.TotalRevenueDistributed + amount
		if next < t.TotalRevenueDistributed {
			return ErrRevenueOverflow
		}
		t.TotalRevenueDistributed = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.logger.Printf("Revenue distribution: %d tokens", amount)
	observability.RecordRevenue(amount)
	p.publish(ctx, events.Event{
		Kind:      events.KindRevenueDistributed,
		TokenData: tokenData,
		Creator:   rec.Creator,
		Mint:      p.mintOf(tokenData),
		Amount:    amount,
		Timestamp: p.clock().Unix(),
	})
	return rec, nil
}

// TokenData reads the committed metadata record at addr.
func (p *Program) TokenData(ctx context.Context, addr pda.Pubkey) (*domain.TokenData, error) {
	return p.load(ctx, p.store, addr)
}

// FindTokenData reads the metadata record derived from (creator, name).
func (p *Program) FindTokenData(ctx context.Context, creator pda.Pubkey, name string) (*domain.TokenData, pda.Pubkey, error) {
	addr, _, err := p.deriveTokenData(creator, name)
	if err != nil {
		return nil, pda.Pubkey{}, err
	}
	rec, err := p.load(ctx, p.store, addr)
	if err != nil {
		return nil, pda.Pubkey{}, err
	}
	return rec, addr, nil
}

// HoldingBalance returns the token amount in owner's holding record for the
// mint of tokenData.
func (p *Program) HoldingBalance(ctx context.Context, tokenData, owner pda.Pubkey) (uint64, error) {
	mint, _, err := pda.MintAddress(p.programID, tokenData)
	if err != nil {
		return 0, fail(ErrAddressDerivationExhausted, err)
	}
	holding, _, err := pda.AssociatedTokenAddress(owner, mint)
	if err != nil {
		return 0, fail(ErrAddressDerivationExhausted, err)
	}
	return p.token.Balance(ctx, p.store, holding)
}

// Airdrop funds a system account so it can pay rent.
func (p *Program) Airdrop(ctx context.Context, to pda.Pubkey, lamports uint64) error {
	return p.system.Airdrop(ctx, p.store, to, lamports)
}

// Lamports returns the lamport balance of addr.
func (p *Program) Lamports(ctx context.Context, addr pda.Pubkey) (uint64, error) {
	return p.system.Lamports(ctx, p.store, addr)
}

// mutate runs fn against the metadata record inside one unit of work and
// writes the result back.
func (p *Program) mutate(ctx context.Context, addr pda.Pubkey, fn func(t *domain.TokenData) error) (*domain.TokenData, error) {
	var out *domain.TokenData
	err := storage.RunInTx(ctx, p.store, func(tx storage.Tx) error {
		t, err := p.load(ctx, tx, addr)
		if err != nil {
			return err
		}
		if err := fn(t); err != nil {
			return err
		}
		data, err := layout.EncodeTokenData(t)
		if err != nil {
			return err
		}
		acc, err := tx.Get(ctx, addr)
		if err != nil {
			return err
		}
		acc.Data = data
		if err := tx.Update(ctx, acc); err != nil {
			return err
		}
		out = t
		return nil
	})
	if err != nil {
		return nil, commitFailure(err)
	}
	return out, nil
}

func (p *Program) load(ctx context.Context, r storage.Reader, addr pda.Pubkey) (*domain.TokenData, error) {
	acc, err := r.Get(ctx, addr)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fail(ErrTokenNotFound, fmt.Errorf("no account at %s", addr))
		}
		return nil, err
	}
	if acc.Owner != p.programID {
		return nil, fail(ErrTokenNotFound, fmt.Errorf("account %s not owned by program", addr))
	}
	t, err := layout.DecodeTokenData(acc.Data)
	if err != nil {
		return nil, fail(ErrTokenNotFound, err)
	}
	return t, nil
}

func (p *Program) mintOf(tokenData pda.Pubkey) pda.Pubkey {
	mint, _, err := pda.MintAddress(p.programID, tokenData)
	if err != nil {
		return pda.Pubkey{}
	}
	return mint
}

// publish hands ev to the sink. Failures are logged only.
func (p *Program) publish(ctx context.Context, ev events.Event) {
	err := p.sink.Publish(ctx, ev)
	observability.RecordEventPublished(string(ev.Kind), err)
	if err != nil {
		p.logger.Printf("WARN: publish %s for %s: %v", ev.Kind, ev.TokenData, err)
	}
}

func (p *Program) observe(operation string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = Name(err)
		if outcome == "" {
			outcome = "error"
		}
	}
	observability.RecordOperation(operation, outcome, time.Since(start).Seconds())
}

// ledgerFailure maps an error from a system or token program call.
func ledgerFailure(err error) error {
	var fe *Error
	switch {
	case errors.As(err, &fe):
		return err
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return fail(ErrInsufficientFunds, err)
	case errors.Is(err, storage.ErrConflict):
		return fail(ErrConflict, err)
	default:
		return fail(ErrExternalLedgerRejected, err)
	}
}

// commitFailure maps an error returned by a whole unit of work.
func commitFailure(err error) error {
	var fe *Error
	if !errors.As(err, &fe) && errors.Is(err, storage.ErrConflict) {
		return fail(ErrConflict, err)
	}
	return err
}
