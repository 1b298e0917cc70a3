package postgres

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5"

	"tokenforge/internal/domain"
	"tokenforge/internal/observability"
	"tokenforge/internal/pda"
	"tokenforge/internal/storage"
)

// AccountStore implements storage.AccountStore using PostgreSQL.
// A unit of work is one database transaction; rows read inside it are locked
// with FOR UPDATE NOWAIT so a concurrent unit touching the same account fails
// fast with storage.ErrConflict instead of queueing.
type AccountStore struct {
	pool *Pool
}

// NewAccountStore creates a new AccountStore.
func NewAccountStore(pool *Pool) *AccountStore {
	return &AccountStore{pool: pool}
}

// Compile-time interface check.
var _ storage.AccountStore = (*AccountStore)(nil)

const selectAccount = `
	SELECT address, owner, lamports, data
	FROM accounts
	WHERE address = $1
`

// Get returns the committed state of an account. Returns ErrNotFound if not exists.
func (s *AccountStore) Get(ctx context.Context, addr pda.Pubkey) (*domain.Account, error) {
	start := time.Now()
	a, err := scanAccount(s.pool.QueryRow(ctx, selectAccount, addr[:]))
	observability.RecordDBQuery("postgres", "get_account", time.Since(start).Seconds(), ignoreNotFound(err))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

// Begin opens a unit of work backed by a database transaction.
func (s *AccountStore) Begin(ctx context.Context) (storage.Tx, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return &accountTx{tx: tx}, nil
}

// accountTx is a unit of work inside one PostgreSQL transaction.
type accountTx struct {
	tx pgx.Tx
}

func (t *accountTx) Get(ctx context.Context, addr pda.Pubkey) (*domain.Account, error) {
	a, err := scanAccount(t.tx.QueryRow(ctx, selectAccount+" FOR UPDATE NOWAIT", addr[:]))
	if err != nil {
		return nil, classify("get account", err)
	}
	return a, nil
}

func (t *accountTx) Create(ctx context.Context, a *domain.Account) error {
	if a == nil || a.Lamports > math.MaxInt64 {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO accounts (address, owner, lamports, data)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (address) DO NOTHING
	`

	tag, err := t.tx.Exec(ctx, query, a.Address[:], a.Owner[:], int64(a.Lamports), a.Data)
	if err != nil {
		return classify("create account", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrDuplicateKey
	}
	return nil
}

func (t *accountTx) Update(ctx context.Context, a *domain.Account) error {
	if a == nil || a.Lamports > math.MaxInt64 {
		return storage.ErrInvalidInput
	}

	query := `
		UPDATE accounts
		SET owner = $2, lamports = $3, data = $4, updated_at = NOW()
		WHERE address = $1
	`

	tag, err := t.tx.Exec(ctx, query, a.Address[:], a.Owner[:], int64(a.Lamports), a.Data)
	if err != nil {
		return classify("update account", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (t *accountTx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		return classify("commit tx", err)
	}
	return nil
}

func (t *accountTx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("rollback tx: %w", err)
	}
	return nil
}

// classify maps driver errors onto storage sentinels.
func classify(op string, err error) error {
	switch {
	case isNotFoundError(err):
		return storage.ErrNotFound
	case isDuplicateKeyError(err):
		return storage.ErrDuplicateKey
	case isConflictError(err):
		return storage.ErrConflict
	case errors.Is(err, pgx.ErrTxClosed), errors.Is(err, pgx.ErrTxCommitRollback):
		return storage.ErrTxDone
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func ignoreNotFound(err error) error {
	if isNotFoundError(err) {
		return nil
	}
	return err
}

// scanAccount scans a single row into Account.
func scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		address, owner []byte
		lamports       int64
		a              domain.Account
	)

	if err := row.Scan(&address, &owner, &lamports, &a.Data); err != nil {
		return nil, err
	}

	var err error
	if a.Address, err = pda.PubkeyFromBytes(address); err != nil {
		return nil, fmt.Errorf("scan address: %w", err)
	}
	if a.Owner, err = pda.PubkeyFromBytes(owner); err != nil {
		return nil, fmt.Errorf("scan owner: %w", err)
	}
	a.Lamports = uint64(lamports)

	return &a, nil
}
