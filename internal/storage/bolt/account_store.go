// Package bolt implements storage.AccountStore on a single bbolt file.
//
// bbolt admits one read-write transaction at a time, so units of work are
// serialized by the database itself. Callers must not open a second unit of
// work from the goroutine that holds the first.
package bolt

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"

	"tokenforge/internal/domain"
	"tokenforge/internal/pda"
	"tokenforge/internal/storage"
)

var bucketAccounts = []byte("accounts")

// value layout: owner(32) | lamports u64 BE | data
const headerLen = pda.PubkeyLen + 8

// AccountStore wraps a bbolt database holding ledger accounts.
type AccountStore struct {
	db *bbolt.DB
}

// Compile-time interface check.
var _ storage.AccountStore = (*AccountStore)(nil)

// Open opens or creates the bbolt database at dbPath.
// The parent directory is created if it does not exist.
func Open(dbPath string) (*AccountStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("bolt: create directory: %w", err)
	}
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("bolt: open db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketAccounts); err != nil {
			return fmt.Errorf("bolt: create bucket %q: %w", bucketAccounts, err)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &AccountStore{db: db}, nil
}

// Close closes the underlying database.
func (s *AccountStore) Close() error { return s.db.Close() }

// Get returns the committed state of an account. Returns ErrNotFound if not exists.
func (s *AccountStore) Get(_ context.Context, addr pda.Pubkey) (*domain.Account, error) {
	var acc *domain.Account
	err := s.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(bucketAccounts).Get(addr[:])
		if raw == nil {
			return storage.ErrNotFound
		}
		var err error
		acc, err = decodeAccount(addr, raw)
		return err
	})
	if err != nil {
		return nil, err
	}
	return acc, nil
}

// Begin opens a read-write bbolt transaction as the unit of work.
func (s *AccountStore) Begin(_ context.Context) (storage.Tx, error) {
	tx, err := s.db.Begin(true)
	if err != nil {
		return nil, fmt.Errorf("bolt: begin tx: %w", err)
	}
	return &accountTx{tx: tx}, nil
}

type accountTx struct {
	tx   *bbolt.Tx
	done bool
}

func (t *accountTx) bucket() (*bbolt.Bucket, error) {
	if t.done {
		return nil, storage.ErrTxDone
	}
	return t.tx.Bucket(bucketAccounts), nil
}

func (t *accountTx) Get(_ context.Context, addr pda.Pubkey) (*domain.Account, error) {
	b, err := t.bucket()
	if err != nil {
		return nil, err
	}
	raw := b.Get(addr[:])
	if raw == nil {
		return nil, storage.ErrNotFound
	}
	return decodeAccount(addr, raw)
}

func (t *accountTx) Create(_ context.Context, a *domain.Account) error {
	if a == nil {
		return storage.ErrInvalidInput
	}
	b, err := t.bucket()
	if err != nil {
		return err
	}
	if b.Get(a.Address[:]) != nil {
		return storage.ErrDuplicateKey
	}
	if err := b.Put(a.Address[:], encodeAccount(a)); err != nil {
		return fmt.Errorf("bolt: put account: %w", err)
	}
	return nil
}

func (t *accountTx) Update(_ context.Context, a *domain.Account) error {
	if a == nil {
		return storage.ErrInvalidInput
	}
	b, err := t.bucket()
	if err != nil {
		return err
	}
	if b.Get(a.Address[:]) == nil {
		return storage.ErrNotFound
	}
	if err := b.Put(a.Address[:], encodeAccount(a)); err != nil {
		return fmt.Errorf("bolt: put account: %w", err)
	}
	return nil
}

func (t *accountTx) Commit(_ context.Context) error {
	if t.done {
		return storage.ErrTxDone
	}
	t.done = true
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("bolt: commit: %w", err)
	}
	return nil
}

func (t *accountTx) Rollback(_ context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, bbolt.ErrTxClosed) {
		return fmt.Errorf("bolt: rollback: %w", err)
	}
	return nil
}

func encodeAccount(a *domain.Account) []byte {
	buf := make([]byte, headerLen+len(a.Data))
	copy(buf, a.Owner[:])
	binary.BigEndian.PutUint64(buf[pda.PubkeyLen:], a.Lamports)
	copy(buf[headerLen:], a.Data)
	return buf
}

// decodeAccount copies out of raw, which is only valid for the life of the bbolt tx.
func decodeAccount(addr pda.Pubkey, raw []byte) (*domain.Account, error) {
	if len(raw) < headerLen {
		return nil, fmt.Errorf("bolt: corrupt account %s: %d bytes", addr, len(raw))
	}
	a := &domain.Account{
		Address:  addr,
		Lamports: binary.BigEndian.Uint64(raw[pda.PubkeyLen:headerLen]),
		Data:     append([]byte(nil), raw[headerLen:]...),
	}
	copy(a.Owner[:], raw[:pda.PubkeyLen])
	return a, nil
}
