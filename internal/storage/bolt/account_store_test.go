package bolt

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tokenforge/internal/domain"
	"tokenforge/internal/pda"
	"tokenforge/internal/storage"
)

func openTestStore(t *testing.T) *AccountStore {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "ledger", "accounts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testAccount(seed byte, lamports uint64) *domain.Account {
	var addr pda.Pubkey
	addr[0] = seed
	return &domain.Account{
		Address:  addr,
		Owner:    pda.DefaultForgeProgramID,
		Lamports: lamports,
		Data:     []byte{seed, 0, 0, 7},
	}
}

func TestAccountStore_CommitAndGet(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	acc := testAccount(1, ^uint64(0))
	require.NoError(t, storage.RunInTx(ctx, store, func(tx storage.Tx) error {
		return tx.Create(ctx, acc)
	}))

	got, err := store.Get(ctx, acc.Address)
	require.NoError(t, err)
	assert.Equal(t, acc, got)
}

func TestAccountStore_RollbackDiscards(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Create(ctx, testAccount(1, 1)))

	staged, err := tx.Get(ctx, testAccount(1, 0).Address)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), staged.Lamports)

	require.NoError(t, tx.Rollback(ctx))
	assert.NoError(t, tx.Rollback(ctx))
	assert.ErrorIs(t, tx.Commit(ctx), storage.ErrTxDone)

	_, err = store.Get(ctx, testAccount(1, 0).Address)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestAccountStore_DuplicateAndMissing(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, storage.RunInTx(ctx, store, func(tx storage.Tx) error {
		return tx.Create(ctx, testAccount(1, 5))
	}))

	err := storage.RunInTx(ctx, store, func(tx storage.Tx) error {
		return tx.Create(ctx, testAccount(1, 6))
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	err = storage.RunInTx(ctx, store, func(tx storage.Tx) error {
		return tx.Update(ctx, testAccount(2, 6))
	})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	got, err := store.Get(ctx, testAccount(1, 0).Address)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), got.Lamports)
}

func TestAccountStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.db")
	ctx := context.Background()

	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, storage.RunInTx(ctx, store, func(tx storage.Tx) error {
		return tx.Create(ctx, testAccount(3, 33))
	}))
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(ctx, testAccount(3, 0).Address)
	require.NoError(t, err)
	assert.Equal(t, uint64(33), got.Lamports)
}

func TestAccountStore_ConcurrentUnitsSerialize(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	acc := testAccount(4, 0)
	require.NoError(t, storage.RunInTx(ctx, store, func(tx storage.Tx) error {
		return tx.Create(ctx, acc)
	}))

	const writers = 20
	errs := make(chan error, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- storage.RunInTx(ctx, store, func(tx storage.Tx) error {
				cur, err := tx.Get(ctx, acc.Address)
				if err != nil {
					return err
				}
				cur.Lamports++
				return tx.Update(ctx, cur)
			})
		}()
	}
	wg.Wait()
	close(errs)

	// Writers queue on the single bbolt write lock, so none sees ErrConflict.
	for err := range errs {
		assert.NoError(t, err)
	}
	got, err := store.Get(ctx, acc.Address)
	require.NoError(t, err)
	assert.Equal(t, uint64(writers), got.Lamports)
}
