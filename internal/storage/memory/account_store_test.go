package memory

import (
	"context"
	"errors"
	"testing"

	"tokenforge/internal/domain"
	"tokenforge/internal/pda"
	"tokenforge/internal/storage"
)

func testAccount(seed byte, lamports uint64) *domain.Account {
	var addr pda.Pubkey
	addr[0] = seed
	return &domain.Account{
		Address:  addr,
		Owner:    pda.TokenProgramID,
		Lamports: lamports,
		Data:     []byte{seed, 0, 0},
	}
}

func TestAccountStore_CommitPublishes(t *testing.T) {
	store := NewAccountStore()
	ctx := context.Background()

	tx, err := store.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	acc := testAccount(1, 100)
	if err := tx.Create(ctx, acc); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Not visible before commit
	if _, err := store.Get(ctx, acc.Address); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound before commit, got %v", err)
	}

	// Visible inside the tx
	staged, err := tx.Get(ctx, acc.Address)
	if err != nil {
		t.Fatalf("tx.Get failed: %v", err)
	}
	if staged.Lamports != 100 {
		t.Errorf("Lamports mismatch: got %d, want 100", staged.Lamports)
	}

	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	got, err := store.Get(ctx, acc.Address)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Lamports != 100 || got.Data[0] != 1 {
		t.Errorf("Unexpected account after commit: %+v", got)
	}
}

func TestAccountStore_RollbackDiscards(t *testing.T) {
	store := NewAccountStore()
	ctx := context.Background()

	tx, _ := store.Begin(ctx)
	for i := byte(1); i <= 3; i++ {
		if err := tx.Create(ctx, testAccount(i, uint64(i))); err != nil {
			t.Fatalf("Create %d failed: %v", i, err)
		}
	}
	if err := tx.Rollback(ctx); err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}

	if store.Len() != 0 {
		t.Errorf("Expected no accounts after rollback, got %d", store.Len())
	}

	if err := tx.Commit(ctx); !errors.Is(err, storage.ErrTxDone) {
		t.Errorf("Expected ErrTxDone after rollback, got %v", err)
	}
}

func TestAccountStore_CreateDuplicate(t *testing.T) {
	store := NewAccountStore()
	ctx := context.Background()

	acc := testAccount(1, 100)
	if err := storage.RunInTx(ctx, store, func(tx storage.Tx) error {
		return tx.Create(ctx, acc)
	}); err != nil {
		t.Fatalf("First create failed: %v", err)
	}

	err := storage.RunInTx(ctx, store, func(tx storage.Tx) error {
		return tx.Create(ctx, testAccount(1, 5))
	})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}

	// Intra-tx duplicate
	tx, _ := store.Begin(ctx)
	defer tx.Rollback(ctx)
	if err := tx.Create(ctx, testAccount(2, 1)); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := tx.Create(ctx, testAccount(2, 1)); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey for staged duplicate, got %v", err)
	}

	got, _ := store.Get(ctx, acc.Address)
	if got.Lamports != 100 {
		t.Errorf("Original account overwritten: %d", got.Lamports)
	}
}

func TestAccountStore_UpdateMissing(t *testing.T) {
	store := NewAccountStore()
	ctx := context.Background()

	tx, _ := store.Begin(ctx)
	defer tx.Rollback(ctx)

	if err := tx.Update(ctx, testAccount(9, 1)); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if err := tx.Create(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestAccountStore_ConflictingUnitsOfWork(t *testing.T) {
	store := NewAccountStore()
	ctx := context.Background()

	acc := testAccount(1, 100)
	if err := storage.RunInTx(ctx, store, func(tx storage.Tx) error {
		return tx.Create(ctx, acc)
	}); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}

	first, _ := store.Begin(ctx)
	second, _ := store.Begin(ctx)

	a1, err := first.Get(ctx, acc.Address)
	if err != nil {
		t.Fatalf("first.Get failed: %v", err)
	}
	a2, err := second.Get(ctx, acc.Address)
	if err != nil {
		t.Fatalf("second.Get failed: %v", err)
	}

	a1.Lamports = 50
	a2.Lamports = 70
	if err := first.Update(ctx, a1); err != nil {
		t.Fatalf("first.Update failed: %v", err)
	}
	if err := second.Update(ctx, a2); err != nil {
		t.Fatalf("second.Update failed: %v", err)
	}

	if err := first.Commit(ctx); err != nil {
		t.Fatalf("first.Commit failed: %v", err)
	}
	if err := second.Commit(ctx); !errors.Is(err, storage.ErrConflict) {
		t.Errorf("Expected ErrConflict, got %v", err)
	}

	got, _ := store.Get(ctx, acc.Address)
	if got.Lamports != 50 {
		t.Errorf("Expected first writer to win, got %d", got.Lamports)
	}
}

func TestAccountStore_ConcurrentCreateSameAddress(t *testing.T) {
	store := NewAccountStore()
	ctx := context.Background()

	first, _ := store.Begin(ctx)
	second, _ := store.Begin(ctx)

	if err := first.Create(ctx, testAccount(3, 1)); err != nil {
		t.Fatalf("first.Create failed: %v", err)
	}
	if err := second.Create(ctx, testAccount(3, 2)); err != nil {
		t.Fatalf("second.Create failed: %v", err)
	}

	if err := first.Commit(ctx); err != nil {
		t.Fatalf("first.Commit failed: %v", err)
	}
	if err := second.Commit(ctx); !errors.Is(err, storage.ErrConflict) {
		t.Errorf("Expected ErrConflict, got %v", err)
	}
}

func TestAccountStore_ReturnsCopy(t *testing.T) {
	store := NewAccountStore()
	ctx := context.Background()

	acc := testAccount(1, 100)
	_ = storage.RunInTx(ctx, store, func(tx storage.Tx) error {
		return tx.Create(ctx, acc)
	})

	// Modify original
	acc.Data[0] = 99

	got, _ := store.Get(ctx, acc.Address)
	got.Data[1] = 42

	again, _ := store.Get(ctx, acc.Address)
	if again.Data[0] != 1 || again.Data[1] != 0 {
		t.Error("Store should return copy, not reference")
	}
}
