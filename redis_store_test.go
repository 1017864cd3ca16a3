package authkit

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func newTestStore(t *testing.T) *RedisAccountStore {
	t.Helper()

	_, rdb := newTestRedis(t)
	return NewRedisAccountStore(rdb, "ak")
}

func TestRedisStoreInsertAndLookup(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	inserted, err := store.Insert(ctx, &Account{
		Name:         "Alice",
		Email:        "alice@example.com",
		PasswordHash: "$argon2id$...",
	})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if inserted.ID == "" {
		t.Fatal("expected an assigned ID")
	}
	if inserted.CreatedAt == 0 {
		t.Fatal("expected CreatedAt to be set")
	}

	byID, err := store.FindByID(ctx, inserted.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if byID.Email != "alice@example.com" || byID.PasswordHash != "$argon2id$..." {
		t.Fatalf("round-trip mismatch: %+v", byID)
	}

	byEmail, err := store.FindByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("FindByEmail failed: %v", err)
	}
	if byEmail.ID != inserted.ID {
		t.Fatal("email index resolved a different account")
	}
}

func TestRedisStoreNotFound(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.FindByID(ctx, "missing"); !errors.Is(err, ErrStoreNotFound) {
		t.Fatalf("FindByID: expected ErrStoreNotFound, got %v", err)
	}
	if _, err := store.FindByEmail(ctx, "missing@example.com"); !errors.Is(err, ErrStoreNotFound) {
		t.Fatalf("FindByEmail: expected ErrStoreNotFound, got %v", err)
	}
	if _, err := store.FindByResetCode(ctx, "deadbeef"); !errors.Is(err, ErrStoreNotFound) {
		t.Fatalf("FindByResetCode: expected ErrStoreNotFound, got %v", err)
	}
	if err := store.UpdateFields(ctx, "missing", AccountUpdate{Verified: boolPtr(true)}); !errors.Is(err, ErrStoreNotFound) {
		t.Fatalf("UpdateFields: expected ErrStoreNotFound, got %v", err)
	}
}

func TestRedisStoreDuplicateEmail(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Insert(ctx, &Account{Email: "alice@example.com"}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	_, err := store.Insert(ctx, &Account{Email: "alice@example.com"})
	if !errors.Is(err, ErrStoreDuplicateEmail) {
		t.Fatalf("expected ErrStoreDuplicateEmail, got %v", err)
	}
}

func TestRedisStorePartialUpdate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	inserted, err := store.Insert(ctx, &Account{
		Name:         "Alice",
		Email:        "alice@example.com",
		PasswordHash: "hash-1",
	})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	if err := store.UpdateFields(ctx, inserted.ID, AccountUpdate{
		VerifyCode:       strPtr("123456"),
		VerifyCodeExpiry: int64Ptr(42),
	}); err != nil {
		t.Fatalf("UpdateFields failed: %v", err)
	}

	got, err := store.FindByID(ctx, inserted.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if got.VerifyCode != "123456" || got.VerifyCodeExpiry != 42 {
		t.Fatalf("update not applied: %+v", got)
	}
	// Untouched fields survive.
	if got.PasswordHash != "hash-1" || got.Name != "Alice" || got.Verified {
		t.Fatalf("partial update clobbered fields: %+v", got)
	}
}

func TestRedisStoreResetCodeIndex(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	inserted, err := store.Insert(ctx, &Account{Email: "alice@example.com"})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	if err := store.UpdateFields(ctx, inserted.ID, AccountUpdate{
		ResetCode:       strPtr("code-one"),
		ResetCodeExpiry: int64Ptr(100),
	}); err != nil {
		t.Fatalf("UpdateFields failed: %v", err)
	}

	got, err := store.FindByResetCode(ctx, "code-one")
	if err != nil {
		t.Fatalf("FindByResetCode failed: %v", err)
	}
	if got.ID != inserted.ID {
		t.Fatal("reset index resolved a different account")
	}

	// Replacing the code retires the old index entry.
	if err := store.UpdateFields(ctx, inserted.ID, AccountUpdate{
		ResetCode:       strPtr("code-two"),
		ResetCodeExpiry: int64Ptr(200),
	}); err != nil {
		t.Fatalf("UpdateFields failed: %v", err)
	}
	if _, err := store.FindByResetCode(ctx, "code-one"); !errors.Is(err, ErrStoreNotFound) {
		t.Fatalf("stale code still resolves: %v", err)
	}
	if _, err := store.FindByResetCode(ctx, "code-two"); err != nil {
		t.Fatalf("current code does not resolve: %v", err)
	}

	// Clearing the code removes the index entirely.
	if err := store.UpdateFields(ctx, inserted.ID, AccountUpdate{
		ResetCode:       strPtr(""),
		ResetCodeExpiry: int64Ptr(0),
	}); err != nil {
		t.Fatalf("UpdateFields failed: %v", err)
	}
	if _, err := store.FindByResetCode(ctx, "code-two"); !errors.Is(err, ErrStoreNotFound) {
		t.Fatalf("cleared code still resolves: %v", err)
	}
}

func TestRedisStoreConcurrentUpdates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	inserted, err := store.Insert(ctx, &Account{Email: "alice@example.com"})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int64) {
			defer wg.Done()
			_ = store.UpdateFields(ctx, inserted.ID, AccountUpdate{
				VerifyCodeExpiry: int64Ptr(n),
			})
		}(int64(i + 1))
	}
	wg.Wait()

	got, err := store.FindByID(ctx, inserted.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if got.VerifyCodeExpiry < 1 || got.VerifyCodeExpiry > 8 {
		t.Fatalf("unexpected final expiry %d", got.VerifyCodeExpiry)
	}
}
