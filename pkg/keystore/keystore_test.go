package keystore

import (
	"errors"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "keys.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCreateAndLookupKey(t *testing.T) {
	store := openTestStore(t)

	created, err := store.CreateKey()
	if err != nil {
		t.Fatalf("CreateKey: %v", err)
	}
	if len(created.Material) != keySize {
		t.Fatalf("material length = %d", len(created.Material))
	}
	if created.Fingerprint == "" {
		t.Fatal("empty fingerprint")
	}

	loaded, err := store.KeyByID(created.ID)
	if err != nil {
		t.Fatalf("KeyByID: %v", err)
	}
	if loaded.Fingerprint != created.Fingerprint {
		t.Errorf("fingerprint mismatch: %q vs %q", loaded.Fingerprint, created.Fingerprint)
	}
	if loaded.Retired {
		t.Error("fresh key is retired")
	}
}

func TestActiveKeyIsNewest(t *testing.T) {
	store := openTestStore(t)

	if _, err := store.ActiveKey(); !errors.Is(err, ErrNoActiveKey) {
		t.Fatalf("ActiveKey on empty store = %v, want ErrNoActiveKey", err)
	}

	first, err := store.CreateKey()
	if err != nil {
		t.Fatalf("CreateKey: %v", err)
	}
	second, err := store.CreateKey()
	if err != nil {
		t.Fatalf("CreateKey: %v", err)
	}

	active, err := store.ActiveKey()
	if err != nil {
		t.Fatalf("ActiveKey: %v", err)
	}
	if active.ID != second.ID {
		t.Errorf("active key = %d, want %d", active.ID, second.ID)
	}

	// Retiring the newest key falls back to the previous one.
	if err := store.RetireKey(second.ID); err != nil {
		t.Fatalf("RetireKey: %v", err)
	}
	active, err = store.ActiveKey()
	if err != nil {
		t.Fatalf("ActiveKey: %v", err)
	}
	if active.ID != first.ID {
		t.Errorf("active key after retire = %d, want %d", active.ID, first.ID)
	}
}

func TestRetiredKeyStillLoadable(t *testing.T) {
	store := openTestStore(t)

	key, err := store.CreateKey()
	if err != nil {
		t.Fatalf("CreateKey: %v", err)
	}
	if err := store.RetireKey(key.ID); err != nil {
		t.Fatalf("RetireKey: %v", err)
	}

	loaded, err := store.KeyByID(key.ID)
	if err != nil {
		t.Fatalf("KeyByID: %v", err)
	}
	if !loaded.Retired {
		t.Error("key is not marked retired")
	}
}

func TestRetireUnknownKey(t *testing.T) {
	store := openTestStore(t)
	if err := store.RetireKey(12345); !errors.Is(err, ErrNotFound) {
		t.Errorf("RetireKey = %v, want ErrNotFound", err)
	}
}

func TestKeysNewestFirst(t *testing.T) {
	store := openTestStore(t)
	for i := 0; i < 3; i++ {
		if _, err := store.CreateKey(); err != nil {
			t.Fatalf("CreateKey: %v", err)
		}
	}

	keys, err := store.Keys()
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(keys) != 3 {
		t.Fatalf("got %d keys", len(keys))
	}
	for i := 1; i < len(keys); i++ {
		if keys[i-1].ID <= keys[i].ID {
			t.Errorf("keys out of order: %d before %d", keys[i-1].ID, keys[i].ID)
		}
	}
}
