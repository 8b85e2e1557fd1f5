package filelock

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLockUnlock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.lock")
	fl := New(path)

	if err := fl.Lock(); err != nil {
		t.Fatalf("Lock() error = %v", err)
	}
	if err := fl.Unlock(); err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}
}

func TestTryLock_HeldByOther(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.lock")

	first := New(path)
	if err := first.Lock(); err != nil {
		t.Fatal(err)
	}
	defer first.Unlock()

	second := New(path)
	ok, err := second.TryLock()
	if err != nil {
		t.Fatalf("TryLock() error = %v", err)
	}
	if ok {
		t.Error("TryLock() acquired a lock already held by another handle")
	}
}

func TestAtomicWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "state.json")

	if err := AtomicWrite(path, []byte(`{"daily_spend":1.5}`)); err != nil {
		t.Fatalf("AtomicWrite() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"daily_spend":1.5}` {
		t.Errorf("file content = %s", data)
	}
}

func TestAtomicWrite_Overwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := AtomicWrite(path, []byte("first")); err != nil {
		t.Fatal(err)
	}
	if err := AtomicWrite(path, []byte("second")); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "second" {
		t.Errorf("file content = %s, want second", data)
	}
}

func TestAtomicWrite_NoTempLeftovers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	if err := AtomicWrite(path, []byte("data")); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, entry := range entries {
		if entry.Name() != "state.json" {
			t.Errorf("unexpected leftover file: %s", entry.Name())
		}
	}
}

func TestLockAndWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := LockAndWrite(path, []byte("locked write")); err != nil {
		t.Fatalf("LockAndWrite() error = %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "locked write" {
		t.Errorf("file content = %s", data)
	}
}
