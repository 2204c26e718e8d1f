package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/teian/internal/models"
)

func TestBoltStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")

	store, err := NewBoltStore(path)
	if err != nil {
		t.Fatalf("NewBoltStore failed: %v", err)
	}
	c, err := New(10, time.Hour, store)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	c.Put("persisted query", results("hello"))
	if err := c.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	store2, err := NewBoltStore(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	c2, err := New(10, time.Hour, store2)
	if err != nil {
		t.Fatalf("New after reopen failed: %v", err)
	}
	defer c2.Close()

	got, ok := c2.Get("persisted query")
	if !ok {
		t.Fatal("expected persisted entry after reopen")
	}
	if len(got) != 1 || got[0].Text != "hello" {
		t.Errorf("unexpected results: %+v", got)
	}
	if got[0].Source != models.SourceOnline {
		t.Errorf("source not preserved: %s", got[0].Source)
	}
}

func TestBoltStore_ExpiredEntriesDroppedOnLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")

	store, err := NewBoltStore(path)
	if err != nil {
		t.Fatalf("NewBoltStore failed: %v", err)
	}
	old := Entry{Results: results("stale"), StoredAt: time.Now().Add(-48 * time.Hour)}
	if err := store.Put("old query", old); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	store.Close()

	store2, err := NewBoltStore(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	c, err := New(10, 24*time.Hour, store2)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer c.Close()

	if _, ok := c.Get("old query"); ok {
		t.Error("expired entry should not survive load")
	}
}

func TestNewBoltStore_RecoversFromCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	if err := os.WriteFile(path, []byte("this is not a bolt database"), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	store, err := NewBoltStore(path)
	if err != nil {
		t.Fatalf("expected recovery from corrupt file, got %v", err)
	}
	defer store.Close()

	entries, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected empty store after recovery, got %d entries", len(entries))
	}
}

func TestBoltStore_Delete(t *testing.T) {
	store, err := NewBoltStore(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("NewBoltStore failed: %v", err)
	}
	defer store.Close()

	_ = store.Put("key", Entry{Results: results("a"), StoredAt: time.Now()})
	if err := store.Delete("key"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	entries, _ := store.Load()
	if len(entries) != 0 {
		t.Errorf("expected empty store after delete, got %d entries", len(entries))
	}
}
