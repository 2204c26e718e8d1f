package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDiskUsageBytes(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.bin")
	if err := os.WriteFile(file, make([]byte, 100), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	sub := filepath.Join(dir, "sub")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(sub, "b.bin"), make([]byte, 50), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	got, err := DiskUsageBytes(dir)
	if err != nil {
		t.Fatalf("DiskUsageBytes failed: %v", err)
	}
	if got != 150 {
		t.Errorf("expected 150 bytes, got %d", got)
	}
}

func TestDiskUsageBytes_MissingAndEmptyPaths(t *testing.T) {
	got, err := DiskUsageBytes("", "/does/not/exist")
	if err != nil {
		t.Fatalf("DiskUsageBytes failed: %v", err)
	}
	if got != 0 {
		t.Errorf("expected 0 bytes, got %d", got)
	}
}
