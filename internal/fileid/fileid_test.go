package fileid

import (
	"strings"
	"testing"
)

func TestFileDocID_Stable(t *testing.T) {
	a := FileDocID("/notes/journal.md")
	b := FileDocID("/notes/journal.md")
	if a != b {
		t.Errorf("same path should yield same ID: %s != %s", a, b)
	}
}

func TestFileDocID_NormalizesPath(t *testing.T) {
	a := FileDocID("/notes/journal.md")
	b := FileDocID("/notes/./journal.md")
	if a != b {
		t.Errorf("cleaned paths should match: %s != %s", a, b)
	}
}

func TestFileDocID_DistinctPaths(t *testing.T) {
	if FileDocID("/notes/a.md") == FileDocID("/notes/b.md") {
		t.Error("different paths should yield different IDs")
	}
}

func TestFileDocID_Prefix(t *testing.T) {
	id := FileDocID("/notes/a.md")
	if !strings.HasPrefix(id, "file:") {
		t.Errorf("expected file: prefix, got %s", id)
	}
}
