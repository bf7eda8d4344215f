package fileid

import (
	"testing"

	"github.com/google/uuid"

	"github.com/hyperjump/kensaku/internal/models"
)

func TestRecordID(t *testing.T) {
	// Deterministic: same collection and name give same ID
	id1 := RecordID(models.CollectionOrganizations, "Alpha AI")
	id2 := RecordID(models.CollectionOrganizations, "Alpha AI")
	if id1 != id2 {
		t.Errorf("same input should give same ID: %q vs %q", id1, id2)
	}
	parsed, err := uuid.Parse(id1)
	if err != nil {
		t.Fatalf("ID should be a UUID: %v", err)
	}
	if parsed.Version() != 5 {
		t.Errorf("Version() = %d, want 5", parsed.Version())
	}
}

func TestRecordID_differentInputs(t *testing.T) {
	a := RecordID(models.CollectionOrganizations, "Alpha")
	b := RecordID(models.CollectionServices, "Alpha")
	c := RecordID(models.CollectionOrganizations, "Beta")
	if a == b || a == c {
		t.Errorf("different inputs should give different IDs: %q %q %q", a, b, c)
	}
}

func TestRecordID_separator(t *testing.T) {
	// Collection and name must not run together.
	if RecordID("ab", "c") == RecordID("a", "bc") {
		t.Error("collection/name boundary should be unambiguous")
	}
}

func TestSource_normalized(t *testing.T) {
	// Clean path: /foo/bar and /foo/bar/ and /foo/./bar should match
	id1 := Source("/foo/bar")
	id2 := Source("/foo/bar/")
	id3 := Source("/foo/./bar")
	if id1 != id2 {
		t.Errorf("paths differing only by trailing slash should match: %q vs %q", id1, id2)
	}
	if id1 != id3 {
		t.Errorf("paths with . should normalize: %q vs %q", id1, id3)
	}
}
