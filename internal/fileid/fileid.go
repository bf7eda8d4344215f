// Package fileid derives stable identifiers for catalog sources and the records they hold.
package fileid

import (
	"path/filepath"

	"github.com/google/uuid"

	"github.com/hyperjump/kensaku/internal/models"
)

// namespace scopes record IDs to this directory.
var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://kensaku.hyperjump.tech/records"))

// Source returns the canonical source key for a catalog file path.
// Same path always yields the same key. Used for import/delete by path.
func Source(absolutePath string) string {
	return filepath.Clean(absolutePath)
}

// RecordID returns a deterministic ID for a record with no explicit ID, derived
// from its collection and name. Re-importing the same record updates it in place.
func RecordID(collection models.Collection, name string) string {
	return uuid.NewSHA1(namespace, []byte(string(collection)+"\x00"+name)).String()
}
