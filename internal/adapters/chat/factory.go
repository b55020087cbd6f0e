package chat

import (
	"path/filepath"
	"strings"

	"github.com/hugo-lorenzo-mato/travel-buddy/internal/core"
)

var _ core.ChatStore = (*SQLiteStore)(nil)

// NewStore opens the SQLite store at path, adding a .db extension when the
// path has another one.
func NewStore(path string) (*SQLiteStore, error) {
	if !strings.HasSuffix(path, ".db") {
		path = strings.TrimSuffix(path, filepath.Ext(path)) + ".db"
	}
	return NewSQLiteStore(path)
}
