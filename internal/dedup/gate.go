// Package dedup decides whether an attachment was already ingested. The
// ledger is the download directory itself: a file present at
// {root}/{filename} means that filename has been processed. Dedup is
// keyed on the filename alone, not content, so a sender reusing a
// filename for different content is treated as a duplicate.
package dedup

import (
	"fmt"
	"os"
	"path/filepath"
)

// Gate persists attachments under Root and reports duplicates.
type Gate struct {
	Root string
}

// NewGate returns a Gate rooted at dir.
func NewGate(dir string) *Gate {
	return &Gate{Root: dir}
}

// Claim writes the attachment bytes to the ledger path unless a file
// with that name already exists. It returns the target path and whether
// the filename had already been claimed. An already-claimed filename is
// a normal outcome, not an error.
func (g *Gate) Claim(filename string, data []byte) (string, bool, error) {
	if err := os.MkdirAll(g.Root, 0o755); err != nil {
		return "", false, fmt.Errorf("failed to create download dir: %w", err)
	}

	path := filepath.Join(g.Root, filename)

	if _, err := os.Stat(path); err == nil {
		return path, true, nil
	} else if !os.IsNotExist(err) {
		return "", false, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", false, fmt.Errorf("failed to save attachment %s: %w", filename, err)
	}

	return path, false, nil
}
