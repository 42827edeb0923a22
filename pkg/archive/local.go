package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalBackend stores reports as JSON files in a directory.
type LocalBackend struct {
	dir string
}

// NewLocalBackend creates a filesystem backend rooted at dir.
func NewLocalBackend(dir string) (*LocalBackend, error) {
	if dir == "" {
		return nil, fmt.Errorf("local archive: directory not configured")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("local archive: create directory: %w", err)
	}
	return &LocalBackend{dir: dir}, nil
}

func (b *LocalBackend) path(sessionID string) string {
	return filepath.Join(b.dir, sessionID+".json")
}

// Save writes the report atomically via a temp file rename.
func (b *LocalBackend) Save(ctx context.Context, r *Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("local archive: marshal report: %w", err)
	}

	tmp := b.path(r.SessionID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("local archive: write report: %w", err)
	}
	if err := os.Rename(tmp, b.path(r.SessionID)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("local archive: rename report: %w", err)
	}
	return nil
}

// Load retrieves a report from the filesystem.
func (b *LocalBackend) Load(ctx context.Context, sessionID string) (*Report, error) {
	data, err := os.ReadFile(b.path(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("local archive: read report: %w", err)
	}

	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("local archive: unmarshal report: %w", err)
	}
	return &r, nil
}

// Delete removes a report file. Missing files are not an error.
func (b *LocalBackend) Delete(ctx context.Context, sessionID string) error {
	err := os.Remove(b.path(sessionID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("local archive: delete report: %w", err)
	}
	return nil
}

// List returns the session IDs of all stored reports.
func (b *LocalBackend) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return nil, fmt.Errorf("local archive: list reports: %w", err)
	}

	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	return ids, nil
}

// Name returns "local".
func (b *LocalBackend) Name() string {
	return "local"
}
