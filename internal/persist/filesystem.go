// internal/persist/filesystem.go
package persist

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const fileExt = ".scenario.json"

// Filesystem stores one file per scenario under a base directory. Keys are
// hex-encoded in file names so arbitrary key strings stay path-safe.
type Filesystem struct {
	dir string
}

// NewFilesystem creates the base directory if needed.
func NewFilesystem(dir string) (*Filesystem, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating scenario dir: %w", err)
	}
	return &Filesystem{dir: dir}, nil
}

func (f *Filesystem) path(key string) string {
	return filepath.Join(f.dir, hex.EncodeToString([]byte(key))+fileExt)
}

func (f *Filesystem) Load(_ context.Context, key string) ([]byte, error) {
	blob, err := os.ReadFile(f.path(key))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("reading scenario %q: %w", key, err)
	}
	return blob, nil
}

func (f *Filesystem) Save(_ context.Context, key string, blob []byte) error {
	// write-then-rename so a crash never leaves a truncated scenario file
	tmp := f.path(key) + ".tmp"
	if err := os.WriteFile(tmp, blob, 0o644); err != nil {
		return fmt.Errorf("writing scenario %q: %w", key, err)
	}
	if err := os.Rename(tmp, f.path(key)); err != nil {
		return fmt.Errorf("replacing scenario %q: %w", key, err)
	}
	return nil
}

func (f *Filesystem) Delete(_ context.Context, key string) error {
	err := os.Remove(f.path(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting scenario %q: %w", key, err)
	}
	return nil
}

func (f *Filesystem) Keys(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("listing scenarios: %w", err)
	}
	var keys []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, fileExt) {
			continue
		}
		raw, err := hex.DecodeString(strings.TrimSuffix(name, fileExt))
		if err != nil {
			continue
		}
		keys = append(keys, string(raw))
	}
	sort.Strings(keys)
	return keys, nil
}

func (f *Filesystem) Close() error { return nil }
