package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// FS implements Provider with one JSON object file per area.
type FS struct {
	root string // absolute path to the data directory
	mu   sync.Mutex
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// Area returns the named area.
func (f *FS) Area(name string) Area {
	return &fsArea{fs: f, name: name, err: validArea(name)}
}

// Close is a no-op; every write is already durable.
func (f *FS) Close() error { return nil }

func (f *FS) areaPath(name string) string {
	return filepath.Join(f.root, name+".json")
}

// load reads the whole area file. A missing file is an empty area.
func (f *FS) load(name string) (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(f.areaPath(name))
	if errors.Is(err, os.ErrNotExist) {
		return map[string]json.RawMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", name, err)
	}
	out := map[string]json.RawMessage{}
	if len(data) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("storage: decode %s: %w", name, err)
	}
	return out, nil
}

// write atomically replaces an area file: tmp file → fsync → rename.
func (f *FS) write(name string, content []byte) error {
	abs := f.areaPath(name)

	tmp, err := os.CreateTemp(f.root, ".lexicon-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}

type fsArea struct {
	fs   *FS
	name string
	err  error
}

func (a *fsArea) Get(_ context.Context, key string, dst any) (bool, error) {
	if a.err != nil {
		return false, a.err
	}
	a.fs.mu.Lock()
	defer a.fs.mu.Unlock()

	items, err := a.fs.load(a.name)
	if err != nil {
		return false, err
	}
	raw, ok := items[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("storage: decode %s/%s: %w", a.name, key, err)
	}
	return true, nil
}

func (a *fsArea) Set(_ context.Context, items map[string]any) error {
	if a.err != nil {
		return a.err
	}
	a.fs.mu.Lock()
	defer a.fs.mu.Unlock()

	current, err := a.fs.load(a.name)
	if err != nil {
		return err
	}
	for k, v := range items {
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("storage: encode %s/%s: %w", a.name, k, err)
		}
		current[k] = raw
	}
	data, err := json.MarshalIndent(current, "", "  ")
	if err != nil {
		return fmt.Errorf("storage: encode %s: %w", a.name, err)
	}
	return a.fs.write(a.name, data)
}

func (a *fsArea) Keys(_ context.Context) ([]string, error) {
	if a.err != nil {
		return nil, a.err
	}
	a.fs.mu.Lock()
	defer a.fs.mu.Unlock()

	items, err := a.fs.load(a.name)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
