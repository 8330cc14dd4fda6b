package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// Memory is an in-process Provider. Writes counts every Set call per area,
// which lets tests assert that nothing was persisted.
type Memory struct {
	mu     sync.Mutex
	data   map[string]map[string]json.RawMessage
	writes map[string]int

	// FailGet and FailSet inject errors per area.
	FailGet map[string]error
	FailSet map[string]error
}

// NewMemory returns an empty in-memory provider.
func NewMemory() *Memory {
	return &Memory{
		data:    make(map[string]map[string]json.RawMessage),
		writes:  make(map[string]int),
		FailGet: make(map[string]error),
		FailSet: make(map[string]error),
	}
}

// Area returns the named area.
func (m *Memory) Area(name string) Area {
	return &memArea{m: m, name: name, err: validArea(name)}
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }

// Writes returns how many Set calls reached the area.
func (m *Memory) Writes(area string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes[area]
}

type memArea struct {
	m    *Memory
	name string
	err  error
}

func (a *memArea) Get(_ context.Context, key string, dst any) (bool, error) {
	if a.err != nil {
		return false, a.err
	}
	a.m.mu.Lock()
	defer a.m.mu.Unlock()
	if err := a.m.FailGet[a.name]; err != nil {
		return false, err
	}
	raw, ok := a.m.data[a.name][key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("storage: decode %s/%s: %w", a.name, key, err)
	}
	return true, nil
}

func (a *memArea) Set(_ context.Context, items map[string]any) error {
	if a.err != nil {
		return a.err
	}
	a.m.mu.Lock()
	defer a.m.mu.Unlock()
	if err := a.m.FailSet[a.name]; err != nil {
		return err
	}
	bucket := a.m.data[a.name]
	if bucket == nil {
		bucket = make(map[string]json.RawMessage)
		a.m.data[a.name] = bucket
	}
	for k, v := range items {
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("storage: encode %s/%s: %w", a.name, k, err)
		}
		bucket[k] = raw
	}
	a.m.writes[a.name]++
	return nil
}

func (a *memArea) Keys(_ context.Context) ([]string, error) {
	if a.err != nil {
		return nil, a.err
	}
	a.m.mu.Lock()
	defer a.m.mu.Unlock()
	keys := make([]string, 0, len(a.m.data[a.name]))
	for k := range a.m.data[a.name] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
