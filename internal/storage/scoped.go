package storage

import "errors"

// Scoped routes the session area to an ephemeral provider and every other
// area to a durable one, so session data lasts only as long as the process.
type Scoped struct {
	durable   Provider
	ephemeral Provider
}

// NewScoped returns a Scoped provider. A nil ephemeral provider gets a fresh
// Memory.
func NewScoped(durable, ephemeral Provider) *Scoped {
	if ephemeral == nil {
		ephemeral = NewMemory()
	}
	return &Scoped{durable: durable, ephemeral: ephemeral}
}

// Area returns the named area from the provider that owns it.
func (s *Scoped) Area(name string) Area {
	if name == AreaSession {
		return s.ephemeral.Area(name)
	}
	return s.durable.Area(name)
}

// Close closes both providers.
func (s *Scoped) Close() error {
	return errors.Join(s.durable.Close(), s.ephemeral.Close())
}
