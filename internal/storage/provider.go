// Package storage defines the durable key-value areas the engine persists to.
package storage

import (
	"context"
	"fmt"
)

// Area names.
const (
	AreaSync    = "sync"
	AreaLocal   = "local"
	AreaSession = "session"
)

// Keys written by the engine.
const (
	KeyDictionary          = "dictionary"
	KeyDictionaryTimestamp = "dictionaryTimestamp"
	KeyEnabled             = "ext_on"
	KeyReplacedWords       = "replacedWords"
	KeyReplacedSet         = "replacedSet"
)

// Area is one named partition of key-value storage. Values are JSON encoded.
type Area interface {
	// Get decodes the value stored under key into dst. It reports false when
	// the key is absent.
	Get(ctx context.Context, key string, dst any) (bool, error)
	// Set stores every item, replacing existing values.
	Set(ctx context.Context, items map[string]any) error
	// Keys lists the stored keys in lexical order.
	Keys(ctx context.Context) ([]string, error)
}

// Provider hands out areas by name.
type Provider interface {
	Area(name string) Area
	Close() error
}

func validArea(name string) error {
	switch name {
	case AreaSync, AreaLocal, AreaSession:
		return nil
	}
	return fmt.Errorf("storage: unknown area %q", name)
}
