// Package transfer hands payloads fetched during a server render to the
// hydration session that follows it. Entries are consumed at most once:
// Take reads and evicts in one step.
package transfer

import (
	"context"
	"errors"
	"strings"
)

// ErrNotFound is returned by Get and Take when the key is absent or expired.
var ErrNotFound = errors.New("transfer: key not found")

// Store is an opaque key-value store of JSON documents.
type Store interface {
	Has(ctx context.Context, key string) (bool, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
	Take(ctx context.Context, key string) ([]byte, error)
}

// SectionKey is the key a section page is stored under.
func SectionKey(sectionCode, page string) string {
	return "section-" + sectionCode + "." + page
}

// Scope namespaces every key of s under ns, so one render transaction
// cannot see another's entries. A nil store stays nil.
func Scope(s Store, ns string) Store {
	if s == nil {
		return nil
	}
	ns = strings.TrimSpace(ns)
	if ns == "" {
		return s
	}
	return &scoped{inner: s, prefix: ns + "/"}
}

type scoped struct {
	inner  Store
	prefix string
}

func (s *scoped) Has(ctx context.Context, key string) (bool, error) {
	return s.inner.Has(ctx, s.prefix+key)
}

func (s *scoped) Get(ctx context.Context, key string) ([]byte, error) {
	return s.inner.Get(ctx, s.prefix+key)
}

func (s *scoped) Set(ctx context.Context, key string, value []byte) error {
	return s.inner.Set(ctx, s.prefix+key, value)
}

func (s *scoped) Remove(ctx context.Context, key string) error {
	return s.inner.Remove(ctx, s.prefix+key)
}

func (s *scoped) Take(ctx context.Context, key string) ([]byte, error) {
	return s.inner.Take(ctx, s.prefix+key)
}
