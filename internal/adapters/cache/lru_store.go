// Package cache provides the in-process key-value store behind valuation,
// live-price and FX caching.
package cache

import (
	"context"
	"path"
	"time"

	portscache "github.com/SscSPs/portfolio_ledger/internal/core/ports/cache"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// maxEntryTTL bounds every entry regardless of the TTL requested by SetEx.
const maxEntryTTL = 24 * time.Hour

type entry struct {
	data      []byte
	expiresAt time.Time
}

// LRUStore is a size-bounded store with a per-entry expiry.
type LRUStore struct {
	lru *expirable.LRU[string, entry]
	now func() time.Time
}

var _ portscache.Store = (*LRUStore)(nil)

// NewLRUStore creates a store holding at most size entries.
func NewLRUStore(size int) *LRUStore {
	return newLRUStore(size, time.Now)
}

func newLRUStore(size int, now func() time.Time) *LRUStore {
	if size <= 0 {
		size = 10000
	}
	return &LRUStore{lru: expirable.NewLRU[string, entry](size, nil, maxEntryTTL), now: now}
}

func (s *LRUStore) Get(_ context.Context, key string) ([]byte, bool) {
	e, ok := s.lru.Get(key)
	if !ok {
		return nil, false
	}
	if !s.now().Before(e.expiresAt) {
		s.lru.Remove(key)
		return nil, false
	}
	return e.data, true
}

func (s *LRUStore) SetEx(_ context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	if ttl > maxEntryTTL {
		ttl = maxEntryTTL
	}
	s.lru.Add(key, entry{data: value, expiresAt: s.now().Add(ttl)})
}

// DeleteByPattern removes every key matching pattern and returns how many were removed.
func (s *LRUStore) DeleteByPattern(_ context.Context, pattern string) int {
	removed := 0
	for _, key := range s.lru.Keys() {
		if ok, err := path.Match(pattern, key); err == nil && ok {
			if s.lru.Remove(key) {
				removed++
			}
		}
	}
	return removed
}

// Len returns the number of entries, including expired ones not yet evicted.
func (s *LRUStore) Len() int {
	return s.lru.Len()
}
