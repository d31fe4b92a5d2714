// Package cachetest provides an in-memory cache for tests in other packages.
package cachetest

import (
	"context"
	"sync"
	"time"

	"github.com/roomchat/backend/internal/cache"
)

// Memory is a map-backed cache.Cache. Entries never expire; the TTL each
// was stored with is recorded for assertions.
type Memory struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
}

// NewMemory creates an empty cache.
func NewMemory() *Memory {
	return &Memory{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *Memory) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", cache.ErrMiss
	}
	return v, nil
}

func (m *Memory) Delete(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	delete(m.data, key)
	delete(m.ttls, key)
	return ok, nil
}

// TTL returns the TTL key was last stored with.
func (m *Memory) TTL(key string) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ttls[key]
}

// Len returns the number of stored entries.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}
