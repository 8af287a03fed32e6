// Package kvstore is the durable client-side storage the session and the
// queue are persisted in.
package kvstore

import (
	"context"
	"sync"
)

const (
	KeySessionToken       = "session.token"
	KeySessionUserDetails = "session.userDetails"
	KeySessionLastLogin   = "session.lastLogin"
	KeyQueueTransactions  = "queue.transactions"
	KeyPushFrequency      = "settings.pushFrequency"
	KeyBatchSize          = "settings.batchSize"
)

// Store is a string keyed store. Get reports found=false for missing keys.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value string) error
	Remove(ctx context.Context, key string) error
}

type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MemoryStore) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
