package testutil

import (
	"context"
	"errors"
	"mindmeld/internal/repository/db"
	"strconv"
	"sync"
)

// MockStore is a mock implementation of db.Store for testing
type MockStore struct {
	LoadFunc func(ctx context.Context) (*db.Snapshot, error)
	SaveFunc func(ctx context.Context, snapshot *db.Snapshot) error
}

func (m *MockStore) Load(ctx context.Context) (*db.Snapshot, error) {
	if m.LoadFunc != nil {
		return m.LoadFunc(ctx)
	}
	return nil, errors.New("not implemented")
}

func (m *MockStore) Save(ctx context.Context, snapshot *db.Snapshot) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, snapshot)
	}
	return errors.New("not implemented")
}

// MemoryStore is an in-memory db.Store that records every save
type MemoryStore struct {
	mu       sync.Mutex
	snapshot *db.Snapshot
	saves    int
}

// NewMemoryStore creates a MemoryStore, optionally pre-loaded with snapshot
func NewMemoryStore(snapshot *db.Snapshot) *MemoryStore {
	return &MemoryStore{snapshot: snapshot}
}

func (m *MemoryStore) Load(ctx context.Context) (*db.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot, nil
}

func (m *MemoryStore) Save(ctx context.Context, snapshot *db.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot = snapshot
	m.saves++
	return nil
}

// Snapshot returns the last saved snapshot
func (m *MemoryStore) Snapshot() *db.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot
}

// Saves returns how many times Save was called
func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// MockProvider is a mock implementation of llm.Provider for testing
type MockProvider struct {
	GenerateFunc func(ctx context.Context, prompt string, settings db.ModelSettings) (string, error)
}

func (m *MockProvider) Generate(ctx context.Context, prompt string, settings db.ModelSettings) (string, error) {
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, prompt, settings)
	}
	return "", errors.New("not implemented")
}

// SequentialIDs returns a generator yielding prefix-1, prefix-2, ...
func SequentialIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return prefix + "-" + strconv.Itoa(n)
	}
}
