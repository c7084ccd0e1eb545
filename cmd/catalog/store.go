package main

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var errUnauthorized = errors.New("catalog: missing or unknown session token")

// memoryStore is the demo backend. Latency simulates a remote call.
type memoryStore struct {
	Latency time.Duration

	mu     sync.Mutex
	tokens map[string]bool
	items  []Item
}

func newMemoryStore(latency time.Duration) *memoryStore {
	return &memoryStore{
		Latency: latency,
		tokens:  map[string]bool{},
		items: []Item{
			{SKU: "bk-001", Name: "The Go Programming Language", Category: "books", Price: 3999},
			{SKU: "bk-002", Name: "Concurrency in Go", Category: "books", Price: 3499},
			{SKU: "hw-001", Name: "Mechanical Keyboard", Category: "hardware", Price: 12900},
			{SKU: "hw-002", Name: "USB-C Hub", Category: "hardware", Price: 4500},
			{SKU: "sw-001", Name: "Gopher Sticker Pack", Category: "swag", Price: 500},
		},
	}
}

func (m *memoryStore) wait(ctx context.Context) error {
	if m.Latency <= 0 {
		return nil
	}
	select {
	case <-time.After(m.Latency):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *memoryStore) Login(ctx context.Context) (string, error) {
	if err := m.wait(ctx); err != nil {
		return "", err
	}
	token := uuid.NewString()
	m.mu.Lock()
	m.tokens[token] = true
	m.mu.Unlock()
	return token, nil
}

func (m *memoryStore) Categories(ctx context.Context) ([]string, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[string]bool{}
	var out []string
	for _, it := range m.items {
		if !seen[it.Category] {
			seen[it.Category] = true
			out = append(out, it.Category)
		}
	}
	return out, nil
}

func (m *memoryStore) Items(ctx context.Context, token string) ([]Item, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.tokens[token] {
		return nil, errUnauthorized
	}
	return append([]Item(nil), m.items...), nil
}
