// Package memory provides an in-process key/value backend. It serves as
// the per-tab ephemeral scope and as the durable scope in tests.
package memory

import (
	"context"
	"sync"
)

// Backend is a mutex guarded map
type Backend struct {
	mu   sync.RWMutex
	data map[string][]byte
	fail error
}

// New returns an empty backend
func New() *Backend {
	return &Backend{data: map[string][]byte{}}
}

// Get implements authclient.Backend
func (b *Backend) Get(_ context.Context, key string) ([]byte, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.fail != nil {
		return nil, false, b.fail
	}
	v, ok := b.data[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

// Set implements authclient.Backend
func (b *Backend) Set(_ context.Context, key string, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail != nil {
		return b.fail
	}
	v := make([]byte, len(value))
	copy(v, value)
	b.data[key] = v
	return nil
}

// Delete implements authclient.Backend. All keys go under one lock.
func (b *Backend) Delete(_ context.Context, keys ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail != nil {
		return b.fail
	}
	for _, k := range keys {
		delete(b.data, k)
	}
	return nil
}

// Keys lists stored keys, mostly for assertions
func (b *Backend) Keys() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, 0, len(b.data))
	for k := range b.data {
		out = append(out, k)
	}
	return out
}

// Put stores raw bytes directly, bypassing JSON encoding
func (b *Backend) Put(key string, raw []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[key] = raw
}

// FailWith makes every following call return err, nil restores normal behavior.
func (b *Backend) FailWith(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fail = err
}
