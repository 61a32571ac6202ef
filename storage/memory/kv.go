package memorystore

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

type kvItem struct {
	value   []byte
	expires time.Time
}

// KV is a simple in-memory key-value store with TTL support.
// It is only safe for single-process deployments.
type KV struct {
	clock clockwork.Clock

	mu    sync.Mutex
	items map[string]kvItem
}

func NewKV() *KV {
	return NewKVWithClock(clockwork.NewRealClock())
}

// NewKVWithClock lets tests expire entries by advancing a fake clock.
func NewKVWithClock(clock clockwork.Clock) *KV {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &KV{clock: clock, items: make(map[string]kvItem)}
}

func (k *KV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	_ = ctx
	k.mu.Lock()
	defer k.mu.Unlock()
	it, ok := k.liveLocked(key)
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), it.value...), true, nil
}

func (k *KV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_ = ctx
	k.mu.Lock()
	defer k.mu.Unlock()
	var exp time.Time
	if ttl > 0 {
		exp = k.clock.Now().Add(ttl)
	}
	k.items[key] = kvItem{value: append([]byte(nil), value...), expires: exp}
	return nil
}

func (k *KV) Del(ctx context.Context, key string) error {
	_ = ctx
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.items, key)
	return nil
}

// Take returns the value and removes it under the same lock.
func (k *KV) Take(ctx context.Context, key string) ([]byte, bool, error) {
	_ = ctx
	k.mu.Lock()
	defer k.mu.Unlock()
	it, ok := k.liveLocked(key)
	if !ok {
		return nil, false, nil
	}
	delete(k.items, key)
	return it.value, true, nil
}

// Purge drops expired entries and returns how many were removed.
func (k *KV) Purge() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	now := k.clock.Now()
	n := 0
	for key, it := range k.items {
		if !it.expires.IsZero() && now.After(it.expires) {
			delete(k.items, key)
			n++
		}
	}
	return n
}

func (k *KV) liveLocked(key string) (kvItem, bool) {
	it, ok := k.items[key]
	if !ok {
		return kvItem{}, false
	}
	if !it.expires.IsZero() && k.clock.Now().After(it.expires) {
		delete(k.items, key)
		return kvItem{}, false
	}
	return it, true
}
