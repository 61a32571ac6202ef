package core

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

type EphemeralMode string

const (
	EphemeralMemory EphemeralMode = "memory"
	EphemeralRedis  EphemeralMode = "redis"
)

// EphemeralStore is a minimal key-value interface used for short-lived gate
// state. Implementations should honor TTL on Set and treat missing keys as
// (found=false, err=nil).
type EphemeralStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// ephemeralTaker is implemented by stores that can read and delete a key
// atomically.
type ephemeralTaker interface {
	Take(ctx context.Context, key string) ([]byte, bool, error)
}

func (s *Service) WithEphemeralStore(store EphemeralStore, mode EphemeralMode) *Service {
	if mode == "" {
		mode = EphemeralMemory
	}
	s.ephemeralStore = store
	s.ephemeralMode = mode
	s.ownStore = false
	return s
}

func (s *Service) EphemeralMode() EphemeralMode {
	if s == nil || s.ephemeralMode == "" {
		return EphemeralMemory
	}
	return s.ephemeralMode
}

func (s *Service) useEphemeralStore() bool {
	return s != nil && s.ephemeralStore != nil
}

func (s *Service) ephemSetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	if !s.useEphemeralStore() {
		return fmt.Errorf("ephemeral store unavailable")
	}
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.ephemeralStore.Set(ctx, key, b, ttl)
}

// ephemTakeJSON reads and removes key. Stores without an atomic Take fall
// back to Get followed by Del.
func (s *Service) ephemTakeJSON(ctx context.Context, key string, out any) (bool, error) {
	if !s.useEphemeralStore() {
		return false, fmt.Errorf("ephemeral store unavailable")
	}
	var (
		b   []byte
		ok  bool
		err error
	)
	if t, can := s.ephemeralStore.(ephemeralTaker); can {
		b, ok, err = t.Take(ctx, key)
	} else {
		b, ok, err = s.ephemeralStore.Get(ctx, key)
		if err == nil && ok {
			err = s.ephemeralStore.Del(ctx, key)
		}
	}
	if err != nil || !ok {
		return false, err
	}
	return true, json.Unmarshal(b, out)
}
