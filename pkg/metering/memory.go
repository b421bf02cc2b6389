package metering

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type usageKey struct {
	subscriptionID uuid.UUID
	key            string
}

// MemoryUsageStore is an in-memory UsageStore, safe for concurrent use.
// Suited for tests and single-process setups.
type MemoryUsageStore struct {
	mu   sync.RWMutex
	rows map[usageKey]Usage
}

// NewMemoryUsageStore creates an empty in-memory usage store.
func NewMemoryUsageStore() *MemoryUsageStore {
	return &MemoryUsageStore{rows: make(map[usageKey]Usage)}
}

func (s *MemoryUsageStore) GetUsage(ctx context.Context, subscriptionID uuid.UUID, key string) (Usage, error) {
	if err := ctx.Err(); err != nil {
		return Usage{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	usage, ok := s.rows[usageKey{subscriptionID, key}]
	if !ok {
		return Usage{}, ErrUsageNotFound
	}
	return usage, nil
}

func (s *MemoryUsageStore) SaveUsage(ctx context.Context, usage Usage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.rows[usageKey{usage.SubscriptionID, usage.Key}] = usage
	return nil
}

func (s *MemoryUsageStore) ListUsage(ctx context.Context, subscriptionID uuid.UUID) ([]Usage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Usage
	for k, usage := range s.rows {
		if k.subscriptionID == subscriptionID {
			out = append(out, usage)
		}
	}
	return out, nil
}

func (s *MemoryUsageStore) ResetAllUsage(ctx context.Context, subscriptionID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, usage := range s.rows {
		if k.subscriptionID != subscriptionID {
			continue
		}
		usage.Used = 0
		usage.LastUsedAt = nil
		s.rows[k] = usage
	}
	return nil
}
