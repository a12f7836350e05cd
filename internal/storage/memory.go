package storage

import (
	"context"
	"sync"

	"github.com/xaenox/relay-bot/internal/models"
)

// MemorySink keeps log buckets in process memory.
type MemorySink struct {
	mu      sync.RWMutex
	buckets map[models.BucketKey][]models.MessageRecord
}

func NewMemorySink() *MemorySink {
	return &MemorySink{
		buckets: make(map[models.BucketKey][]models.MessageRecord),
	}
}

func (s *MemorySink) Append(ctx context.Context, key models.BucketKey, records []models.MessageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.buckets[key] = append(s.buckets[key], records...)
	return nil
}

func (s *MemorySink) Records(ctx context.Context, key models.BucketKey) ([]models.MessageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.buckets[key]
	out := make([]models.MessageRecord, len(stored))
	copy(out, stored)
	return out, nil
}

// Keys returns every bucket key that has stored records.
func (s *MemorySink) Keys() []models.BucketKey {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]models.BucketKey, 0, len(s.buckets))
	for k := range s.buckets {
		keys = append(keys, k)
	}
	return keys
}

func (s *MemorySink) Close() error {
	// Nothing to close for in-memory storage
	return nil
}
