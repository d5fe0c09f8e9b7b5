package dedup

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store, used in tests and single-process
// deployments that don't need dedup records to survive a restart.
type MemoryStore struct {
	mu      sync.Mutex
	records []*Record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Get(_ context.Context, requestHash string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var latest *Record
	for _, record := range s.records {
		if record.RequestHash != requestHash {
			continue
		}
		if latest == nil || record.CreatedAt.After(latest.CreatedAt) {
			latest = record
		}
	}
	if latest == nil {
		return nil, nil
	}
	copied := *latest
	return &copied, nil
}

func (s *MemoryStore) Insert(_ context.Context, record *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertLocked(record)
	return nil
}

func (s *MemoryStore) Update(_ context.Context, record *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.records {
		if existing.ID == record.ID {
			copied := *record
			s.records[i] = &copied
			return nil
		}
	}
	return nil
}

// InsertIfAbsent inserts unless a live record already holds the hash. The
// single mutex makes the check-and-insert atomic.
func (s *MemoryStore) InsertIfAbsent(_ context.Context, record *Record, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.records {
		if existing.RequestHash == record.RequestHash && !existing.Expired(now) {
			return false, nil
		}
	}
	s.insertLocked(record)
	return true, nil
}

func (s *MemoryStore) insertLocked(record *Record) {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	copied := *record
	s.records = append(s.records, &copied)
}

func (s *MemoryStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var kept []*Record
	var removed int64
	for _, record := range s.records {
		if record.ExpiresAt.Before(now) {
			removed++
			continue
		}
		kept = append(kept, record)
	}
	s.records = kept
	return removed, nil
}

func (s *MemoryStore) ListByIdentity(_ context.Context, identity string, since time.Time) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Record
	for _, record := range s.records {
		if record.Identity == identity && !record.CreatedAt.Before(since) {
			out = append(out, *record)
		}
	}
	return out, nil
}
