// Package memory keeps audit events in process. The in-memory backend and
// service tests use it.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	audit "nameledger/pkg/platform/audit"
)

// InMemoryStore is an append-only log indexed by subject. Appending an event
// whose ID is already stored is a no-op, matching the Postgres store.
type InMemoryStore struct {
	mu        sync.RWMutex
	log       []audit.Event
	bySubject map[string][]int
	seen      map[uuid.UUID]struct{}
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		bySubject: make(map[string][]int),
		seen:      make(map[uuid.UUID]struct{}),
	}
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	event = event.Normalize()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.seen[event.ID]; dup {
		return nil
	}
	s.seen[event.ID] = struct{}{}
	s.bySubject[event.Subject] = append(s.bySubject[event.Subject], len(s.log))
	s.log = append(s.log, event)
	return nil
}

// ListBySubject returns the subject's events oldest first.
func (s *InMemoryStore) ListBySubject(_ context.Context, subject string) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.bySubject[subject]
	out := make([]audit.Event, 0, len(idx))
	for _, i := range idx {
		out = append(out, s.log[i])
	}
	return out, nil
}

// Count returns the number of stored events across all subjects.
func (s *InMemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.log)
}
