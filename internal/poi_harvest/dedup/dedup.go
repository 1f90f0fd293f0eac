// Package dedup suppresses entities already seen during a run.
package dedup

import (
	"context"
	"sync"
)

// Deduplicator is shared across all concurrently running work items.
// Admit reports true exactly once per id for the life of the run.
type Deduplicator interface {
	Admit(ctx context.Context, id string) (bool, error)
	// Seed marks ids as already seen, e.g. entities restored from progress.
	Seed(ctx context.Context, ids []string) error
	// Clear forgets the run once it has completed.
	Clear(ctx context.Context) error
}

// Set is an in-memory Deduplicator.
type Set struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewSet() *Set {
	return &Set{seen: make(map[string]struct{})}
}

// Add records id and reports whether it was new. Check and insert happen
// under one lock so two items racing on the same id cannot both win.
func (s *Set) Add(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[id]; ok {
		return false
	}
	s.seen[id] = struct{}{}
	return true
}

func (s *Set) Admit(_ context.Context, id string) (bool, error) {
	return s.Add(id), nil
}

func (s *Set) Seed(_ context.Context, ids []string) error {
	for _, id := range ids {
		s.Add(id)
	}
	return nil
}

func (s *Set) Clear(context.Context) error {
	s.mu.Lock()
	s.seen = make(map[string]struct{})
	s.mu.Unlock()
	return nil
}

func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}
