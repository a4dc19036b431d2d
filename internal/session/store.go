// Package session keeps the latest view model of each console session.
package session

import (
	"context"
	"sync"
	"time"
)

// Page identifies a console page within a session.
type Page string

const (
	PageLearnerInformation Page = "learner_information"
	PagePrograms           Page = "programs"
)

type entry struct {
	// generation is the newest search started on the page.
	generation uint64
	// committed is the generation whose view is stored.
	committed uint64
	view      any
}

type state struct {
	pages    map[Page]*entry
	lastSeen time.Time
}

// Store is a thread-safe map of session views with last-submitted-wins commits.
type Store struct {
	mu sync.RWMutex
	// Structure: [sessionID]state{[page]entry}
	data map[string]*state
	now  func() time.Time
	wg   sync.WaitGroup
}

// NewStore initializes an empty store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*state),
		now:  time.Now,
	}
}

// Begin registers a new search on the page and returns its generation token.
// Any search begun earlier on the same page becomes stale.
func (s *Store) Begin(sessionID string, page Page) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.entry(sessionID, page)
	e.generation++
	return e.generation
}

// Commit stores view if generation is still the newest search on the page.
// It returns false, leaving the stored view untouched, for a stale generation.
func (s *Store) Commit(sessionID string, page Page, generation uint64, view any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.entry(sessionID, page)
	if generation != e.generation {
		return false
	}
	e.committed = generation
	e.view = view
	return true
}

// View returns the last committed view of the page and its generation.
func (s *Store) View(sessionID string, page Page) (any, uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.data[sessionID]
	if !ok {
		return nil, 0, false
	}
	e, ok := st.pages[page]
	if !ok || e.committed == 0 {
		return nil, 0, false
	}
	return e.view, e.committed, true
}

// Forget drops a session.
func (s *Store) Forget(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID)
}

// Sessions returns the known session ids.
func (s *Store) Sessions() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]string, 0, len(s.data))
	for id := range s.data {
		list = append(list, id)
	}
	return list
}

// Sweep drops sessions idle for longer than maxIdle and returns how many were removed.
func (s *Store) Sweep(maxIdle time.Duration) int {
	cutoff := s.now().Add(-maxIdle)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, st := range s.data {
		if st.lastSeen.Before(cutoff) {
			delete(s.data, id)
			removed++
		}
	}
	return removed
}

// StartJanitor sweeps idle sessions every interval until ctx is done.
func (s *Store) StartJanitor(ctx context.Context, interval, maxIdle time.Duration, onSweep func(removed int)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.Sweep(maxIdle); n > 0 && onSweep != nil {
					onSweep(n)
				}
			}
		}
	}()
}

// Wait waits for background tasks started by StartJanitor to exit.
func (s *Store) Wait() {
	s.wg.Wait()
}

// entry returns the page entry, creating it and touching the session.
// It MUST be called while holding s.mu.Lock.
func (s *Store) entry(sessionID string, page Page) *entry {
	st, ok := s.data[sessionID]
	if !ok {
		st = &state{pages: make(map[Page]*entry)}
		s.data[sessionID] = st
	}
	st.lastSeen = s.now()

	e, ok := st.pages[page]
	if !ok {
		e = &entry{}
		st.pages[page] = e
	}
	return e
}
