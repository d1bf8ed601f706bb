package recent

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/weatho/weatho/internal/storage"
	"github.com/weatho/weatho/internal/weather"
)

const (
	// StorageKey is the single backend slot holding the serialized list.
	StorageKey = "weatho-recent-searches"

	// MaxRecentSearches caps the persisted list; older entries beyond the
	// cap are silently dropped.
	MaxRecentSearches = 10
)

// Store owns the ranked, deduplicated list of recently viewed locations.
//
// All mutations flow through a single durable cell, so overlapping callers
// (a GPS-triggered add racing a manual search) cannot lose updates. Adds
// issued before the cell has hydrated are queued and replayed in original
// order once hydration completes, instead of racing the hydration read.
type Store struct {
	cell *storage.Cell[[]Entry]

	mu      sync.Mutex
	pending []weather.Location
	flushed bool

	now func() time.Time
}

// NewStore builds the store and starts hydrating from the backend.
func NewStore(ctx context.Context, backend storage.Backend) *Store {
	s := &Store{now: time.Now}
	s.cell = storage.NewCell(ctx, backend, StorageKey, []Entry{})
	s.cell.OnHydrated(s.flushPending)
	return s
}

// Hydrated reports whether the list reflects durable state yet.
func (s *Store) Hydrated() bool {
	return s.cell.Hydrated()
}

// HydrationDone closes once the underlying cell has hydrated.
func (s *Store) HydrationDone() <-chan struct{} {
	return s.cell.HydrationDone()
}

// List returns the derived view, most recently selected first. It is a pure
// function of the raw list and the current time; until hydration completes
// it is empty rather than echoing a stale default.
func (s *Store) List() []Search {
	if !s.cell.Hydrated() {
		return []Search{}
	}

	raw := s.cell.Get()
	now := s.now()

	searches := make([]Search, 0, len(raw))
	for _, e := range raw {
		searches = append(searches, Search{
			Entry:       e,
			DisplayName: displayName(e.Location),
			TimeAgo:     timeAgo(e.Timestamp, now),
		})
	}
	return searches
}

// Add records a selection of loc. Before hydration the request is queued;
// afterwards it applies immediately: an existing entry with the same
// coordinates moves to the front with its count bumped and its display
// fields refreshed, a new entry is prepended, and the list is truncated to
// MaxRecentSearches.
func (s *Store) Add(loc weather.Location) {
	s.mu.Lock()
	if !s.flushed {
		s.pending = append(s.pending, loc)
		s.mu.Unlock()
		logrus.WithField("name", loc.Name).Debug("queued recent search until hydration")
		return
	}
	s.mu.Unlock()

	s.apply(loc)
}

func (s *Store) flushPending() {
	s.mu.Lock()
	queued := s.pending
	s.pending = nil
	s.flushed = true
	s.mu.Unlock()

	for _, loc := range queued {
		s.apply(loc)
	}
}

func (s *Store) apply(loc weather.Location) {
	nowMs := s.now().UnixMilli()

	s.cell.Update(func(prev []Entry) []Entry {
		head := Entry{Location: loc, Timestamp: nowMs, SearchCount: 1}

		rest := make([]Entry, 0, len(prev))
		for _, e := range prev {
			if e.SamePlace(loc) {
				// Re-selection: carry the count forward. The location
				// fields come from the incoming value, picking up any
				// upstream corrections to the place's name.
				head.SearchCount = e.SearchCount + 1
				continue
			}
			rest = append(rest, e)
		}

		updated := append([]Entry{head}, rest...)
		if len(updated) > MaxRecentSearches {
			updated = updated[:MaxRecentSearches]
		}
		return updated
	})
}

// Remove deletes the entry matching loc's coordinates. Absent is a no-op.
func (s *Store) Remove(loc weather.Location) {
	s.cell.Update(func(prev []Entry) []Entry {
		kept := make([]Entry, 0, len(prev))
		for _, e := range prev {
			if e.SamePlace(loc) {
				continue
			}
			kept = append(kept, e)
		}
		return kept
	})
}

// Clear empties the entire list.
func (s *Store) Clear() {
	s.cell.Set([]Entry{})
}
