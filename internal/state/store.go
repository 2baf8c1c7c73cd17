package state

import (
	"slices"
	"sync"
	"time"

	"github.com/five82/minicart/internal/cart"
)

// Phase is the synchronizer's coarse state.
type Phase int

const (
	Idle Phase = iota
	Fetching
	Mutating
)

func (p Phase) String() string {
	switch p {
	case Fetching:
		return "fetching"
	case Mutating:
		return "mutating"
	default:
		return "idle"
	}
}

// SyncState is the published view of the cart. It is replaced wholesale on
// every transition and handed out as a copy.
type SyncState struct {
	IsOpen    bool
	IsEmpty   bool
	IsLoading bool
	Snapshot  *cart.Snapshot
	Token     string

	// Fetching is true while at least one fetch is outstanding.
	Fetching bool
	// Mutating lists the line keys with a mutation in flight, sorted.
	Mutating []string
	// Warm is true while Snapshot still comes from the local cache.
	Warm bool

	LastError           error
	LastUpdated         time.Time
	ConsecutiveFailures int
	// Seq is the sequence number of the fetch that produced Snapshot.
	Seq uint64
}

// Phase derives the coarse state. Mutations take precedence over fetches.
func (s SyncState) Phase() Phase {
	switch {
	case len(s.Mutating) > 0:
		return Mutating
	case s.Fetching:
		return Fetching
	default:
		return Idle
	}
}

// IsMutating reports whether key has a mutation in flight.
func (s SyncState) IsMutating(key string) bool {
	_, found := slices.BinarySearch(s.Mutating, key)
	return found
}

// IsOffline returns true when the store has been unreachable for multiple fetches.
func (s SyncState) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

func (s SyncState) clone() SyncState {
	dup := s
	dup.Snapshot = s.Snapshot.Clone()
	dup.Mutating = slices.Clone(s.Mutating)
	return dup
}

// Store owns the SyncState. The zero value is ready to use.
type Store struct {
	mu    sync.RWMutex
	state SyncState

	lastSeq   uint64 // last sequence number handed out
	published uint64 // highest sequence applied or invalidated
	fetches   int
	inflight  map[string]struct{}

	subs    map[int]chan SyncState
	nextSub int
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// Reset returns the state to empty. Fetches started before the reset are
// discarded when they resolve. Subscribers stay attached.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.published = s.lastSeq
	s.fetches = 0
	s.inflight = nil
	s.state = SyncState{}
	s.publishLocked()
}

// Warm installs a cached snapshot and token ahead of the first fetch. It is
// ignored once any fetch has been published.
func (s *Store) Warm(snap *cart.Snapshot, token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.published != 0 || s.state.Snapshot != nil {
		return false
	}
	if snap != nil {
		s.state.Snapshot = snap.Clone()
		s.state.IsEmpty = snap.IsEmpty
		s.state.Warm = true
	}
	if token != "" && s.state.Token == "" {
		s.state.Token = token
	}
	s.publishLocked()
	return true
}

// BeginFetch tags a new fetch and marks the store loading.
func (s *Store) BeginFetch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastSeq++
	s.fetches++
	s.publishLocked()
	return s.lastSeq
}

// FinishFetch publishes the result of fetch seq. It reports false and keeps
// the current snapshot when a newer fetch has already been published.
func (s *Store) FinishFetch(seq uint64, snap *cart.Snapshot, token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.endFetchLocked()
	if token != "" {
		s.state.Token = token
	}
	if seq <= s.published {
		s.publishLocked()
		return false
	}

	s.published = seq
	s.state.Snapshot = snap.Clone()
	s.state.IsEmpty = snap == nil || snap.IsEmpty
	s.state.Warm = false
	s.state.Seq = seq
	s.state.LastError = nil
	s.state.LastUpdated = time.Now()
	s.state.ConsecutiveFailures = 0
	s.publishLocked()
	return true
}

// FailFetch records a failed fetch. The snapshot is left untouched; errors
// from fetches older than the published one are dropped.
func (s *Store) FailFetch(seq uint64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.endFetchLocked()
	if seq > s.published && err != nil {
		s.state.LastError = err
		s.state.LastUpdated = time.Now()
		s.state.ConsecutiveFailures++
	}
	s.publishLocked()
}

// BeginMutation claims key. It reports false when key already has a mutation
// in flight; the caller must then drop its intent.
func (s *Store) BeginMutation(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, busy := s.inflight[key]; busy {
		return false
	}
	if s.inflight == nil {
		s.inflight = make(map[string]struct{})
	}
	s.inflight[key] = struct{}{}
	s.publishLocked()
	return true
}

// EndMutation releases key and records err, if any.
func (s *Store) EndMutation(key string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.inflight, key)
	if err != nil {
		s.state.LastError = err
		s.state.LastUpdated = time.Now()
	}
	s.publishLocked()
}

// SetToken records the latest authorization token.
func (s *Store) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if token == "" || token == s.state.Token {
		return
	}
	s.state.Token = token
	s.publishLocked()
}

// ToggleOpen flips IsOpen and returns the new value.
func (s *Store) ToggleOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.IsOpen = !s.state.IsOpen
	s.publishLocked()
	return s.state.IsOpen
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() SyncState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state.clone()
}

// Subscribe returns a channel that always holds the most recently published
// state. Intermediate states are dropped for slow readers. The returned func
// detaches the subscriber and closes the channel.
func (s *Store) Subscribe() (<-chan SyncState, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.subs == nil {
		s.subs = make(map[int]chan SyncState)
	}
	id := s.nextSub
	s.nextSub++
	ch := make(chan SyncState, 1)
	ch <- s.state.clone()
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
			close(ch)
		})
	}
}

func (s *Store) endFetchLocked() {
	if s.fetches > 0 {
		s.fetches--
	}
}

// publishLocked recomputes the derived flags and hands the state to every
// subscriber. Callers hold s.mu.
func (s *Store) publishLocked() {
	s.state.Fetching = s.fetches > 0
	s.state.Mutating = s.state.Mutating[:0]
	for key := range s.inflight {
		s.state.Mutating = append(s.state.Mutating, key)
	}
	slices.Sort(s.state.Mutating)
	if len(s.state.Mutating) == 0 {
		s.state.Mutating = nil
	}
	s.state.IsLoading = s.state.Fetching || len(s.state.Mutating) > 0

	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- s.state.clone():
		default:
		}
	}
}
