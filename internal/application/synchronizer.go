// Package application contains use-case orchestration services.
package application

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ericfisherdev/linkdeck/internal/domain/model"
	"github.com/ericfisherdev/linkdeck/internal/domain/port/driven"
)

// SyncState is the synchronizer lifecycle state for one attached identity.
type SyncState int

const (
	// StateDetached: no identity, empty snapshot, no subscriptions.
	StateDetached SyncState = iota
	// StateLoading: identity present, initial refresh in flight; incoming
	// events are buffered and applied after the refresh lands.
	StateLoading
	// StateLive: snapshot reflects a completed refresh; events fold directly.
	StateLive
)

func (s SyncState) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateLive:
		return "live"
	default:
		return "detached"
	}
}

// Listener receives the new snapshot after every mutation.
type Listener func([]model.Bookmark)

// Synchronizer owns an in-memory, newest-first view of one user's bookmarks
// and merges three inputs into it: wholesale refresh results, created events,
// and deleted events. One instance serves one live view (one websocket
// connection); it is not shared across identities.
//
// Every attach and detach bumps a generation counter; feed events capture it
// when subscribed and are discarded on mismatch, so nothing from a previous
// identity leaks into the current snapshot. A second counter, the revision,
// bumps on every snapshot mutation: a refresh response is applied only if
// both counters still match what was captured when the refresh was issued,
// so a stale response can neither clobber a newer refresh nor undo events
// that folded in while it was in flight.
type Synchronizer struct {
	store  driven.BookmarkStore
	feed   driven.ChangeFeed
	logger *slog.Logger

	mu           sync.Mutex
	state        SyncState
	identity     *model.Identity
	gen          uint64
	rev          uint64
	snapshot     []model.Bookmark
	pending      []model.Event
	subs         []driven.Subscription
	listeners    map[int]Listener
	nextListener int
}

// NewSynchronizer creates a detached synchronizer.
func NewSynchronizer(store driven.BookmarkStore, feed driven.ChangeFeed, logger *slog.Logger) *Synchronizer {
	return &Synchronizer{
		store:     store,
		feed:      feed,
		logger:    logger,
		state:     StateDetached,
		listeners: make(map[int]Listener),
	}
}

// Attach binds the synchronizer to an identity: any previous scope is torn
// down first, then per-event-kind subscriptions are established, then the
// initial refresh runs. Events arriving between subscribe and refresh
// completion are buffered and applied in arrival order afterwards.
func (s *Synchronizer) Attach(ctx context.Context, identity model.Identity) error {
	s.mu.Lock()
	s.teardownLocked()
	id := identity
	s.identity = &id
	s.state = StateLoading
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	created, err := s.feed.SubscribeCreated(identity.ID, func(b model.Bookmark) {
		s.onCreated(gen, b)
	})
	if err != nil {
		s.Detach()
		return &model.FetchError{Err: err}
	}

	deleted, err := s.feed.SubscribeDeleted(identity.ID, func(id string) {
		s.onDeleted(gen, id)
	})
	if err != nil {
		created.Close()
		s.Detach()
		return &model.FetchError{Err: err}
	}

	s.mu.Lock()
	if s.gen != gen {
		// Detached or re-attached while we were subscribing.
		s.mu.Unlock()
		created.Close()
		deleted.Close()
		return model.ErrStaleResult
	}
	s.subs = []driven.Subscription{created, deleted}
	s.mu.Unlock()

	return s.refresh(ctx, gen)
}

// Detach tears down the current scope: subscriptions closed, snapshot
// cleared, pending buffered events dropped. In-flight refreshes for the old
// scope fail the generation check when they resolve.
func (s *Synchronizer) Detach() {
	s.mu.Lock()
	subs := s.subs
	s.teardownLocked()
	listeners, snap := s.notifySetLocked()
	s.mu.Unlock()

	for _, sub := range subs {
		sub.Close()
	}
	notify(listeners, snap)
}

// teardownLocked resets to detached. Caller holds s.mu and is responsible
// for closing the old subscriptions outside the lock.
func (s *Synchronizer) teardownLocked() {
	s.state = StateDetached
	s.identity = nil
	s.gen++
	s.snapshot = nil
	s.pending = nil
	s.subs = nil
}

// Refresh re-fetches the full collection and replaces the snapshot. Safe to
// call concurrently with itself; a result that resolves after a newer
// attach/detach is discarded.
func (s *Synchronizer) Refresh(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateDetached {
		s.mu.Unlock()
		return model.ErrNotSignedIn
	}
	gen := s.gen
	s.mu.Unlock()

	return s.refresh(ctx, gen)
}

func (s *Synchronizer) refresh(ctx context.Context, gen uint64) error {
	s.mu.Lock()
	if s.gen != gen || s.identity == nil {
		s.mu.Unlock()
		return model.ErrStaleResult
	}
	ownerID := s.identity.ID
	rev := s.rev
	s.mu.Unlock()

	records, err := s.store.ListByOwner(ctx, ownerID)

	s.mu.Lock()
	if s.gen != gen || s.rev != rev {
		s.mu.Unlock()
		s.logger.Debug("stale refresh discarded", "owner", ownerID, "gen", gen)
		return model.ErrStaleResult
	}

	if err != nil {
		// Prior snapshot stays intact; buffered events keep buffering.
		s.mu.Unlock()
		s.logger.Error("refresh failed", "owner", ownerID, "error", err)
		return &model.FetchError{Err: err}
	}

	s.snapshot = nil
	for _, r := range records {
		s.foldCreatedLocked(r)
	}
	for _, ev := range s.pending {
		s.applyEventLocked(ev)
	}
	s.pending = nil
	s.rev++
	s.state = StateLive
	listeners, snap := s.notifySetLocked()
	s.mu.Unlock()

	notify(listeners, snap)
	return nil
}

// onCreated handles a created event from the feed for the given generation.
func (s *Synchronizer) onCreated(gen uint64, b model.Bookmark) {
	s.fold(gen, model.CreatedEvent(b))
}

// onDeleted handles a deleted event from the feed for the given generation.
func (s *Synchronizer) onDeleted(gen uint64, id string) {
	s.fold(gen, model.Event{Kind: model.EventDeleted, ID: id})
}

// ApplyCreated folds a created record into the snapshot: a no-op if the ID is
// already present, otherwise an ordered insert.
func (s *Synchronizer) ApplyCreated(b model.Bookmark) {
	s.mu.Lock()
	gen := s.gen
	s.mu.Unlock()
	s.fold(gen, model.CreatedEvent(b))
}

// ApplyDeleted folds a deletion into the snapshot by ID alone; removing an
// absent ID is a no-op. The command layer's optimistic delete goes through
// here so snapshot invariants hold everywhere.
func (s *Synchronizer) ApplyDeleted(id string) {
	s.mu.Lock()
	gen := s.gen
	s.mu.Unlock()
	s.fold(gen, model.Event{Kind: model.EventDeleted, ID: id})
}

func (s *Synchronizer) fold(gen uint64, ev model.Event) {
	s.mu.Lock()
	if s.gen != gen || s.state == StateDetached {
		s.mu.Unlock()
		return
	}

	if s.state == StateLoading {
		s.pending = append(s.pending, ev)
		s.mu.Unlock()
		return
	}

	changed := s.applyEventLocked(ev)
	var listeners []Listener
	var snap []model.Bookmark
	if changed {
		s.rev++
		listeners, snap = s.notifySetLocked()
	}
	s.mu.Unlock()

	notify(listeners, snap)
}

func (s *Synchronizer) applyEventLocked(ev model.Event) bool {
	switch ev.Kind {
	case model.EventCreated:
		return s.foldCreatedLocked(ev.Bookmark)
	case model.EventDeleted:
		return s.foldDeletedLocked(ev.ID)
	default:
		return false
	}
}

// foldCreatedLocked inserts b preserving newest-first order. Duplicate IDs
// are a no-op, never an append.
func (s *Synchronizer) foldCreatedLocked(b model.Bookmark) bool {
	for _, existing := range s.snapshot {
		if existing.ID == b.ID {
			return false
		}
	}

	at := len(s.snapshot)
	for i, existing := range s.snapshot {
		if existing.Before(b) {
			at = i
			break
		}
	}

	s.snapshot = append(s.snapshot, model.Bookmark{})
	copy(s.snapshot[at+1:], s.snapshot[at:])
	s.snapshot[at] = b
	return true
}

func (s *Synchronizer) foldDeletedLocked(id string) bool {
	for i, existing := range s.snapshot {
		if existing.ID == id {
			s.snapshot = append(s.snapshot[:i], s.snapshot[i+1:]...)
			return true
		}
	}
	return false
}

// Current returns a copy of the snapshot, newest first.
func (s *Synchronizer) Current() []model.Bookmark {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Bookmark(nil), s.snapshot...)
}

// State returns the current lifecycle state.
func (s *Synchronizer) State() SyncState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Identity returns the attached identity, or false when detached.
func (s *Synchronizer) Identity() (model.Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return model.Identity{}, false
	}
	return *s.identity, true
}

// Subscribe registers a listener invoked with the new snapshot after every
// mutation. The returned func unregisters it. An invocation already in
// flight when unregister is called may still complete; listeners must
// tolerate that.
func (s *Synchronizer) Subscribe(l Listener) func() {
	s.mu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = l
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// notifySetLocked copies the listener set and snapshot so callers can invoke
// listeners without holding s.mu (listeners may call back into the
// synchronizer).
func (s *Synchronizer) notifySetLocked() ([]Listener, []model.Bookmark) {
	if len(s.listeners) == 0 {
		return nil, nil
	}
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	snap := append([]model.Bookmark(nil), s.snapshot...)
	return listeners, snap
}

func notify(listeners []Listener, snap []model.Bookmark) {
	for _, l := range listeners {
		l(snap)
	}
}
