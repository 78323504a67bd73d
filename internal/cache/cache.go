// Package cache implements the remote-data cache shared by all controllers.
//
// Queries are keyed by (endpoint, params) and declare the entity tags their
// result provides. Mutations declare the tags they invalidate; on success,
// every cached entry providing an intersecting tag is marked stale. Stale
// entries with an active subscriber refetch immediately, others refetch on
// the next subscription. At most one fetch per key is ever in flight.
package cache

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Tag identifies an entity type, optionally scoped to a single entity.
// An empty ID covers the whole type.
type Tag struct {
	Type string
	ID   string
}

// matches reports whether an invalidation of other hits a provision of t.
// Types must be equal; an unscoped side matches any scope.
func (t Tag) matches(other Tag) bool {
	if t.Type != other.Type {
		return false
	}
	return t.ID == "" || other.ID == "" || t.ID == other.ID
}

// Key identifies a cache entry: an endpoint name plus serialized parameters.
type Key struct {
	Endpoint string
	Params   string
}

// Status is the freshness state of a cache entry.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSuccess
	StatusError
)

// Result is a point-in-time snapshot of a cache entry. After a failed fetch,
// Value still holds the last successful payload (if any) alongside Err.
type Result struct {
	Status Status
	Value  any
	Err    error
}

// FetchFunc loads a query's payload from the network.
type FetchFunc func(ctx context.Context) (any, error)

type entry struct {
	tags     []Tag
	fetch    FetchFunc
	status   Status
	value    any
	hasValue bool
	err      error
	stale    bool
	inflight bool
	refetch  bool // another fetch requested while one is in flight
	gen      uint64
	subs     map[*Subscription]struct{}
}

// Store is the process-wide query cache.
type Store struct {
	mu       sync.Mutex
	log      zerolog.Logger
	entries  map[Key]*entry
	tagIndex map[string]map[Key]struct{} // tag type -> keys providing it
}

// New creates an empty Store.
func New(log zerolog.Logger) *Store {
	return &Store{
		log:      log,
		entries:  make(map[Key]*entry),
		tagIndex: make(map[string]map[Key]struct{}),
	}
}

// Subscribe attaches a subscriber to the entry for key, creating it if
// needed. A fetch is started unless the entry already holds a fresh,
// non-stale value or a fetch is already in flight; concurrent subscribers
// share the outstanding request. The returned Subscription must be closed
// when the caller loses interest.
func (s *Store) Subscribe(key Key, tags []Tag, fetch FetchFunc) *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		e = &entry{subs: make(map[*Subscription]struct{})}
		s.entries[key] = e
	}
	e.tags = tags
	e.fetch = fetch
	s.indexTags(key, tags)

	sub := &Subscription{store: s, key: key, ch: make(chan struct{}, 1)}
	e.subs[sub] = struct{}{}

	needsFetch := e.status == StatusIdle || e.stale || (e.status == StatusError && !e.hasValue)
	if needsFetch {
		s.startFetchLocked(key, e)
	}
	return sub
}

// Refetch forces a network fetch for key regardless of freshness. It is a
// no-op for unknown keys. When a fetch is already in flight a follow-up
// fetch is queued behind it, so data requested after the call is never
// older than the call.
func (s *Store) Refetch(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok {
		s.startFetchLocked(key, e)
	}
}

// Invalidate marks every entry providing one of the given tags as stale.
// Stale entries with active subscribers refetch immediately.
func (s *Store) Invalidate(tags ...Tag) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, inv := range tags {
		keys, ok := s.tagIndex[inv.Type]
		if !ok {
			continue
		}
		for key := range keys {
			e, ok := s.entries[key]
			if !ok {
				continue
			}
			if !e.provides(inv) {
				continue
			}
			e.stale = true
			e.gen++
			s.log.Debug().
				Str("endpoint", key.Endpoint).
				Str("params", key.Params).
				Str("tag", inv.Type+"/"+inv.ID).
				Msg("cache entry invalidated")
			if len(e.subs) > 0 {
				s.startFetchLocked(key, e)
			}
		}
	}
}

// Mutate runs a mutation and, only on success, invalidates the given tags.
func (s *Store) Mutate(ctx context.Context, run func(ctx context.Context) (any, error), invalidates ...Tag) (any, error) {
	out, err := run(ctx)
	if err != nil {
		return nil, err
	}
	s.Invalidate(invalidates...)
	return out, nil
}

// provides reports whether the entry declares a tag hit by inv.
func (e *entry) provides(inv Tag) bool {
	for _, t := range e.tags {
		if t.matches(inv) {
			return true
		}
	}
	return false
}

// indexTags records key under each tag type it provides.
func (s *Store) indexTags(key Key, tags []Tag) {
	for _, t := range tags {
		keys, ok := s.tagIndex[t.Type]
		if !ok {
			keys = make(map[Key]struct{})
			s.tagIndex[t.Type] = keys
		}
		keys[key] = struct{}{}
	}
}

// startFetchLocked begins a background fetch for the entry. When one is
// already outstanding a follow-up fetch is queued instead, so invalidations
// and refetches arriving mid-flight are never lost. The fetch is detached
// from any caller context: abandoning a subscription never cancels the
// request, its result is simply cached without notifying anyone.
func (s *Store) startFetchLocked(key Key, e *entry) {
	if e.fetch == nil {
		return
	}
	if e.inflight {
		e.refetch = true
		return
	}
	e.inflight = true
	e.status = StatusLoading
	fetch := e.fetch
	gen := e.gen

	go func() {
		value, err := fetch(context.Background())

		s.mu.Lock()
		e.inflight = false
		if err != nil {
			e.status = StatusError
			e.err = err
			// The previous successful value, if any, is retained.
		} else {
			e.status = StatusSuccess
			e.value = value
			e.hasValue = true
			e.err = nil
			// An invalidation that landed after this fetch started means
			// the value may already be out of date; keep it stale.
			if e.gen == gen {
				e.stale = false
			}
		}
		// A queued refetch, or an invalidation outrun by this fetch, needs
		// another round trip before subscribers are current. Failed fetches
		// do not self-retry; the entry stays stale for the next subscriber.
		if e.refetch || (err == nil && e.stale && len(e.subs) > 0) {
			e.refetch = false
			s.startFetchLocked(key, e)
		}
		subs := make([]*Subscription, 0, len(e.subs))
		for sub := range e.subs {
			subs = append(subs, sub)
		}
		s.mu.Unlock()

		for _, sub := range subs {
			sub.signal()
		}
	}()

	// Loading is itself an observable transition.
	for sub := range e.subs {
		sub.signal()
	}
}

// snapshot returns the current Result for key.
func (s *Store) snapshot(key Key) Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return Result{Status: StatusIdle}
	}
	return Result{Status: e.status, Value: e.value, Err: e.err}
}

// unsubscribe detaches sub from its entry. The cached value is kept.
func (s *Store) unsubscribe(sub *Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[sub.key]; ok {
		delete(e.subs, sub)
	}
}

// Subscription is one consumer's attachment to a cache entry.
type Subscription struct {
	store *Store
	key   Key
	ch    chan struct{}

	mu     sync.Mutex
	closed bool
}

// Updates returns a coalesced change-notification channel. A receive means
// the entry transitioned state; read Get for the current snapshot.
func (sub *Subscription) Updates() <-chan struct{} { return sub.ch }

// Get returns the current snapshot of the subscribed entry.
func (sub *Subscription) Get() Result { return sub.store.snapshot(sub.key) }

// Wait blocks until the entry settles out of the loading state or ctx is
// done, then returns the snapshot. The underlying request itself is not
// cancelled by ctx; only the wait is.
func (sub *Subscription) Wait(ctx context.Context) (Result, error) {
	for {
		res := sub.Get()
		if res.Status == StatusSuccess || res.Status == StatusError {
			return res, nil
		}
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		case <-sub.ch:
		}
	}
}

// Close abandons interest in the entry. Results arriving afterwards are
// cached but no longer signalled to this subscriber.
func (sub *Subscription) Close() {
	sub.mu.Lock()
	if sub.closed {
		sub.mu.Unlock()
		return
	}
	sub.closed = true
	sub.mu.Unlock()
	sub.store.unsubscribe(sub)
}

// signal delivers a coalesced notification without blocking.
func (sub *Subscription) signal() {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.closed {
		return
	}
	select {
	case sub.ch <- struct{}{}:
	default:
	}
}
