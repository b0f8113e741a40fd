// ABOUTME: Reactive state manager with named slots and subscriptions
// ABOUTME: Deduplicates no-op updates and fans changes out to UI regions
package state

import (
	"log/slog"
	"reflect"
	"sync"
)

// asyncBuffer is the per-subscriber event queue depth. A subscriber that
// falls this far behind starts losing events (logged, never blocking the
// setter).
const asyncBuffer = 64

// EventKind distinguishes value updates from loading-flag updates.
type EventKind int

const (
	// EventValue is delivered when a slot's value changes.
	EventValue EventKind = iota
	// EventLoading is delivered when a slot's loading flag changes.
	EventLoading
)

// Event is what subscribers receive on every notification.
type Event struct {
	Key     string
	Kind    EventKind
	Value   any
	Version uint64
	Loading bool
	Source  string
}

// Subscription ties a callback to a key. Returned by Subscribe and passed
// back to Unsubscribe. Owner is a free-form tag used for bulk cleanup when
// a UI region is torn down.
type Subscription struct {
	id    uint64
	key   string
	owner string
	async bool
	fn    func(Event)
	ch    chan Event
	done  chan struct{}
}

// Owner returns the owner tag the subscription was registered with.
func (s *Subscription) Owner() string { return s.owner }

// Key returns the slot key the subscription listens on.
func (s *Subscription) Key() string { return s.key }

type slot struct {
	value       any
	version     uint64
	loading     bool
	lastSource  string
	initialized bool
	subs        []*Subscription

	// notifying guards against a sync subscriber re-entering Set on the
	// same key. A re-entrant Set applies state and marks pending; the
	// outer notification loop delivers one catch-up round.
	notifying bool
	pending   bool
}

// Manager holds named state slots and delivers updates to subscribers.
// All methods are safe for concurrent use. Values stored in slots are
// treated as immutable by convention; callers must not mutate a value
// after passing it to Set.
type Manager struct {
	mu        sync.Mutex
	slots     map[string]*slot
	nextSubID uint64
	logger    *slog.Logger
}

// New creates an empty manager. A nil logger falls back to slog.Default.
func New(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		slots:  make(map[string]*slot),
		logger: logger,
	}
}

// Get returns the current value for key, or def when the slot has never
// been set.
func (m *Manager) Get(key string, def any) any {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.slots[key]
	if !ok || !s.initialized {
		return def
	}
	return s.value
}

// Version returns the slot's version counter, zero for unknown keys.
func (m *Manager) Version(key string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.slots[key]; ok {
		return s.version
	}
	return 0
}

// Loading reports the slot's loading flag, false for unknown keys.
func (m *Manager) Loading(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.slots[key]; ok {
		return s.loading
	}
	return false
}

// Set stores value under key and notifies subscribers in subscription
// order. Returns true only when the value actually changed: repeated sets
// of an equal value neither bump the version nor notify anyone.
func (m *Manager) Set(key string, value any, source string) bool {
	m.mu.Lock()
	s := m.slot(key)

	if s.initialized && reflect.DeepEqual(s.value, value) {
		m.mu.Unlock()
		return false
	}

	s.value = value
	s.version++
	s.lastSource = source
	s.initialized = true

	if s.notifying {
		// Re-entrant set from a sync subscriber. State is applied; the
		// outer loop owns delivery.
		s.pending = true
		m.mu.Unlock()
		m.logger.Warn("re-entrant state update deferred", "key", key, "source", source)
		return true
	}

	s.notifying = true
	ev := Event{Key: key, Kind: EventValue, Value: s.value, Version: s.version, Loading: s.loading, Source: s.lastSource}
	subs := append([]*Subscription(nil), s.subs...)
	m.mu.Unlock()

	m.deliver(subs, ev)
	m.finishNotify(key)
	return true
}

// SetLoading toggles the slot's loading flag and notifies subscribers of
// the change, independently of value updates. Setting the flag to its
// current state is a no-op.
func (m *Manager) SetLoading(key string, loading bool) {
	m.mu.Lock()
	s := m.slot(key)
	if s.loading == loading {
		m.mu.Unlock()
		return
	}
	s.loading = loading
	ev := Event{Key: key, Kind: EventLoading, Value: s.value, Version: s.version, Loading: loading, Source: s.lastSource}
	subs := append([]*Subscription(nil), s.subs...)
	m.mu.Unlock()

	m.deliver(subs, ev)
}

// Subscribe registers fn for updates to key. Sync subscribers run inline
// on the setter's goroutine; async subscribers are fed through a buffered
// queue drained by a dedicated goroutine, preserving per-subscriber FIFO
// order. Owner is an arbitrary tag for UnsubscribeOwner.
func (m *Manager) Subscribe(key, owner string, async bool, fn func(Event)) *Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextSubID++
	sub := &Subscription{
		id:    m.nextSubID,
		key:   key,
		owner: owner,
		async: async,
		fn:    fn,
	}
	if async {
		sub.ch = make(chan Event, asyncBuffer)
		sub.done = make(chan struct{})
		go m.drain(sub)
	}

	s := m.slot(key)
	s.subs = append(s.subs, sub)
	return sub
}

// Unsubscribe removes a subscription. Safe to call more than once.
func (m *Manager) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	m.mu.Lock()
	removed := m.removeLocked(sub)
	m.mu.Unlock()

	if removed && sub.async {
		close(sub.done)
	}
}

// UnsubscribeOwner removes every subscription registered under owner,
// across all keys. Returns the number removed. Used when a UI region is
// torn down.
func (m *Manager) UnsubscribeOwner(owner string) int {
	m.mu.Lock()
	var removed []*Subscription
	for _, s := range m.slots {
		kept := s.subs[:0]
		for _, sub := range s.subs {
			if sub.owner == owner {
				removed = append(removed, sub)
			} else {
				kept = append(kept, sub)
			}
		}
		s.subs = kept
	}
	m.mu.Unlock()

	for _, sub := range removed {
		if sub.async {
			close(sub.done)
		}
	}
	return len(removed)
}

// Close drops all subscriptions and stops async delivery goroutines.
// Slot values remain readable.
func (m *Manager) Close() {
	m.mu.Lock()
	var removed []*Subscription
	for _, s := range m.slots {
		removed = append(removed, s.subs...)
		s.subs = nil
	}
	m.mu.Unlock()

	for _, sub := range removed {
		if sub.async {
			close(sub.done)
		}
	}
}

// slot returns the slot for key, creating it when missing. Caller holds mu.
func (m *Manager) slot(key string) *slot {
	s, ok := m.slots[key]
	if !ok {
		s = &slot{}
		m.slots[key] = s
	}
	return s
}

func (m *Manager) removeLocked(sub *Subscription) bool {
	s, ok := m.slots[sub.key]
	if !ok {
		return false
	}
	for i, candidate := range s.subs {
		if candidate.id == sub.id {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			return true
		}
	}
	return false
}

// deliver notifies each subscription in FIFO order. Sync callbacks run
// inline with panic isolation; async events are queued without blocking.
func (m *Manager) deliver(subs []*Subscription, ev Event) {
	for _, sub := range subs {
		if !sub.async {
			m.invoke(sub, ev)
			continue
		}
		select {
		case sub.ch <- ev:
		case <-sub.done:
		default:
			m.logger.Warn("async subscriber queue full, dropping event",
				"key", ev.Key, "owner", sub.owner, "version", ev.Version)
		}
	}
}

// finishNotify clears the notifying flag and delivers one catch-up round
// when a sync subscriber re-entered Set during the loop.
func (m *Manager) finishNotify(key string) {
	m.mu.Lock()
	s, ok := m.slots[key]
	if !ok {
		m.mu.Unlock()
		return
	}
	if !s.pending {
		s.notifying = false
		m.mu.Unlock()
		return
	}
	s.pending = false
	ev := Event{Key: key, Kind: EventValue, Value: s.value, Version: s.version, Loading: s.loading, Source: s.lastSource}
	subs := append([]*Subscription(nil), s.subs...)
	m.mu.Unlock()

	m.deliver(subs, ev)

	m.mu.Lock()
	if s.pending {
		// A subscriber re-entered again during the catch-up round. Stop
		// here; subscribers can read the final value via Get.
		m.logger.Warn("state update still re-entrant after catch-up, stopping", "key", key)
		s.pending = false
	}
	s.notifying = false
	m.mu.Unlock()
}

func (m *Manager) drain(sub *Subscription) {
	for {
		select {
		case ev := <-sub.ch:
			m.invoke(sub, ev)
		case <-sub.done:
			return
		}
	}
}

// invoke runs a subscriber callback, isolating panics so one broken
// subscriber cannot starve the rest of the notification loop.
func (m *Manager) invoke(sub *Subscription, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("subscriber callback panicked",
				"key", ev.Key, "owner", sub.owner, "panic", r)
		}
	}()
	sub.fn(ev)
}
