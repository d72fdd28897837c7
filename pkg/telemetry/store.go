package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gwillem/rover/pkg/robot"
)

// EntryKind classifies a log entry.
type EntryKind string

const (
	KindPacket EntryKind = "packet" // a raw packet as received
	KindError  EntryKind = "error"  // a packet that failed to decode or reduce
	KindEvent  EntryKind = "event"  // a connection event
)

// Entry is one line of the packet log.
type Entry struct {
	Seq  uint64
	Time time.Time
	Kind EntryKind
	Text string
}

func (e Entry) String() string {
	return fmt.Sprintf("[%s] %s", e.Time.Format("15:04:05"), e.Text)
}

// Link describes the connection session currently feeding the store.
type Link struct {
	Session string
	Status  string
}

// Stats counts what the store has seen.
type Stats struct {
	Packets uint64
	Errors  uint64
}

// Update is what observers receive after every change.
type Update struct {
	State     robot.State
	Entries   []Entry // appended by this change
	LastError error
	Link      Link
	Stats     Stats
}

// Store holds the latest state, the packet log and the last error.
//
// Writers are serialized; observers are notified synchronously, in registration
// order, after every write. Observers must not write to the store.
type Store struct {
	writeMu sync.Mutex // serializes writes and their notifications

	mu      sync.RWMutex
	state   robot.State
	log     *ring
	lastErr error
	link    Link
	stats   Stats
	seq     uint64

	subMu   sync.Mutex
	subs    []*subscription
	nextSub int

	now    func() time.Time
	logger *zap.Logger
}

type subscription struct {
	id int
	fn func(Update)
}

// Option configures a Store.
type Option func(*Store)

// WithLogCapacity bounds the packet log; 0 keeps every entry.
func WithLogCapacity(n int) Option {
	return func(s *Store) { s.log = newRing(n) }
}

// WithLogger sets the logger used for store diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithClock overrides the entry timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore returns a store holding the empty state.
func NewStore(opts ...Option) *Store {
	s := &Store{
		state:  robot.NewState(),
		log:    newRing(0),
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ingest records raw in the log and runs step against the current state.
// On success the state is replaced; on failure the state is kept, the error
// becomes the last error and an error line is logged. The step error is returned
// for the caller's information only.
func (s *Store) Ingest(raw string, step StepFunc) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	entries := []Entry{s.appendLocked(KindPacket, raw)}
	s.stats.Packets++

	next, err := step(s.state)
	if err != nil {
		s.lastErr = err
		s.stats.Errors++
		entries = append(entries, s.appendLocked(KindError, "error: "+err.Error()))
	} else {
		s.state = next
	}
	u := s.updateLocked(entries)
	s.mu.Unlock()

	if err != nil {
		s.logger.Debug("Packet rejected", zap.String("packet", raw), zap.Error(err))
	}
	s.notify(u)
	return err
}

// Event appends a connection event to the log. A non-nil err also becomes the last error.
func (s *Store) Event(text string, err error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	if err != nil {
		s.lastErr = err
	}
	u := s.updateLocked([]Entry{s.appendLocked(KindEvent, text)})
	s.mu.Unlock()

	s.notify(u)
}

// SetLink records the session currently feeding the store.
func (s *Store) SetLink(session, status string) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.link = Link{Session: session, Status: status}
	u := s.updateLocked(nil)
	s.mu.Unlock()

	s.notify(u)
}

// ClearError forgets the last error.
func (s *Store) ClearError() {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.lastErr = nil
	u := s.updateLocked(nil)
	s.mu.Unlock()

	s.notify(u)
}

// State returns a copy of the current state.
func (s *Store) State() robot.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Log returns a copy of the packet log, oldest first.
func (s *Store) Log() []Entry {
	return s.Tail(0)
}

// Tail returns the last n log entries, oldest first. n <= 0 returns the whole log.
func (s *Store) Tail(n int) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.log.tail(n)
}

// LastError returns the most recent error, or nil.
func (s *Store) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// Link returns the session currently feeding the store.
func (s *Store) Link() Link {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.link
}

// Stats returns packet and error counters.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// Snapshot returns the current state, counters and last error as one update
// with no entries.
func (s *Store) Snapshot() Update {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updateLocked(nil)
}

// Subscribe registers fn to be called after every change. The returned
// function removes the subscription; calling it more than once is harmless.
func (s *Store) Subscribe(fn func(Update)) (cancel func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	s.nextSub++
	id := s.nextSub
	s.subs = append(s.subs, &subscription{id: id, fn: fn})

	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

// Watch returns a channel carrying the latest update. Slow readers only ever
// see the newest update; older ones are dropped. The channel is closed when
// ctx is done.
func (s *Store) Watch(ctx context.Context) <-chan Update {
	ch := make(chan Update, 1)
	var mu sync.Mutex
	closed := false

	cancel := s.Subscribe(func(u Update) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case ch <- u:
		default:
			// Drop old update if channel full, replace with new
			select {
			case <-ch:
			default:
			}
			ch <- u
		}
	})

	go func() {
		<-ctx.Done()
		cancel()
		mu.Lock()
		closed = true
		close(ch)
		mu.Unlock()
	}()

	return ch
}

func (s *Store) appendLocked(kind EntryKind, text string) Entry {
	s.seq++
	e := Entry{Seq: s.seq, Time: s.now(), Kind: kind, Text: text}
	s.log.push(e)
	return e
}

func (s *Store) updateLocked(entries []Entry) Update {
	return Update{
		State:     s.state.Clone(),
		Entries:   entries,
		LastError: s.lastErr,
		Link:      s.link,
		Stats:     s.stats,
	}
}

func (s *Store) notify(u Update) {
	s.subMu.Lock()
	subs := make([]*subscription, len(s.subs))
	copy(subs, s.subs)
	s.subMu.Unlock()

	for _, sub := range subs {
		sub.fn(u)
	}
}
