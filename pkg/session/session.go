/*
Package session debounces a live query stream into matching passes.

A Session is fed every keystroke through OnQueryChanged. It waits for the
input to go quiet, runs one matching pass for the latest query and publishes
the resulting records. A single event-loop goroutine owns all mutable state;
callers only exchange messages with it, so the consumer API is safe to call
from any goroutine.

	s := session.New(engine, session.Options{Quiet: 120 * time.Millisecond})
	defer s.Close()

	s.OnQueryChanged("B")
	s.OnQueryChanged("BL")
	s.OnQueryChanged("BLP") // one pass runs, for "BLP"

	for u := range s.Updates() {
		render(u.Results)
	}

# States

	Idle ──query──▶ Debouncing ──quiet──▶ Matching ──done──▶ Published
	  ▲                 │  ▲                  │                  │
	  └─────clear───────┘  └──────query───────┴──────query───────┘

Every scheduled pass is tagged with a sequence number taken from a counter
that only grows. A completed pass whose number is not the latest issued is
discarded, so results of a superseded query never overwrite fresher ones.

Clearing, either through OnQueryCleared or by feeding a blank query, cancels
any pending pass and publishes the empty ResultSet before returning.

While a new query is debounced the previous ResultSet stays current;
consumers keep showing it until the next one is published.
*/
package session

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bastiangx/battserve/internal/logger"
	"github.com/bastiangx/battserve/internal/utils"
	"github.com/bastiangx/battserve/pkg/catalog"
	"github.com/bastiangx/battserve/pkg/match"
	"github.com/charmbracelet/log"
)

// DefaultQuiet is the default debounce interval.
const DefaultQuiet = 120 * time.Millisecond

const defaultUpdateBuffer = 16

var (
	// ErrClosed is returned by calls made after Close.
	ErrClosed = errors.New("session closed")
	// ErrInvalidQuery is returned for queries that are not valid UTF-8 or hold NUL bytes.
	ErrInvalidQuery = match.ErrInvalidQuery
)

// Searcher runs one matching pass. *match.Engine implements it.
type Searcher interface {
	Search(query string) ([]*catalog.Record, error)
}

// Options configures a Session
type Options struct {
	// Quiet is how long the input must stay unchanged before a pass runs.
	Quiet time.Duration
	// Scheduler defaults to the wall clock.
	Scheduler Scheduler
	// UpdateBuffer is the capacity of the Updates channel. When a consumer
	// falls behind the oldest pending update is dropped.
	UpdateBuffer int
	Logger       *log.Logger
}

// Session debounces one query stream. See the package doc.
type Session struct {
	searcher  Searcher
	quiet     time.Duration
	scheduler Scheduler
	logger    *log.Logger

	events  chan event
	updates chan Update
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once

	snap atomic.Pointer[snapshot]

	passes    atomic.Uint64
	discarded atomic.Uint64
	published atomic.Uint64
}

// New starts a session running passes with searcher
func New(searcher Searcher, opts Options) *Session {
	if opts.Quiet <= 0 {
		opts.Quiet = DefaultQuiet
	}
	if opts.Scheduler == nil {
		opts.Scheduler = RealScheduler()
	}
	if opts.UpdateBuffer <= 0 {
		opts.UpdateBuffer = defaultUpdateBuffer
	}
	if opts.Logger == nil {
		opts.Logger = logger.New("session")
	}

	s := &Session{
		searcher:  searcher,
		quiet:     opts.Quiet,
		scheduler: opts.Scheduler,
		logger:    opts.Logger,
		events:    make(chan event),
		updates:   make(chan Update, opts.UpdateBuffer),
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}
	s.snap.Store(&snapshot{state: Idle})

	l := &loop{s: s, state: Idle}
	go l.run()
	return s
}

// OnQueryChanged feeds the latest raw input. A blank query clears the
// session. Feeding the query that is already current does nothing.
// When it returns the new state is visible through State and CurrentQuery.
func (s *Session) OnQueryChanged(raw string) error {
	if !utils.IsValidQuery(raw) {
		return fmt.Errorf("%w: %q", ErrInvalidQuery, raw)
	}
	if utils.IsBlank(raw) {
		return s.send(event{kind: evClear})
	}
	return s.send(event{kind: evQuery, query: raw})
}

// OnQueryCleared cancels any pending pass and resets the ResultSet to empty.
// The empty ResultSet is current by the time it returns.
func (s *Session) OnQueryCleared() {
	if err := s.send(event{kind: evClear}); err != nil {
		s.logger.Debug("Clear after close ignored")
	}
}

// CurrentResults returns the latest published ResultSet
func (s *Session) CurrentResults() []*catalog.Record {
	return s.snap.Load().results
}

// CurrentQuery returns the query the session is working on or published for
func (s *Session) CurrentQuery() string {
	return s.snap.Load().query
}

// Seq returns the sequence number of the latest query or clear. After
// OnQueryChanged or OnQueryCleared returns it identifies that call; an
// Update with a lower Seq is superseded.
func (s *Session) Seq() uint64 {
	return s.snap.Load().seq
}

// State returns the current lifecycle state
func (s *Session) State() State {
	return s.snap.Load().state
}

// Updates delivers every published ResultSet. It is closed by Close.
func (s *Session) Updates() <-chan Update {
	return s.updates
}

// Stats returns the event loop counters
func (s *Session) Stats() Stats {
	return Stats{
		Passes:    s.passes.Load(),
		Discarded: s.discarded.Load(),
		Published: s.published.Load(),
	}
}

// Close stops the event loop and any pending timer. A pass still running
// finishes in the background and its result is dropped.
func (s *Session) Close() {
	s.once.Do(func() {
		close(s.done)
		<-s.stopped
		close(s.updates)
	})
}

// send hands ev to the event loop and waits until it was applied
func (s *Session) send(ev event) error {
	ev.ack = make(chan struct{})
	select {
	case s.events <- ev:
	case <-s.done:
		return ErrClosed
	}
	select {
	case <-ev.ack:
		return nil
	case <-s.done:
		return ErrClosed
	}
}

// post hands ev to the event loop without waiting; used by timers and workers
func (s *Session) post(ev event) {
	select {
	case s.events <- ev:
	case <-s.done:
	}
}
