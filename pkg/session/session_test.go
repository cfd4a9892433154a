package session

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bastiangx/battserve/internal/logger"
	"github.com/bastiangx/battserve/pkg/catalog"
	"github.com/bastiangx/battserve/pkg/match"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitFor = 2 * time.Second
const tick = 2 * time.Millisecond

// manualScheduler only fires timers when the test says so.
type manualScheduler struct {
	mu     sync.Mutex
	timers []*manualTimer
}

type manualTimer struct {
	sched   *manualScheduler
	f       func()
	stopped bool
	fired   bool
}

func (m *manualScheduler) AfterFunc(_ time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &manualTimer{sched: m, f: f}
	m.timers = append(m.timers, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.sched.mu.Lock()
	defer t.sched.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Fire runs every timer that is neither stopped nor fired and returns how many ran
func (m *manualScheduler) Fire() int {
	m.mu.Lock()
	var due []*manualTimer
	for _, t := range m.timers {
		if !t.stopped && !t.fired {
			t.fired = true
			due = append(due, t)
		}
	}
	m.mu.Unlock()

	for _, t := range due {
		t.f()
	}
	return len(due)
}

func (m *manualScheduler) Created() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

func (m *manualScheduler) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// recordingSearcher logs every pass and can hold a pass until its gate closes.
type recordingSearcher struct {
	engine  *match.Engine
	started chan string

	mu      sync.Mutex
	queries []string
	gates   map[string]chan struct{}
}

func newRecordingSearcher(t *testing.T) *recordingSearcher {
	t.Helper()
	c, err := catalog.New([]catalog.Record{
		{ID: "BLP885", Name: "VIVO Y12 BLP885 Battery"},
		{ID: "BM58", Name: "XIAOMI REDMI 9 BM58 Battery"},
		{ID: "BN47", Name: "XIAOMI REDMI NOTE 9 BN47"},
		{ID: "BLP881", Name: "OPPO A5S BLP881 Battery"},
	})
	require.NoError(t, err)
	return &recordingSearcher{
		engine:  match.NewEngine(c, match.DefaultOptions()),
		started: make(chan string, 16),
		gates:   make(map[string]chan struct{}),
	}
}

func (r *recordingSearcher) Gate(query string) chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	gate := make(chan struct{})
	r.gates[query] = gate
	return gate
}

func (r *recordingSearcher) Search(query string) ([]*catalog.Record, error) {
	r.mu.Lock()
	r.queries = append(r.queries, query)
	gate := r.gates[query]
	r.mu.Unlock()

	r.started <- query
	if gate != nil {
		<-gate
	}
	return r.engine.Search(query)
}

func (r *recordingSearcher) Queries() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.queries...)
}

func (r *recordingSearcher) expected(t *testing.T, query string) []*catalog.Record {
	t.Helper()
	results, err := r.engine.Search(query)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	return results
}

type failingSearcher struct{}

func (failingSearcher) Search(string) ([]*catalog.Record, error) {
	return nil, errors.New("boom")
}

func newTestSession(t *testing.T, searcher Searcher, buffer int) (*Session, *manualScheduler) {
	t.Helper()
	sched := &manualScheduler{}
	s := New(searcher, Options{
		Quiet:        DefaultQuiet,
		Scheduler:    sched,
		UpdateBuffer: buffer,
		Logger:       logger.Discard(),
	})
	t.Cleanup(s.Close)
	return s, sched
}

func waitPublished(t *testing.T, s *Session, query string) {
	t.Helper()
	require.Eventually(t, func() bool {
		return s.State() == Published && s.CurrentQuery() == query
	}, waitFor, tick, "no ResultSet published for %q", query)
}

func waitStarted(t *testing.T, r *recordingSearcher, query string) {
	t.Helper()
	select {
	case got := <-r.started:
		require.Equal(t, query, got)
	case <-time.After(waitFor):
		t.Fatalf("pass for %q never started", query)
	}
}

func TestDebounceRunsOnePassForLatestQuery(t *testing.T) {
	searcher := newRecordingSearcher(t)
	s, sched := newTestSession(t, searcher, 0)

	for _, q := range []string{"B", "BL", "BLP"} {
		require.NoError(t, s.OnQueryChanged(q))
		assert.Equal(t, Debouncing, s.State())
	}
	assert.Equal(t, "BLP", s.CurrentQuery())
	assert.Equal(t, 1, sched.Active(), "superseded timers must be cancelled")
	assert.Empty(t, searcher.Queries(), "nothing may run before the quiet interval")

	require.Equal(t, 1, sched.Fire())
	waitPublished(t, s, "BLP")

	assert.Equal(t, []string{"BLP"}, searcher.Queries())
	assert.Equal(t, searcher.expected(t, "BLP"), s.CurrentResults())

	select {
	case u := <-s.Updates():
		assert.Equal(t, "BLP", u.Query)
		assert.Equal(t, s.CurrentResults(), u.Results)
	case <-time.After(waitFor):
		t.Fatal("no update delivered")
	}

	stats := s.Stats()
	assert.Equal(t, uint64(1), stats.Passes)
	assert.Equal(t, uint64(1), stats.Published)
	assert.Zero(t, stats.Discarded)
}

func TestClearIsSynchronous(t *testing.T) {
	t.Run("Mid debounce", func(t *testing.T) {
		searcher := newRecordingSearcher(t)
		s, sched := newTestSession(t, searcher, 0)

		require.NoError(t, s.OnQueryChanged("BL"))
		s.OnQueryCleared()

		assert.Equal(t, Idle, s.State())
		assert.Empty(t, s.CurrentResults())
		assert.Empty(t, s.CurrentQuery())
		assert.Zero(t, sched.Active())
		assert.Zero(t, sched.Fire())
		assert.Empty(t, searcher.Queries())
	})

	t.Run("After publish", func(t *testing.T) {
		searcher := newRecordingSearcher(t)
		s, sched := newTestSession(t, searcher, 0)

		require.NoError(t, s.OnQueryChanged("BL"))
		sched.Fire()
		waitPublished(t, s, "BL")
		require.NotEmpty(t, s.CurrentResults())

		s.OnQueryCleared()

		assert.Equal(t, Idle, s.State())
		assert.Empty(t, s.CurrentResults())
	})

	t.Run("Blank query", func(t *testing.T) {
		searcher := newRecordingSearcher(t)
		s, sched := newTestSession(t, searcher, 0)

		require.NoError(t, s.OnQueryChanged("BL"))
		sched.Fire()
		waitPublished(t, s, "BL")

		require.NoError(t, s.OnQueryChanged("   "))

		assert.Equal(t, Idle, s.State())
		assert.Empty(t, s.CurrentResults())
		assert.Equal(t, 1, sched.Created(), "a blank query schedules nothing")
		assert.Equal(t, []string{"BL"}, searcher.Queries())
	})
}

func TestIdenticalQueryIsIdempotent(t *testing.T) {
	searcher := newRecordingSearcher(t)
	s, sched := newTestSession(t, searcher, 0)

	require.NoError(t, s.OnQueryChanged("BLP"))
	require.NoError(t, s.OnQueryChanged("BLP"))
	assert.Equal(t, 1, sched.Created(), "repeating the query must not restart the interval")

	sched.Fire()
	waitPublished(t, s, "BLP")

	require.NoError(t, s.OnQueryChanged("BLP"))
	assert.Equal(t, Published, s.State())
	assert.Equal(t, 1, sched.Created())
	assert.Equal(t, uint64(1), s.Stats().Passes)
}

func TestSeqTracksLatestCall(t *testing.T) {
	searcher := newRecordingSearcher(t)
	s, sched := newTestSession(t, searcher, 0)

	assert.Zero(t, s.Seq())
	require.NoError(t, s.OnQueryChanged("BL"))
	assert.Equal(t, uint64(1), s.Seq())
	require.NoError(t, s.OnQueryChanged("BL"))
	assert.Equal(t, uint64(1), s.Seq(), "an unchanged query keeps its sequence number")

	s.OnQueryCleared()
	assert.Equal(t, uint64(2), s.Seq())
	s.OnQueryCleared()
	assert.Equal(t, uint64(2), s.Seq(), "clearing an idle session changes nothing")

	require.NoError(t, s.OnQueryChanged("BLP"))
	sched.Fire()
	waitPublished(t, s, "BLP")

	var last Update
	for len(s.Updates()) > 0 {
		last = <-s.Updates()
	}
	assert.Equal(t, "BLP", last.Query)
	assert.Equal(t, s.Seq(), last.Seq)
}

func TestStalePassIsDiscarded(t *testing.T) {
	searcher := newRecordingSearcher(t)
	gate := searcher.Gate("BL")
	s, sched := newTestSession(t, searcher, 0)

	require.NoError(t, s.OnQueryChanged("BL"))
	sched.Fire()
	waitStarted(t, searcher, "BL")
	assert.Equal(t, Matching, s.State())

	require.NoError(t, s.OnQueryChanged("BLP"))
	assert.Equal(t, Debouncing, s.State())

	close(gate)
	require.Eventually(t, func() bool {
		return s.Stats().Discarded == 1
	}, waitFor, tick)
	assert.Empty(t, s.CurrentResults(), "stale results must never become current")
	assert.Equal(t, Debouncing, s.State())

	sched.Fire()
	waitPublished(t, s, "BLP")
	assert.Equal(t, searcher.expected(t, "BLP"), s.CurrentResults())
	assert.Equal(t, []string{"BL", "BLP"}, searcher.Queries())
}

func TestLatestPassWaitsForInflightPass(t *testing.T) {
	searcher := newRecordingSearcher(t)
	gate := searcher.Gate("BL")
	s, sched := newTestSession(t, searcher, 0)

	require.NoError(t, s.OnQueryChanged("BL"))
	sched.Fire()
	waitStarted(t, searcher, "BL")

	require.NoError(t, s.OnQueryChanged("BLP"))
	require.Equal(t, 1, sched.Fire())
	require.Eventually(t, func() bool {
		return s.State() == Matching
	}, waitFor, tick)
	assert.Equal(t, []string{"BL"}, searcher.Queries(), "only one pass may be in flight")

	close(gate)
	waitPublished(t, s, "BLP")

	stats := s.Stats()
	assert.Equal(t, uint64(2), stats.Passes)
	assert.Equal(t, uint64(1), stats.Discarded)
	assert.Equal(t, searcher.expected(t, "BLP"), s.CurrentResults())
}

func TestClearDiscardsInflightPass(t *testing.T) {
	searcher := newRecordingSearcher(t)
	gate := searcher.Gate("BL")
	s, sched := newTestSession(t, searcher, 0)

	require.NoError(t, s.OnQueryChanged("BL"))
	sched.Fire()
	waitStarted(t, searcher, "BL")

	s.OnQueryCleared()
	assert.Equal(t, Idle, s.State())

	close(gate)
	require.Eventually(t, func() bool {
		return s.Stats().Discarded == 1
	}, waitFor, tick)
	assert.Equal(t, Idle, s.State())
	assert.Empty(t, s.CurrentResults())
}

func TestSearchErrorPublishesEmpty(t *testing.T) {
	s, sched := newTestSession(t, failingSearcher{}, 0)

	require.NoError(t, s.OnQueryChanged("BLP"))
	sched.Fire()

	waitPublished(t, s, "BLP")
	assert.Empty(t, s.CurrentResults())
}

func TestUpdatesDropOldest(t *testing.T) {
	searcher := newRecordingSearcher(t)
	s, sched := newTestSession(t, searcher, 1)

	require.NoError(t, s.OnQueryChanged("BL"))
	sched.Fire()
	waitPublished(t, s, "BL")

	require.NoError(t, s.OnQueryChanged("BLP"))
	sched.Fire()
	waitPublished(t, s, "BLP")

	u := <-s.Updates()
	assert.Equal(t, "BLP", u.Query)
	assert.Empty(t, s.Updates())
}

func TestInvalidQuery(t *testing.T) {
	s, sched := newTestSession(t, newRecordingSearcher(t), 0)

	for _, q := range []string{"BL\xff", "BL\x00P"} {
		err := s.OnQueryChanged(q)
		assert.ErrorIs(t, err, ErrInvalidQuery)
		assert.ErrorIs(t, err, match.ErrInvalidQuery)
	}
	assert.Equal(t, Idle, s.State())
	assert.Zero(t, sched.Created())
}

func TestClose(t *testing.T) {
	s, _ := newTestSession(t, newRecordingSearcher(t), 0)

	require.NoError(t, s.OnQueryChanged("BL"))
	s.Close()
	s.Close()

	assert.ErrorIs(t, s.OnQueryChanged("BLP"), ErrClosed)
	s.OnQueryCleared()

	_, ok := <-s.Updates()
	assert.False(t, ok, "updates must be closed")
}

func TestRealScheduler(t *testing.T) {
	searcher := newRecordingSearcher(t)
	s := New(searcher, Options{Quiet: 20 * time.Millisecond, Logger: logger.Discard()})
	defer s.Close()

	for _, q := range []string{"B", "BL", "BLP"} {
		require.NoError(t, s.OnQueryChanged(q))
	}

	waitPublished(t, s, "BLP")
	queries := searcher.Queries()
	require.NotEmpty(t, queries)
	assert.Equal(t, "BLP", queries[len(queries)-1])
	assert.Equal(t, searcher.expected(t, "BLP"), s.CurrentResults())
}

func TestStateString(t *testing.T) {
	testCases := []struct {
		state    State
		expected string
	}{
		{Idle, "idle"},
		{Debouncing, "debouncing"},
		{Matching, "matching"},
		{Published, "published"},
		{State(42), "unknown"},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, tc.state.String())
	}
}
