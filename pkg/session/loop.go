package session

import (
	"time"

	"github.com/bastiangx/battserve/pkg/catalog"
)

type eventKind int

const (
	evQuery eventKind = iota
	evClear
	evTimer
	evPassDone
)

type event struct {
	kind    eventKind
	query   string
	seq     uint64
	results []*catalog.Record
	err     error
	elapsed time.Duration
	// ack is closed once the event was applied and the snapshot stored
	ack chan struct{}
}

// loop is the state owned by the event-loop goroutine. Nothing else touches it.
type loop struct {
	s *Session

	state   State
	query   string
	seq     uint64
	results []*catalog.Record
	timer   Timer

	// running is set while a pass is in flight
	running bool
	// pending is set when the latest pass is due but another one still runs
	pending bool
}

func (l *loop) run() {
	defer close(l.s.stopped)
	for {
		select {
		case <-l.s.done:
			l.stopTimer()
			return
		case ev := <-l.s.events:
			l.handle(ev)
			l.s.snap.Store(&snapshot{
				state:   l.state,
				query:   l.query,
				seq:     l.seq,
				results: l.results,
			})
			if ev.ack != nil {
				close(ev.ack)
			}
		}
	}
}

func (l *loop) handle(ev event) {
	switch ev.kind {
	case evQuery:
		l.queryChanged(ev.query)
	case evClear:
		l.clear()
	case evTimer:
		l.timerFired(ev.seq)
	case evPassDone:
		l.passDone(ev)
	}
}

func (l *loop) queryChanged(q string) {
	if q == l.query && l.state != Idle {
		l.s.logger.Debugf("Query %q unchanged, ignoring", q)
		return
	}

	l.stopTimer()
	l.seq++
	l.query = q
	l.state = Debouncing

	seq := l.seq
	l.timer = l.s.scheduler.AfterFunc(l.s.quiet, func() {
		l.s.post(event{kind: evTimer, seq: seq})
	})
}

func (l *loop) clear() {
	l.stopTimer()
	l.pending = false
	if l.state == Idle {
		return
	}

	// bumping seq turns any in-flight pass stale
	l.seq++
	l.query = ""
	l.results = nil
	l.state = Idle
	l.publish(Update{Seq: l.seq})
}

func (l *loop) timerFired(seq uint64) {
	// a timer may fire after Stop lost the race; only the latest one counts
	if seq != l.seq || l.state != Debouncing {
		l.s.logger.Debugf("Dropping stale timer #%d", seq)
		return
	}

	l.timer = nil
	l.state = Matching
	if l.running {
		l.pending = true
		return
	}
	l.startPass()
}

func (l *loop) startPass() {
	l.running = true
	l.pending = false
	l.s.passes.Add(1)

	seq, query := l.seq, l.query
	searcher := l.s.searcher
	go func() {
		start := time.Now()
		results, err := searcher.Search(query)
		l.s.post(event{
			kind:    evPassDone,
			seq:     seq,
			query:   query,
			results: results,
			err:     err,
			elapsed: time.Since(start),
		})
	}()
}

func (l *loop) passDone(ev event) {
	l.running = false

	if ev.seq != l.seq {
		l.s.discarded.Add(1)
		l.s.logger.Debugf("Discarding pass #%d for %q, latest is #%d", ev.seq, ev.query, l.seq)
		if l.pending {
			l.startPass()
		}
		return
	}

	results := ev.results
	if ev.err != nil {
		l.s.logger.Warnf("Matching %q: %v", ev.query, ev.err)
		results = nil
	}

	l.results = results
	l.state = Published
	l.publish(Update{
		Seq:     ev.seq,
		Query:   ev.query,
		Results: results,
		Elapsed: ev.elapsed,
	})
}

// publish delivers u without blocking the loop, dropping the oldest
// undelivered update when the consumer lags
func (l *loop) publish(u Update) {
	l.s.published.Add(1)
	select {
	case l.s.updates <- u:
		return
	default:
	}
	select {
	case <-l.s.updates:
	default:
	}
	select {
	case l.s.updates <- u:
	default:
	}
}

func (l *loop) stopTimer() {
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
}
