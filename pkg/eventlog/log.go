package eventlog

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/anjeleno/rdx-rivendell/pkg/logging"
)

// DefaultRingSize is how many recent events are kept for pull-by-sequence
// replay.
const DefaultRingSize = 1024

// Sink receives every published event, e.g. the disk spool or the
// Postgres audit trail. Sinks are invoked synchronously from Publish,
// after subscriber delivery and outside the log's lock, so a slow sink
// delays Publish's return.
type Sink interface {
	Write(Event) error
}

// Log is the append-only event log.
type Log struct {
	log logging.Logger

	mu    sync.RWMutex
	seq   uint64
	ring  []Event
	subs  map[*Subscription]bool
	sinks []Sink
}

// Subscription is one push-style subscriber. Events are delivered on a
// buffered channel; a full channel drops the event for that subscriber
// rather than blocking the publisher (pull by sequence recovers gaps).
type Subscription struct {
	ch        chan Event
	log       *Log
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// New creates an empty log.
func New(log logging.Logger) *Log {
	return &Log{
		log:  log.With(logging.Component("eventlog")),
		ring: make([]Event, 0, DefaultRingSize),
		subs: make(map[*Subscription]bool),
	}
}

// AddSink attaches a durable sink. Sinks added before the first publish
// see every event.
func (l *Log) AddSink(s Sink) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sinks = append(l.sinks, s)
}

// Publish stamps the event with the next sequence number and delivers it.
// Returns the assigned sequence number.
func (l *Log) Publish(ev Event) uint64 {
	l.mu.Lock()
	l.seq++
	ev.Seq = l.seq
	ev.ID = uuid.New()
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}

	if len(l.ring) == cap(l.ring) && cap(l.ring) > 0 {
		copy(l.ring, l.ring[1:])
		l.ring[len(l.ring)-1] = ev
	} else {
		l.ring = append(l.ring, ev)
	}

	// Snapshot subscribers and sinks so delivery happens outside the lock.
	subs := make([]*Subscription, 0, len(l.subs))
	for s := range l.subs {
		subs = append(subs, s)
	}
	sinks := make([]Sink, len(l.sinks))
	copy(sinks, l.sinks)
	l.mu.Unlock()

	for _, s := range subs {
		select {
		case s.ch <- ev:
		default:
			// Subscriber is not keeping up; it can pull the gap later.
		}
	}
	for _, s := range sinks {
		if err := s.Write(ev); err != nil {
			l.log.Warn("event sink write failed", logging.Error(err), logging.Seq(ev.Seq))
		}
	}
	return ev.Seq
}

// Subscribe registers a push subscriber. The subscription ends when the
// context is cancelled or Unsubscribe is called.
func (l *Log) Subscribe(ctx context.Context) *Subscription {
	subCtx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		ch:     make(chan Event, 128),
		log:    l,
		cancel: cancel,
	}

	l.mu.Lock()
	l.subs[sub] = true
	l.mu.Unlock()

	go func() {
		<-subCtx.Done()
		sub.Unsubscribe()
	}()
	return sub
}

// Since returns the retained events with sequence numbers greater than
// seq, oldest first.
func (l *Log) Since(seq uint64) []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []Event
	for _, ev := range l.ring {
		if ev.Seq > seq {
			out = append(out, ev)
		}
	}
	return out
}

// LastSeq returns the most recently assigned sequence number.
func (l *Log) LastSeq() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.seq
}

// Channel returns the subscription's delivery channel.
func (s *Subscription) Channel() <-chan Event {
	return s.ch
}

// Unsubscribe detaches the subscriber and closes its channel. Idempotent.
func (s *Subscription) Unsubscribe() {
	s.cancel()

	s.log.mu.Lock()
	delete(s.log.subs, s)
	s.log.mu.Unlock()

	s.closeOnce.Do(func() {
		close(s.ch)
	})
}
