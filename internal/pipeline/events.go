package pipeline

import (
	"context"
	"sync"
	"time"
)

// EventKind classifies stream events.
type EventKind string

const (
	EventLog      EventKind = "log"
	EventProgress EventKind = "progress"
	EventFinished EventKind = "finished"
	EventError    EventKind = "error"
)

// Level is the severity of a log event.
type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// DefaultEventBuffer is the queued event limit before old events are dropped.
const DefaultEventBuffer = 1024

// Event is one message from the engine to the batch consumer.
type Event struct {
	Kind     EventKind `json:"kind"`
	Level    Level     `json:"level,omitempty"`
	Message  string    `json:"message,omitempty"`
	Fraction float64   `json:"fraction,omitempty"`
	File     string    `json:"file,omitempty"`
	Step     string    `json:"step,omitempty"`
	Output   string    `json:"output,omitempty"`
	Time     time.Time `json:"time"`
}

// Terminal reports whether the event ends the stream.
func (e Event) Terminal() bool {
	return e.Kind == EventFinished || e.Kind == EventError
}

// BatchSummary aggregates unit outcomes once the batch has ended.
type BatchSummary struct {
	Total     int      `json:"total"`
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
	Outputs   []string `json:"outputs"`
}

// EventStream carries events from concurrent jobs to a single consumer.
// Sends never block: when the queue is full the oldest non-terminal event is
// dropped. The terminal event is kept aside and delivered exactly once, after
// everything queued before it.
type EventStream struct {
	mu        sync.Mutex
	queue     []Event
	capacity  int
	dropped   int64
	terminal  *Event
	delivered bool
	stopped   bool
	summary   BatchSummary
	notify    chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func newEventStream(capacity int) *EventStream {
	if capacity <= 0 {
		capacity = DefaultEventBuffer
	}
	return &EventStream{
		capacity: capacity,
		notify:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// send queues a non-terminal event.
func (s *EventStream) send(ev Event) {
	s.mu.Lock()
	if s.stopped || s.terminal != nil {
		s.mu.Unlock()
		return
	}
	if len(s.queue) >= s.capacity {
		s.queue = s.queue[1:]
		s.dropped++
	}
	s.queue = append(s.queue, ev)
	s.mu.Unlock()
	s.wake()
}

// finish records the terminal event and summary. Only the first call counts.
func (s *EventStream) finish(ev Event, summary BatchSummary) {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.summary = summary
		if !s.stopped {
			s.terminal = &ev
		}
		s.mu.Unlock()
		close(s.done)
		s.wake()
	})
}

func (s *EventStream) wake() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// TryReceive returns the next event without blocking. ok is false when
// nothing is ready or the terminal event was already delivered.
func (s *EventStream) TryReceive() (Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.queue) > 0 {
		ev := s.queue[0]
		s.queue[0] = Event{}
		s.queue = s.queue[1:]
		return ev, true
	}
	if s.terminal != nil && !s.delivered {
		s.delivered = true
		return *s.terminal, true
	}
	return Event{}, false
}

// Receive blocks for the next event. ok is false once the stream is
// exhausted, stopped, or ctx is done.
func (s *EventStream) Receive(ctx context.Context) (Event, bool) {
	for {
		if ev, ok := s.TryReceive(); ok {
			return ev, true
		}
		if s.exhausted() {
			return Event{}, false
		}
		select {
		case <-s.notify:
		case <-s.done:
			// drain whatever raced in before the terminal event
			if ev, ok := s.TryReceive(); ok {
				return ev, true
			}
			return Event{}, false
		case <-ctx.Done():
			return Event{}, false
		}
	}
}

func (s *EventStream) exhausted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped || s.delivered
}

// Done is closed when the batch has ended, including after Stop.
func (s *EventStream) Done() <-chan struct{} {
	return s.done
}

// Stop detaches the consumer. Queued and future events are discarded; running
// jobs are not interrupted.
func (s *EventStream) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.queue = nil
	s.terminal = nil
	s.mu.Unlock()
	s.wake()
}

// Dropped returns how many non-terminal events were discarded on overflow.
func (s *EventStream) Dropped() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Summary returns the batch outcome. It is zero until Done is closed.
func (s *EventStream) Summary() BatchSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.summary
	out.Outputs = append([]string(nil), s.summary.Outputs...)
	return out
}
