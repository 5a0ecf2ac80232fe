package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func logEvent(msg string) Event {
	return Event{Kind: EventLog, Level: LevelInfo, Message: msg}
}

// TestEventStreamTryReceiveEmpty checks the non-blocking read on an idle stream.
func TestEventStreamTryReceiveEmpty(t *testing.T) {
	s := newEventStream(4)
	_, ok := s.TryReceive()
	assert.False(t, ok)
}

// TestEventStreamDropsOldestOnOverflow checks the bounded queue keeps the newest events.
func TestEventStreamDropsOldestOnOverflow(t *testing.T) {
	s := newEventStream(2)
	s.send(logEvent("one"))
	s.send(logEvent("two"))
	s.send(logEvent("three"))
	s.finish(Event{Kind: EventFinished}, BatchSummary{Total: 1})

	assert.Equal(t, int64(1), s.Dropped())
	var got []string
	for {
		ev, ok := s.TryReceive()
		if !ok {
			break
		}
		got = append(got, string(ev.Kind)+":"+ev.Message)
	}
	assert.Equal(t, []string{"log:two", "log:three", "finished:"}, got)
}

// TestEventStreamSingleTerminal checks only the first terminal event is kept.
func TestEventStreamSingleTerminal(t *testing.T) {
	s := newEventStream(4)
	s.finish(Event{Kind: EventError, Message: "first"}, BatchSummary{})
	s.finish(Event{Kind: EventFinished, Message: "second"}, BatchSummary{})
	s.send(logEvent("late"))

	ev, ok := s.TryReceive()
	require.True(t, ok)
	assert.Equal(t, "first", ev.Message)
	_, ok = s.TryReceive()
	assert.False(t, ok)

	select {
	case <-s.Done():
	default:
		t.Fatal("Done should be closed after finish")
	}
}

// TestEventStreamStopDiscards checks a stopped stream swallows all sends.
func TestEventStreamStopDiscards(t *testing.T) {
	s := newEventStream(4)
	s.send(logEvent("queued"))
	s.Stop()
	s.send(logEvent("after stop"))
	s.finish(Event{Kind: EventFinished}, BatchSummary{Total: 3})

	_, ok := s.TryReceive()
	assert.False(t, ok)
	_, ok = s.Receive(context.Background())
	assert.False(t, ok)
	assert.Equal(t, 3, s.Summary().Total)
}

// TestEventStreamReceiveWaits checks Receive blocks until a producer sends.
func TestEventStreamReceiveWaits(t *testing.T) {
	s := newEventStream(4)
	go func() {
		time.Sleep(10 * time.Millisecond)
		s.send(logEvent("hello"))
		s.finish(Event{Kind: EventFinished}, BatchSummary{})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	first, ok := s.Receive(ctx)
	require.True(t, ok)
	assert.Equal(t, "hello", first.Message)
	last, ok := s.Receive(ctx)
	require.True(t, ok)
	assert.True(t, last.Terminal())
	_, ok = s.Receive(ctx)
	assert.False(t, ok)
}

// TestEventStreamReceiveHonoursContext checks Receive returns when ctx ends.
func TestEventStreamReceiveHonoursContext(t *testing.T) {
	s := newEventStream(4)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, ok := s.Receive(ctx)
	assert.False(t, ok)
}

// TestEventStreamPerProducerOrder checks events from one producer keep send order.
func TestEventStreamPerProducerOrder(t *testing.T) {
	s := newEventStream(1000)
	var wg sync.WaitGroup
	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				s.send(Event{Kind: EventLog, Step: string(rune('a' + p)), Fraction: float64(i)})
			}
		}(p)
	}
	wg.Wait()
	s.finish(Event{Kind: EventFinished}, BatchSummary{})

	last := map[string]float64{}
	for {
		ev, ok := s.TryReceive()
		if !ok {
			break
		}
		if ev.Terminal() {
			continue
		}
		if prev, seen := last[ev.Step]; seen {
			assert.Greater(t, ev.Fraction, prev)
		}
		last[ev.Step] = ev.Fraction
	}
	assert.Len(t, last, 4)
}
