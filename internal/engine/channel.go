package engine

import (
	"sync"

	"github.com/deskgenie/genied/internal/model"
)

// subscriberBufferSize is the channel buffer for each log subscriber. A slow
// subscriber never loses events: its pump goroutine falls back to the shared
// buffer cursor, so the buffer only smooths bursts.
const subscriberBufferSize = 64

// LogChannel is the ordered, append-only event stream for one task. One
// producer appends; any number of subscribers read independently. It is safe
// for concurrent use.
//
// Every subscriber replays the full buffered history from the start, so a
// late subscriber (attaching after events were produced, or after the task
// finished) observes exactly the same ordered sequence as an early one. The
// producer never blocks on subscribers: Append only writes to the shared
// buffer and signals pump goroutines, which drain at each subscriber's pace.
// The buffer is unbounded; task lifetimes bound its growth.
type LogChannel struct {
	mu     sync.Mutex
	events []model.LogEvent
	closed bool
	subs   map[int]*logSub
	nextID int
}

type logSub struct {
	// notify carries at most one pending wakeup; the pump re-reads the
	// shared buffer after each one, so coalesced signals are fine.
	notify chan struct{}
	done   chan struct{}
	once   sync.Once
}

// NewLogChannel creates an empty open log channel.
func NewLogChannel() *LogChannel {
	return &LogChannel{
		subs: make(map[int]*logSub),
	}
}

// Append adds an event to the channel and wakes subscribers. Events appended
// after Close are discarded.
func (c *LogChannel) Append(ev model.LogEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.events = append(c.events, ev)
	for _, s := range c.subs {
		s.signal()
	}
}

// Close marks the channel closed. Subscribers drain any remaining buffered
// events and then see end-of-stream. Close is idempotent.
func (c *LogChannel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	for _, s := range c.subs {
		s.signal()
	}
}

// Closed reports whether the channel has been closed.
func (c *LogChannel) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Snapshot returns a copy of all buffered events and the closed flag.
func (c *LogChannel) Snapshot() ([]model.LogEvent, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	events := make([]model.LogEvent, len(c.events))
	copy(events, c.events)
	return events, c.closed
}

// Subscribe returns a channel that replays all buffered events from the start
// and then delivers new events in append order, plus an unsubscribe function.
// The returned channel is closed once the log channel is closed and fully
// drained. Unsubscribe is safe to call multiple times and releases the
// subscription without affecting the producer or other subscribers.
func (c *LogChannel) Subscribe() (<-chan model.LogEvent, func()) {
	s := &logSub{
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	out := make(chan model.LogEvent, subscriberBufferSize)

	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = s
	c.mu.Unlock()

	go c.pump(s, out)

	return out, func() {
		s.once.Do(func() { close(s.done) })
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// pump copies events from the shared buffer into one subscriber's channel,
// tracking its own read cursor. Runs until the channel closes and the cursor
// catches up, or the subscriber goes away.
func (c *LogChannel) pump(s *logSub, out chan<- model.LogEvent) {
	defer close(out)

	cursor := 0
	for {
		c.mu.Lock()
		pending := c.events[cursor:]
		closed := c.closed
		c.mu.Unlock()

		// Events are immutable and the buffer is append-only, so reading
		// the slice outside the lock is safe.
		for _, ev := range pending {
			select {
			case out <- ev:
			case <-s.done:
				return
			}
		}
		cursor += len(pending)

		if closed {
			return
		}

		select {
		case <-s.notify:
		case <-s.done:
			return
		}
	}
}

func (s *logSub) signal() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}
