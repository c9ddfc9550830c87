package engine

import "sync"

// EventType distinguishes between event kinds.
type EventType int

const (
	// EventTypeFilterCommit applies a debounced filter term.
	EventTypeFilterCommit EventType = iota + 1
	// EventTypeScrollFrame applies a coalesced scroll offset.
	EventTypeScrollFrame
	// EventTypeFetchComplete applies a finished remote fetch.
	EventTypeFetchComplete
)

func (t EventType) String() string {
	switch t {
	case EventTypeFilterCommit:
		return "filter_commit"
	case EventTypeScrollFrame:
		return "scroll_frame"
	case EventTypeFetchComplete:
		return "fetch_complete"
	default:
		return "unknown"
	}
}

// Event is one unit of deferred work for the table's writer.
type Event struct {
	Type  EventType
	Seq   int64
	Apply func()
}

// eventQueue is a thread-safe FIFO queue for events.
//
// The queue is unbounded so timer and fetch goroutines never block on a
// slow writer. A buffered signal channel enables context-aware waiting in
// Run.
type eventQueue struct {
	mu     sync.Mutex
	events []Event
	closed bool
	signal chan struct{} // Signals event availability (buffered, size 1)
}

// newEventQueue creates an empty event queue.
func newEventQueue() *eventQueue {
	return &eventQueue{
		events: make([]Event, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds an event to the back of the queue.
// Returns false if the queue is closed.
func (q *eventQueue) Enqueue(e Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.events = append(q.events, e)

	// Signal availability (non-blocking - buffer of 1 coalesces multiple signals)
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue attempts to dequeue without blocking.
// Returns (Event{}, false) if queue is empty.
func (q *eventQueue) TryDequeue() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return Event{}, false
	}

	e := q.events[0]

	// Nil out the slot so the closure can be collected.
	q.events[0] = Event{}

	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}

	return e, true
}

// Wait returns a channel that signals when events may be available.
func (q *eventQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Closed reports whether Close was called.
func (q *eventQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Close signals that no more events will be enqueued.
// Wakes any blocked waiters by closing the signal channel.
func (q *eventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}
