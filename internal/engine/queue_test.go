package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventQueue_FIFO(t *testing.T) {
	q := newEventQueue()

	var got []int64
	for i := int64(1); i <= 3; i++ {
		require.True(t, q.Enqueue(Event{Type: EventTypeScrollFrame, Seq: i}))
	}
	for {
		e, ok := q.TryDequeue()
		if !ok {
			break
		}
		got = append(got, e.Seq)
	}
	assert.Equal(t, []int64{1, 2, 3}, got)
}

func TestEventQueue_TryDequeue_Empty(t *testing.T) {
	q := newEventQueue()

	_, ok := q.TryDequeue()
	assert.False(t, ok, "dequeue from empty queue should return false")
}

func TestEventQueue_WaitSignalsEnqueue(t *testing.T) {
	q := newEventQueue()
	q.Enqueue(Event{Type: EventTypeFilterCommit})

	select {
	case <-q.Wait():
	case <-time.After(time.Second):
		t.Fatal("no signal after enqueue")
	}
}

func TestEventQueue_CloseWakesWaiters(t *testing.T) {
	q := newEventQueue()
	woke := make(chan struct{})
	go func() {
		<-q.Wait()
		close(woke)
	}()

	q.Close()
	select {
	case <-woke:
	case <-time.After(time.Second):
		t.Fatal("close did not wake waiter")
	}
	assert.True(t, q.Closed())
	q.Close() // idempotent
}

func TestEventQueue_Enqueue_AfterClose(t *testing.T) {
	q := newEventQueue()
	q.Close()

	ok := q.Enqueue(Event{Type: EventTypeFetchComplete})
	assert.False(t, ok, "enqueue after close should return false")
}

func TestEventQueue_Len(t *testing.T) {
	q := newEventQueue()

	assert.Equal(t, 0, q.Len())
	q.Enqueue(Event{Type: EventTypeScrollFrame})
	q.Enqueue(Event{Type: EventTypeScrollFrame})
	assert.Equal(t, 2, q.Len())

	q.TryDequeue()
	assert.Equal(t, 1, q.Len())
	q.TryDequeue()
	assert.Equal(t, 0, q.Len())
}

func TestEventQueue_ThreadSafe(t *testing.T) {
	q := newEventQueue()

	const producers = 10
	const eventsPerProducer = 100

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < eventsPerProducer; i++ {
				q.Enqueue(Event{Type: EventTypeFetchComplete})
			}
		}()
	}
	wg.Wait()

	n := 0
	for {
		if _, ok := q.TryDequeue(); !ok {
			break
		}
		n++
	}
	assert.Equal(t, producers*eventsPerProducer, n)
}

func TestEventType_String(t *testing.T) {
	assert.Equal(t, "filter_commit", EventTypeFilterCommit.String())
	assert.Equal(t, "scroll_frame", EventTypeScrollFrame.String())
	assert.Equal(t, "fetch_complete", EventTypeFetchComplete.String())
	assert.Equal(t, "unknown", EventType(0).String())
}
