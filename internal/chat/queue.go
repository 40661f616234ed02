package chat

import (
	"context"
	"sync"
)

// Queue hands events to a handler one at a time per sender, in the order
// they were pushed. Events of different senders are handled in parallel.
//
// Each sender gets a lane drained by its own goroutine. The goroutine exits
// as soon as the lane is empty, so idle users cost nothing.
type Queue struct {
	handle func(context.Context, Event)

	mu    sync.Mutex
	lanes map[int64][]Event
	wg    sync.WaitGroup
}

// NewQueue creates a queue that runs handle for every pushed event.
func NewQueue(handle func(context.Context, Event)) *Queue {
	return &Queue{
		handle: handle,
		lanes:  make(map[int64][]Event),
	}
}

// Push appends ev to its sender's lane. It never blocks on the handler.
func (q *Queue) Push(ctx context.Context, ev Event) {
	id := ev.From.ID

	q.mu.Lock()
	defer q.mu.Unlock()

	if pending, ok := q.lanes[id]; ok {
		q.lanes[id] = append(pending, ev)
		return
	}
	q.lanes[id] = []Event{ev}
	q.wg.Add(1)
	go q.drain(ctx, id)
}

func (q *Queue) drain(ctx context.Context, id int64) {
	defer q.wg.Done()
	for {
		q.mu.Lock()
		pending := q.lanes[id]
		if len(pending) == 0 {
			delete(q.lanes, id)
			q.mu.Unlock()
			return
		}
		ev := pending[0]
		q.lanes[id] = pending[1:]
		q.mu.Unlock()

		q.handle(ctx, ev)
	}
}

// Pending reports how many events are queued but not yet started.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, pending := range q.lanes {
		n += len(pending)
	}
	return n
}

// Wait blocks until every pushed event has been handled.
func (q *Queue) Wait() {
	q.wg.Wait()
}
