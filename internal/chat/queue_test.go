package chat

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestQueueKeepsPerSenderOrder(t *testing.T) {
	var (
		mu   sync.Mutex
		seen = map[int64][]int{}
	)
	q := NewQueue(func(ctx context.Context, ev Event) {
		// Early events are slower, so any reordering would show up.
		if ev.MessageID < 5 {
			time.Sleep(time.Millisecond)
		}
		mu.Lock()
		seen[ev.From.ID] = append(seen[ev.From.ID], ev.MessageID)
		mu.Unlock()
	})

	ctx := context.Background()
	for i := 1; i <= 50; i++ {
		for _, user := range []int64{1, 2, 3} {
			q.Push(ctx, Event{From: Sender{ID: user}, MessageID: i})
		}
	}
	q.Wait()

	for _, user := range []int64{1, 2, 3} {
		got := seen[user]
		if len(got) != 50 {
			t.Fatalf("user %d: handled %d events, want 50", user, len(got))
		}
		for i, id := range got {
			if id != i+1 {
				t.Fatalf("user %d: position %d holds message %d", user, i, id)
			}
		}
	}
	if n := q.Pending(); n != 0 {
		t.Errorf("Pending = %d after Wait", n)
	}
}

func TestQueueRunsSendersInParallel(t *testing.T) {
	release := make(chan struct{})
	started := make(chan int64, 2)
	q := NewQueue(func(ctx context.Context, ev Event) {
		started <- ev.From.ID
		<-release
	})

	ctx := context.Background()
	q.Push(ctx, Event{From: Sender{ID: 1}})
	q.Push(ctx, Event{From: Sender{ID: 2}})
	q.Push(ctx, Event{From: Sender{ID: 1}})

	for i := 0; i < 2; i++ {
		select {
		case <-started:
		case <-time.After(time.Second):
			t.Fatal("second sender blocked behind the first")
		}
	}
	if n := q.Pending(); n != 1 {
		t.Errorf("Pending = %d, want 1", n)
	}
	close(release)
	q.Wait()
}

func TestQueueRetiresIdleLanes(t *testing.T) {
	q := NewQueue(func(ctx context.Context, ev Event) {})
	q.Push(context.Background(), Event{From: Sender{ID: 9}})
	q.Wait()

	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.lanes) != 0 {
		t.Errorf("lanes = %d, want 0", len(q.lanes))
	}
}
