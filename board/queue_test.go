package board

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestWriteQueueKeepsOrderPerKey(t *testing.T) {
	q := newWriteQueue()

	var mu sync.Mutex
	got := map[string][]int{}
	for i := 0; i < 50; i++ {
		for _, key := range []string{"a", "b"} {
			q.submit(key, func() {
				mu.Lock()
				got[key] = append(got[key], i)
				mu.Unlock()
			})
		}
	}
	q.wait()

	for _, key := range []string{"a", "b"} {
		if len(got[key]) != 50 {
			t.Fatalf("key %s: expected 50 jobs, got %d", key, len(got[key]))
		}
		for i, v := range got[key] {
			if v != i {
				t.Fatalf("key %s: job %d ran at position %d", key, v, i)
			}
		}
	}
}

func TestWriteQueueRunsKeysConcurrently(t *testing.T) {
	q := newWriteQueue()
	release := make(chan struct{})
	done := make(chan struct{})

	q.submit("slow", func() { <-release })
	q.submit("fast", func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("job for another key was blocked")
	}
	close(release)
	q.wait()
}

func TestWriteQueueSerializesSameKey(t *testing.T) {
	q := newWriteQueue()
	var running, peak atomic.Int32

	for i := 0; i < 20; i++ {
		q.submit("card", func() {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			running.Add(-1)
		})
	}
	q.wait()

	if peak.Load() != 1 {
		t.Fatalf("expected one job at a time, peak was %d", peak.Load())
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.lanes) != 0 {
		t.Fatalf("idle lanes must be released, got %d", len(q.lanes))
	}
}
