package board

import (
	"sync"
)

// writeQueue runs jobs one at a time per key, in submission order. Jobs for
// different keys run concurrently. A key's worker exits once its lane is
// empty and is started again by the next submission.
type writeQueue struct {
	mu       sync.Mutex
	lanes    map[string][]func()
	inflight sync.WaitGroup
}

func newWriteQueue() *writeQueue {
	return &writeQueue{lanes: make(map[string][]func())}
}

func (q *writeQueue) submit(key string, job func()) {
	q.inflight.Add(1)

	q.mu.Lock()
	lane, running := q.lanes[key]
	q.lanes[key] = append(lane, job)
	q.mu.Unlock()

	if !running {
		go q.worker(key)
	}
}

func (q *writeQueue) worker(key string) {
	for {
		q.mu.Lock()
		lane := q.lanes[key]
		if len(lane) == 0 {
			delete(q.lanes, key)
			q.mu.Unlock()
			return
		}
		job := lane[0]
		lane[0] = nil
		q.lanes[key] = lane[1:]
		q.mu.Unlock()

		job()
		q.inflight.Done()
	}
}

// wait blocks until every submitted job has finished.
func (q *writeQueue) wait() {
	q.inflight.Wait()
}
