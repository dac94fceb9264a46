package store

import "sync"

// Queue is a bounded FIFO of job ids awaiting dispatch.
// It holds ids only; the jobs themselves live in the JobStore.
type Queue struct {
	mu  sync.Mutex
	ids []int64
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Offer admits one entry if fewer than capacity ids are waiting. The id is
// obtained from alloc, which runs under the queue lock only once admission has
// succeeded, so concurrent offers can never overshoot capacity and a popped id
// always refers to an existing job. Offer reports false when the queue is full.
func (q *Queue) Offer(capacity int, alloc func() int64) (int64, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.ids) >= capacity {
		return 0, false
	}
	id := alloc()
	q.ids = append(q.ids, id)
	return id, true
}

// Pop removes and returns the id at the head of the queue.
func (q *Queue) Pop() (int64, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.ids) == 0 {
		return 0, false
	}
	id := q.ids[0]
	q.ids[0] = 0
	q.ids = q.ids[1:]
	return id, true
}

// Len returns the number of ids awaiting dispatch. Jobs already popped by the
// dispatcher are not counted, even while they are still processing.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ids)
}
