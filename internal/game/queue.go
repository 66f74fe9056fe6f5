package game

import "sync"

// Queue holds wallets waiting for the next match, in join order, without
// duplicates.
type Queue struct {
	mu      sync.Mutex
	entries []string
	index   map[string]struct{}
}

// NewQueue creates an empty queue
func NewQueue() *Queue {
	return &Queue{index: make(map[string]struct{})}
}

// Join appends a wallet to the end of the queue
func (q *Queue) Join(wallet string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.index[wallet]; exists {
		return ErrAlreadyQueued
	}
	q.entries = append(q.entries, wallet)
	q.index[wallet] = struct{}{}
	return nil
}

func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

func (q *Queue) Contains(wallet string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.index[wallet]
	return ok
}

// Players returns a copy of the queued wallets in join order
func (q *Queue) Players() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]string, len(q.entries))
	copy(out, q.entries)
	return out
}

// DrainIfFull removes and returns every entry when exactly quota wallets are
// queued. Otherwise the queue is left untouched.
func (q *Queue) DrainIfFull(quota int) ([]string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if quota <= 0 || len(q.entries) != quota {
		return nil, false
	}
	drained := q.entries
	q.entries = nil
	q.index = make(map[string]struct{})
	return drained, true
}
