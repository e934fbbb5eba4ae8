package mocks

import (
	"strconv"
	"sync"

	"github.com/mcoot/guessgame/internal/dependencies/random"
)

// MockRandom returns queued strings, falling back to a deterministic sequence
type MockRandom struct {
	mu      sync.Mutex
	queue   []string
	counter int
}

var _ random.Random = (*MockRandom)(nil)

// NewMockRandom creates a new MockRandom
func NewMockRandom() *MockRandom {
	return &MockRandom{}
}

// QueueString queues values for subsequent calls to String
func (r *MockRandom) QueueString(values ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queue = append(r.queue, values...)
}

// String returns the next queued value, or "random-N" once the queue is empty
func (r *MockRandom) String(length int, alphabet string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.queue) > 0 {
		next := r.queue[0]
		r.queue = r.queue[1:]
		return next
	}
	r.counter++
	return "random-" + strconv.Itoa(r.counter)
}
