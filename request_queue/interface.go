package request_queue

import "errors"

// ErrQueueFull is returned by Enqueue when the buffer is at capacity.
var ErrQueueFull = errors.New("queue is full")

// Queue hands buffered items to a single worker, pacing consecutive items
// with a randomized delay. Start and Stop may be called repeatedly; Stop
// discards whatever is still buffered.
type Queue[T any] interface {
	Start()
	Stop()
	Enqueue(item T) error
	Len() int
}
