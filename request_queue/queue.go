package request_queue

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"
)

const (
	DefaultMinDelay = 3 * time.Second
	DefaultMaxDelay = 5 * time.Second

	queueCapacity = 100
)

// Config wires the queue to its consumer. Handler runs on the worker
// goroutine; ErrorHandler, when set, receives every item whose handler
// returned an error (handler panics included). Leaving both delays zero
// selects the defaults.
type Config[T any] struct {
	Handler      func(item T) error
	ErrorHandler func(item T, err error)
	MinDelay     time.Duration
	MaxDelay     time.Duration
}

func New[T any](cfg Config[T]) (Queue[T], error) {
	if cfg.Handler == nil {
		return nil, errors.New("missing handler")
	}

	minDelay, maxDelay := cfg.MinDelay, cfg.MaxDelay
	if minDelay == 0 && maxDelay == 0 {
		minDelay, maxDelay = DefaultMinDelay, DefaultMaxDelay
	}
	if minDelay < 0 {
		return nil, errors.New("invalid delay range: min delay is negative")
	}
	if maxDelay < minDelay {
		return nil, errors.New("invalid delay range: max delay below min delay")
	}

	return &queueImpl[T]{
		ch:           make(chan entry[T], queueCapacity),
		handler:      cfg.Handler,
		errorHandler: cfg.ErrorHandler,
		minDelay:     minDelay,
		maxDelay:     maxDelay,
	}, nil
}

// entry wraps queued items so a stop sentinel can travel the same channel.
type entry[T any] struct {
	item T
	stop bool
}

type queueImpl[T any] struct {
	ch           chan entry[T]
	handler      func(item T) error
	errorHandler func(item T, err error)
	minDelay     time.Duration
	maxDelay     time.Duration

	running atomic.Bool

	mu       sync.Mutex
	done     chan struct{}
	stopping bool
}

func (q *queueImpl[T]) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.done != nil {
		return
	}
	q.running.Store(true)
	q.done = make(chan struct{})
	go q.work(q.done)
}

// Stop wakes the worker with a sentinel and blocks until it has exited.
// Buffered items are dropped. Concurrent Stop calls wait for the same
// worker; Stop on a stopped queue is a no-op.
func (q *queueImpl[T]) Stop() {
	q.mu.Lock()
	done := q.done
	driving := done != nil && !q.stopping
	if driving {
		q.stopping = true
	}
	q.mu.Unlock()

	if done == nil {
		return
	}
	if !driving {
		<-done
		return
	}

	q.running.Store(false)
	q.ch <- entry[T]{stop: true}
	<-done

	q.mu.Lock()
	q.done = nil
	q.stopping = false
	q.mu.Unlock()
}

// Enqueue buffers an item without blocking. It works while the queue is
// stopped; the item waits for the next Start or is discarded by Stop.
func (q *queueImpl[T]) Enqueue(item T) error {
	select {
	case q.ch <- entry[T]{item: item}:
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *queueImpl[T]) Len() int {
	return len(q.ch)
}

func (q *queueImpl[T]) work(done chan struct{}) {
	defer close(done)
	defer q.drain()

	for q.running.Load() {
		e := <-q.ch
		if e.stop {
			return
		}
		if err := q.handle(e.item); err != nil && q.errorHandler != nil {
			q.errorHandler(e.item, err)
		}
		if len(q.ch) > 0 {
			q.pause()
		}
	}
}

func (q *queueImpl[T]) handle(item T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return q.handler(item)
}

// drain empties the channel on the way out so stale items and sentinels
// never leak into the next run.
func (q *queueImpl[T]) drain() {
	for {
		select {
		case <-q.ch:
		default:
			return
		}
	}
}

func (q *queueImpl[T]) pause() {
	delay := q.minDelay
	if span := q.maxDelay - q.minDelay; span > 0 {
		delay += time.Duration(rand.Int63n(int64(span) + 1))
	}
	time.Sleep(delay)
}
