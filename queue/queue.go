// queue.go
package queue

import (
	"context"
	"sync"

	"avnotify/errcode"
)

// FallbackBound caps internal storage for "unbounded" queues (maxsize 0) so a
// stalled consumer can never exhaust memory. Beyond it the oldest item is
// dropped, matching a maxlen ring.
const FallbackBound = 20

// Queue is a bounded FIFO with suspension-based backpressure.
//
// Put suspends while the queue holds maxsize items (maxsize > 0); Get suspends
// while it is empty. Order is strict FIFO. Both operations honour context
// cancellation. Among multiple waiters the only guarantee is that all
// eventually proceed when space/items exist; no fairness order is promised.
type Queue[T any] struct {
	mu      sync.Mutex
	buf     []T
	maxsize int

	// Wake channels, closed on broadcast and replaced. Waiters must re-check
	// the queue state in a loop after every wake: a close is level-triggered
	// "something changed", never "your slot is reserved".
	notEmpty chan struct{}
	notFull  chan struct{}
}

// New creates a queue. maxsize > 0 bounds the queue at maxsize items;
// maxsize == 0 means "unbounded" with storage capped at FallbackBound.
// A negative maxsize is an InvalidArgument error.
func New[T any](maxsize int) (*Queue[T], error) {
	if maxsize < 0 {
		return nil, &errcode.E{C: errcode.InvalidArgument, Op: "queue.New", Msg: "maxsize must be non-negative"}
	}
	return &Queue[T]{
		maxsize:  maxsize,
		notEmpty: make(chan struct{}),
		notFull:  make(chan struct{}),
	}, nil
}

// MustNew is New for compile-time-constant sizes.
func MustNew[T any](maxsize int) *Queue[T] {
	q, err := New[T](maxsize)
	if err != nil {
		panic(err)
	}
	return q
}

// Put appends item, suspending while the queue is full.
func (q *Queue[T]) Put(ctx context.Context, item T) error {
	for {
		q.mu.Lock()
		if q.maxsize == 0 || len(q.buf) < q.maxsize {
			if q.maxsize == 0 && len(q.buf) >= FallbackBound {
				// Storage safety valve: drop the oldest item.
				copy(q.buf, q.buf[1:])
				q.buf = q.buf[:len(q.buf)-1]
			}
			q.buf = append(q.buf, item)
			close(q.notEmpty)
			q.notEmpty = make(chan struct{})
			q.mu.Unlock()
			return nil
		}
		wake := q.notFull
		q.mu.Unlock()

		select {
		case <-wake:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Get removes and returns the oldest item, suspending while the queue is empty.
func (q *Queue[T]) Get(ctx context.Context) (T, error) {
	for {
		q.mu.Lock()
		if len(q.buf) > 0 {
			item := q.buf[0]
			var zero T
			q.buf[0] = zero // release the reference
			copy(q.buf, q.buf[1:])
			q.buf = q.buf[:len(q.buf)-1]
			close(q.notFull)
			q.notFull = make(chan struct{})
			q.mu.Unlock()
			return item, nil
		}
		wake := q.notEmpty
		q.mu.Unlock()

		select {
		case <-wake:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

// Qsize returns the current number of queued items.
func (q *Queue[T]) Qsize() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buf)
}

// Empty reports whether the queue holds no items.
func (q *Queue[T]) Empty() bool { return q.Qsize() == 0 }

// Full reports whether the queue holds maxsize items.
// A queue created with maxsize 0 is never full.
func (q *Queue[T]) Full() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.maxsize > 0 && len(q.buf) >= q.maxsize
}
