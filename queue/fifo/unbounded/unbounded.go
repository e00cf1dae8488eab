/*
Package unbounded holds a blocking FIFO queue that will grow and shrink to
accommodate entries and hands items directly to consumers that are already
waiting.

Producers never block. A consumer that calls Dequeue() on an empty queue
registers itself and sleeps until a producer hands it an item. Waiting
consumers are served in the order they started waiting and items are
received in the order they were enqueued, so FIFO holds end to end even
with many receivers.

Usage is simple:
	q := unbounded.New()

	// This will never block.
	if err := q.Enqueue(item); err != nil {
		// The queue was not initialized or was destroyed.
	}

	// Gets the next item from the queue, but returns !ok if the queue is empty.
	v, ok := q.TryDequeue()
	if !ok {
		fmt.Println("nothing in the queue")
	}

	// This will block until an item becomes available.
	v, err := q.Dequeue()

	// This will block until an item becomes available or ctx is done.
	v, err = q.DequeueContext(ctx)

	// Number of items that have made the full trip through the queue.
	fmt.Println(q.Visited())

	// Tear down. There must be no goroutine blocked in Dequeue().
	q.Destroy()

Lifecycle note:
	Init() and Destroy() must not be called concurrently with each other or with
	any other method. Destroy() panics with ErrActiveWaiters if a consumer is
	still blocked, because that consumer could never be woken.  After Destroy(),
	Init() must be called before the Queue can be used again.

Type customization note:
	You can make this package compiler safe by replacing interface{} with your own custom type and
	importing the library containing that type.
*/
package unbounded

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/golang/glog"
)

var (
	// ErrNotInitialized is returned when the Queue has not had Init() called
	// or has been destroyed.
	ErrNotInitialized = errors.New("unbounded: queue is not initialized")

	// ErrActiveWaiters is the panic value of Destroy() when consumers are still
	// blocked in Dequeue().
	ErrActiveWaiters = errors.New("unbounded: Destroy() called while consumers are waiting")
)

type state int32

const (
	uninitialized state = iota
	ready
	destroyed
)

func (s state) String() string {
	switch s {
	case uninitialized:
		return "uninitialized"
	case ready:
		return "ready"
	case destroyed:
		return "destroyed"
	}
	return "unknown"
}

// Option is an optional argument to New() or Init().
type Option func(q *Queue)

// Name sets the name the Queue uses in log messages.
func Name(name string) Option {
	return func(q *Queue) {
		q.name = name
	}
}

// Queue is an unbounded FIFO queue with direct hand-off to waiting consumers.
// The zero value must have Init() called before use.
// This value must never be copied once initialized (in other words, make it a
// pointer value if shared across func/method boundaries).
type Queue struct {
	// visited counts completed round trips. It is first for 64-bit alignment
	// and is only accessed atomically.
	visited uint64

	mu      sync.Mutex
	state   state
	name    string
	buf     buffer
	waiters registry
}

// New returns an initialized Queue.
func New(options ...Option) *Queue {
	q := &Queue{}
	q.Init(options...)
	return q
}

// Init puts the Queue into an empty, usable state with Visited() == 0.
// It must not be called concurrently with any other method.
func (q *Queue) Init(options ...Option) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.name = "unbounded"
	for _, o := range options {
		o(q)
	}

	if !q.waiters.empty() {
		glog.Errorf("%s: Init() called while %d consumers are waiting", q.name, q.waiters.n)
		panic(ErrActiveWaiters)
	}

	q.buf.drain()
	q.waiters = registry{}
	atomic.StoreUint64(&q.visited, 0)
	q.state = ready

	glog.V(1).Infof("%s: initialized", q.name)
}

// Destroy drops any items still in the Queue and returns how many there were.
// The items are not otherwise touched; the caller still owns them.
// Destroy panics with ErrActiveWaiters if any consumer is blocked in
// Dequeue(). The Queue cannot be used again until Init() is called.
func (q *Queue) Destroy() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.state != ready {
		glog.V(1).Infof("%s: Destroy() on %s queue is a no-op", q.name, q.state)
		return 0
	}

	if !q.waiters.empty() {
		glog.Errorf("%s: Destroy() called while %d consumers are waiting", q.name, q.waiters.n)
		panic(ErrActiveWaiters)
	}

	n := q.buf.drain()
	q.state = destroyed

	glog.V(1).Infof("%s: destroyed, dropped %d buffered items", q.name, n)
	return n
}

// Enqueue adds item to the Queue. If a consumer is waiting, the longest waiting
// consumer receives item directly. This never blocks.
func (q *Queue) Enqueue(item interface{}) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.state != ready {
		return ErrNotInitialized
	}

	if w := q.waiters.next(); w != nil {
		w.assign(item)
		return nil
	}

	q.buf.push(item)
	return nil
}

// Dequeue returns the oldest item in the Queue, blocking until one is available.
func (q *Queue) Dequeue() (interface{}, error) {
	return q.DequeueContext(context.Background())
}

// DequeueContext is like Dequeue() but gives up when ctx is done, returning
// ctx.Err(). If an item was handed to this call at the same time ctx
// finished, the item is returned instead of the error.
func (q *Queue) DequeueContext(ctx context.Context) (interface{}, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.state != ready {
		return nil, ErrNotInitialized
	}

	if v, ok := q.buf.pop(); ok {
		atomic.AddUint64(&q.visited, 1)
		return v, nil
	}

	w := newWaiter()
	q.waiters.add(w)

	for !w.assigned {
		q.mu.Unlock()
		select {
		case <-w.sig.Done():
			q.mu.Lock()
		case <-ctx.Done():
			q.mu.Lock()
			if !w.assigned {
				q.waiters.remove(w)
				return nil, ctx.Err()
			}
		}
	}

	atomic.AddUint64(&q.visited, 1)
	return w.item, nil
}

// TryDequeue returns the oldest item in the Queue. If the Queue is empty or not
// initialized, ok is false. This never blocks.
func (q *Queue) TryDequeue() (val interface{}, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.state != ready {
		return nil, false
	}

	v, ok := q.buf.pop()
	if ok {
		atomic.AddUint64(&q.visited, 1)
	}
	return v, ok
}

// Visited returns the number of items that have been enqueued and then
// dequeued. It does not take the Queue's lock, so it is only advisory while
// other goroutines are using the Queue.
func (q *Queue) Visited() uint64 {
	return atomic.LoadUint64(&q.visited)
}

// Len returns the number of items stored in the Queue. Items handed directly to
// a waiting consumer are never stored.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.buf.n
}

// Waiters returns the number of consumers blocked in Dequeue().
func (q *Queue) Waiters() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.waiters.n
}
