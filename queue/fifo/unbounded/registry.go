package unbounded

import (
	"github.com/johnsiilver/handoff/signal"
)

// waiter represents a single blocked Dequeue call. It lives only as long as
// that call.
type waiter struct {
	sig *signal.Signal

	// item and assigned are set by the producer that hands off to this waiter.
	item     interface{}
	assigned bool

	// listed is true while the waiter is linked into a registry.
	listed     bool
	prev, next *waiter
}

func newWaiter() *waiter {
	return &waiter{sig: signal.New()}
}

// assign hands v to the waiter and wakes it up. The waiter must already be
// removed from the registry.
func (w *waiter) assign(v interface{}) {
	w.item = v
	w.assigned = true
	w.sig.Fire()
}

// registry is the FIFO list of blocked consumers. It is doubly linked so a
// waiter that gives up can remove itself from the middle.
// Note: registry must be protected by Queue.mu.
type registry struct {
	head, tail *waiter
	n          int
}

// add appends w to the tail.
func (r *registry) add(w *waiter) {
	w.prev = r.tail
	w.next = nil
	if r.tail == nil {
		r.head = w
	} else {
		r.tail.next = w
	}
	r.tail = w
	w.listed = true
	r.n++
}

// next removes and returns the longest waiting waiter, or nil if there are none.
func (r *registry) next() *waiter {
	w := r.head
	if w == nil {
		return nil
	}
	r.remove(w)
	return w
}

// remove unlinks w. It is a no-op if w is not in the registry.
func (r *registry) remove(w *waiter) {
	if !w.listed {
		return
	}

	if w.prev == nil {
		r.head = w.next
	} else {
		w.prev.next = w.next
	}
	if w.next == nil {
		r.tail = w.prev
	} else {
		w.next.prev = w.prev
	}
	w.prev, w.next = nil, nil
	w.listed = false
	r.n--
}

func (r *registry) empty() bool {
	return r.head == nil
}
