package unbounded

// entry is a node in the buffer's singly-linked list.
type entry struct {
	v    interface{}
	next *entry
}

// buffer holds items that have been pushed but not yet claimed, in FIFO order.
// Note: buffer must be protected by Queue.mu.
type buffer struct {
	ptr  *entry
	last *entry
	n    int
}

// push appends v to the tail.
func (b *buffer) push(v interface{}) {
	e := &entry{v: v}

	if b.ptr == nil {
		b.ptr = e
		b.last = e
	} else {
		b.last.next = e
		b.last = e
	}
	b.n++
}

// pop removes the head item. ok is false if the buffer is empty.
func (b *buffer) pop() (v interface{}, ok bool) {
	if b.ptr == nil {
		return nil, false
	}

	e := b.ptr
	b.ptr = e.next
	if b.ptr == nil {
		b.last = nil
	}
	b.n--

	v = e.v
	e.v, e.next = nil, nil
	return v, true
}

// empty reports if there are no items.
func (b *buffer) empty() bool {
	return b.ptr == nil
}

// drain unlinks every entry and returns how many there were. The items
// themselves are dropped, not released.
func (b *buffer) drain() int {
	n := 0
	for e := b.ptr; e != nil; {
		next := e.next
		e.v, e.next = nil, nil
		e = next
		n++
	}
	b.ptr, b.last, b.n = nil, nil, 0
	return n
}
