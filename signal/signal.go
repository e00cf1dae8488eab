/*
Package signal provides a one-shot wakeup for handing control from one goroutine
to exactly one other goroutine.

A Signal starts unfired. Any number of goroutines may call Fire(), but only the
first call has an effect. The goroutine waiting on the Signal does so by
selecting on Done(), which allows it to also watch a context or a timer:

	sig := signal.New()

	go func() {
		// Do some work, then wake up the waiter.
		sig.Fire()
	}()

	select {
	case <-sig.Done():
		fmt.Println("woken up")
	case <-ctx.Done():
		fmt.Println("gave up")
	}

Unlike a condition variable, a Signal cannot wake a waiter spuriously and a
Fire() that happens before the waiter starts waiting is never lost.
*/
package signal

import (
	"sync/atomic"
)

const (
	unfired int32 = 0
	fired   int32 = 1
)

// Signal is a one-shot wakeup. It must be created with New().
type Signal struct {
	state int32
	ch    chan struct{}
}

// New is the constructor for Signal.
func New() *Signal {
	return &Signal{ch: make(chan struct{})}
}

// Fire wakes up anyone waiting on Done(). It returns true if this call was the
// one that fired the Signal.
func (s *Signal) Fire() bool {
	if !atomic.CompareAndSwapInt32(&s.state, unfired, fired) {
		return false
	}
	close(s.ch)
	return true
}

// Done returns a channel that is closed once Fire() has been called.
func (s *Signal) Done() <-chan struct{} {
	return s.ch
}

// Fired reports if Fire() has been called.
func (s *Signal) Fired() bool {
	return atomic.LoadInt32(&s.state) == fired
}
