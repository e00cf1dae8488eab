// Package spin provides objects for assisting with sleeping while waiting for
// a condition to become true.  This is useful in preventing CPU starvation
// when polling for state that has no notification mechanism, such as waiting
// for consumers to register on a queue.
package spin

import (
	"context"
	"runtime"
	"time"
)

// DefaultMaxSleep is the longest a Sleeper will sleep when Max is not set.
const DefaultMaxSleep = 1 * time.Second

// yields is the number of times Sleep() gives up the goroutine before it
// begins to actually sleep.
const yields = 65535

// Sleeper allows sleeping for an increasing time period up to Max
// after giving up a goroutine 2^16 times.
// This is not thread-safe and should be thrown away once the loop the calls it
// is able to perform its function.
type Sleeper struct {
	// Max is the longest single sleep. Defaults to DefaultMaxSleep.
	Max time.Duration

	loop uint16
	at   time.Duration
}

// Sleep at minimum allows another goroutine to be scheduled and after 2^16
// calls will begin to sleep from 1 nanosecond to Max, with each
// call raising the sleep time by a multiple of 10.
func (s *Sleeper) Sleep() {
	if s.loop < yields {
		runtime.Gosched()
		s.loop++
		return
	}

	time.Sleep(s.next())
}

// next returns the next sleep duration and advances the backoff.
func (s *Sleeper) next() time.Duration {
	max := s.Max
	if max <= 0 {
		max = DefaultMaxSleep
	}

	if s.at == 0 {
		s.at = 1 * time.Nanosecond
	}
	d := s.at

	if s.at < max {
		s.at = s.at * 10
		if s.at > max {
			s.at = max
		}
	}
	return d
}

// Until calls cond until it returns true or ctx is done. Between calls it
// uses a Sleeper whose sleeps are capped at 10ms.  It returns ctx.Err() if
// the condition was never met.
func Until(ctx context.Context, cond func() bool) error {
	sleeper := Sleeper{Max: 10 * time.Millisecond}
	for {
		if cond() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		sleeper.Sleep()
	}
}
