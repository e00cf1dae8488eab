// Command dispatch hands jobs from a set of producers to a pool of workers
// through an unbounded.Queue, the way a shell hands work to its children.
// At the end it checks that every job was run exactly once.
//
// Usage:
//
//	dispatch --producers=4 --consumers=16 --jobs=100000 --mem
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/johnsiilver/handoff/queue/fifo/unbounded"
	"github.com/johnsiilver/handoff/queue/fifo/unbounded/internal/spin"
	"github.com/shirou/gopsutil/process"
	"github.com/spf13/pflag"
)

var (
	producers = pflag.Int("producers", 4, "The number of goroutines enqueueing jobs")
	consumers = pflag.Int("consumers", 16, "The number of worker goroutines dequeueing jobs")
	jobs      = pflag.Int("jobs", 100000, "The total number of jobs to dispatch")
	timeout   = pflag.Duration("timeout", 1*time.Minute, "How long to wait for all jobs to be run")
	mem       = pflag.Bool("mem", false, "Report the process memory after the run")
)

type job struct {
	id       uuid.UUID
	producer int
}

func main() {
	pflag.CommandLine.AddGoFlagSet(flag.CommandLine)
	pflag.Parse()
	defer glog.Flush()

	if *producers < 1 || *consumers < 1 || *jobs < 0 {
		glog.Fatalf("--producers and --consumers must be > 0 and --jobs must be >= 0")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	start := time.Now()
	seen, err := run(ctx, *producers, *consumers, *jobs)
	if err != nil {
		glog.Fatalf("dispatch: %s", err)
	}

	fmt.Printf("dispatched %s jobs from %d producers to %d workers in %v\n", humanize.Comma(int64(*jobs)), *producers, *consumers, time.Since(start))
	fmt.Printf("jobs run: %s\n", humanize.Comma(int64(seen)))

	if *mem {
		if err := reportMem(); err != nil {
			glog.Errorf("could not read process memory: %s", err)
		}
	}
}

// run dispatches n jobs and returns how many the workers ran.
func run(ctx context.Context, producers, consumers, n int) (int, error) {
	q := unbounded.New(unbounded.Name("dispatch"))

	// Start the workers first so that early jobs are handed off directly.
	ran := make(chan job, n)
	wg := sync.WaitGroup{}
	wg.Add(consumers)
	for i := 0; i < consumers; i++ {
		go func() {
			defer wg.Done()
			for {
				v, err := q.DequeueContext(ctx)
				if err != nil {
					return
				}
				j, ok := v.(job)
				if !ok {
					return // Poison pill.
				}
				ran <- j
			}
		}()
	}

	if err := spin.Until(ctx, func() bool { return q.Waiters() == consumers }); err != nil {
		return 0, fmt.Errorf("workers never became ready: %w", err)
	}
	glog.Infof("%d workers waiting", consumers)

	sent := make(map[uuid.UUID]bool, n)
	sentMu := sync.Mutex{}
	pg := sync.WaitGroup{}
	pg.Add(producers)
	for p := 0; p < producers; p++ {
		p := p
		count := n / producers
		if p < n%producers {
			count++
		}
		go func() {
			defer pg.Done()
			for i := 0; i < count; i++ {
				j := job{id: uuid.New(), producer: p}
				sentMu.Lock()
				sent[j.id] = true
				sentMu.Unlock()
				if err := q.Enqueue(j); err != nil {
					glog.Errorf("producer %d: %s", p, err)
					return
				}
			}
		}()
	}
	pg.Wait()

	seen := 0
	for seen < n {
		select {
		case j := <-ran:
			if !sent[j.id] {
				return seen, fmt.Errorf("job %s from producer %d was run twice or never sent", j.id, j.producer)
			}
			delete(sent, j.id)
			seen++
		case <-ctx.Done():
			return seen, fmt.Errorf("only %d of %d jobs were run: %w", seen, n, ctx.Err())
		}
	}

	// Stop the workers. Each one takes exactly one pill.
	for i := 0; i < consumers; i++ {
		if err := q.Enqueue(nil); err != nil {
			return seen, err
		}
	}
	wg.Wait()

	if v := q.Visited(); v != uint64(n+consumers) {
		return seen, fmt.Errorf("queue reports %d round trips, expected %d", v, n+consumers)
	}
	if dropped := q.Destroy(); dropped != 0 {
		return seen, fmt.Errorf("%d items were left in the queue", dropped)
	}
	return seen, nil
}

func reportMem() error {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}
	m, err := p.MemoryInfo()
	if err != nil {
		return err
	}
	fmt.Printf("process RSS: %s\n", humanize.Bytes(m.RSS))
	return nil
}
