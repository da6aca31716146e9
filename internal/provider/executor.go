package provider

import (
	"context"
	"sync"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"

	"github.com/oshokin/alert-hub/internal/logger"
)

// Executor runs provider tasks. Go must not block the caller.
type Executor interface {
	// Go schedules task.
	Go(task func())
	// Close waits for scheduled tasks to finish.
	Close()
}

// Pool runs every task on its own goroutine, optionally capped.
type Pool struct {
	wg  conc.WaitGroup
	sem chan struct{}
}

// NewPool returns an unbounded pool that grows on demand.
func NewPool() *Pool {
	return new(Pool)
}

// NewBoundedPool returns a pool running at most size tasks at a time.
// Excess tasks wait on their own goroutine, so Go still never blocks.
// A non-positive size yields an unbounded pool.
func NewBoundedPool(size int) *Pool {
	if size <= 0 {
		return NewPool()
	}

	return &Pool{
		sem: make(chan struct{}, size),
	}
}

// Go implements Executor.
func (p *Pool) Go(task func()) {
	p.wg.Go(func() {
		if p.sem != nil {
			p.sem <- struct{}{}
			defer func() { <-p.sem }()
		}

		runTask(task)
	})
}

// Close implements Executor. The pool keeps accepting tasks afterwards.
func (p *Pool) Close() {
	p.wg.Wait()
}

// Serial runs tasks one at a time, in submission order, on a single worker.
// Its queue is unbounded so tasks may schedule further tasks on it.
type Serial struct {
	mu     sync.Mutex
	queue  []func()
	closed bool
	wake   chan struct{}
	done   chan struct{}
}

// NewSerial starts a single-worker executor.
func NewSerial() *Serial {
	s := &Serial{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}

	go s.run()

	return s
}

// Go implements Executor. Tasks submitted after Close are dropped.
func (s *Serial) Go(task func()) {
	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()
		logger.Warn(context.Background(), "Serial executor is closed, task dropped")

		return
	}

	s.queue = append(s.queue, task)
	s.mu.Unlock()

	s.signal()
}

// Close implements Executor: queued tasks run, then the worker exits.
// It must not be called from a task running on s.
func (s *Serial) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.signal()
	<-s.done
}

func (s *Serial) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Serial) run() {
	defer close(s.done)

	for {
		s.mu.Lock()

		if len(s.queue) == 0 {
			closed := s.closed
			s.mu.Unlock()

			if closed {
				return
			}

			<-s.wake

			continue
		}

		task := s.queue[0]
		s.queue[0] = nil
		s.queue = s.queue[1:]
		s.mu.Unlock()

		runTask(task)
	}
}

// runTask keeps a panicking task from taking its worker down.
func runTask(task func()) {
	var catcher panics.Catcher

	catcher.Try(task)

	if recovered := catcher.Recovered(); recovered != nil {
		logger.ErrorKV(context.Background(), "Executor task panicked", "error", recovered.AsError())
	}
}

// invoke calls an observer and turns a panic into an error.
func invoke(call func() error) (err error) {
	var catcher panics.Catcher

	catcher.Try(func() { err = call() })

	if recovered := catcher.Recovered(); recovered != nil {
		return recovered.AsError()
	}

	return err
}
