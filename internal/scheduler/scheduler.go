// Package scheduler implements the cooperative main loop of spec.md §4.F:
// interleaving queued messages, document stepping, and the interrupt flag
// that lets a running prover step yield promptly when new work arrives.
//
// Scheduler is deliberately generic over what a "message" is and how it is
// dispatched or stepped: it owns only the Message Queue, the wake
// semaphore, and the pop-dispatch-or-step control flow. The lsp package
// supplies the dispatch and step callbacks, keeping this package free of
// any JSON-RPC or LSP-specific type.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// StepFunc advances one unit of background work (spec.md's document step).
// It returns true if it found and performed work, false if there was
// nothing to do — in which case the scheduler may block until the next
// Push.
type StepFunc func() bool

// DispatchFunc handles one popped message.
type DispatchFunc[M any] func(M)

// Scheduler owns the Message Queue, the Interrupt Flag, and the main loop.
//
// Exactly one goroutine should call [Scheduler.Run]; any number of
// goroutines may call [Scheduler.Push] concurrently (spec.md §5: the
// reader context is the sole producer in practice, but Push itself is
// safe for multiple producers).
type Scheduler[M any] struct {
	mu    sync.Mutex
	queue []M

	wake chan struct{}

	// interrupt is shared with the prover: Push sets it so an in-flight
	// step observes new work and unwinds as Suspended; Run clears it
	// before attempting a step, per spec.md §4.F's interrupt contract.
	interrupt *atomic.Bool

	dispatch DispatchFunc[M]
	step     StepFunc
	logger   *slog.Logger
}

// New returns a Scheduler. interrupt is the flag the prover polls at
// cooperative checkpoints (typically prover.Prover.InterruptFlag()).
func New[M any](interrupt *atomic.Bool, dispatch DispatchFunc[M], step StepFunc, logger *slog.Logger) *Scheduler[M] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler[M]{
		wake:      make(chan struct{}, 1),
		interrupt: interrupt,
		dispatch:  dispatch,
		step:      step,
		logger:    logger,
	}
}

// Push enqueues msg and sets the interrupt flag, per spec.md §4.F: "The
// reader, on pushing any message, sets the Interrupt Flag." Safe to call
// from any goroutine.
func (s *Scheduler[M]) Push(msg M) {
	s.mu.Lock()
	s.queue = append(s.queue, msg)
	s.mu.Unlock()

	s.interrupt.Store(true)

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Scheduler[M]) pop() (M, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var zero M
	if len(s.queue) == 0 {
		return zero, false
	}
	m := s.queue[0]
	s.queue = s.queue[1:]
	return m, true
}

// Len reports the number of queued, not-yet-dispatched messages.
func (s *Scheduler[M]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Run executes the main loop until ctx is done: pop and dispatch a queued
// message if one is waiting; otherwise clear the interrupt flag and
// attempt one step of background work; if there was no work to do either,
// block until the next Push or ctx cancellation.
func (s *Scheduler[M]) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		if msg, ok := s.pop(); ok {
			s.dispatch(msg)
			continue
		}

		s.interrupt.Store(false)
		if s.step() {
			continue
		}

		select {
		case <-s.wake:
		case <-ctx.Done():
			return
		}
	}
}
