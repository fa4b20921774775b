package query

import (
	"context"
	"sync/atomic"

	"github.com/gauravkale/ComicsLibrary/internal/observe"
)

// FetchFunc executes one query and returns its payload plus an optional
// attribution string. The context is cancelled when the submission is
// superseded or the machine closes.
type FetchFunc[T any] func(ctx context.Context, query string) (T, string, error)

type outcome[T any] struct {
	gen         uint64
	payload     T
	attribution string
	err         error
}

// Machine runs submissions through FetchFunc and publishes Result states.
//
// Concurrency model mirrors the observable: one event loop owns the
// generation counter and in-flight cancellation, so supersession is decided
// in a single place. Last-submission-wins: a fetch that completes after a
// newer submission was accepted is discarded, regardless of completion order.
type Machine[T any] struct {
	fetch FetchFunc[T]
	state *observe.Value[Result[T]]

	submitCh chan string
	resetCh  chan struct{}
	doneCh   chan outcome[T]
	stopCh   chan struct{}
	stopped  chan struct{}
	closed   atomic.Bool
}

// NewMachine creates a machine in the Initial state.
func NewMachine[T any](fetch FetchFunc[T]) *Machine[T] {
	m := &Machine[T]{
		fetch:    fetch,
		state:    observe.NewValue(Result[T]{Kind: Initial}),
		submitCh: make(chan string),
		resetCh:  make(chan struct{}),
		doneCh:   make(chan outcome[T]),
		stopCh:   make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	go m.run()
	return m
}

func (m *Machine[T]) run() {
	defer close(m.stopped)

	var gen uint64
	var cancel context.CancelFunc

	for {
		select {
		case <-m.stopCh:
			if cancel != nil {
				cancel()
			}
			m.state.Close()
			return

		case q := <-m.submitCh:
			gen++
			if cancel != nil {
				cancel()
			}
			ctx, c := context.WithCancel(context.Background())
			cancel = c

			m.state.Set(Result[T]{Kind: Loading})
			go m.execute(ctx, gen, q)

		case <-m.resetCh:
			gen++
			if cancel != nil {
				cancel()
				cancel = nil
			}
			m.state.Set(Result[T]{Kind: Initial})

		case o := <-m.doneCh:
			if o.gen != gen {
				continue // superseded; never published
			}
			if o.err != nil {
				m.state.Set(Result[T]{Kind: Error, Message: o.err.Error()})
			} else {
				m.state.Set(Result[T]{Kind: Success, Payload: o.payload, Attribution: o.attribution})
			}
		}
	}
}

func (m *Machine[T]) execute(ctx context.Context, gen uint64, q string) {
	payload, attribution, err := m.fetch(ctx, q)
	select {
	case m.doneCh <- outcome[T]{gen: gen, payload: payload, attribution: attribution, err: err}:
	case <-ctx.Done():
		// Superseded while reporting; the loop no longer wants this outcome.
	case <-m.stopCh:
	}
}

// Submit starts a new query attempt, superseding any in-flight one.
// Empty strings are submissions like any other; callers that want an
// empty-query policy implement it above the machine.
func (m *Machine[T]) Submit(q string) {
	if m.closed.Load() {
		return
	}
	select {
	case m.submitCh <- q:
	case <-m.stopped:
	}
}

// Reset cancels any in-flight fetch and returns the state to Initial,
// superseding whatever was running.
func (m *Machine[T]) Reset() {
	if m.closed.Load() {
		return
	}
	select {
	case m.resetCh <- struct{}{}:
	case <-m.stopped:
	}
}

// State returns the observable result of the latest submission.
func (m *Machine[T]) State() *observe.Value[Result[T]] {
	return m.state
}

// Close cancels any in-flight fetch and stops the loop.
func (m *Machine[T]) Close() {
	if m.closed.CompareAndSwap(false, true) {
		close(m.stopCh)
	}
	<-m.stopped
}
