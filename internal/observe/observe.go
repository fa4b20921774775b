// Package observe provides a conflating observable value: any number of
// subscribers see the latest published value, and a subscriber that is not
// draining updates misses intermediate ones rather than accumulating a backlog.
package observe

import "sync/atomic"

// Value holds one observable value of type T.
//
// Concurrency model: a single internal event loop (goroutine) owns mutable
// state (current value + subscriber set). Public methods communicate with this
// loop through channels, so no mutexes are required.
type Value[T any] struct {
	setCh   chan T
	getCh   chan chan T
	subCh   chan chan T
	unsubCh chan chan T

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewValue creates an observable initialized to the given value.
func NewValue[T any](initial T) *Value[T] {
	v := &Value[T]{
		setCh:   make(chan T),
		getCh:   make(chan chan T),
		subCh:   make(chan chan T),
		unsubCh: make(chan chan T),
		stopCh:  make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go v.run(initial)
	return v
}

func (v *Value[T]) run(current T) {
	defer close(v.stopped)

	subs := make(map[chan T]struct{})

	for {
		select {
		case <-v.stopCh:
			for ch := range subs {
				close(ch)
			}
			return

		case next := <-v.setCh:
			current = next
			for ch := range subs {
				conflate(ch, next)
			}

		case resp := <-v.getCh:
			resp <- current

		case ch := <-v.subCh:
			// A new subscriber immediately observes the latest value.
			ch <- current
			subs[ch] = struct{}{}

		case ch := <-v.unsubCh:
			if _, ok := subs[ch]; ok {
				delete(subs, ch)
				close(ch)
			}
		}
	}
}

// conflate delivers next on ch, displacing an undrained older value.
// Only the loop goroutine sends on or drains subscriber channels, so the
// drain-then-send sequence cannot race with another producer.
func conflate[T any](ch chan T, next T) {
	for {
		select {
		case ch <- next:
			return
		default:
			select {
			case <-ch:
			default:
			}
		}
	}
}

// Set publishes a new value to all subscribers.
func (v *Value[T]) Set(next T) {
	if v.closed.Load() {
		return
	}
	select {
	case v.setCh <- next:
	case <-v.stopped:
	}
}

// Get returns the current value. After Close it returns the zero value.
func (v *Value[T]) Get() T {
	var zero T
	if v.closed.Load() {
		return zero
	}

	resp := make(chan T, 1)
	select {
	case v.getCh <- resp:
	case <-v.stopped:
		return zero
	}

	select {
	case cur := <-resp:
		return cur
	case <-v.stopped:
		return zero
	}
}

// Subscribe registers a new subscriber and returns its channel. The channel
// carries the current value immediately and the latest value after each Set;
// it is closed by Unsubscribe or Close.
func (v *Value[T]) Subscribe() chan T {
	ch := make(chan T, 1)
	if v.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case v.subCh <- ch:
	case <-v.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (v *Value[T]) Unsubscribe(ch chan T) {
	if v.closed.Load() {
		return
	}
	select {
	case v.unsubCh <- ch:
	case <-v.stopped:
	}
}

// Close stops the event loop and closes all subscriber channels.
func (v *Value[T]) Close() {
	if v.closed.CompareAndSwap(false, true) {
		close(v.stopCh)
	}
	<-v.stopped
}
