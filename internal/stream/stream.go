// Package stream provides a small multicast push stream with
// replay-latest semantics and reference-counted subscriptions.
package stream

import "sync"

// Stream fans a sequence of values out to any number of subscribers.
// The most recent value is replayed to late subscribers. Delivery is
// conflating: a subscriber that does not keep up observes the latest
// value rather than blocking the publisher.
type Stream[T any] struct {
	mu        sync.Mutex
	subs      map[*Subscription[T]]struct{}
	latest    T
	hasLatest bool
	onActive  func()
	onIdle    func()
	closed    bool
}

// Subscription is one listener attached to a Stream.
type Subscription[T any] struct {
	stream *Stream[T]
	ch     chan T
	done   bool
}

// New creates a Stream. onActive runs when the subscriber count goes
// from zero to one, onIdle when it returns to zero. Either may be nil.
// Both run outside the stream's lock.
func New[T any](onActive, onIdle func()) *Stream[T] {
	return &Stream[T]{
		subs:     make(map[*Subscription[T]]struct{}),
		onActive: onActive,
		onIdle:   onIdle,
	}
}

// Publish delivers v to all current subscribers and records it for
// replay. Publish never blocks: each subscription holds only the
// latest undelivered value.
func (s *Stream[T]) Publish(v T) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.latest = v
	s.hasLatest = true
	for sub := range s.subs {
		sub.offer(v)
	}
	s.mu.Unlock()
}

// Latest returns the most recently published value, if any.
func (s *Stream[T]) Latest() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest, s.hasLatest
}

// Subscribe attaches a new listener. If a value has been published,
// it is immediately available on the subscription's channel.
func (s *Stream[T]) Subscribe() *Subscription[T] {
	sub := &Subscription[T]{stream: s, ch: make(chan T, 1)}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(sub.ch)
		sub.done = true
		return sub
	}
	first := len(s.subs) == 0
	s.subs[sub] = struct{}{}
	if s.hasLatest {
		sub.offer(s.latest)
	}
	s.mu.Unlock()

	if first && s.onActive != nil {
		s.onActive()
	}
	return sub
}

// Len returns the current subscriber count.
func (s *Stream[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Close detaches all subscribers and rejects further publishes.
// onIdle is not invoked.
func (s *Stream[T]) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for sub := range s.subs {
		close(sub.ch)
		sub.done = true
	}
	s.subs = make(map[*Subscription[T]]struct{})
	s.mu.Unlock()
}

// Updates returns the channel carrying published values. The channel
// is closed when the subscription is canceled or the stream closed.
func (sub *Subscription[T]) Updates() <-chan T {
	return sub.ch
}

// Cancel detaches the subscription. When the last subscription is
// canceled the stream's onIdle callback runs.
func (sub *Subscription[T]) Cancel() {
	s := sub.stream

	s.mu.Lock()
	if sub.done || s.closed {
		s.mu.Unlock()
		return
	}
	if _, ok := s.subs[sub]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.subs, sub)
	close(sub.ch)
	sub.done = true
	last := len(s.subs) == 0
	s.mu.Unlock()

	if last && s.onIdle != nil {
		s.onIdle()
	}
}

// offer replaces any undelivered value with v. Caller holds the lock.
func (sub *Subscription[T]) offer(v T) {
	select {
	case <-sub.ch:
	default:
	}
	select {
	case sub.ch <- v:
	default:
	}
}
