// Package eventbus is the intake queue for focus events reported by
// watchers: a fixed-capacity, lossy-on-overflow channel with the scheduler
// as its single consumer.
package eventbus

import "activitywarden/internal/model"

// Capacity is the number of buffered events retained before the oldest is
// dropped to make room for a new one.
const Capacity = 100

// Bus is a multi-producer, single-consumer queue of focus events.
//
// Buffered channels do not drop their oldest entry when full, so Send
// pops one queued event non-blockingly before enqueuing the new one.
// Lossy intake is acceptable here: the daemon has exactly one consumer
// (the scheduler) and watchers resend on their next focus change
// regardless.
type Bus struct {
	ch chan model.Event
}

// New returns a Bus with the default capacity.
func New() *Bus {
	return NewWithCapacity(Capacity)
}

// NewWithCapacity returns a Bus buffering up to capacity events.
func NewWithCapacity(capacity int) *Bus {
	return &Bus{ch: make(chan model.Event, capacity)}
}

// Send enqueues e, dropping the oldest undelivered event first if the
// buffer is full, and returns the current subscriber count (always 1:
// the scheduler, once it has called Receive).
func (b *Bus) Send(e model.Event) (int, error) {
	select {
	case b.ch <- e:
		return 1, nil
	default:
	}

	select {
	case <-b.ch:
	default:
	}

	select {
	case b.ch <- e:
	default:
		// A concurrent sender refilled the buffer between the drop and
		// this push; the new event is dropped too, which is within the
		// documented lossy-intake contract.
	}
	return 1, nil
}

// Receive returns the channel the scheduler reads events from.
func (b *Bus) Receive() <-chan model.Event {
	return b.ch
}
