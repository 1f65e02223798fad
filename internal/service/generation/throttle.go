package generation

import "time"

// Throttle limits how often a rapidly changing value is emitted.
//
// The first value is emitted immediately. Later values arriving within the
// interval of the last emission replace a pending value, which becomes due
// when the interval has elapsed. Emissions are therefore at least interval
// apart and the latest value is never lost, so over a stream of duration T at
// most ceil(T/interval)+1 values are emitted.
//
// Throttle is not safe for concurrent use; it is owned by the turn loop.
type Throttle[T any] struct {
	interval   time.Duration
	last       time.Time
	emitted    bool
	pending    T
	hasPending bool
}

// NewThrottle creates a throttle with the given minimum spacing
func NewThrottle[T any](interval time.Duration) *Throttle[T] {
	return &Throttle[T]{interval: interval}
}

// Offer records v at time now. It returns v and true if it should be emitted
// right away; otherwise v is kept as the pending value.
func (t *Throttle[T]) Offer(now time.Time, v T) (T, bool) {
	if !t.emitted || now.Sub(t.last) >= t.interval {
		t.markEmitted(now)
		return v, true
	}
	t.pending = v
	t.hasPending = true
	var zero T
	return zero, false
}

// Due returns the time at which the pending value may be emitted
func (t *Throttle[T]) Due() (time.Time, bool) {
	if !t.hasPending {
		return time.Time{}, false
	}
	return t.last.Add(t.interval), true
}

// Fire returns the pending value if it is due at now
func (t *Throttle[T]) Fire(now time.Time) (T, bool) {
	var zero T
	due, ok := t.Due()
	if !ok || now.Before(due) {
		return zero, false
	}
	v := t.pending
	t.markEmitted(now)
	return v, true
}

func (t *Throttle[T]) markEmitted(now time.Time) {
	var zero T
	t.last = now
	t.emitted = true
	t.pending = zero
	t.hasPending = false
}
