package circuitbreaker

import (
	"sync"
	"time"
)

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// CircuitBreaker tracks backend failures in a rolling window. Callers ask
// Allow before touching the backend and report the outcome with Success or
// Failure.
type CircuitBreaker struct {
	maxFailures int
	window      time.Duration
	cooldown    time.Duration
	now         func() time.Time

	mu       sync.Mutex
	state    State
	failures []time.Time
	openedAt time.Time
	probing  bool

	onChange func(from, to State)
}

func NewCircuitBreaker(maxFailures int, cooldown time.Duration) *CircuitBreaker {
	return NewCircuitBreakerWithWindow(maxFailures, cooldown, 60*time.Second)
}

func NewCircuitBreakerWithWindow(maxFailures int, cooldown, window time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		maxFailures: maxFailures,
		window:      window,
		cooldown:    cooldown,
		now:         time.Now,
		state:       StateClosed,
		failures:    make([]time.Time, 0),
	}
}

// OnStateChange registers a callback invoked (outside the lock) on every transition.
func (cb *CircuitBreaker) OnStateChange(fn func(from, to State)) {
	cb.mu.Lock()
	cb.onChange = fn
	cb.mu.Unlock()
}

// Allow reports whether the backend may be called. Once the cooldown has
// elapsed an open breaker lets exactly one probe through.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	from := cb.state
	allowed := true

	switch cb.state {
	case StateOpen:
		if cb.now().Sub(cb.openedAt) >= cb.cooldown {
			cb.state = StateHalfOpen
			cb.probing = true
		} else {
			allowed = false
		}
	case StateHalfOpen:
		if cb.probing {
			allowed = false
		} else {
			cb.probing = true
		}
	}

	to := cb.state
	fn := cb.onChange
	cb.mu.Unlock()

	notify(fn, from, to)
	return allowed
}

func (cb *CircuitBreaker) Success() {
	cb.mu.Lock()
	from := cb.state
	cb.cleanOldFailures(cb.now())
	if cb.state == StateHalfOpen {
		cb.state = StateClosed
		cb.failures = cb.failures[:0]
		cb.probing = false
	}
	to := cb.state
	fn := cb.onChange
	cb.mu.Unlock()

	notify(fn, from, to)
}

func (cb *CircuitBreaker) Failure() {
	cb.mu.Lock()
	from := cb.state
	now := cb.now()
	cb.failures = append(cb.failures, now)
	cb.cleanOldFailures(now)

	if len(cb.failures) > cb.maxFailures || cb.state == StateHalfOpen {
		cb.state = StateOpen
		cb.openedAt = now
		cb.probing = false
	}
	to := cb.state
	fn := cb.onChange
	cb.mu.Unlock()

	notify(fn, from, to)
}

// Release gives back a half-open probe slot taken by a call that was abandoned
// before it learned anything about the backend. The next Allow probes again.
func (cb *CircuitBreaker) Release() {
	cb.mu.Lock()
	if cb.state == StateHalfOpen {
		cb.probing = false
	}
	cb.mu.Unlock()
}

func (cb *CircuitBreaker) cleanOldFailures(now time.Time) {
	cutoff := now.Add(-cb.window)
	i := 0
	for i < len(cb.failures) && !cb.failures[i].After(cutoff) {
		i++
	}
	if i > 0 {
		cb.failures = append(cb.failures[:0], cb.failures[i:]...)
	}
}

func (cb *CircuitBreaker) GetState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func notify(fn func(from, to State), from, to State) {
	if fn != nil && from != to {
		fn(from, to)
	}
}
