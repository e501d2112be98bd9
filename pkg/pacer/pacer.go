// Package pacer paces outbound calls to HTTP collaborators (inference and
// media sources) with an adaptive token bucket. The rate climbs slowly while
// calls succeed and is cut when the remote side reports overload.
//
// Pacing never retries: a call that fails is reported to the caller as-is.
//
// Example usage:
//
//	p := pacer.New(2, 1, 10, 1, 0.5)
//	if err := p.Wait(ctx); err != nil {
//	    return err
//	}
//	err := doRequest()
//	p.Observe(err)
package pacer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultCooldown is how long after a throttle signal the rate stays flat.
const DefaultCooldown = 10 * time.Second

// Limiter is an adaptive rate limiter. Safe for concurrent use.
type Limiter struct {
	mu           sync.RWMutex
	limiter      *rate.Limiter
	minLimit     rate.Limit
	maxLimit     rate.Limit
	stepUp       rate.Limit
	stepDown     float64
	cooldown     time.Duration
	lastThrottle time.Time
	now          func() time.Time
}

// New creates a Limiter.
//
//   - initial: starting requests per second
//   - min, max: bounds for the adaptive rate
//   - stepUp: increment applied on success
//   - stepDown: multiplier applied on throttle (0.5 halves the rate)
func New(initial, min, max, stepUp rate.Limit, stepDown float64) *Limiter {
	if min < 1 {
		min = 1
	}
	if max < min {
		max = min
	}
	if initial < min {
		initial = min
	}
	if initial > max {
		initial = max
	}
	return &Limiter{
		limiter:  rate.NewLimiter(initial, burstFor(initial)),
		minLimit: min,
		maxLimit: max,
		stepUp:   stepUp,
		stepDown: stepDown,
		cooldown: DefaultCooldown,
		now:      time.Now,
	}
}

// Wait blocks until a token is available or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	l.mu.RLock()
	lim := l.limiter
	l.mu.RUnlock()
	return lim.Wait(ctx)
}

// Success raises the rate unless a throttle was seen within the cooldown.
func (l *Limiter) Success() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.now().Sub(l.lastThrottle) > l.cooldown {
		l.adjust(l.limiter.Limit() + l.stepUp)
	}
}

// Throttled lowers the rate after an overload signal.
func (l *Limiter) Throttled() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lastThrottle = l.now()
	l.adjust(rate.Limit(float64(l.limiter.Limit()) * l.stepDown))
}

// Observe feeds the outcome of one call back into the limiter. Errors that
// are not overload signals leave the rate unchanged.
func (l *Limiter) Observe(err error) {
	switch {
	case err == nil:
		l.Success()
	case IsRateLimited(err), IsServerError(err):
		l.Throttled()
	}
}

// Limit returns the current requests per second.
func (l *Limiter) Limit() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return float64(l.limiter.Limit())
}

func (l *Limiter) adjust(next rate.Limit) {
	if next > l.maxLimit {
		next = l.maxLimit
	} else if next < l.minLimit {
		next = l.minLimit
	}
	if next != l.limiter.Limit() {
		l.limiter.SetLimit(next)
		l.limiter.SetBurst(burstFor(next))
	}
}

func burstFor(r rate.Limit) int {
	if b := int(r); b > 1 {
		return b
	}
	return 1
}

// HTTPError is implemented by errors that carry an HTTP status code.
type HTTPError interface {
	error
	StatusCode() int
}

// StatusError is returned by collaborator clients for non-2xx responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("http status %d", e.Code)
	}
	return fmt.Sprintf("http status %d: %s", e.Code, e.Body)
}

func (e *StatusError) StatusCode() int { return e.Code }

// IsRateLimited reports whether err (or anything it wraps) is an HTTP 429.
func IsRateLimited(err error) bool {
	var he HTTPError
	if errors.As(err, &he) {
		return he.StatusCode() == http.StatusTooManyRequests
	}
	return false
}

// IsServerError reports whether err (or anything it wraps) is an HTTP 5xx.
func IsServerError(err error) bool {
	var he HTTPError
	if errors.As(err, &he) {
		code := he.StatusCode()
		return code >= 500 && code < 600
	}
	return false
}
