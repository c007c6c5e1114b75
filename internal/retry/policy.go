// Package retry provides the backoff policy used for transient search
// backend failures.
package retry

import (
	"fmt"
	"time"
)

// BackoffMode selects how the delay grows between attempts.
type BackoffMode string

const (
	BackoffFixed       BackoffMode = "fixed"
	BackoffLinear      BackoffMode = "linear"
	BackoffExponential BackoffMode = "exponential"
)

// Unbounded as MaxRetries means retry forever. This matches the historical
// behavior of the search synchronizer, which waits out rate limiting with
// no deadline.
const Unbounded = -1

// Policy encapsulates retry/backoff settings for transient failures.
// It is immutable after construction.
type Policy struct {
	Mode    BackoffMode
	Initial time.Duration // base delay
	Max     time.Duration // cap for growth
	// MaxRetries is the maximum retry attempts after the first failure;
	// Unbounded (-1) disables the cap.
	MaxRetries int
}

// DefaultPolicy preserves the synchronizer's historical retry-forever
// behavior: fixed 1s delay, no retry cap.
func DefaultPolicy() Policy {
	return Policy{Mode: BackoffFixed, Initial: time.Second, Max: time.Second, MaxRetries: Unbounded}
}

// NewPolicy builds a policy from raw config fields; zero/invalid values fall
// back to defaults.
func NewPolicy(mode BackoffMode, initial, maxDelay time.Duration, maxRetries int) Policy {
	p := DefaultPolicy()
	p.MaxRetries = maxRetries
	if initial > 0 {
		p.Initial = initial
	}
	if maxDelay > 0 {
		p.Max = maxDelay
	} else {
		p.Max = p.Initial
	}
	switch mode {
	case BackoffFixed, BackoffLinear, BackoffExponential:
		p.Mode = mode
	}
	if p.Initial > p.Max {
		p.Initial = p.Max
	}
	return p
}

// Exhausted reports whether the policy allows no further retry after
// retryCount attempts.
func (p Policy) Exhausted(retryCount int) bool {
	return p.MaxRetries != Unbounded && retryCount > p.MaxRetries
}

// Delay returns the backoff delay for the given retry attempt number
// (1-based: first retry => 1).
func (p Policy) Delay(retryCount int) time.Duration {
	if retryCount <= 0 {
		return 0
	}
	switch p.Mode {
	case BackoffExponential:
		d := p.Initial * (1 << (retryCount - 1))
		if d > p.Max || d <= 0 {
			return p.Max
		}
		return d
	case BackoffLinear:
		d := time.Duration(retryCount) * p.Initial
		if d > p.Max {
			return p.Max
		}
		return d
	default: // fixed
		return p.Initial
	}
}

// Validate ensures invariants; returns an error if the policy cannot be applied.
func (p Policy) Validate() error {
	if p.Initial <= 0 {
		return fmt.Errorf("initial must be >0")
	}
	if p.Max <= 0 {
		return fmt.Errorf("max must be >0")
	}
	if p.MaxRetries < Unbounded {
		return fmt.Errorf("max retries must be >= -1")
	}
	return nil
}
