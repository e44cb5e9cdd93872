// Package retry provides the one retry policy the server uses, instead of
// ad hoc sleep loops at every call site.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Policy describes bounded retries with exponential backoff.
type Policy struct {
	Attempts   int           // total attempts, including the first
	Delay      time.Duration // delay before the second attempt
	Multiplier float64       // backoff growth factor
}

// DefaultPolicy matches the image upload contract: 3 attempts, 1s base
// delay, doubling.
var DefaultPolicy = Policy{Attempts: 3, Delay: time.Second, Multiplier: 2}

// Do runs fn until it succeeds, attempts are exhausted, or ctx is done.
// Returns the last error.
func (p Policy) Do(ctx context.Context, fn func() error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	delay := p.Delay
	mult := p.Multiplier
	if mult <= 0 {
		mult = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("retry aborted after %d attempts: %w", attempt-1, ctx.Err())
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * mult)
		}
		if err = fn(); err == nil {
			return nil
		}
	}
	return fmt.Errorf("failed after %d attempts: %w", attempts, err)
}
