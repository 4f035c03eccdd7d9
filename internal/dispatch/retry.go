// File: internal/dispatch/retry.go
package dispatch

import (
	"context"
	"fmt"
	"time"
)

// RetryPolicy retries an operation a fixed number of times with a fixed
// pause. Structured automation calls fail transiently (element not attached
// yet, page mid-navigation), so a couple of cheap retries resolve most of
// them without involving the planner.
type RetryPolicy struct {
	// Retries is the number of additional attempts after the first.
	Retries int
	// Backoff is the fixed pause between attempts.
	Backoff time.Duration
}

// Do runs op until it succeeds, the attempts are spent, or the context is
// canceled. The last error is returned.
func (p RetryPolicy) Do(ctx context.Context, op func() error) error {
	var lastErr error
	attempts := p.Retries + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if lastErr = op(); lastErr == nil {
			return nil
		}
		if attempt < attempts {
			select {
			case <-time.After(p.Backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return fmt.Errorf("after %d attempts: %w", attempts, lastErr)
}
