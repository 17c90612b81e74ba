package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Policy describes how a failing operation is retried.
//
// The zero value is usable: it makes one attempt and never sleeps.
type Policy struct {
	// Retries is the number of attempts after the first one.
	Retries int
	// Initial is the delay before the first retry.
	Initial time.Duration
	// Max caps the delay between attempts. Zero means uncapped.
	Max time.Duration
	// Multiplier grows the delay after every retry. Values below 1 are treated as 1.
	Multiplier float64
	// Notify, if set, is called before each retry sleep.
	Notify func(attempt int, err error, next time.Duration)
}

// Default is the policy used for SSH dials when nothing else is configured.
var Default = Policy{
	Retries:    3,
	Initial:    2 * time.Second,
	Max:        10 * time.Second,
	Multiplier: 2,
}

// Delay returns the sleep before retry number n (1-based).
func (p Policy) Delay(n int) time.Duration {
	if n < 1 {
		return 0
	}
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}
	d := float64(p.Initial)
	for i := 1; i < n; i++ {
		d *= mult
		if p.Max > 0 && d >= float64(p.Max) {
			return p.Max
		}
	}
	if p.Max > 0 && time.Duration(d) > p.Max {
		return p.Max
	}
	return time.Duration(d)
}

// Do runs op until it succeeds, returns a Fatal error, the retries are
// exhausted or ctx is done. op receives the 1-based attempt number.
func (p Policy) Do(ctx context.Context, op func(attempt int) error) error {
	var lastErr error
	for attempt := 1; attempt <= p.Retries+1; attempt++ {
		err := op(attempt)
		if err == nil {
			return nil
		}
		lastErr = err

		if IsFatal(err) {
			return fmt.Errorf("fatal error (not retrying): %w", err)
		}
		if attempt > p.Retries {
			break
		}

		next := p.Delay(attempt)
		if p.Notify != nil {
			p.Notify(attempt, err, next)
		}
		timer := time.NewTimer(next)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("context cancelled after %d attempts: %w", attempt, ctx.Err())
		case <-timer.C:
		}
	}
	return fmt.Errorf("operation failed after %d attempts: %w", p.Retries+1, lastErr)
}

// FatalError marks an error as non-retryable.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string {
	return e.Err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// Fatal marks err as non-retryable. A nil err stays nil.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &FatalError{Err: err}
}

// IsFatal reports whether err carries a FatalError anywhere in its chain.
func IsFatal(err error) bool {
	var fatalErr *FatalError
	return errors.As(err, &fatalErr)
}
