package syncer

import (
	"context"
	"math"
	"time"
)

// retryWithBackoff runs fn up to attempts times, waiting factor^n seconds
// between tries. The last error is returned when every attempt fails.
func retryWithBackoff(ctx context.Context, attempts int, factor float64, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		delay := time.Duration(math.Pow(factor, float64(i+1)) * float64(time.Second))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return err
}

// sleep pauses for d unless the context ends first.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
