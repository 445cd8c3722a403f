package client

import (
	"context"
	"math/rand/v2"
	"time"
)

// Backoff computes full-jitter exponential delays between attempts
type Backoff struct {
	Base time.Duration
	Max  time.Duration

	// jitter returns a value in [0, n]; nil uses math/rand
	jitter func(n int64) int64
}

// Ceiling returns min(Max, Base·2^(retry-1)), the upper bound of the wait
// before the given retry (1 for the first retry)
func (b Backoff) Ceiling(retry int) time.Duration {
	if retry < 1 || b.Base <= 0 {
		return 0
	}

	ceiling := b.Base
	for i := 1; i < retry; i++ {
		ceiling *= 2
		if b.Max > 0 && ceiling >= b.Max {
			return b.Max
		}
	}
	if b.Max > 0 && ceiling > b.Max {
		return b.Max
	}
	return ceiling
}

// Delay returns a random wait in [0, Ceiling(retry)]
func (b Backoff) Delay(retry int) time.Duration {
	ceiling := b.Ceiling(retry)
	if ceiling <= 0 {
		return 0
	}
	if b.jitter != nil {
		return time.Duration(b.jitter(int64(ceiling)))
	}
	return time.Duration(rand.Int64N(int64(ceiling) + 1))
}

// wait blocks for d or until ctx is done
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
