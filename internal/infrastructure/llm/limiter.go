package llm

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Limiter bounds model traffic process-wide. The budget is calls per sliding
// window; callers block in Acquire until the window opens.
type Limiter struct {
	limiter *rate.Limiter
}

// NewLimiter builds a limiter allowing calls per windowSeconds. The bucket
// starts drained: a fresh process earns its budget at the refill rate, so the
// first window admits at most the configured call count.
func NewLimiter(calls, windowSeconds int) *Limiter {
	perSecond := rate.Limit(float64(calls) / float64(windowSeconds))
	l := rate.NewLimiter(perSecond, calls)
	l.AllowN(time.Now(), calls)
	return &Limiter{limiter: l}
}

// Acquire blocks until a slot is available or the context expires.
func (l *Limiter) Acquire(ctx context.Context) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("llm rate limit: %w", err)
	}
	return nil
}

// Allow reports whether a slot is immediately available, consuming it if so.
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}
