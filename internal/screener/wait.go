package screener

import (
	"context"
	"time"
)

// pauser abstracts cooperative waits so tests can intercept them instead of
// sleeping.
type pauser interface {
	Pause(ctx context.Context, delay time.Duration)
}

// timerPauser waits on a real timer, returning early on context
// cancellation.
type timerPauser struct{}

func (timerPauser) Pause(ctx context.Context, delay time.Duration) {
	if delay <= 0 {
		return
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
