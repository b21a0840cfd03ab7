package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shpitdev/fiofix/pkg/logger"
	"github.com/shpitdev/fiofix/pkg/pipeline/core"
	"github.com/shpitdev/fiofix/pkg/pipeline/redact"
)

// tracedCorrector logs every correction attempt with its outcome.
type tracedCorrector struct {
	next core.Corrector
	log  logger.Logger

	mu       sync.Mutex
	attempts map[string]int
}

func newTracedCorrector(next core.Corrector, log logger.Logger) *tracedCorrector {
	return &tracedCorrector{
		next:     next,
		log:      log,
		attempts: make(map[string]int),
	}
}

func (t *tracedCorrector) ApplyCorrection(ctx context.Context, link, newName string) error {
	attempt := t.nextAttempt(link)
	deadlineIn := "none"
	if d, ok := ctx.Deadline(); ok {
		deadlineIn = time.Until(d).Round(time.Millisecond).String()
	}
	t.log.Debug("correction request", "link", link, "new_name", newName, "attempt", attempt, "deadline_in", deadlineIn)

	start := time.Now()
	err := t.next.ApplyCorrection(ctx, link, newName)
	elapsed := time.Since(start).Round(time.Millisecond)
	if err != nil {
		t.log.Warn("correction failed",
			"link", link,
			"attempt", attempt,
			"duration", elapsed,
			"retryable", isRetryable(err),
			"err", redact.Secrets(err.Error()),
		)
		return err
	}
	t.log.Debug("correction accepted", "link", link, "attempt", attempt, "duration", elapsed)
	return nil
}

func (t *tracedCorrector) nextAttempt(link string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.attempts[link]++
	return t.attempts[link]
}

func isRetryable(err error) bool {
	var transient *core.TransientError
	if errors.As(err, &transient) {
		return true
	}
	var limited *core.LimitedTransientError
	return errors.As(err, &limited) || errors.Is(err, context.DeadlineExceeded)
}
