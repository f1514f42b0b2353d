package engine

import (
	"time"

	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"

	"github.com/flowdeck/flowdeck/types"
	"github.com/flowdeck/flowdeck/utils"
)

type StepFunc func(ctx types.Context) (types.Data, error)

// StepRunner owns per-step durability: run the function, decide whether
// a failure is worth another attempt, pause between attempts. It returns
// how many attempts were spent so the step log can record them. Injected
// into the Engine so tests can run with a no-retry fake.
type StepRunner interface {
	RunStep(ctx types.Context, stepID string, fn StepFunc) (types.Data, int, error)
}

// NewRetryRunner builds the default StepRunner: maxAttempts tries per
// step, exponential backoff with jitter between them. Fatal errors are
// never retried; a RetryError carrying its own Backoff overrides the
// schedule.
func NewRetryRunner(maxAttempts int, baseBackoff, maxBackoff time.Duration) StepRunner {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &retryRunner{
		maxAttempts: maxAttempts,
		baseBackoff: baseBackoff,
		maxBackoff:  maxBackoff,
	}
}

type retryRunner struct {
	maxAttempts int
	baseBackoff time.Duration
	maxBackoff  time.Duration
}

func (r *retryRunner) RunStep(ctx types.Context, stepID string, fn StepFunc) (types.Data, int, error) {
	var lastErr error

	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		output, err := runGuarded(ctx, fn)
		if err == nil {
			return output, attempt + 1, nil
		}
		lastErr = err

		if types.IsFatal(err) {
			return nil, attempt + 1, errors.Trace(err)
		}
		if attempt == r.maxAttempts-1 {
			break
		}

		backoff := utils.Backoff(attempt, r.baseBackoff, r.maxBackoff)
		if re, ok := types.Classify(err).(*types.RetryError); ok && re.Backoff > 0 {
			backoff = re.Backoff
		}
		log.Warnf("%s step %s attempt %d/%d failed, retrying in %v: %v",
			ctx.RunID(), stepID, attempt+1, r.maxAttempts, backoff, err)

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, attempt + 1, errors.Trace(ctx.Err())
		}
	}

	return nil, r.maxAttempts, errors.Annotatef(lastErr, "step %s exhausted %d attempts", stepID, r.maxAttempts)
}

// runGuarded turns a handler panic into a fatal step error instead of
// taking the whole process down.
func runGuarded(ctx types.Context, fn StepFunc) (output types.Data, retErr error) {
	defer func() {
		if r := recover(); r != nil {
			retErr = types.NewFatalErrorf("panic in step: %v", r)
		}
	}()
	return fn(ctx)
}
