package types

import (
	stderrors "errors"
	"time"

	"github.com/juju/errors"
)

var (
	_ error = &FatalError{}
	_ error = &RetryError{}
)

// FatalError marks a step failure that retrying cannot fix: the workflow
// configuration itself is wrong. The engine aborts the run on the spot.
type FatalError struct {
	*baseError
}

// RetryError marks a transient step failure. The engine retries the step
// with backoff until the attempt budget runs out. A non-zero Backoff
// overrides the engine's own schedule.
type RetryError struct {
	*baseError
	Backoff time.Duration
}

func NewFatalError(otherErr error) error {
	return &FatalError{baseError: &baseError{otherErr}}
}

func NewFatalErrorf(format string, args ...interface{}) error {
	return NewFatalError(errors.Errorf(format, args...))
}

func NewRetryError(otherErr error, backoff time.Duration) error {
	return &RetryError{baseError: &baseError{otherErr}, Backoff: backoff}
}

func NewRetryErrorf(backoff time.Duration, format string, args ...interface{}) error {
	return NewRetryError(errors.Errorf(format, args...), backoff)
}

// NewMissingFieldError reports a required config field a node does not
// have. Fatal: the graph must be edited.
func NewMissingFieldError(nodeID, field string) error {
	return NewFatalErrorf("node %q missing required field %q", nodeID, field)
}

// NewInvalidValueError reports a config field that is present but
// malformed. Fatal.
func NewInvalidValueError(nodeID, field, reason string) error {
	return NewFatalErrorf("node %q invalid %s: %s", nodeID, field, reason)
}

// NewUpstreamError reports a failure status from a downstream service.
// Transient: the engine retries on its default schedule.
func NewUpstreamError(status int, body string) error {
	const maxBody = 200
	if len(body) > maxBody {
		body = body[:maxBody] + "..."
	}
	return NewRetryErrorf(0, "upstream returned %d: %s", status, body)
}

// NewCyclicGraphError is returned by the sorter when the graph has no
// valid topological order. Surfaced as a configuration error.
func NewCyclicGraphError(remaining int) error {
	return NewFatalErrorf("workflow contains cyclic dependencies: %d node(s) unorderable", remaining)
}

// NewWorkflowNotFoundError means the store had no workflow for id+owner.
func NewWorkflowNotFoundError(workflowID string) error {
	return NewFatalError(errors.NotFoundf("workflow %q", workflowID))
}

// Classify walks the wrapping chain (juju annotations and std wrapping
// alike) and returns the first FatalError or RetryError it finds, or nil
// when the error carries no classification.
func Classify(err error) error {
	for err != nil {
		switch err.(type) {
		case *FatalError, *RetryError:
			return err
		}
		if cause := errors.Cause(err); cause != err {
			err = cause
			continue
		}
		err = stderrors.Unwrap(err)
	}
	return nil
}

func IsFatal(err error) bool {
	_, ok := Classify(err).(*FatalError)
	return ok
}

func IsRetry(err error) bool {
	_, ok := Classify(err).(*RetryError)
	return ok
}

type baseError struct {
	BaseErr error
}

func (e *baseError) Error() string {
	return e.BaseErr.Error()
}

func (e *baseError) Unwrap() error {
	return e.BaseErr
}
