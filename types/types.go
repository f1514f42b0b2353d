package types

import (
	"context"
)

type StatusType int32

const (
	None    StatusType = 0
	Pending StatusType = 1
	Running StatusType = 2
	// FailedFatal means a step returned a non-retriable error and the run
	// was aborted immediately.
	FailedFatal StatusType = 5
	// FailedRetries means a step kept failing with transient errors until
	// the attempt budget ran out.
	FailedRetries StatusType = 6
	Completed     StatusType = 10
)

func (s StatusType) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case FailedFatal:
		return "failed_fatal"
	case FailedRetries:
		return "failed_retries"
	case Completed:
		return "completed"
	}
	return "none"
}

// Context is handed to every node handler. It carries the standard
// context.Context plus the identity of the run the handler belongs to.
type Context interface {
	context.Context

	RunID() string
}

// RunResult is what Engine.Execute returns to its caller. On failure,
// FailedNodeID and FailedNodeType identify the step that broke the run so
// the graph can be debugged without server logs.
type RunResult struct {
	Status    StatusType `json:"status"`
	Result    Data       `json:"result,omitempty"`
	NodeCount int        `json:"nodeCount"`

	FailedNodeID   string `json:"failedNodeId,omitempty"`
	FailedNodeType string `json:"failedNodeType,omitempty"`
	LastError      string `json:"lastError,omitempty"`
}
