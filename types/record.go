package types

import "time"

// StepRecord is the durable log entry for one executed step. Appended to
// the store as each node finishes, so a failed run can be inspected after
// the fact. Records are observability data: failing to write one is
// logged, it never fails the run.
type StepRecord struct {
	RunID      string    `json:"runId"`
	Seq        int       `json:"seq"`
	WorkflowID string    `json:"workflowId"`
	NodeID     string    `json:"nodeId"`
	NodeType   string    `json:"nodeType"`
	Attempts   int       `json:"attempts"`
	StartTime  time.Time `json:"startTime"`
	EndTime    time.Time `json:"endTime"`
	Error      string    `json:"error,omitempty"`
}
