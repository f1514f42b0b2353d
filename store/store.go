package store

import (
	"context"

	"github.com/flowdeck/flowdeck/types"
)

// Store persists workflow definitions and per-run step logs. GetWorkflow
// is the engine's only read: one snapshot per run, keyed by id + owner,
// NotFound (juju) when no workflow matches. Implementations must be safe
// for concurrent use.
type Store interface {
	GetWorkflow(ctx context.Context, workflowID, userID string) (*types.Workflow, error)
	SaveWorkflow(ctx context.Context, workflow *types.Workflow) error
	DeleteWorkflow(ctx context.Context, workflowID, userID string) error
	ListWorkflows(ctx context.Context, userID string) ([]types.Workflow, error)

	AppendRunRecord(ctx context.Context, record *types.StepRecord) error
	ListRunRecords(ctx context.Context, runID string) ([]types.StepRecord, error)
}
