package engine

import (
	"context"
	"time"

	"github.com/juju/errors"
	"github.com/oklog/ulid/v2"
	log "github.com/sirupsen/logrus"

	"github.com/flowdeck/flowdeck/graph"
	"github.com/flowdeck/flowdeck/handler"
	"github.com/flowdeck/flowdeck/store"
	"github.com/flowdeck/flowdeck/types"
)

var (
	_ types.Context = &runContext{}
)

// runContext is the types.Context handed to handlers: the caller's
// context plus the run's identity.
type runContext struct {
	context.Context

	runID string
}

func (c *runContext) RunID() string {
	return c.runID
}

// Engine executes stored workflows: load the snapshot, order the nodes,
// then run them one by one, each step durably through the StepRunner,
// folding every step's output into the context the next step sees.
type Engine struct {
	store      store.Store
	registry   *handler.Registry
	stepRunner StepRunner
}

func New(s store.Store, registry *handler.Registry, stepRunner StepRunner) *Engine {
	return &Engine{
		store:      s,
		registry:   registry,
		stepRunner: stepRunner,
	}
}

// Store exposes the backing store so callers can manage workflow
// definitions and read step logs through the same handle.
func (e *Engine) Store() store.Store {
	return e.store
}

// Execute runs one workflow to completion. The returned RunResult always
// says what happened; the error is non-nil whenever the run did not
// complete, carrying the failing node's id and the original message.
func (e *Engine) Execute(ctx context.Context, workflowID, userID string, payload types.Data) (*types.RunResult, error) {
	return e.ExecuteRun(ctx, ulid.Make().String(), workflowID, userID, payload)
}

// ExecuteRun is Execute with a caller-chosen run id; the Dispatcher uses
// it so the id it hands back to the trigger caller is the one the step
// log is keyed by.
func (e *Engine) ExecuteRun(ctx context.Context, runID, workflowID, userID string, payload types.Data) (*types.RunResult, error) {
	workflow, err := e.store.GetWorkflow(ctx, workflowID, userID)
	if err != nil {
		if errors.Is(err, errors.NotFound) {
			err = types.NewWorkflowNotFoundError(workflowID)
		}
		return &types.RunResult{Status: types.FailedFatal, LastError: err.Error()}, errors.Trace(err)
	}

	// aborts before any handler runs; no partial side effects
	ordered, err := graph.Sort(workflow.Nodes, workflow.Connections)
	if err != nil {
		return &types.RunResult{Status: types.FailedFatal, LastError: err.Error()}, errors.Trace(err)
	}

	parents := graph.ParentMap(workflow.Connections)
	data := seedContext(payload)
	rctx := &runContext{Context: ctx, runID: runID}

	log.Debugf("%s run started: workflow=%s user=%s nodes=%d", runID, workflowID, userID, len(ordered))

	for seq, node := range ordered {
		node := node
		resolved := &types.ResolvedNode{Node: node, Parents: parents[node.ID]}
		h := e.registry.Resolve(node.EffectiveType())

		startTime := time.Now()
		output, attempts, err := e.stepRunner.RunStep(rctx, node.ID, func(sc types.Context) (types.Data, error) {
			// retries re-run the handler with the same inputs: the node
			// and the context as of before this step
			return h.Execute(sc, resolved, data)
		})
		e.record(ctx, &types.StepRecord{
			RunID:      runID,
			Seq:        seq,
			WorkflowID: workflowID,
			NodeID:     node.ID,
			NodeType:   node.EffectiveType(),
			Attempts:   attempts,
			StartTime:  startTime,
			EndTime:    time.Now(),
			Error:      errorString(err),
		})

		if err != nil {
			status := types.FailedRetries
			if types.IsFatal(err) {
				status = types.FailedFatal
			}
			result := &types.RunResult{
				Status:         status,
				NodeCount:      len(ordered),
				FailedNodeID:   node.ID,
				FailedNodeType: node.EffectiveType(),
				LastError:      err.Error(),
			}
			log.Errorf("%s run failed at node %s (%s): %v", runID, node.ID, node.EffectiveType(), err)
			return result, errors.Annotatef(err, "node %s failed", node.ID)
		}

		data = output
	}

	log.Debugf("%s run completed: %d node(s)", runID, len(ordered))
	return &types.RunResult{
		Status:    types.Completed,
		Result:    data,
		NodeCount: len(ordered),
	}, nil
}

// seedContext builds the fresh per-run context. A present payload marks
// the run as externally triggered.
func seedContext(payload types.Data) types.Data {
	triggerType := "manual"
	var triggerPayload any
	if payload != nil {
		triggerType = "external"
		triggerPayload = map[string]any(payload)
	}
	initialData := payload
	if initialData == nil {
		initialData = types.Data{}
	}
	return types.Data{
		"initialData": map[string]any(initialData),
		"trigger": map[string]any{
			"type":    triggerType,
			"payload": triggerPayload,
		},
	}
}

// record appends the step log entry. Records are best-effort: a store
// hiccup here must not take the run down.
func (e *Engine) record(ctx context.Context, rec *types.StepRecord) {
	if err := e.store.AppendRunRecord(ctx, rec); err != nil {
		log.Errorf("%s failed to save step record for node %s: %v", rec.RunID, rec.NodeID, err)
	}
}

func errorString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
