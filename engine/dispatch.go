package engine

import (
	"context"
	"sync"

	"github.com/gammazero/workerpool"
	"github.com/juju/errors"
	"github.com/oklog/ulid/v2"
	log "github.com/sirupsen/logrus"

	"github.com/flowdeck/flowdeck/types"
)

// Dispatcher is the asynchronous run-trigger surface: callers enqueue a
// run and get a run id back immediately; a worker pool executes runs with
// bounded parallelism. Nodes inside one run stay strictly sequential;
// only whole runs execute concurrently.
type Dispatcher struct {
	engine *Engine
	wp     *workerpool.WorkerPool

	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	runs map[string]*types.RunResult

	closed bool
}

func NewDispatcher(ctx context.Context, engine *Engine, maxConcurrentRuns int) *Dispatcher {
	if maxConcurrentRuns < 1 {
		maxConcurrentRuns = 1
	}
	d := &Dispatcher{
		engine: engine,
		wp:     workerpool.New(maxConcurrentRuns),
		runs:   make(map[string]*types.RunResult),
	}
	d.ctx, d.cancel = context.WithCancel(ctx)
	return d
}

// Engine exposes the wrapped engine for callers that want a synchronous
// Execute instead of the queue.
func (d *Dispatcher) Engine() *Engine {
	return d.engine
}

// Trigger enqueues one run and returns its id. The payload, when
// present, marks the run as externally triggered and seeds
// context.initialData.
func (d *Dispatcher) Trigger(workflowID, userID string, payload types.Data) (string, error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return "", errors.MethodNotAllowedf("dispatcher is closed")
	}
	runID := ulid.Make().String()
	d.runs[runID] = &types.RunResult{Status: types.Pending}
	d.mu.Unlock()

	d.wp.Submit(func() {
		d.setStatus(runID, &types.RunResult{Status: types.Running})

		result, err := d.engine.ExecuteRun(d.ctx, runID, workflowID, userID, payload)
		if err != nil {
			log.Errorf("%s run of workflow %s failed: %v", runID, workflowID, err)
		}
		d.setStatus(runID, result)
	})

	return runID, nil
}

// RunStatus reports where a triggered run stands. NotFound for ids this
// dispatcher never issued; state is in-memory only and gone after Close.
func (d *Dispatcher) RunStatus(runID string) (*types.RunResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	result, exists := d.runs[runID]
	if !exists {
		return nil, errors.NotFoundf("run %q", runID)
	}
	return result, nil
}

func (d *Dispatcher) setStatus(runID string, result *types.RunResult) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.runs[runID] = result
}

// Close stops accepting new runs and waits for in-flight ones to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()

	d.wp.StopWait()
	d.cancel()
}
