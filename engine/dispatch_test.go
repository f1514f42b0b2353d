package engine

import (
	"context"
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"

	"github.com/flowdeck/flowdeck/types"
)

func waitForRun(t *testing.T, d *Dispatcher, runID string) *types.RunResult {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		result, err := d.RunStatus(runID)
		assert.Nil(t, err)
		if result.Status != types.Pending && result.Status != types.Running {
			return result
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("run %s did not finish in time", runID)
	return nil
}

func TestDispatcherTriggerCompletes(t *testing.T) {
	e := testEngine(t)
	d := NewDispatcher(context.Background(), e, 4)
	defer d.Close()

	saveWorkflow(t, e, &types.Workflow{
		ID:     "wf-d1",
		UserID: "u-1",
		Nodes:  []types.Node{node("start", "trigger.manual", nil)},
	})

	runID, err := d.Trigger("wf-d1", "u-1", types.Data{"hello": "world"})
	assert.Nil(t, err)
	assert.NotEmpty(t, runID)

	result := waitForRun(t, d, runID)
	assert.Equal(t, types.Completed, result.Status)
	assert.Equal(t, "external", result.Result.LookupString("trigger.type"))

	// the step log is keyed by the id Trigger handed back
	records, err := e.Store().ListRunRecords(context.Background(), runID)
	assert.Nil(t, err)
	assert.Len(t, records, 1)
}

func TestDispatcherSurfacesFailure(t *testing.T) {
	e := testEngine(t)
	d := NewDispatcher(context.Background(), e, 1)
	defer d.Close()

	runID, err := d.Trigger("no-such-workflow", "u-1", nil)
	assert.Nil(t, err)

	result := waitForRun(t, d, runID)
	assert.Equal(t, types.FailedFatal, result.Status)
	assert.NotEmpty(t, result.LastError)
}

func TestDispatcherUnknownRun(t *testing.T) {
	e := testEngine(t)
	d := NewDispatcher(context.Background(), e, 1)
	defer d.Close()

	_, err := d.RunStatus("never-issued")
	assert.True(t, errors.Is(err, errors.NotFound))
}

func TestDispatcherConcurrentRuns(t *testing.T) {
	e := testEngine(t)
	d := NewDispatcher(context.Background(), e, 4)
	defer d.Close()

	saveWorkflow(t, e, &types.Workflow{
		ID:     "wf-many",
		UserID: "u-1",
		Nodes:  []types.Node{node("start", "trigger.manual", nil)},
	})

	ids := make([]string, 0, 8)
	for i := 0; i < 8; i++ {
		runID, err := d.Trigger("wf-many", "u-1", nil)
		assert.Nil(t, err)
		ids = append(ids, runID)
	}
	for _, runID := range ids {
		result := waitForRun(t, d, runID)
		assert.Equal(t, types.Completed, result.Status)
	}
}

func TestDispatcherClosedRejectsTriggers(t *testing.T) {
	e := testEngine(t)
	d := NewDispatcher(context.Background(), e, 1)
	d.Close()

	_, err := d.Trigger("wf", "u-1", nil)
	assert.NotNil(t, err)

	// idempotent
	d.Close()
}
