package mem

import (
	"context"
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"

	"github.com/flowdeck/flowdeck/types"
)

func sampleWorkflow(id, userID string) *types.Workflow {
	return &types.Workflow{
		ID:     id,
		UserID: userID,
		Name:   "sample",
		Nodes: []types.Node{
			{ID: "n1", Type: "trigger.manual", Position: types.Position{X: 10, Y: 20}},
			{ID: "n2", Type: "http", Data: types.NodeData{
				Label:  "Fetch",
				Config: types.Data{"endpoint": "https://example.com"},
			}},
		},
		Connections: []types.Connection{
			{ID: "e1", From: "n1", To: "n2"},
		},
	}
}

func TestSaveAndGetWorkflow(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	saved := sampleWorkflow("wf-1", "u-1")
	assert.Nil(t, s.SaveWorkflow(ctx, saved))

	got, err := s.GetWorkflow(ctx, "wf-1", "u-1")
	assert.Nil(t, err)
	assert.Equal(t, saved.ID, got.ID)
	assert.Len(t, got.Nodes, 2)
	assert.Equal(t, types.Position{X: 10, Y: 20}, got.Nodes[0].Position)
	assert.Equal(t, "https://example.com", got.Nodes[1].Data.Config.LookupString("endpoint"))
	assert.Equal(t, []types.Connection{{ID: "e1", From: "n1", To: "n2"}}, got.Connections)

	// snapshots are decoupled from the caller's struct
	saved.Name = "changed"
	got, err = s.GetWorkflow(ctx, "wf-1", "u-1")
	assert.Nil(t, err)
	assert.Equal(t, "sample", got.Name)
}

func TestGetWorkflowNotFound(t *testing.T) {
	s := NewMemStore()

	_, err := s.GetWorkflow(context.Background(), "nope", "u-1")
	assert.True(t, errors.Is(err, errors.NotFound))

	// right id, wrong owner
	assert.Nil(t, s.SaveWorkflow(context.Background(), sampleWorkflow("wf-1", "u-1")))
	_, err = s.GetWorkflow(context.Background(), "wf-1", "u-2")
	assert.True(t, errors.Is(err, errors.NotFound))
}

func TestListWorkflowsPerUser(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	assert.Nil(t, s.SaveWorkflow(ctx, sampleWorkflow("wf-1", "u-1")))
	assert.Nil(t, s.SaveWorkflow(ctx, sampleWorkflow("wf-2", "u-1")))
	assert.Nil(t, s.SaveWorkflow(ctx, sampleWorkflow("wf-3", "u-2")))

	workflows, err := s.ListWorkflows(ctx, "u-1")
	assert.Nil(t, err)
	assert.Len(t, workflows, 2)

	workflows, err = s.ListWorkflows(ctx, "u-3")
	assert.Nil(t, err)
	assert.Empty(t, workflows)
}

func TestDeleteWorkflow(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	assert.Nil(t, s.SaveWorkflow(ctx, sampleWorkflow("wf-1", "u-1")))
	assert.Nil(t, s.DeleteWorkflow(ctx, "wf-1", "u-1"))

	_, err := s.GetWorkflow(ctx, "wf-1", "u-1")
	assert.True(t, errors.Is(err, errors.NotFound))

	// deleting what is not there is not an error
	assert.Nil(t, s.DeleteWorkflow(ctx, "wf-1", "u-1"))
}

func TestRunRecords(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	now := time.Now()
	for seq := 0; seq < 3; seq++ {
		assert.Nil(t, s.AppendRunRecord(ctx, &types.StepRecord{
			RunID:     "run-1",
			Seq:       seq,
			NodeID:    "n",
			Attempts:  1,
			StartTime: now,
			EndTime:   now,
		}))
	}
	assert.Nil(t, s.AppendRunRecord(ctx, &types.StepRecord{RunID: "run-2", Seq: 0}))

	records, err := s.ListRunRecords(ctx, "run-1")
	assert.Nil(t, err)
	assert.Len(t, records, 3)
	assert.Equal(t, 0, records[0].Seq)
	assert.Equal(t, 2, records[2].Seq)

	records, err = s.ListRunRecords(ctx, "run-nope")
	assert.Nil(t, err)
	assert.Empty(t, records)
}

func TestInjectedErrors(t *testing.T) {
	boom := errors.New("disk on fire")
	s := NewMemStoreWithErrHandler(func() error { return boom })

	assert.NotNil(t, s.SaveWorkflow(context.Background(), sampleWorkflow("wf-1", "u-1")))
	_, err := s.GetWorkflow(context.Background(), "wf-1", "u-1")
	assert.NotNil(t, err)
	_, err = s.ListWorkflows(context.Background(), "u-1")
	assert.NotNil(t, err)
	assert.NotNil(t, s.AppendRunRecord(context.Background(), &types.StepRecord{RunID: "r"}))
}
