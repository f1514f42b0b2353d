package mem

import (
	"context"
	"sync"

	"github.com/juju/errors"

	"github.com/flowdeck/flowdeck/store"
	"github.com/flowdeck/flowdeck/types"
	"github.com/flowdeck/flowdeck/utils"
)

var (
	_ store.Store = &memStore{}
)

func NewMemStore() store.Store {
	return &memStore{
		workflows: make(map[string][]byte),
		records:   make(map[string][]types.StepRecord),
		// setup no error as default
		mockErrHandler: defaultNoErr,
	}
}

// NewMemStoreWithErrHandler lets tests inject store failures.
func NewMemStoreWithErrHandler(errHandler func() error) store.Store {
	return &memStore{
		workflows:      make(map[string][]byte),
		records:        make(map[string][]types.StepRecord),
		mockErrHandler: errHandler,
	}
}

func defaultNoErr() error {
	return nil
}

/**
 * memStore keeps everything in process memory. It exists for tests and
 * local development; NEVER use it in production.
 */
type memStore struct {
	mu sync.Mutex

	mockErrHandler func() error

	workflows map[string][]byte
	records   map[string][]types.StepRecord
}

func workflowKey(workflowID, userID string) string {
	return userID + "|" + workflowID
}

func (m *memStore) GetWorkflow(ctx context.Context, workflowID, userID string) (*types.Workflow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.mockErrHandler(); err != nil {
		return nil, errors.Trace(err)
	}

	b, exists := m.workflows[workflowKey(workflowID, userID)]
	if !exists {
		return nil, errors.NotFoundf("workflow %q for user %q", workflowID, userID)
	}
	workflow := &types.Workflow{}
	if err := utils.Unserialize(b, workflow); err != nil {
		return nil, errors.Trace(err)
	}
	return workflow, nil
}

func (m *memStore) SaveWorkflow(ctx context.Context, workflow *types.Workflow) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.mockErrHandler(); err != nil {
		return errors.Trace(err)
	}

	b, err := utils.Serialize(workflow)
	if err != nil {
		return errors.Trace(err)
	}
	m.workflows[workflowKey(workflow.ID, workflow.UserID)] = b
	return nil
}

func (m *memStore) DeleteWorkflow(ctx context.Context, workflowID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.workflows, workflowKey(workflowID, userID))
	return m.mockErrHandler()
}

func (m *memStore) ListWorkflows(ctx context.Context, userID string) ([]types.Workflow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.mockErrHandler(); err != nil {
		return nil, errors.Trace(err)
	}

	workflows := make([]types.Workflow, 0)
	for key, b := range m.workflows {
		if len(key) < len(userID)+1 || key[:len(userID)+1] != userID+"|" {
			continue
		}
		workflow := types.Workflow{}
		if err := utils.Unserialize(b, &workflow); err != nil {
			return nil, errors.Trace(err)
		}
		workflows = append(workflows, workflow)
	}
	return workflows, nil
}

func (m *memStore) AppendRunRecord(ctx context.Context, record *types.StepRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records[record.RunID] = append(m.records[record.RunID], *record)
	return m.mockErrHandler()
}

func (m *memStore) ListRunRecords(ctx context.Context, runID string) ([]types.StepRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.mockErrHandler(); err != nil {
		return nil, errors.Trace(err)
	}
	records := make([]types.StepRecord, len(m.records[runID]))
	copy(records, m.records[runID])
	return records, nil
}
