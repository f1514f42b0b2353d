package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/juju/errors"
	_ "github.com/lib/pq"

	"github.com/flowdeck/flowdeck/store"
	"github.com/flowdeck/flowdeck/types"
	"github.com/flowdeck/flowdeck/utils"
)

var (
	_ store.Store = &pgStore{}
)

// Config holds PostgreSQL connection configuration
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string // disable, require, verify-ca, verify-full
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "postgres",
		Database: "flowdeck",
		SSLMode:  "disable",
	}
}

// DSN builds a PostgreSQL connection string from Config
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Host == "" {
		return errors.New("host cannot be empty")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return errors.New("port must be between 1 and 65535")
	}
	if c.User == "" {
		return errors.New("user cannot be empty")
	}
	if c.Database == "" {
		return errors.New("database cannot be empty")
	}
	if c.SSLMode == "" {
		c.SSLMode = "disable"
	}
	validSSLModes := map[string]bool{
		"disable":     true,
		"require":     true,
		"verify-ca":   true,
		"verify-full": true,
	}
	if !validSSLModes[c.SSLMode] {
		return errors.Errorf("invalid sslmode: %s", c.SSLMode)
	}
	return nil
}

// ParseDSN parses a PostgreSQL connection string into a Config
// Format: "host=localhost port=5432 user=postgres password=secret dbname=flowdeck sslmode=disable"
func ParseDSN(dsn string) (*Config, error) {
	config := DefaultConfig()

	for _, part := range strings.Fields(dsn) {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			continue
		}

		key, value := kv[0], kv[1]
		switch key {
		case "host":
			config.Host = value
		case "port":
			var port int
			if _, err := fmt.Sscanf(value, "%d", &port); err == nil {
				config.Port = port
			}
		case "user":
			config.User = value
		case "password":
			config.Password = value
		case "dbname":
			config.Database = value
		case "sslmode":
			config.SSLMode = value
		}
	}

	return config, config.Validate()
}

// pgStore implements store.Store on PostgreSQL
type pgStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL store with the given configuration
func NewPostgresStore(config *Config) (store.Store, error) {
	if config == nil {
		config = DefaultConfig()
	}

	db, err := sql.Open("postgres", config.DSN())
	if err != nil {
		return nil, errors.Annotatef(err, "failed to open postgres connection")
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Annotatef(err, "failed to ping postgres")
	}

	s := &pgStore{db: db}
	if err := s.initTables(context.Background()); err != nil {
		db.Close()
		return nil, errors.Annotatef(err, "failed to initialize tables")
	}
	return s, nil
}

// NewPostgresStoreWithDB creates a new PostgreSQL store with an existing database connection
func NewPostgresStoreWithDB(db *sql.DB) (store.Store, error) {
	if db == nil {
		return nil, errors.New("db cannot be nil")
	}

	s := &pgStore{db: db}
	if err := s.initTables(context.Background()); err != nil {
		return nil, errors.Annotatef(err, "failed to initialize tables")
	}
	return s, nil
}

func (p *pgStore) initTables(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS workflows (
			id VARCHAR(255) PRIMARY KEY,
			user_id VARCHAR(255) NOT NULL,
			name VARCHAR(255),
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS nodes (
			id VARCHAR(255) NOT NULL,
			workflow_id VARCHAR(255) NOT NULL,
			type VARCHAR(255) NOT NULL,
			position BYTEA,
			data BYTEA,
			PRIMARY KEY (workflow_id, id)
		);

		CREATE TABLE IF NOT EXISTS connections (
			id VARCHAR(255) NOT NULL,
			workflow_id VARCHAR(255) NOT NULL,
			source_node_id VARCHAR(255) NOT NULL,
			target_node_id VARCHAR(255) NOT NULL,
			PRIMARY KEY (workflow_id, id)
		);

		CREATE TABLE IF NOT EXISTS run_records (
			run_id VARCHAR(255) NOT NULL,
			seq INT NOT NULL,
			record BYTEA,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (run_id, seq)
		);

		CREATE INDEX IF NOT EXISTS idx_workflows_user ON workflows(user_id);
		CREATE INDEX IF NOT EXISTS idx_nodes_workflow ON nodes(workflow_id);
		CREATE INDEX IF NOT EXISTS idx_connections_workflow ON connections(workflow_id);
	`

	_, err := p.db.ExecContext(ctx, query)
	if err != nil {
		return errors.Annotatef(err, "failed to create tables")
	}
	return nil
}

// GetWorkflow loads one workflow snapshot: the workflow row, its nodes
// and its connections. Nodes come back ordered by id so the sorter's
// tie-breaking stays stable across runs.
func (p *pgStore) GetWorkflow(ctx context.Context, workflowID, userID string) (*types.Workflow, error) {
	workflow := &types.Workflow{ID: workflowID, UserID: userID}

	err := p.db.QueryRowContext(ctx,
		`SELECT name FROM workflows WHERE id = $1 AND user_id = $2`,
		workflowID, userID,
	).Scan(&workflow.Name)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFoundf("workflow %q for user %q", workflowID, userID)
		}
		return nil, errors.Annotatef(err, "failed to load workflow %s", workflowID)
	}

	nodes, err := p.loadNodes(ctx, workflowID)
	if err != nil {
		return nil, errors.Trace(err)
	}
	connections, err := p.loadConnections(ctx, workflowID)
	if err != nil {
		return nil, errors.Trace(err)
	}

	workflow.Nodes = nodes
	workflow.Connections = connections
	return workflow, nil
}

func (p *pgStore) loadNodes(ctx context.Context, workflowID string) ([]types.Node, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, type, position, data FROM nodes WHERE workflow_id = $1 ORDER BY id`,
		workflowID,
	)
	if err != nil {
		return nil, errors.Annotatef(err, "failed to load nodes for workflow %s", workflowID)
	}
	defer rows.Close()

	nodes := make([]types.Node, 0)
	for rows.Next() {
		var node types.Node
		var position, data []byte
		if err := rows.Scan(&node.ID, &node.Type, &position, &data); err != nil {
			return nil, errors.Annotatef(err, "failed to scan node")
		}
		if len(position) > 0 {
			if err := utils.Unserialize(position, &node.Position); err != nil {
				return nil, errors.Annotatef(err, "node %s position", node.ID)
			}
		}
		if len(data) > 0 {
			if err := utils.Unserialize(data, &node.Data); err != nil {
				return nil, errors.Annotatef(err, "node %s data", node.ID)
			}
		}
		nodes = append(nodes, node)
	}
	return nodes, errors.Trace(rows.Err())
}

func (p *pgStore) loadConnections(ctx context.Context, workflowID string) ([]types.Connection, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, source_node_id, target_node_id FROM connections WHERE workflow_id = $1 ORDER BY id`,
		workflowID,
	)
	if err != nil {
		return nil, errors.Annotatef(err, "failed to load connections for workflow %s", workflowID)
	}
	defer rows.Close()

	connections := make([]types.Connection, 0)
	for rows.Next() {
		var conn types.Connection
		if err := rows.Scan(&conn.ID, &conn.From, &conn.To); err != nil {
			return nil, errors.Annotatef(err, "failed to scan connection")
		}
		connections = append(connections, conn)
	}
	return connections, errors.Trace(rows.Err())
}

// SaveWorkflow replaces the whole definition in one transaction.
func (p *pgStore) SaveWorkflow(ctx context.Context, workflow *types.Workflow) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Annotatef(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO workflows (id, user_id, name, updated_at)
		VALUES ($1, $2, $3, CURRENT_TIMESTAMP)
		ON CONFLICT (id)
		DO UPDATE SET name = EXCLUDED.name, updated_at = CURRENT_TIMESTAMP`,
		workflow.ID, workflow.UserID, workflow.Name,
	)
	if err != nil {
		return errors.Annotatef(err, "failed to upsert workflow %s", workflow.ID)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM nodes WHERE workflow_id = $1`, workflow.ID); err != nil {
		return errors.Trace(err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM connections WHERE workflow_id = $1`, workflow.ID); err != nil {
		return errors.Trace(err)
	}

	for _, node := range workflow.Nodes {
		position, err := utils.Serialize(node.Position)
		if err != nil {
			return errors.Trace(err)
		}
		data, err := utils.Serialize(node.Data)
		if err != nil {
			return errors.Trace(err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO nodes (id, workflow_id, type, position, data) VALUES ($1, $2, $3, $4, $5)`,
			node.ID, workflow.ID, node.Type, position, data,
		)
		if err != nil {
			return errors.Annotatef(err, "failed to insert node %s", node.ID)
		}
	}

	for _, conn := range workflow.Connections {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO connections (id, workflow_id, source_node_id, target_node_id) VALUES ($1, $2, $3, $4)`,
			conn.ID, workflow.ID, conn.From, conn.To,
		)
		if err != nil {
			return errors.Annotatef(err, "failed to insert connection %s", conn.ID)
		}
	}

	return errors.Trace(tx.Commit())
}

func (p *pgStore) DeleteWorkflow(ctx context.Context, workflowID, userID string) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Annotatef(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM workflows WHERE id = $1 AND user_id = $2`, workflowID, userID)
	if err != nil {
		return errors.Trace(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM nodes WHERE workflow_id = $1`, workflowID); err != nil {
		return errors.Trace(err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM connections WHERE workflow_id = $1`, workflowID); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(tx.Commit())
}

func (p *pgStore) ListWorkflows(ctx context.Context, userID string) ([]types.Workflow, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, name FROM workflows WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, errors.Annotatef(err, "failed to list workflows for user %s", userID)
	}
	defer rows.Close()

	workflows := make([]types.Workflow, 0)
	for rows.Next() {
		workflow := types.Workflow{UserID: userID}
		if err := rows.Scan(&workflow.ID, &workflow.Name); err != nil {
			return nil, errors.Annotatef(err, "failed to scan workflow")
		}
		workflows = append(workflows, workflow)
	}
	return workflows, errors.Trace(rows.Err())
}

func (p *pgStore) AppendRunRecord(ctx context.Context, record *types.StepRecord) error {
	b, err := utils.Serialize(record)
	if err != nil {
		return errors.Trace(err)
	}
	_, err = p.db.ExecContext(ctx,
		`INSERT INTO run_records (run_id, seq, record) VALUES ($1, $2, $3)
		 ON CONFLICT (run_id, seq) DO UPDATE SET record = EXCLUDED.record`,
		record.RunID, record.Seq, b,
	)
	return errors.Annotatef(err, "failed to append run record %s/%d", record.RunID, record.Seq)
}

func (p *pgStore) ListRunRecords(ctx context.Context, runID string) ([]types.StepRecord, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT record FROM run_records WHERE run_id = $1 ORDER BY seq`, runID)
	if err != nil {
		return nil, errors.Annotatef(err, "failed to list run records for %s", runID)
	}
	defer rows.Close()

	records := make([]types.StepRecord, 0)
	for rows.Next() {
		var b []byte
		if err := rows.Scan(&b); err != nil {
			return nil, errors.Annotatef(err, "failed to scan run record")
		}
		record := types.StepRecord{}
		if err := utils.Unserialize(b, &record); err != nil {
			return nil, errors.Trace(err)
		}
		records = append(records, record)
	}
	return records, errors.Trace(rows.Err())
}

// Close closes the database connection
func (p *pgStore) Close() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}
