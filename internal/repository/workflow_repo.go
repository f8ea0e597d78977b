package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/anquanyun/safety-approval/internal/models"
)

// WorkflowRepository stores workflow definitions as JSON documents. The
// step strategy configs round-trip through the tagged-union codec on
// models.WorkflowStep.
type WorkflowRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewWorkflowRepository creates a new workflow repository
func NewWorkflowRepository(db *sql.DB, logger *zap.Logger) *WorkflowRepository {
	return &WorkflowRepository{
		db:     db,
		logger: logger,
	}
}

// Save inserts or replaces a workflow definition.
func (r *WorkflowRepository) Save(def *models.WorkflowDefinition) error {
	data, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("failed to marshal workflow definition: %w", err)
	}

	query := `
		INSERT INTO workflow_definitions (id, name, definition)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			definition = excluded.definition,
			updated_at = CURRENT_TIMESTAMP
	`

	if _, err := r.db.Exec(query, def.ID, def.Name, string(data)); err != nil {
		r.logger.Error("Failed to save workflow definition", zap.String("id", def.ID), zap.Error(err))
		return fmt.Errorf("failed to save workflow definition: %w", err)
	}

	return nil
}

// GetByID retrieves a workflow definition.
func (r *WorkflowRepository) GetByID(id string) (*models.WorkflowDefinition, error) {
	var data string

	err := r.db.QueryRow(`SELECT definition FROM workflow_definitions WHERE id = ?`, id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get workflow definition", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get workflow definition: %w", err)
	}

	var def models.WorkflowDefinition
	if err := json.Unmarshal([]byte(data), &def); err != nil {
		return nil, fmt.Errorf("workflow %s: %w", id, err)
	}

	return &def, nil
}

// List returns all workflow definitions.
func (r *WorkflowRepository) List() ([]*models.WorkflowDefinition, error) {
	rows, err := r.db.Query(`SELECT definition FROM workflow_definitions ORDER BY id`)
	if err != nil {
		r.logger.Error("Failed to list workflow definitions", zap.Error(err))
		return nil, fmt.Errorf("failed to list workflow definitions: %w", err)
	}
	defer rows.Close()

	var defs []*models.WorkflowDefinition
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan workflow definition: %w", err)
		}

		var def models.WorkflowDefinition
		if err := json.Unmarshal([]byte(data), &def); err != nil {
			return nil, fmt.Errorf("failed to unmarshal workflow definition: %w", err)
		}
		defs = append(defs, &def)
	}

	return defs, rows.Err()
}
