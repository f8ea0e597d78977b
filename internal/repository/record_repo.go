package repository

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/anquanyun/safety-approval/internal/models"
)

// ErrVersionConflict is returned when a dispatch result is persisted
// against a snapshot version that is no longer current. The losing caller
// re-fetches and retries; the engine itself never sees this.
var ErrVersionConflict = errors.New("记录已被其他操作更新，请刷新后重试")

// RecordRepository handles safety record database operations
type RecordRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRecordRepository creates a new record repository
func NewRecordRepository(db *sql.DB, logger *zap.Logger) *RecordRepository {
	return &RecordRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a freshly submitted record at step zero.
func (r *RecordRepository) Create(tx *sql.Tx, record *models.RecordSnapshot) error {
	candidates, err := marshalCandidates(record.CandidateHandlers)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO records (
			id, workflow_id, status, current_step_index,
			responsible_id, responsible_name, candidate_handlers,
			form_data, snapshot_version
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	exec := r.db.Exec
	if tx != nil {
		exec = tx.Exec
	}

	_, err = exec(query,
		record.ID,
		record.WorkflowID,
		record.Status,
		record.CurrentStepIndex,
		record.ResponsibleID,
		record.ResponsibleName,
		candidates,
		record.FormData,
		record.SnapshotVersion(),
	)
	if err != nil {
		r.logger.Error("Failed to create record", zap.String("id", record.ID), zap.Error(err))
		return fmt.Errorf("failed to create record: %w", err)
	}

	return nil
}

// GetByID retrieves a record snapshot without its approval logs; the log
// repository loads those separately.
func (r *RecordRepository) GetByID(id string) (*models.RecordSnapshot, error) {
	query := `
		SELECT id, workflow_id, status, current_step_index,
			responsible_id, responsible_name, candidate_handlers,
			form_data, created_at, updated_at
		FROM records
		WHERE id = ?
	`

	var record models.RecordSnapshot
	var candidates sql.NullString

	err := r.db.QueryRow(query, id).Scan(
		&record.ID,
		&record.WorkflowID,
		&record.Status,
		&record.CurrentStepIndex,
		&record.ResponsibleID,
		&record.ResponsibleName,
		&candidates,
		&record.FormData,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get record", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get record: %w", err)
	}

	if record.CandidateHandlers, err = unmarshalCandidates(candidates); err != nil {
		return nil, fmt.Errorf("record %s: %w", id, err)
	}

	return &record, nil
}

// List retrieves records with pagination, newest first.
func (r *RecordRepository) List(limit, offset int) ([]*models.RecordSnapshot, error) {
	query := `
		SELECT id, workflow_id, status, current_step_index,
			responsible_id, responsible_name, candidate_handlers,
			form_data, created_at, updated_at
		FROM records
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`

	rows, err := r.db.Query(query, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list records", zap.Error(err))
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	var records []*models.RecordSnapshot
	for rows.Next() {
		var record models.RecordSnapshot
		var candidates sql.NullString

		err := rows.Scan(
			&record.ID,
			&record.WorkflowID,
			&record.Status,
			&record.CurrentStepIndex,
			&record.ResponsibleID,
			&record.ResponsibleName,
			&candidates,
			&record.FormData,
			&record.CreatedAt,
			&record.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}

		if record.CandidateHandlers, err = unmarshalCandidates(candidates); err != nil {
			return nil, fmt.Errorf("record %s: %w", record.ID, err)
		}

		records = append(records, &record)
	}

	return records, rows.Err()
}

// ApplyDispatch persists the fields a successful dispatch proposed. The
// update only lands when the stored snapshot version still matches what
// the caller dispatched against; otherwise ErrVersionConflict.
func (r *RecordRepository) ApplyDispatch(tx *sql.Tx, id string, status string, stepIndex int, candidateHandlers []models.CandidateHandler, expectedVersion, newVersion int) error {
	candidates, err := marshalCandidates(candidateHandlers)
	if err != nil {
		return err
	}

	query := `
		UPDATE records
		SET status = ?, current_step_index = ?, candidate_handlers = ?,
			snapshot_version = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND snapshot_version = ?
	`

	exec := r.db.Exec
	if tx != nil {
		exec = tx.Exec
	}

	result, err := exec(query, status, stepIndex, candidates, newVersion, id, expectedVersion)
	if err != nil {
		r.logger.Error("Failed to apply dispatch", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to apply dispatch: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		r.logger.Warn("Optimistic concurrency conflict",
			zap.String("id", id),
			zap.Int("expected_version", expectedVersion))
		return ErrVersionConflict
	}

	return nil
}

func marshalCandidates(candidates []models.CandidateHandler) (string, error) {
	if len(candidates) == 0 {
		return "", nil
	}
	data, err := json.Marshal(candidates)
	if err != nil {
		return "", fmt.Errorf("failed to marshal candidate handlers: %w", err)
	}
	return string(data), nil
}

func unmarshalCandidates(raw sql.NullString) ([]models.CandidateHandler, error) {
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	var candidates []models.CandidateHandler
	if err := json.Unmarshal([]byte(raw.String), &candidates); err != nil {
		return nil, fmt.Errorf("failed to unmarshal candidate handlers: %w", err)
	}
	return candidates, nil
}
