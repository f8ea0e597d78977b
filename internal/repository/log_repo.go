package repository

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/anquanyun/safety-approval/internal/models"
)

// LogRepository persists the append-only approval trail. Entries are never
// updated or deleted.
type LogRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewLogRepository creates a new log repository
func NewLogRepository(db *sql.DB, logger *zap.Logger) *LogRepository {
	return &LogRepository{
		db:     db,
		logger: logger,
	}
}

// Append inserts one log entry for a record.
func (r *LogRepository) Append(tx *sql.Tx, recordID string, entry *models.ApprovalLogEntry) error {
	query := `
		INSERT INTO approval_logs (
			id, record_id, step_index, step_name, action,
			operator_id, operator_name, timestamp, comment, changes,
			snapshot_version
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	exec := r.db.Exec
	if tx != nil {
		exec = tx.Exec
	}

	_, err := exec(query,
		entry.ID,
		recordID,
		entry.StepIndex,
		entry.StepName,
		string(entry.Action),
		entry.OperatorID,
		entry.OperatorName,
		entry.Timestamp,
		entry.Comment,
		entry.Changes,
		entry.SnapshotVersion,
	)
	if err != nil {
		r.logger.Error("Failed to append log entry",
			zap.String("record_id", recordID),
			zap.String("entry_id", entry.ID),
			zap.Error(err))
		return fmt.Errorf("failed to append log entry: %w", err)
	}

	return nil
}

// ListByRecordID returns a record's approval trail in action order.
func (r *LogRepository) ListByRecordID(recordID string) ([]models.ApprovalLogEntry, error) {
	query := `
		SELECT id, step_index, step_name, action,
			operator_id, operator_name, timestamp, comment, changes,
			snapshot_version
		FROM approval_logs
		WHERE record_id = ?
		ORDER BY snapshot_version ASC
	`

	rows, err := r.db.Query(query, recordID)
	if err != nil {
		r.logger.Error("Failed to list log entries", zap.String("record_id", recordID), zap.Error(err))
		return nil, fmt.Errorf("failed to list log entries: %w", err)
	}
	defer rows.Close()

	var entries []models.ApprovalLogEntry
	for rows.Next() {
		var entry models.ApprovalLogEntry
		var action string

		err := rows.Scan(
			&entry.ID,
			&entry.StepIndex,
			&entry.StepName,
			&action,
			&entry.OperatorID,
			&entry.OperatorName,
			&entry.Timestamp,
			&entry.Comment,
			&entry.Changes,
			&entry.SnapshotVersion,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan log entry: %w", err)
		}

		entry.Action = models.Action(action)
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}
