package dispatch

import (
	"time"

	"github.com/anquanyun/safety-approval/internal/models"
)

// AppendLog returns a new log slice with entry at the end. The existing
// slice is never modified; history stays byte-for-byte intact.
func AppendLog(existing []models.ApprovalLogEntry, entry models.ApprovalLogEntry) []models.ApprovalLogEntry {
	out := make([]models.ApprovalLogEntry, 0, len(existing)+1)
	out = append(out, existing...)
	out = append(out, entry)
	return out
}

// buildLogEntry assembles the one entry a dispatch produces, stamped with
// the step position at the time of the action and the next snapshot
// version.
func (e *Engine) buildLogEntry(record *models.RecordSnapshot, stepIndex int, stepName string, action models.Action, operator models.Operator, comment, changes string) models.ApprovalLogEntry {
	return models.ApprovalLogEntry{
		ID:              e.newID(),
		StepIndex:       stepIndex,
		StepName:        stepName,
		Action:          action,
		OperatorID:      operator.ID,
		OperatorName:    operator.Name,
		Timestamp:       e.now().UTC().Truncate(time.Second),
		Comment:         comment,
		Changes:         changes,
		SnapshotVersion: record.SnapshotVersion() + 1,
	}
}
