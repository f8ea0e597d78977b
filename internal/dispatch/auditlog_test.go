package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anquanyun/safety-approval/internal/models"
)

func TestAppendLogCopiesHistory(t *testing.T) {
	existing := []models.ApprovalLogEntry{
		{ID: "log-1", SnapshotVersion: 1},
		{ID: "log-2", SnapshotVersion: 2},
	}

	out := AppendLog(existing, models.ApprovalLogEntry{ID: "log-3", SnapshotVersion: 3})

	require.Len(t, out, 3)
	assert.Len(t, existing, 2, "input slice keeps its length")
	assert.Equal(t, "log-3", out[2].ID)

	// Appending to the result must not leak into the original backing
	// array either.
	out[0].Comment = "changed"
	assert.Empty(t, existing[0].Comment)
}

func TestAppendLogToEmpty(t *testing.T) {
	out := AppendLog(nil, models.ApprovalLogEntry{ID: "log-1", SnapshotVersion: 1})

	require.Len(t, out, 1)
	assert.Equal(t, "log-1", out[0].ID)
}

func TestBuildLogEntryStampsStepAndVersion(t *testing.T) {
	engine := newTestEngine()
	record := hazardRecord("assigned", 1)
	record.ApprovalLogs = []models.ApprovalLogEntry{{ID: "log-1", SnapshotVersion: 4}}

	entry := engine.buildLogEntry(record, 1, "隐患分派", models.ActionAssign,
		models.Operator{ID: "u-anna", Name: "安娜"}, "尽快整改", "status: assigned -> rectifying")

	assert.Equal(t, "log-001", entry.ID)
	assert.Equal(t, 1, entry.StepIndex)
	assert.Equal(t, "隐患分派", entry.StepName)
	assert.Equal(t, 5, entry.SnapshotVersion, "one more than the latest entry")
	assert.Equal(t, "尽快整改", entry.Comment)
	assert.False(t, entry.Timestamp.IsZero())
}
