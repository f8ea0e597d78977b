package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/anquanyun/safety-approval/internal/models"
)

func TestAppendAndListLogEntries(t *testing.T) {
	db := newTestDB(t)
	records := NewRecordRepository(db, zap.NewNop())
	logs := NewLogRepository(db, zap.NewNop())

	require.NoError(t, records.Create(nil, sampleRecord()))

	first := &models.ApprovalLogEntry{
		ID: "log-1", StepIndex: 0, StepName: "隐患上报", Action: models.ActionSubmit,
		OperatorID: "u-reporter", OperatorName: "报告人",
		Timestamp: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC), SnapshotVersion: 1,
	}
	second := &models.ApprovalLogEntry{
		ID: "log-2", StepIndex: 1, StepName: "隐患分派", Action: models.ActionAssign,
		OperatorID: "u-anna", OperatorName: "安娜", Comment: "限期整改",
		Timestamp: time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC), SnapshotVersion: 2,
	}

	// Insert out of order; listing sorts by snapshot version.
	require.NoError(t, logs.Append(nil, "rec-1", second))
	require.NoError(t, logs.Append(nil, "rec-1", first))

	entries, err := logs.ListByRecordID("rec-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "log-1", entries[0].ID)
	assert.Equal(t, "log-2", entries[1].ID)
	assert.Equal(t, models.ActionAssign, entries[1].Action)
	assert.Equal(t, "限期整改", entries[1].Comment)
}

func TestListLogEntriesEmptyRecord(t *testing.T) {
	logs := NewLogRepository(newTestDB(t), zap.NewNop())

	entries, err := logs.ListByRecordID("rec-none")
	require.NoError(t, err)
	assert.Empty(t, entries)
}
