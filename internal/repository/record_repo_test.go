package repository

import (
	"database/sql"
	"os"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/anquanyun/safety-approval/internal/models"
)

// newTestDB opens an in-memory database with the real schema applied.
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	schema, err := os.ReadFile("../../migrations/001_initial_schema.sql")
	require.NoError(t, err)

	_, err = db.Exec(string(schema))
	require.NoError(t, err)

	return db
}

func sampleRecord() *models.RecordSnapshot {
	return &models.RecordSnapshot{
		ID:               "rec-1",
		WorkflowID:       "wf-hazard",
		Status:           "reported",
		CurrentStepIndex: 0,
		ResponsibleID:    "u-reporter",
		ResponsibleName:  "报告人",
		FormData:         `{"整改内容": "更换电气线路"}`,
	}
}

func TestCreateAndGetRecord(t *testing.T) {
	repo := NewRecordRepository(newTestDB(t), zap.NewNop())

	require.NoError(t, repo.Create(nil, sampleRecord()))

	got, err := repo.GetByID("rec-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "wf-hazard", got.WorkflowID)
	assert.Equal(t, "reported", got.Status)
	assert.Equal(t, 0, got.CurrentStepIndex)
	assert.Empty(t, got.CandidateHandlers)
}

func TestGetRecordMissingReturnsNil(t *testing.T) {
	repo := NewRecordRepository(newTestDB(t), zap.NewNop())

	got, err := repo.GetByID("no-such-record")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestApplyDispatchAdvancesRecord(t *testing.T) {
	repo := NewRecordRepository(newTestDB(t), zap.NewNop())
	require.NoError(t, repo.Create(nil, sampleRecord()))

	candidates := []models.CandidateHandler{
		{UserID: "u-a", UserName: "验收员A"},
		{UserID: "u-b", UserName: "验收员B"},
	}
	err := repo.ApplyDispatch(nil, "rec-1", "assigned", 1, candidates, 0, 1)
	require.NoError(t, err)

	got, err := repo.GetByID("rec-1")
	require.NoError(t, err)
	assert.Equal(t, "assigned", got.Status)
	assert.Equal(t, 1, got.CurrentStepIndex)
	assert.Equal(t, candidates, got.CandidateHandlers)
}

func TestApplyDispatchVersionConflict(t *testing.T) {
	repo := NewRecordRepository(newTestDB(t), zap.NewNop())
	require.NoError(t, repo.Create(nil, sampleRecord()))

	// First writer wins the version race.
	require.NoError(t, repo.ApplyDispatch(nil, "rec-1", "assigned", 1, nil, 0, 1))

	// Second writer dispatched against the stale snapshot.
	err := repo.ApplyDispatch(nil, "rec-1", "voided", -1, nil, 0, 1)
	require.ErrorIs(t, err, ErrVersionConflict)

	got, err := repo.GetByID("rec-1")
	require.NoError(t, err)
	assert.Equal(t, "assigned", got.Status, "losing write must not land")
}

func TestListRecordsNewestFirst(t *testing.T) {
	db := newTestDB(t)
	repo := NewRecordRepository(db, zap.NewNop())

	older := sampleRecord()
	require.NoError(t, repo.Create(nil, older))

	newer := sampleRecord()
	newer.ID = "rec-2"
	require.NoError(t, repo.Create(nil, newer))

	// created_at has second resolution; separate the rows explicitly.
	_, err := db.Exec(`UPDATE records SET created_at = ? WHERE id = ?`,
		time.Now().Add(time.Hour), "rec-2")
	require.NoError(t, err)

	records, err := repo.List(10, 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "rec-2", records[0].ID)
}
