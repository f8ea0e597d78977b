package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/anquanyun/safety-approval/internal/models"
)

func TestDirectorySnapshot(t *testing.T) {
	repo := NewDirectoryRepository(newTestDB(t), zap.NewNop())

	require.NoError(t, repo.UpsertDepartment(nil, &models.Department{
		ID: "dept-safety", Name: "安全部", ManagerID: "u-anna",
	}))
	require.NoError(t, repo.UpsertUser(nil, &models.User{
		ID: "u-anna", Name: "安娜", DepartmentID: "dept-safety", Department: "安全部", Role: "安全主管",
	}))

	snap, err := repo.Snapshot()
	require.NoError(t, err)

	user, ok := snap.UserByID("u-anna")
	require.True(t, ok)
	assert.Equal(t, "安全主管", user.Role)

	manager, ok := snap.ManagerOf("dept-safety")
	require.True(t, ok)
	assert.Equal(t, "u-anna", manager.ID)
}

func TestUpsertUserReplaces(t *testing.T) {
	repo := NewDirectoryRepository(newTestDB(t), zap.NewNop())

	require.NoError(t, repo.UpsertUser(nil, &models.User{ID: "u-1", Name: "张三", Role: "电工"}))
	require.NoError(t, repo.UpsertUser(nil, &models.User{ID: "u-1", Name: "张三", Role: "电气班长"}))

	snap, err := repo.Snapshot()
	require.NoError(t, err)
	require.Len(t, snap.Users, 1)
	assert.Equal(t, "电气班长", snap.Users[0].Role)
}
