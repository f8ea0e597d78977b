package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anquanyun/safety-approval/internal/models"
)

func resolveStep(t *testing.T, step models.WorkflowStep, record *models.RecordSnapshot, dir *models.DirectoryData, form models.FormData) HandlerSet {
	t.Helper()
	set, err := ResolveApprovers(step, record, dir, form)
	require.NoError(t, err)
	return set
}

func TestResolveFixedUsers(t *testing.T) {
	step := models.WorkflowStep{
		ID: "s1", Strategy: models.StrategyFixed,
		Config: models.FixedUsersConfig{Users: []models.UserRef{
			{ID: "u-a", Name: "配置名甲"},
			{ID: "u-x", Name: "外部联系人"}, // not in the directory
			{ID: "u-a", Name: "重复"},
		}},
	}

	set := resolveStep(t, step, nil, testDirectory(), nil)

	assert.Equal(t, []string{"u-a", "u-x"}, set.UserIDs, "duplicates collapse, order preserved")
	assert.Equal(t, "验收员甲", set.UserNames[0], "directory display name wins over the configured one")
	assert.Equal(t, "外部联系人", set.UserNames[1], "configured name is kept when the directory has no entry")
	assert.Equal(t, string(models.StrategyFixed), set.MatchedBy)
}

func TestResolveRole(t *testing.T) {
	tests := []struct {
		name    string
		cfg     models.RoleConfig
		wantIDs []string
	}{
		{
			name:    "role and department match",
			cfg:     models.RoleConfig{RoleName: "验收员", Department: "dept-safety"},
			wantIDs: []string{"u-a", "u-b", "u-c"},
		},
		{
			name:    "department by name",
			cfg:     models.RoleConfig{RoleName: "安全主管", Department: "安全部"},
			wantIDs: []string{"u-anna"},
		},
		{
			name:    "substring match on the title",
			cfg:     models.RoleConfig{RoleName: "经理", Department: "dept-prod"},
			wantIDs: []string{"u-prod-mgr"},
		},
		{
			name:    "no match yields empty, not error",
			cfg:     models.RoleConfig{RoleName: "电工", Department: "dept-safety"},
			wantIDs: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			step := models.WorkflowStep{ID: "s1", Strategy: models.StrategyRole, Config: tt.cfg}
			set := resolveStep(t, step, nil, testDirectory(), nil)
			assert.Equal(t, tt.wantIDs, set.UserIDs)
		})
	}
}

func TestResolveSubmitterDeptManager(t *testing.T) {
	step := models.WorkflowStep{
		ID: "s1", Strategy: models.StrategyCurrentDeptManager,
		Config: models.SubmitterDeptManagerConfig{},
	}

	// Submitter comes from the first log entry's operator.
	record := &models.RecordSnapshot{
		ResponsibleID: "u-anna",
		ApprovalLogs: []models.ApprovalLogEntry{
			{OperatorID: "u-reporter", Action: models.ActionSubmit},
			{OperatorID: "u-anna", Action: models.ActionAssign},
		},
	}
	set := resolveStep(t, step, record, testDirectory(), nil)
	assert.Equal(t, []string{"u-prod-mgr"}, set.UserIDs, "manager of the submitter's department")

	// Empty log falls back to the record's responsible person.
	record = &models.RecordSnapshot{ResponsibleID: "u-a"}
	set = resolveStep(t, step, record, testDirectory(), nil)
	assert.Equal(t, []string{"u-anna"}, set.UserIDs)
}

func TestResolveSpecificDeptManager(t *testing.T) {
	step := models.WorkflowStep{
		ID: "s1", Strategy: models.StrategySpecificDeptManager,
		Config: models.DepartmentManagerConfig{DepartmentID: "dept-safety"},
	}

	set := resolveStep(t, step, nil, testDirectory(), nil)
	assert.Equal(t, []string{"u-anna"}, set.UserIDs)

	step.Config = models.DepartmentManagerConfig{DepartmentID: "dept-missing"}
	set = resolveStep(t, step, nil, testDirectory(), nil)
	assert.Empty(t, set.UserIDs)
}

func TestResolveTemplateFieldManager(t *testing.T) {
	step := models.WorkflowStep{
		ID: "s1", Strategy: models.StrategyTemplateFieldManager,
		Config: models.FieldDepartmentConfig{FieldName: "责任部门"},
	}
	form := models.FormData{
		"责任部门": {Name: "责任部门", Type: models.FieldTypeDepartment, Value: "生产部"},
		"备注":   {Name: "备注", Type: models.FieldTypeText, Value: "生产部"},
	}

	set := resolveStep(t, step, nil, testDirectory(), form)
	assert.Equal(t, []string{"u-prod-mgr"}, set.UserIDs)

	// A text-typed field never routes, even with a department-looking value.
	step.Config = models.FieldDepartmentConfig{FieldName: "备注"}
	set = resolveStep(t, step, nil, testDirectory(), form)
	assert.Empty(t, set.UserIDs)
}

func TestResolveTemplateTextMatch(t *testing.T) {
	step := models.WorkflowStep{
		ID: "s1", Strategy: models.StrategyTemplateTextMatch,
		Config: models.TextMatchConfig{Rules: []models.TextMatchRule{
			{FieldName: "隐患描述", ContainsText: "电气", TargetDepartment: "dept-prod"},
			{FieldName: "隐患描述", ContainsText: "高处作业", TargetDepartment: "dept-safety"},
			{FieldName: "整改建议", ContainsText: "停产", TargetDepartment: "dept-prod"},
		}},
	}
	form := models.FormData{
		"隐患描述": {Name: "隐患描述", Type: models.FieldTypeText, Value: "车间电气线路老化，高处作业防护缺失"},
		"整改建议": {Name: "整改建议", Type: models.FieldTypeText, Value: "建议停产检修"},
	}

	set := resolveStep(t, step, nil, testDirectory(), form)
	// Both departments hit; the third rule resolves an already-added
	// manager and collapses.
	assert.Equal(t, []string{"u-prod-mgr", "u-anna"}, set.UserIDs)
}

func TestResolveTemplateOptionMatch(t *testing.T) {
	step := models.WorkflowStep{
		ID: "s1", Strategy: models.StrategyTemplateOptionMatch,
		Config: models.OptionMatchConfig{Rules: []models.OptionMatchRule{
			{FieldName: "需要安全部会审", CheckedValue: "是", ApproverType: models.OptionApproverDeptManager, Target: "dept-safety"},
			{FieldName: "指定验收人", ApproverType: models.OptionApproverUser, Target: "u-b"},
			{FieldName: "需要停产", CheckedValue: "是", ApproverType: models.OptionApproverDeptManager, Target: "dept-prod"},
		}},
	}
	form := models.FormData{
		"需要安全部会审": {Name: "需要安全部会审", Type: models.FieldTypeOption, Value: "是"},
		"指定验收人":   {Name: "指定验收人", Type: models.FieldTypeOption, Value: "☑"},
		"需要停产":    {Name: "需要停产", Type: models.FieldTypeOption, Value: "否"},
	}

	set := resolveStep(t, step, nil, testDirectory(), form)
	assert.Equal(t, []string{"u-anna", "u-b"}, set.UserIDs)
	assert.Equal(t, []string{"安娜", "验收员乙"}, set.UserNames)
}

func TestResolveIsIdempotent(t *testing.T) {
	step := models.WorkflowStep{
		ID: "s1", Strategy: models.StrategyRole,
		Config: models.RoleConfig{RoleName: "验收员", Department: "dept-safety"},
	}
	dir := testDirectory()

	first := resolveStep(t, step, nil, dir, nil)
	second := resolveStep(t, step, nil, dir, nil)

	assert.Equal(t, first, second, "identical inputs must resolve identically")
}

func TestResolveMissingDirectoryYieldsEmpty(t *testing.T) {
	steps := []models.WorkflowStep{
		{ID: "s1", Strategy: models.StrategyRole, Config: models.RoleConfig{RoleName: "经理"}},
		{ID: "s2", Strategy: models.StrategySpecificDeptManager, Config: models.DepartmentManagerConfig{DepartmentID: "dept-prod"}},
		{ID: "s3", Strategy: models.StrategyCurrentDeptManager, Config: models.SubmitterDeptManagerConfig{}},
	}

	for _, step := range steps {
		set, err := ResolveApprovers(step, &models.RecordSnapshot{ResponsibleID: "u-a"}, nil, nil)
		require.NoError(t, err, "step %s", step.ID)
		assert.Empty(t, set.UserIDs, "step %s", step.ID)
	}
}

func TestResolveBrokenConfigIsError(t *testing.T) {
	_, err := ResolveApprovers(models.WorkflowStep{ID: "s1", Strategy: models.StrategyFixed}, nil, testDirectory(), nil)
	require.Error(t, err, "nil config is a configuration bug, not an empty result")

	step := models.WorkflowStep{
		ID: "s1", Strategy: models.StrategyTemplateOptionMatch,
		Config: models.OptionMatchConfig{Rules: []models.OptionMatchRule{
			{FieldName: "f", CheckedValue: "", ApproverType: "group", Target: "g1"},
		}},
	}
	form := models.FormData{"f": {Name: "f", Type: models.FieldTypeOption, Value: "x"}}
	_, err = ResolveApprovers(step, nil, testDirectory(), form)
	require.Error(t, err)
}
