package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkflowStepDecodesStrategyConfig(t *testing.T) {
	data := `{
		"id": "wf-hazard",
		"name": "隐患整改流程",
		"approved_status": "closed",
		"rejected_status": "voided",
		"steps": [
			{
				"id": "step-report", "name": "隐患上报", "status_name": "reported",
				"strategy": "fixed", "mode": "OR",
				"config": {"users": [{"id": "u-1", "name": "报告人"}]}
			},
			{
				"id": "step-assign", "name": "隐患分派", "status_name": "assigned",
				"strategy": "role", "mode": "OR",
				"config": {"role_name": "安全员", "department": "安全部"}
			},
			{
				"id": "step-verify", "name": "验收", "status_name": "verifying",
				"strategy": "template_option_match", "mode": "AND",
				"config": {"rules": [
					{"field_name": "是否动火", "checked_value": "是", "approver_type": "dept_manager", "target": "dept-safety"}
				]}
			}
		]
	}`

	var def WorkflowDefinition
	require.NoError(t, json.Unmarshal([]byte(data), &def))
	require.Len(t, def.Steps, 3)

	fixed, ok := def.Steps[0].Config.(FixedUsersConfig)
	require.True(t, ok, "step 0 config should be FixedUsersConfig")
	require.Len(t, fixed.Users, 1)
	assert.Equal(t, "u-1", fixed.Users[0].ID)

	role, ok := def.Steps[1].Config.(RoleConfig)
	require.True(t, ok, "step 1 config should be RoleConfig")
	assert.Equal(t, "安全员", role.RoleName)
	assert.Equal(t, "安全部", role.Department)

	option, ok := def.Steps[2].Config.(OptionMatchConfig)
	require.True(t, ok, "step 2 config should be OptionMatchConfig")
	require.Len(t, option.Rules, 1)
	assert.Equal(t, OptionApproverDeptManager, option.Rules[0].ApproverType)
	assert.Equal(t, ModeAND, def.Steps[2].Mode)
}

func TestWorkflowStepMissingConfigDefaultsEmpty(t *testing.T) {
	var step WorkflowStep
	err := json.Unmarshal([]byte(`{"id": "s1", "strategy": "current_dept_manager", "mode": "OR"}`), &step)
	require.NoError(t, err)

	_, ok := step.Config.(SubmitterDeptManagerConfig)
	assert.True(t, ok)
}

func TestWorkflowStepUnknownStrategyFails(t *testing.T) {
	var step WorkflowStep
	err := json.Unmarshal([]byte(`{"id": "s1", "strategy": "coin_flip", "mode": "OR"}`), &step)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown approver strategy")
}

func TestWorkflowStepRoundTrip(t *testing.T) {
	step := WorkflowStep{
		ID:         "step-route",
		Name:       "部门会签",
		StatusName: "routing",
		Strategy:   StrategyTemplateTextMatch,
		Mode:       ModeAND,
		Config: TextMatchConfig{
			Rules: []TextMatchRule{
				{FieldName: "整改内容", ContainsText: "电气", TargetDepartment: "dept-electric"},
			},
		},
	}

	data, err := json.Marshal(step)
	require.NoError(t, err)

	var decoded WorkflowStep
	require.NoError(t, json.Unmarshal(data, &decoded))

	cfg, ok := decoded.Config.(TextMatchConfig)
	require.True(t, ok)
	require.Len(t, cfg.Rules, 1)
	assert.Equal(t, "dept-electric", cfg.Rules[0].TargetDepartment)
}
