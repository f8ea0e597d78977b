package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/anquanyun/safety-approval/internal/models"
)

func TestParseWidgetArray(t *testing.T) {
	parser := NewParser(zap.NewNop())

	form, err := parser.Parse(`[
		{"id": "w1", "name": "隐患描述", "type": "textarea", "value": "电气线路老化"},
		{"id": "w2", "name": "责任部门", "type": "department", "value": "生产部"},
		{"id": "w3", "name": "需要停产", "type": "checkbox", "value": "是"},
		{"id": "w4", "name": "预估费用", "type": "number", "value": 1500.5}
	]`)
	require.NoError(t, err)

	assert.Equal(t, models.FieldTypeText, form["隐患描述"].Type)
	assert.Equal(t, "电气线路老化", form["隐患描述"].Value)
	assert.Equal(t, models.FieldTypeDepartment, form["责任部门"].Type)
	assert.Equal(t, models.FieldTypeOption, form["需要停产"].Type)
	assert.Equal(t, "1500.5", form["预估费用"].Value)
}

func TestParseNestedFormString(t *testing.T) {
	parser := NewParser(zap.NewNop())

	form, err := parser.Parse(`{"form": "[{\"name\": \"责任部门\", \"type\": \"department\", \"value\": \"安全部\"}]"}`)
	require.NoError(t, err)

	require.Contains(t, form, "责任部门")
	assert.Equal(t, "安全部", form["责任部门"].Value)
}

func TestParseFlatObject(t *testing.T) {
	parser := NewParser(zap.NewNop())

	form, err := parser.Parse(`{"隐患等级": "重大", "整改期限": "2026-04-01"}`)
	require.NoError(t, err)

	assert.Equal(t, "重大", form.Text("隐患等级"))
	assert.Equal(t, models.FieldTypeText, form["整改期限"].Type)
}

func TestParseEdgeCases(t *testing.T) {
	parser := NewParser(zap.NewNop())

	form, err := parser.Parse("")
	require.NoError(t, err)
	assert.Empty(t, form)

	form, err = parser.Parse(`[{"id": "w1", "type": "text", "value": {"text": " 内嵌文本 "}}]`)
	require.NoError(t, err)
	assert.Equal(t, "内嵌文本", form["w1"].Value, "id stands in for a missing name, nested text unwrapped")

	_, err = parser.Parse(`{not json`)
	require.Error(t, err)
}
