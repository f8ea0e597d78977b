package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/anquanyun/safety-approval/internal/models"
)

func TestStatusAt(t *testing.T) {
	def := hazardWorkflow()

	tests := []struct {
		name     string
		index    int
		terminal TerminalKind
		want     string
	}{
		{"first step", 0, NotTerminal, "reported"},
		{"middle step", 2, NotTerminal, "rectifying"},
		{"last step", 3, NotTerminal, "verified"},
		{"approved terminal", models.TerminalStepIndex, TerminalApproved, "closed"},
		{"rejected terminal", models.TerminalStepIndex, TerminalRejected, "voided"},
		{"out of range", 99, NotTerminal, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusAt(def, tt.index, tt.terminal))
		})
	}
}

func TestStatusAtDefaults(t *testing.T) {
	def := models.WorkflowDefinition{
		Steps: []models.WorkflowStep{{ID: "draft", Name: "草拟"}},
	}

	assert.Equal(t, "草拟", StatusAt(def, 0, NotTerminal), "step name stands in for a missing status name")
	assert.Equal(t, "approved", StatusAt(def, models.TerminalStepIndex, TerminalApproved))
	assert.Equal(t, "rejected", StatusAt(def, models.TerminalStepIndex, TerminalRejected))
}
