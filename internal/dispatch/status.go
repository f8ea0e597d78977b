package dispatch

import "github.com/anquanyun/safety-approval/internal/models"

// TerminalKind distinguishes the two ways a record leaves its workflow.
type TerminalKind int

const (
	NotTerminal TerminalKind = iota
	TerminalApproved
	TerminalRejected
)

// Fallback terminal statuses for definitions that do not configure their
// own.
const (
	defaultApprovedStatus = "approved"
	defaultRejectedStatus = "rejected"
)

// StatusAt derives the record status for a position in the workflow. The
// status is a function of the definition, the step index and the terminal
// kind only; call sites never hold status literals of their own.
func StatusAt(def models.WorkflowDefinition, stepIndex int, terminal TerminalKind) string {
	switch terminal {
	case TerminalApproved:
		if def.ApprovedStatus != "" {
			return def.ApprovedStatus
		}
		return defaultApprovedStatus
	case TerminalRejected:
		if def.RejectedStatus != "" {
			return def.RejectedStatus
		}
		return defaultRejectedStatus
	}

	if stepIndex < 0 || stepIndex >= len(def.Steps) {
		return ""
	}

	step := def.Steps[stepIndex]
	if step.StatusName != "" {
		return step.StatusName
	}
	return step.Name
}

// validStepIndex reports whether the index points at a configured step.
func validStepIndex(def models.WorkflowDefinition, stepIndex int) bool {
	return stepIndex >= 0 && stepIndex < len(def.Steps)
}
