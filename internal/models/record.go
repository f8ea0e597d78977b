package models

import "time"

// TerminalStepIndex marks a record that has left the workflow, either
// approved/closed or rejected to void. Any other index outside the step
// range is an invalid state, never silently clamped.
const TerminalStepIndex = -1

// Action is an operator action on a record.
type Action string

const (
	ActionSubmit  Action = "submit"
	ActionApprove Action = "approve"
	ActionAssign  Action = "assign"
	ActionRectify Action = "rectify"
	ActionVerify  Action = "verify"
	ActionReject  Action = "reject"
)

// IsForward reports whether the action advances the record to the next
// step. Reject is the only backward action.
func (a Action) IsForward() bool {
	switch a {
	case ActionSubmit, ActionApprove, ActionAssign, ActionRectify, ActionVerify:
		return true
	default:
		return false
	}
}

// Operator is the identity performing an action.
type Operator struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CandidateHandler is one resolved approver of the currently active
// AND-mode step, with its per-round acted flag. The list is recomputed
// whenever the record enters a new step.
type CandidateHandler struct {
	UserID      string `json:"user_id"`
	UserName    string `json:"user_name"`
	HasOperated bool   `json:"has_operated"`
}

// ApprovalLogEntry is one immutable entry of a record's approval trail.
// SnapshotVersion increments per entry; callers use it for optimistic
// concurrency, the engine itself never interprets it.
type ApprovalLogEntry struct {
	ID              string    `json:"id"`
	StepIndex       int       `json:"step_index"`
	StepName        string    `json:"step_name"`
	Action          Action    `json:"action"`
	OperatorID      string    `json:"operator_id"`
	OperatorName    string    `json:"operator_name"`
	Timestamp       time.Time `json:"timestamp"`
	Comment         string    `json:"comment,omitempty"`
	Changes         string    `json:"changes,omitempty"`
	SnapshotVersion int       `json:"snapshot_version"`
}

// RecordSnapshot is the engine's view of a safety record (hazard report,
// incident investigation or work permit) at one point in time. The engine
// proposes the next snapshot's fields; it never persists anything itself.
type RecordSnapshot struct {
	ID                string             `json:"id"`
	WorkflowID        string             `json:"workflow_id"`
	Status            string             `json:"status"`
	CurrentStepIndex  int                `json:"current_step_index"`
	ResponsibleID     string             `json:"responsible_id"`
	ResponsibleName   string             `json:"responsible_name"`
	CandidateHandlers []CandidateHandler `json:"candidate_handlers,omitempty"`
	ApprovalLogs      []ApprovalLogEntry `json:"approval_logs"`
	FormData          string             `json:"form_data"` // raw form JSON
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// Terminated reports whether the record has left the workflow.
func (r *RecordSnapshot) Terminated() bool {
	return r.CurrentStepIndex == TerminalStepIndex
}

// SnapshotVersion returns the version of the latest log entry, or zero for
// a record with no approval history yet.
func (r *RecordSnapshot) SnapshotVersion() int {
	if len(r.ApprovalLogs) == 0 {
		return 0
	}
	return r.ApprovalLogs[len(r.ApprovalLogs)-1].SnapshotVersion
}
