package dispatch

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/anquanyun/safety-approval/internal/models"
)

// Input carries everything one dispatch needs. The engine owns no state of
// its own; two calls with equal inputs produce equal outputs.
//
// StepIndex, when set, takes precedence over the snapshot's current step:
// callers re-validate against a freshly fetched snapshot without mutating
// the cached one.
type Input struct {
	Record     *models.RecordSnapshot
	Action     models.Action
	Operator   models.Operator
	Definition models.WorkflowDefinition
	Directory  *models.DirectoryData
	Form       models.FormData
	StepIndex  *int
	Comment    string
}

// Result is the proposed transition. On failure only Error is meaningful;
// on success the caller persists NewStatus, NextStepIndex,
// CandidateHandlers and the new Log entry, then notifies Handlers.
type Result struct {
	Success           bool                      `json:"success"`
	Error             *DispatchError            `json:"error,omitempty"`
	NewStatus         string                    `json:"new_status,omitempty"`
	NextStepIndex     int                       `json:"next_step_index"`
	NextStepID        string                    `json:"next_step_id,omitempty"`
	Handlers          HandlerSet                `json:"handlers"`
	CandidateHandlers []models.CandidateHandler `json:"candidate_handlers,omitempty"`
	Log               models.ApprovalLogEntry   `json:"log"`
}

// Engine computes approval transitions for hazard, incident and work-permit
// records. It validates the action, resolves approvers for the step being
// entered, applies AND-mode co-sign gating and builds the audit entry. It
// performs no I/O and never touches the record it is given.
type Engine struct {
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

// NewEngine creates a dispatch engine.
func NewEngine(logger *zap.Logger) *Engine {
	return &Engine{
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Dispatch validates one operator action against a record snapshot and
// proposes the resulting transition. Failures are reported inside the
// result, never as a panic or error crossing this boundary.
func (e *Engine) Dispatch(in Input) Result {
	record := in.Record
	if record == nil {
		return failure(stateError("记录不存在"))
	}
	def := in.Definition

	idx := record.CurrentStepIndex
	if in.StepIndex != nil {
		idx = *in.StepIndex
	}

	if idx == models.TerminalStepIndex {
		return failure(stateError(MsgWorkflowEnded))
	}
	if !validStepIndex(def, idx) {
		e.logger.Warn("Dispatch on unknown step",
			zap.String("record_id", record.ID),
			zap.Int("step_index", idx),
			zap.Int("steps", len(def.Steps)))
		return failure(stateError(MsgStepNotFound))
	}

	current := def.Steps[idx]

	if in.Action == models.ActionReject {
		return e.dispatchReject(in, idx, current)
	}
	if !in.Action.IsForward() {
		return failure(stateError(fmt.Sprintf("不支持的操作: %s", in.Action)))
	}
	return e.dispatchForward(in, idx, current)
}

// dispatchForward handles submit/approve/assign/rectify/verify. When the
// current step is AND-mode the step only completes once every candidate
// has acted; until then the record stays put with an updated candidate
// list.
func (e *Engine) dispatchForward(in Input, idx int, current models.WorkflowStep) Result {
	record := in.Record

	if current.Mode == models.ModeAND {
		// Candidacy decides who may act at all, so this resolution is
		// mandatory: a resolver failure fails the dispatch.
		resolved, err := ResolveApprovers(current, record, in.Directory, in.Form)
		if err != nil {
			return failure(resolverError(MsgResolveApprovers, err))
		}

		eval := EvaluateCosign(resolved, record.CandidateHandlers, in.Operator.ID)
		if !eval.Authorized {
			return failure(authorizationError(MsgNotCosignMember))
		}
		if eval.AlreadyActed {
			return failure(duplicateActionError(MsgAlreadyCosigned))
		}
		if !eval.RoundComplete {
			return e.holdCosignRound(in, idx, current, eval)
		}
		// Every candidate has signed; fall through and advance.
	}

	def := in.Definition
	lastStep := idx == len(def.Steps)-1

	result := Result{Success: true, Handlers: emptyHandlers("")}
	if lastStep {
		result.NextStepIndex = models.TerminalStepIndex
		result.NewStatus = StatusAt(def, models.TerminalStepIndex, TerminalApproved)
	} else {
		next := def.Steps[idx+1]
		result.NextStepIndex = idx + 1
		result.NextStepID = next.ID
		result.NewStatus = StatusAt(def, idx+1, NotTerminal)
		result.Handlers = e.resolveNextHandlers(next, in)
		if next.Mode == models.ModeAND {
			result.CandidateHandlers = SeedCandidates(result.Handlers)
		}
	}

	changes := fmt.Sprintf("status: %s -> %s", record.Status, result.NewStatus)
	result.Log = e.buildLogEntry(record, idx, current.Name, in.Action, in.Operator, in.Comment, changes)
	return result
}

// holdCosignRound records one co-sign action without advancing the step.
func (e *Engine) holdCosignRound(in Input, idx int, current models.WorkflowStep, eval CosignEvaluation) Result {
	record := in.Record

	pending := newHandlerBuilder("cosign_pending")
	for _, c := range eval.Candidates {
		if !c.HasOperated {
			pending.add(c.UserID, c.UserName)
		}
	}

	changes := fmt.Sprintf("会签进度: %d/%d", operatedCount(eval.Candidates), len(eval.Candidates))
	entry := e.buildLogEntry(record, idx, current.Name, in.Action, in.Operator, in.Comment, changes)

	return Result{
		Success:           true,
		NewStatus:         StatusAt(in.Definition, idx, NotTerminal),
		NextStepIndex:     idx,
		NextStepID:        current.ID,
		Handlers:          pending.set,
		CandidateHandlers: eval.Candidates,
		Log:               entry,
	}
}

// dispatchReject moves exactly one step backward; rejecting the first step
// voids the record. On an AND-mode step only a resolved candidate may
// reject, but a single rejection is always enough to roll back.
func (e *Engine) dispatchReject(in Input, idx int, current models.WorkflowStep) Result {
	record := in.Record
	def := in.Definition

	if current.Mode == models.ModeAND {
		resolved, err := ResolveApprovers(current, record, in.Directory, in.Form)
		if err != nil {
			return failure(resolverError(MsgResolveApprovers, err))
		}
		if !isCandidate(resolved, record.CandidateHandlers, in.Operator.ID) {
			return failure(authorizationError(MsgNotCosignMember))
		}
	}

	result := Result{Success: true, Handlers: emptyHandlers("")}
	if idx == 0 {
		result.NextStepIndex = models.TerminalStepIndex
		result.NewStatus = StatusAt(def, models.TerminalStepIndex, TerminalRejected)
	} else {
		prev := def.Steps[idx-1]
		result.NextStepIndex = idx - 1
		result.NextStepID = prev.ID
		result.NewStatus = StatusAt(def, idx-1, NotTerminal)
		result.Handlers = e.resolveNextHandlers(prev, in)
		if prev.Mode == models.ModeAND {
			result.CandidateHandlers = SeedCandidates(result.Handlers)
		}
	}

	changes := fmt.Sprintf("status: %s -> %s", record.Status, result.NewStatus)
	result.Log = e.buildLogEntry(record, idx, current.Name, in.Action, in.Operator, in.Comment, changes)
	return result
}

// resolveNextHandlers computes who to notify for the step the record is
// entering. This resolution is informational: failures and empty matches
// degrade to an empty handler list instead of blocking the transition,
// because some steps legitimately have no next handler.
func (e *Engine) resolveNextHandlers(step models.WorkflowStep, in Input) HandlerSet {
	resolved, err := ResolveApprovers(step, in.Record, in.Directory, in.Form)
	if err != nil {
		e.logger.Warn("Next-step approver resolution failed",
			zap.String("record_id", in.Record.ID),
			zap.String("step_id", step.ID),
			zap.Error(err))
		return emptyHandlers(step.Strategy)
	}
	return resolved
}

func isCandidate(resolved HandlerSet, prior []models.CandidateHandler, operatorID string) bool {
	if len(prior) > 0 {
		for _, c := range prior {
			if c.UserID == operatorID {
				return true
			}
		}
		return false
	}
	for _, id := range resolved.UserIDs {
		if id == operatorID {
			return true
		}
	}
	return false
}

func operatedCount(candidates []models.CandidateHandler) int {
	n := 0
	for _, c := range candidates {
		if c.HasOperated {
			n++
		}
	}
	return n
}

func emptyHandlers(matchedBy models.ApproverStrategy) HandlerSet {
	return HandlerSet{UserIDs: []string{}, UserNames: []string{}, MatchedBy: string(matchedBy)}
}

func failure(err *DispatchError) Result {
	return Result{
		Success:       false,
		Error:         err,
		NextStepIndex: models.TerminalStepIndex,
		Handlers:      emptyHandlers(""),
	}
}
