package dispatch

import "fmt"

// ErrorKind classifies a dispatch failure. Failures are returned inside
// DispatchResult, never as a Go error crossing the engine boundary.
type ErrorKind string

const (
	// ErrState covers step indexes that point at no step and forward
	// actions on already-terminated records.
	ErrState ErrorKind = "state"
	// ErrAuthorization covers operators outside the resolved candidate
	// set of an AND-mode step.
	ErrAuthorization ErrorKind = "authorization"
	// ErrDuplicateAction covers AND-mode operators acting twice in the
	// same round.
	ErrDuplicateAction ErrorKind = "duplicate_action"
	// ErrResolver covers failures while resolving approvers when the
	// resolution is mandatory for validating who may act.
	ErrResolver ErrorKind = "resolver"
)

// User-visible failure messages. The UI surfaces them verbatim.
const (
	MsgStepNotFound     = "当前步骤配置不存在"
	MsgWorkflowEnded    = "流程已结束，无法操作"
	MsgAlreadyCosigned  = "已完成本次会签"
	MsgNotCosignMember  = "您不在本步骤会签人员范围内"
	MsgResolveApprovers = "会签人员解析失败"
)

// DispatchError carries the failure kind plus the message shown to the
// operator.
type DispatchError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func (e *DispatchError) Error() string {
	return e.Message
}

func stateError(msg string) *DispatchError {
	return &DispatchError{Kind: ErrState, Message: msg}
}

func authorizationError(msg string) *DispatchError {
	return &DispatchError{Kind: ErrAuthorization, Message: msg}
}

func duplicateActionError(msg string) *DispatchError {
	return &DispatchError{Kind: ErrDuplicateAction, Message: msg}
}

func resolverError(msg string, cause error) *DispatchError {
	if cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, cause)
	}
	return &DispatchError{Kind: ErrResolver, Message: msg}
}
