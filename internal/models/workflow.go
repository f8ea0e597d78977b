package models

import (
	"encoding/json"
	"fmt"
)

// ApprovalMode determines how many resolved approvers must act before a
// step completes.
type ApprovalMode string

const (
	ModeOR          ApprovalMode = "OR"          // any single approver completes the step
	ModeAND         ApprovalMode = "AND"         // 会签: every approver must act once
	ModeConditional ApprovalMode = "CONDITIONAL" // per-approver routing conditions
)

// ApproverStrategy names the rule used to compute who may act at a step.
type ApproverStrategy string

const (
	StrategyFixed                ApproverStrategy = "fixed"
	StrategyRole                 ApproverStrategy = "role"
	StrategyCurrentDeptManager   ApproverStrategy = "current_dept_manager"
	StrategySpecificDeptManager  ApproverStrategy = "specific_dept_manager"
	StrategyTemplateFieldManager ApproverStrategy = "template_field_manager"
	StrategyTemplateTextMatch    ApproverStrategy = "template_text_match"
	StrategyTemplateOptionMatch  ApproverStrategy = "template_option_match"
)

// StrategyConfig is a closed union: exactly one concrete variant exists per
// approver strategy, and the resolver matches on it exhaustively.
type StrategyConfig interface {
	strategyConfig()
}

// FixedUsersConfig lists approvers verbatim.
type FixedUsersConfig struct {
	Users []UserRef `json:"users"`
}

// RoleConfig selects directory users of a department whose role contains
// RoleName as a substring.
type RoleConfig struct {
	RoleName   string `json:"role_name"`
	Department string `json:"department"`
}

// SubmitterDeptManagerConfig routes to the manager of the submitter's
// department. The submitter is the operator of the first approval log entry.
type SubmitterDeptManagerConfig struct{}

// DepartmentManagerConfig routes to the manager of an explicitly named
// department.
type DepartmentManagerConfig struct {
	DepartmentID string `json:"department_id"`
}

// FieldDepartmentConfig reads a department-typed form field and routes to
// that department's manager.
type FieldDepartmentConfig struct {
	FieldName string `json:"field_name"`
}

// TextMatchRule routes to a department's manager when a form field's text
// contains a marker.
type TextMatchRule struct {
	FieldName        string `json:"field_name"`
	ContainsText     string `json:"contains_text"`
	TargetDepartment string `json:"target_department"`
}

// TextMatchConfig evaluates its rules in order; all matching rules
// contribute to the result.
type TextMatchConfig struct {
	Rules []TextMatchRule `json:"rules"`
}

// OptionApproverType selects what an option rule's target names.
type OptionApproverType string

const (
	OptionApproverUser        OptionApproverType = "user"
	OptionApproverDeptManager OptionApproverType = "dept_manager"
)

// OptionMatchRule routes based on a checked option field. When CheckedValue
// is empty, any non-empty field value counts as checked.
type OptionMatchRule struct {
	FieldName    string             `json:"field_name"`
	CheckedValue string             `json:"checked_value"`
	ApproverType OptionApproverType `json:"approver_type"`
	Target       string             `json:"target"` // user id or department id
}

// OptionMatchConfig evaluates all rules; matched approvers are
// de-duplicated by user id.
type OptionMatchConfig struct {
	Rules []OptionMatchRule `json:"rules"`
}

func (FixedUsersConfig) strategyConfig()           {}
func (RoleConfig) strategyConfig()                 {}
func (SubmitterDeptManagerConfig) strategyConfig() {}
func (DepartmentManagerConfig) strategyConfig()    {}
func (FieldDepartmentConfig) strategyConfig()      {}
func (TextMatchConfig) strategyConfig()            {}
func (OptionMatchConfig) strategyConfig()          {}

// UserRef is a user identity as configured on a workflow step.
type UserRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CCRule names a user to carbon-copy when a step is entered.
type CCRule struct {
	UserID string `json:"user_id"`
	Reason string `json:"reason,omitempty"`
}

// WorkflowStep is one stage of a workflow definition. Its stable index is
// its position in the definition's step sequence.
type WorkflowStep struct {
	ID                string           `json:"id"`
	Name              string           `json:"name"`
	StatusName        string           `json:"status_name"` // record status while sitting on this step
	Strategy          ApproverStrategy `json:"strategy"`
	Config            StrategyConfig   `json:"-"`
	Mode              ApprovalMode     `json:"mode"`
	TriggerConditions []string         `json:"trigger_conditions,omitempty"`
	CCRules           []CCRule         `json:"cc_rules,omitempty"`
}

// WorkflowDefinition is an ordered sequence of steps plus the two terminal
// statuses a record can end in.
type WorkflowDefinition struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Steps          []WorkflowStep `json:"steps"`
	ApprovedStatus string         `json:"approved_status"` // forward terminal, e.g. "closed"
	RejectedStatus string         `json:"rejected_status"` // backward terminal, e.g. "rejected"
}

// stepJSON is the wire form of WorkflowStep; the strategy config is kept
// raw until the strategy tag selects its variant.
type stepJSON struct {
	ID                string           `json:"id"`
	Name              string           `json:"name"`
	StatusName        string           `json:"status_name"`
	Strategy          ApproverStrategy `json:"strategy"`
	Config            json.RawMessage  `json:"config,omitempty"`
	Mode              ApprovalMode     `json:"mode"`
	TriggerConditions []string         `json:"trigger_conditions,omitempty"`
	CCRules           []CCRule         `json:"cc_rules,omitempty"`
}

// UnmarshalJSON decodes a step and its strategy-tagged config variant.
func (s *WorkflowStep) UnmarshalJSON(data []byte) error {
	var raw stepJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	s.ID = raw.ID
	s.Name = raw.Name
	s.StatusName = raw.StatusName
	s.Strategy = raw.Strategy
	s.Mode = raw.Mode
	s.TriggerConditions = raw.TriggerConditions
	s.CCRules = raw.CCRules

	cfg, err := decodeStrategyConfig(raw.Strategy, raw.Config)
	if err != nil {
		return fmt.Errorf("step %q: %w", raw.ID, err)
	}
	s.Config = cfg
	return nil
}

// MarshalJSON encodes a step with its config variant inlined under "config".
func (s WorkflowStep) MarshalJSON() ([]byte, error) {
	raw := stepJSON{
		ID:                s.ID,
		Name:              s.Name,
		StatusName:        s.StatusName,
		Strategy:          s.Strategy,
		Mode:              s.Mode,
		TriggerConditions: s.TriggerConditions,
		CCRules:           s.CCRules,
	}

	if s.Config != nil {
		cfg, err := json.Marshal(s.Config)
		if err != nil {
			return nil, err
		}
		raw.Config = cfg
	}

	return json.Marshal(raw)
}

func decodeStrategyConfig(strategy ApproverStrategy, raw json.RawMessage) (StrategyConfig, error) {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}

	switch strategy {
	case StrategyFixed:
		var cfg FixedUsersConfig
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	case StrategyRole:
		var cfg RoleConfig
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	case StrategyCurrentDeptManager:
		return SubmitterDeptManagerConfig{}, nil
	case StrategySpecificDeptManager:
		var cfg DepartmentManagerConfig
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	case StrategyTemplateFieldManager:
		var cfg FieldDepartmentConfig
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	case StrategyTemplateTextMatch:
		var cfg TextMatchConfig
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	case StrategyTemplateOptionMatch:
		var cfg OptionMatchConfig
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	default:
		return nil, fmt.Errorf("unknown approver strategy: %s", strategy)
	}
}
