package dispatch

import (
	"fmt"
	"strings"

	"github.com/anquanyun/safety-approval/internal/models"
)

// HandlerSet is a resolved set of approvers. UserIDs and UserNames are
// parallel slices; MatchedBy names the strategy that produced the set.
type HandlerSet struct {
	UserIDs   []string `json:"user_ids"`
	UserNames []string `json:"user_names"`
	MatchedBy string   `json:"matched_by,omitempty"`
}

// Empty reports whether no approver was resolved.
func (h HandlerSet) Empty() bool {
	return len(h.UserIDs) == 0
}

// handlerBuilder accumulates approvers, de-duplicating by user id and
// preserving insertion order so identical inputs always yield identical
// output.
type handlerBuilder struct {
	set  HandlerSet
	seen map[string]bool
}

func newHandlerBuilder(matchedBy models.ApproverStrategy) *handlerBuilder {
	return &handlerBuilder{
		set:  HandlerSet{UserIDs: []string{}, UserNames: []string{}, MatchedBy: string(matchedBy)},
		seen: make(map[string]bool),
	}
}

func (b *handlerBuilder) add(id, name string) {
	if id == "" || b.seen[id] {
		return
	}
	b.seen[id] = true
	b.set.UserIDs = append(b.set.UserIDs, id)
	b.set.UserNames = append(b.set.UserNames, name)
}

func (b *handlerBuilder) addUser(u models.User) {
	b.add(u.ID, u.Name)
}

// ResolveApprovers computes who may act at a step. Strategy dispatch is an
// exhaustive match over the closed config union; adding a strategy means
// adding a variant and a case here.
//
// Missing directory entries and unmatched rules yield an empty set, not an
// error: some steps legitimately have no next handler. Errors are reserved
// for broken configuration (nil or mismatched config variant).
func ResolveApprovers(step models.WorkflowStep, record *models.RecordSnapshot, directory *models.DirectoryData, form models.FormData) (HandlerSet, error) {
	b := newHandlerBuilder(step.Strategy)

	switch cfg := step.Config.(type) {
	case models.FixedUsersConfig:
		for _, ref := range cfg.Users {
			name := ref.Name
			if u, ok := directory.UserByID(ref.ID); ok {
				name = u.Name
			}
			b.add(ref.ID, name)
		}

	case models.RoleConfig:
		if directory != nil {
			for _, u := range directory.Users {
				if !matchesDepartment(u, cfg.Department) {
					continue
				}
				if cfg.RoleName != "" && !strings.Contains(u.Role, cfg.RoleName) {
					continue
				}
				b.addUser(u)
			}
		}

	case models.SubmitterDeptManagerConfig:
		submitterID := submitterOf(record)
		if submitter, ok := directory.UserByID(submitterID); ok {
			ref := submitter.DepartmentID
			if ref == "" {
				ref = submitter.Department
			}
			if manager, ok := directory.ManagerOf(ref); ok {
				b.addUser(manager)
			}
		}

	case models.DepartmentManagerConfig:
		if manager, ok := directory.ManagerOf(cfg.DepartmentID); ok {
			b.addUser(manager)
		}

	case models.FieldDepartmentConfig:
		if field, ok := form[cfg.FieldName]; ok && field.Type == models.FieldTypeDepartment {
			if manager, ok := directory.ManagerOf(strings.TrimSpace(field.Value)); ok {
				b.addUser(manager)
			}
		}

	case models.TextMatchConfig:
		for _, rule := range cfg.Rules {
			value := form.Text(rule.FieldName)
			if value == "" || rule.ContainsText == "" {
				continue
			}
			if !strings.Contains(value, rule.ContainsText) {
				continue
			}
			if manager, ok := directory.ManagerOf(rule.TargetDepartment); ok {
				b.addUser(manager)
			}
		}

	case models.OptionMatchConfig:
		for _, rule := range cfg.Rules {
			if !form.Checked(rule.FieldName, rule.CheckedValue) {
				continue
			}
			switch rule.ApproverType {
			case models.OptionApproverUser:
				if u, ok := directory.UserByID(rule.Target); ok {
					b.addUser(u)
				}
			case models.OptionApproverDeptManager:
				if manager, ok := directory.ManagerOf(rule.Target); ok {
					b.addUser(manager)
				}
			default:
				return HandlerSet{}, fmt.Errorf("unknown option approver type: %s", rule.ApproverType)
			}
		}

	case nil:
		return HandlerSet{}, fmt.Errorf("step %q has no strategy config", step.ID)

	default:
		return HandlerSet{}, fmt.Errorf("step %q: unsupported strategy config %T", step.ID, step.Config)
	}

	return b.set, nil
}

// submitterOf returns the operator of the record's first log entry, or the
// record's responsible person when no action has been logged yet.
func submitterOf(record *models.RecordSnapshot) string {
	if record == nil {
		return ""
	}
	if len(record.ApprovalLogs) > 0 {
		return record.ApprovalLogs[0].OperatorID
	}
	return record.ResponsibleID
}

func matchesDepartment(u models.User, ref string) bool {
	if ref == "" {
		return true
	}
	return u.DepartmentID == ref || u.Department == ref
}
