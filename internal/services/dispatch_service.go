package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/anquanyun/safety-approval/internal/dispatch"
	"github.com/anquanyun/safety-approval/internal/models"
	"github.com/anquanyun/safety-approval/internal/notification"
	"github.com/anquanyun/safety-approval/internal/report"
	"github.com/anquanyun/safety-approval/internal/repository"
	"github.com/anquanyun/safety-approval/internal/template"
	"github.com/anquanyun/safety-approval/pkg/database"
)

var (
	// ErrRecordNotFound is returned when the record id does not exist.
	ErrRecordNotFound = errors.New("记录不存在")
	// ErrWorkflowNotFound is returned when a record references a workflow
	// definition that was never registered.
	ErrWorkflowNotFound = errors.New("流程定义不存在")
)

// CreateRecordRequest is the payload for opening a new safety record.
type CreateRecordRequest struct {
	WorkflowID      string `json:"workflow_id" binding:"required"`
	ResponsibleID   string `json:"responsible_id" binding:"required"`
	ResponsibleName string `json:"responsible_name"`
	FormData        string `json:"form_data"`
}

// DirectorySyncRequest replaces directory entries with a fresh pull from
// the HR system.
type DirectorySyncRequest struct {
	Users       []models.User       `json:"users"`
	Departments []models.Department `json:"departments"`
}

// DispatchService drives the full life of a safety record: it loads the
// state the pure engine needs, runs the dispatch, persists the accepted
// transition atomically and hands the resolved handlers to the notifier.
type DispatchService struct {
	db        *database.DB
	engine    *dispatch.Engine
	records   *repository.RecordRepository
	logs      *repository.LogRepository
	workflows *repository.WorkflowRepository
	directory *repository.DirectoryRepository
	parser    *template.Parser
	exporter  *report.LedgerExporter
	notifier  *notification.Notifier
	logger    *zap.Logger
}

// NewDispatchService creates a dispatch service.
func NewDispatchService(
	db *database.DB,
	engine *dispatch.Engine,
	records *repository.RecordRepository,
	logs *repository.LogRepository,
	workflows *repository.WorkflowRepository,
	directory *repository.DirectoryRepository,
	parser *template.Parser,
	exporter *report.LedgerExporter,
	notifier *notification.Notifier,
	logger *zap.Logger,
) *DispatchService {
	return &DispatchService{
		db:        db,
		engine:    engine,
		records:   records,
		logs:      logs,
		workflows: workflows,
		directory: directory,
		parser:    parser,
		exporter:  exporter,
		notifier:  notifier,
		logger:    logger,
	}
}

// CreateRecord opens a record at the first step of its workflow. The
// responsible person still has to submit it; creation itself writes no
// approval log entry.
func (s *DispatchService) CreateRecord(req CreateRecordRequest) (*models.RecordSnapshot, error) {
	def, err := s.workflows.GetByID(req.WorkflowID)
	if err != nil {
		return nil, err
	}
	if def == nil {
		return nil, ErrWorkflowNotFound
	}
	if len(def.Steps) == 0 {
		return nil, fmt.Errorf("流程 %s 未配置任何步骤", def.ID)
	}

	record := &models.RecordSnapshot{
		ID:               uuid.NewString(),
		WorkflowID:       def.ID,
		Status:           dispatch.StatusAt(*def, 0, dispatch.NotTerminal),
		CurrentStepIndex: 0,
		ResponsibleID:    req.ResponsibleID,
		ResponsibleName:  req.ResponsibleName,
		FormData:         req.FormData,
	}

	if err := s.records.Create(nil, record); err != nil {
		return nil, err
	}

	s.logger.Info("Record created",
		zap.String("record_id", record.ID),
		zap.String("workflow_id", def.ID),
		zap.String("status", record.Status))

	return record, nil
}

// GetRecord returns a record with its approval trail attached.
func (s *DispatchService) GetRecord(id string) (*models.RecordSnapshot, error) {
	record, err := s.records.GetByID(id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrRecordNotFound
	}

	if record.ApprovalLogs, err = s.logs.ListByRecordID(id); err != nil {
		return nil, err
	}
	return record, nil
}

// ListRecords returns records with pagination, newest first.
func (s *DispatchService) ListRecords(limit, offset int) ([]*models.RecordSnapshot, error) {
	return s.records.List(limit, offset)
}

// Dispatch runs one operator action against a record and persists the
// outcome. Validation failures come back inside the result; infrastructure
// failures, including a concurrent update losing the version race, come
// back as an error.
func (s *DispatchService) Dispatch(ctx context.Context, recordID string, action models.Action, operator models.Operator, comment string) (dispatch.Result, error) {
	record, err := s.GetRecord(recordID)
	if err != nil {
		return dispatch.Result{}, err
	}

	def, err := s.workflows.GetByID(record.WorkflowID)
	if err != nil {
		return dispatch.Result{}, err
	}
	if def == nil {
		return dispatch.Result{}, ErrWorkflowNotFound
	}

	dir, err := s.directory.Snapshot()
	if err != nil {
		return dispatch.Result{}, err
	}

	form, err := s.parser.Parse(record.FormData)
	if err != nil {
		return dispatch.Result{}, fmt.Errorf("record %s: %w", recordID, err)
	}

	result := s.engine.Dispatch(dispatch.Input{
		Record:     record,
		Action:     action,
		Operator:   operator,
		Definition: *def,
		Directory:  dir,
		Form:       form,
		Comment:    comment,
	})
	if !result.Success {
		s.logger.Info("Dispatch refused",
			zap.String("record_id", recordID),
			zap.String("action", string(action)),
			zap.String("operator_id", operator.ID),
			zap.String("reason", result.Error.Message))
		return result, nil
	}

	err = s.db.WithTransaction(func(tx *sql.Tx) error {
		if err := s.records.ApplyDispatch(tx,
			recordID,
			result.NewStatus,
			result.NextStepIndex,
			result.CandidateHandlers,
			record.SnapshotVersion(),
			result.Log.SnapshotVersion,
		); err != nil {
			return err
		}
		return s.logs.Append(tx, recordID, &result.Log)
	})
	if err != nil {
		return dispatch.Result{}, err
	}

	s.logger.Info("Dispatch applied",
		zap.String("record_id", recordID),
		zap.String("action", string(action)),
		zap.String("new_status", result.NewStatus),
		zap.Int("next_step_index", result.NextStepIndex))

	// Bring the in-memory snapshot in line with what was persisted before
	// anyone else sees it.
	record.Status = result.NewStatus
	record.CurrentStepIndex = result.NextStepIndex
	record.CandidateHandlers = result.CandidateHandlers
	record.ApprovalLogs = dispatch.AppendLog(record.ApprovalLogs, result.Log)

	s.notifier.NotifyDispatch(ctx, record, result)
	return result, nil
}

// ExportLedger renders a record's approval trail as an xlsx ledger.
func (s *DispatchService) ExportLedger(id string) ([]byte, error) {
	record, err := s.GetRecord(id)
	if err != nil {
		return nil, err
	}

	workflowName := record.WorkflowID
	if def, err := s.workflows.GetByID(record.WorkflowID); err == nil && def != nil {
		workflowName = def.Name
	}

	return s.exporter.Export(record, workflowName)
}

// SaveWorkflow registers or updates a workflow definition. Step configs
// are validated structurally by the tagged-union codec during binding;
// here only the shape of the flow is checked.
func (s *DispatchService) SaveWorkflow(def *models.WorkflowDefinition) error {
	if len(def.Steps) == 0 {
		return fmt.Errorf("流程 %s 未配置任何步骤", def.ID)
	}
	return s.workflows.Save(def)
}

// GetWorkflow returns one workflow definition.
func (s *DispatchService) GetWorkflow(id string) (*models.WorkflowDefinition, error) {
	def, err := s.workflows.GetByID(id)
	if err != nil {
		return nil, err
	}
	if def == nil {
		return nil, ErrWorkflowNotFound
	}
	return def, nil
}

// ListWorkflows returns all registered workflow definitions.
func (s *DispatchService) ListWorkflows() ([]*models.WorkflowDefinition, error) {
	return s.workflows.List()
}

// SyncDirectory replaces directory users and departments in one
// transaction. Partial syncs never become visible to the resolver.
func (s *DispatchService) SyncDirectory(req DirectorySyncRequest) error {
	err := s.db.WithTransaction(func(tx *sql.Tx) error {
		for i := range req.Departments {
			if err := s.directory.UpsertDepartment(tx, &req.Departments[i]); err != nil {
				return err
			}
		}
		for i := range req.Users {
			if err := s.directory.UpsertUser(tx, &req.Users[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Directory synced",
		zap.Int("users", len(req.Users)),
		zap.Int("departments", len(req.Departments)))
	return nil
}
