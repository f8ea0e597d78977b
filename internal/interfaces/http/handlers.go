package http

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/anquanyun/safety-approval/internal/models"
	"github.com/anquanyun/safety-approval/internal/repository"
	"github.com/anquanyun/safety-approval/internal/services"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	service *services.DispatchService
	logger  *zap.Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(service *services.DispatchService, logger *zap.Logger) *Handlers {
	return &Handlers{
		service: service,
		logger:  logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ActionRequest is the payload for acting on a record.
type ActionRequest struct {
	Action       string `json:"action" binding:"required"`
	OperatorID   string `json:"operator_id" binding:"required"`
	OperatorName string `json:"operator_name"`
	Comment      string `json:"comment"`
}

// ListRecordsRequest represents query parameters for listing records
type ListRecordsRequest struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: gin.H{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// CreateRecord handles POST /api/records
func (h *Handlers) CreateRecord(c *gin.Context) {
	var req services.CreateRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	record, err := h.service.CreateRecord(req)
	if err != nil {
		if errors.Is(err, services.ErrWorkflowNotFound) {
			c.JSON(http.StatusNotFound, Response{Success: false, Error: err.Error()})
			return
		}
		h.logger.Error("Failed to create record", zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to create record"})
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: record})
}

// ListRecords handles GET /api/records
func (h *Handlers) ListRecords(c *gin.Context) {
	var req ListRecordsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid query parameters"})
		return
	}

	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 20
	}
	if req.Offset < 0 {
		req.Offset = 0
	}

	records, err := h.service.ListRecords(req.Limit, req.Offset)
	if err != nil {
		h.logger.Error("Failed to list records", zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to retrieve records"})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: records})
}

// GetRecord handles GET /api/records/:id
func (h *Handlers) GetRecord(c *gin.Context) {
	record, err := h.service.GetRecord(c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, Response{Success: false, Error: err.Error()})
			return
		}
		h.logger.Error("Failed to get record", zap.String("id", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to retrieve record"})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: record})
}

// DispatchAction handles POST /api/records/:id/actions
func (h *Handlers) DispatchAction(c *gin.Context) {
	var req ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	recordID := c.Param("id")
	operator := models.Operator{ID: req.OperatorID, Name: req.OperatorName}

	result, err := h.service.Dispatch(c.Request.Context(), recordID, models.Action(req.Action), operator, req.Comment)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrRecordNotFound), errors.Is(err, services.ErrWorkflowNotFound):
			c.JSON(http.StatusNotFound, Response{Success: false, Error: err.Error()})
		case errors.Is(err, repository.ErrVersionConflict):
			c.JSON(http.StatusConflict, Response{Success: false, Error: err.Error()})
		default:
			h.logger.Error("Dispatch failed",
				zap.String("record_id", recordID),
				zap.String("action", req.Action),
				zap.Error(err))
			c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "dispatch failed"})
		}
		return
	}

	if !result.Success {
		// The engine refused the action; the reason travels in the result.
		c.JSON(http.StatusUnprocessableEntity, Response{
			Success: false,
			Data:    result,
			Error:   result.Error.Message,
		})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: result})
}

// GetRecordLogs handles GET /api/records/:id/logs
func (h *Handlers) GetRecordLogs(c *gin.Context) {
	record, err := h.service.GetRecord(c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, Response{Success: false, Error: err.Error()})
			return
		}
		h.logger.Error("Failed to get record logs", zap.String("id", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to retrieve logs"})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: record.ApprovalLogs})
}

// ExportLedger handles GET /api/records/:id/ledger
func (h *Handlers) ExportLedger(c *gin.Context) {
	recordID := c.Param("id")

	data, err := h.service.ExportLedger(recordID)
	if err != nil {
		if errors.Is(err, services.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, Response{Success: false, Error: err.Error()})
			return
		}
		h.logger.Error("Failed to export ledger", zap.String("id", recordID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to export ledger"})
		return
	}

	filename := fmt.Sprintf("ledger-%s.xlsx", recordID)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

// ListWorkflows handles GET /api/workflows
func (h *Handlers) ListWorkflows(c *gin.Context) {
	defs, err := h.service.ListWorkflows()
	if err != nil {
		h.logger.Error("Failed to list workflows", zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to retrieve workflows"})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: defs})
}

// GetWorkflow handles GET /api/workflows/:id
func (h *Handlers) GetWorkflow(c *gin.Context) {
	def, err := h.service.GetWorkflow(c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrWorkflowNotFound) {
			c.JSON(http.StatusNotFound, Response{Success: false, Error: err.Error()})
			return
		}
		h.logger.Error("Failed to get workflow", zap.String("id", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to retrieve workflow"})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: def})
}

// SaveWorkflow handles PUT /api/workflows/:id
func (h *Handlers) SaveWorkflow(c *gin.Context) {
	var def models.WorkflowDefinition
	if err := c.ShouldBindJSON(&def); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid workflow definition"})
		return
	}
	def.ID = c.Param("id")

	if err := h.service.SaveWorkflow(&def); err != nil {
		h.logger.Error("Failed to save workflow", zap.String("id", def.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: def})
}

// SyncDirectory handles POST /api/directory/sync
func (h *Handlers) SyncDirectory(c *gin.Context) {
	var req services.DirectorySyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	if err := h.service.SyncDirectory(req); err != nil {
		h.logger.Error("Directory sync failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "directory sync failed"})
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: gin.H{
			"users":       len(req.Users),
			"departments": len(req.Departments),
		},
	})
}
