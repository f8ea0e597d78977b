package report

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/anquanyun/safety-approval/internal/models"
)

// LedgerExporter renders a record's approval trail as the 安全台账 Excel
// sheet inspectors ask for.
type LedgerExporter struct {
	logger *zap.Logger
}

// NewLedgerExporter creates a ledger exporter.
func NewLedgerExporter(logger *zap.Logger) *LedgerExporter {
	return &LedgerExporter{logger: logger}
}

var ledgerHeader = []string{"序号", "步骤", "操作", "操作人", "时间", "审批意见", "变更摘要"}

// Export renders one record plus its logs into an xlsx document.
func (e *LedgerExporter) Export(record *models.RecordSnapshot, workflowName string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)

	e.setCell(f, sheet, "A1", fmt.Sprintf("安全审批台账 - %s", workflowName))
	e.setCell(f, sheet, "A2", fmt.Sprintf("记录编号: %s", record.ID))
	e.setCell(f, sheet, "A3", fmt.Sprintf("当前状态: %s", record.Status))
	e.setCell(f, sheet, "A4", fmt.Sprintf("责任人: %s", record.ResponsibleName))

	headerRow := 6
	for i, title := range ledgerHeader {
		cell, err := excelize.CoordinatesToCellName(i+1, headerRow)
		if err != nil {
			return nil, fmt.Errorf("failed to build header cell: %w", err)
		}
		e.setCell(f, sheet, cell, title)
	}

	for i, entry := range record.ApprovalLogs {
		row := headerRow + 1 + i
		values := []interface{}{
			i + 1,
			entry.StepName,
			string(entry.Action),
			entry.OperatorName,
			entry.Timestamp.Format("2006-01-02 15:04:05"),
			entry.Comment,
			entry.Changes,
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return nil, fmt.Errorf("failed to build cell name: %w", err)
			}
			e.setCell(f, sheet, cell, value)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write ledger workbook: %w", err)
	}

	e.logger.Info("Exported approval ledger",
		zap.String("record_id", record.ID),
		zap.Int("entries", len(record.ApprovalLogs)))

	return buf.Bytes(), nil
}

func (e *LedgerExporter) setCell(f *excelize.File, sheet, cell string, value interface{}) {
	if err := f.SetCellValue(sheet, cell, value); err != nil {
		e.logger.Warn("Failed to set cell", zap.String("cell", cell), zap.Error(err))
	}
}
