package notification

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/anquanyun/safety-approval/internal/dispatch"
	"github.com/anquanyun/safety-approval/internal/models"
)

// Sender delivers one text message to one user. The Lark message API
// satisfies it in production.
type Sender interface {
	SendText(ctx context.Context, userID, text string) (string, error)
}

// Notifier tells the next handlers of a record that it is waiting on
// them. It runs after a dispatch has been persisted and is strictly
// best-effort: delivery failures are logged, never propagated back into
// the approval flow.
type Notifier struct {
	sender  Sender
	enabled bool
	logger  *zap.Logger
}

// NewNotifier creates a notifier. With enabled false (or a nil sender)
// notifications are logged only.
func NewNotifier(sender Sender, enabled bool, logger *zap.Logger) *Notifier {
	return &Notifier{
		sender:  sender,
		enabled: enabled && sender != nil,
		logger:  logger,
	}
}

// NotifyDispatch messages every resolved handler of a successful dispatch.
func (n *Notifier) NotifyDispatch(ctx context.Context, record *models.RecordSnapshot, result dispatch.Result) {
	if !result.Success || len(result.Handlers.UserIDs) == 0 {
		return
	}

	text := fmt.Sprintf("安全审批提醒：记录 %s 已进入「%s」状态，等待您处理。", record.ID, result.NewStatus)
	if result.NextStepIndex == models.TerminalStepIndex {
		text = fmt.Sprintf("安全审批提醒：记录 %s 已结束，最终状态「%s」。", record.ID, result.NewStatus)
	}

	for i, userID := range result.Handlers.UserIDs {
		name := ""
		if i < len(result.Handlers.UserNames) {
			name = result.Handlers.UserNames[i]
		}

		if !n.enabled {
			n.logger.Info("Notification suppressed (channel disabled)",
				zap.String("record_id", record.ID),
				zap.String("user_id", userID),
				zap.String("user_name", name))
			continue
		}

		if _, err := n.sender.SendText(ctx, userID, text); err != nil {
			n.logger.Warn("Failed to notify handler",
				zap.String("record_id", record.ID),
				zap.String("user_id", userID),
				zap.Error(err))
		}
	}
}
