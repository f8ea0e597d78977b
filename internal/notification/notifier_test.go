package notification

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/anquanyun/safety-approval/internal/dispatch"
	"github.com/anquanyun/safety-approval/internal/models"
)

type fakeSender struct {
	sent []string
	err  error
}

func (f *fakeSender) SendText(_ context.Context, userID, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, userID)
	return "msg-1", nil
}

func successResult(userIDs ...string) dispatch.Result {
	return dispatch.Result{
		Success:       true,
		NewStatus:     "assigned",
		NextStepIndex: 1,
		Handlers:      dispatch.HandlerSet{UserIDs: userIDs, UserNames: make([]string, len(userIDs))},
	}
}

func TestNotifyDispatchSendsToAllHandlers(t *testing.T) {
	sender := &fakeSender{}
	notifier := NewNotifier(sender, true, zap.NewNop())

	notifier.NotifyDispatch(context.Background(), &models.RecordSnapshot{ID: "rec-1"}, successResult("u-a", "u-b"))

	assert.Equal(t, []string{"u-a", "u-b"}, sender.sent)
}

func TestNotifyDispatchSkipsFailuresAndEmpty(t *testing.T) {
	sender := &fakeSender{}
	notifier := NewNotifier(sender, true, zap.NewNop())

	notifier.NotifyDispatch(context.Background(), &models.RecordSnapshot{ID: "rec-1"}, dispatch.Result{Success: false})
	notifier.NotifyDispatch(context.Background(), &models.RecordSnapshot{ID: "rec-1"}, successResult())

	assert.Empty(t, sender.sent)
}

func TestNotifyDispatchDisabledChannel(t *testing.T) {
	sender := &fakeSender{}
	notifier := NewNotifier(sender, false, zap.NewNop())

	notifier.NotifyDispatch(context.Background(), &models.RecordSnapshot{ID: "rec-1"}, successResult("u-a"))

	assert.Empty(t, sender.sent, "disabled channel must not send")
}

func TestNotifyDispatchDeliveryErrorIsSwallowed(t *testing.T) {
	sender := &fakeSender{err: errors.New("network down")}
	notifier := NewNotifier(sender, true, zap.NewNop())

	// Must not panic or propagate.
	notifier.NotifyDispatch(context.Background(), &models.RecordSnapshot{ID: "rec-1"}, successResult("u-a"))
}
