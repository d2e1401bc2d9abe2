package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/caseworks/appeal-engine/internal/infrastructure/monitoring/logging"
	"github.com/caseworks/appeal-engine/pkg/errors"
	"github.com/caseworks/appeal-engine/pkg/types/common"
)

type mockNotifier struct{ mock.Mock }

func (m *mockNotifier) SendNotification(ctx context.Context, n Notification) error {
	return m.Called(ctx, n).Error(0)
}

type mockAuditWriter struct{ mock.Mock }

func (m *mockAuditWriter) WriteAuditEntry(ctx context.Context, e AuditEntry) error {
	return m.Called(ctx, e).Error(0)
}

type mockBroadcaster struct{ mock.Mock }

func (m *mockBroadcaster) Broadcast(ctx context.Context, b Broadcast) error {
	return m.Called(ctx, b).Error(0)
}

func TestDispatchIsolatesFailures(t *testing.T) {
	notifier := &mockNotifier{}
	audit := &mockAuditWriter{}
	broadcaster := &mockBroadcaster{}

	notifier.On("SendNotification", mock.Anything, mock.Anything).
		Return(errors.New(errors.ErrCodeExternalService, "smtp down"))
	audit.On("WriteAuditEntry", mock.Anything, mock.Anything).Return(nil)
	broadcaster.On("Broadcast", mock.Anything, mock.Anything).Return(nil)

	e := NewExecutor(notifier, audit, broadcaster, logging.NewNopLogger(), nil, time.Second)
	failed := e.Dispatch(context.Background(), []SideEffect{
		Notification{TemplateName: TemplateCaseStarted, RecipientEmail: "a@example.com"},
		AuditEntry{CaseID: common.NewID(), ActorID: "officer-1", Message: "moved"},
		Broadcast{EntityID: common.NewID(), EntityType: "appeal-case", ChangeKind: ChangeKindCaseUpdated},
	})

	assert.Equal(t, 1, failed, "one failing notification must not stop the rest")
	audit.AssertExpectations(t)
	broadcaster.AssertExpectations(t)
}

func TestDispatchWithNilCollaboratorsDropsQuietly(t *testing.T) {
	e := NewExecutor(nil, nil, nil, logging.NewNopLogger(), nil, time.Second)
	failed := e.Dispatch(context.Background(), []SideEffect{
		Notification{TemplateName: TemplateCaseStarted},
		AuditEntry{},
		Broadcast{},
	})
	assert.Zero(t, failed)
}

func TestDispatchCountsSuccesses(t *testing.T) {
	broadcaster := &mockBroadcaster{}
	broadcaster.On("Broadcast", mock.Anything, mock.Anything).Return(nil).Twice()

	e := NewExecutor(nil, nil, broadcaster, logging.NewNopLogger(), nil, time.Second)
	failed := e.Dispatch(context.Background(), []SideEffect{
		Broadcast{ChangeKind: ChangeKindCaseUpdated},
		Broadcast{ChangeKind: ChangeKindTimetableSet},
	})
	assert.Zero(t, failed)
	broadcaster.AssertExpectations(t)
}
