package service_test

import (
	"context"
	"errors"
	"testing"

	"easyconnect-server/internal/messaging"
	"easyconnect-server/internal/models"
	"easyconnect-server/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestNotifier(
	store *MockNotificationRepository,
	users *MockUserRepository,
	queue *MockWorkQueuePublisher,
	broadcaster service.Broadcaster,
) *service.Notifier {
	tokens := new(MockDeviceTokenRepository)
	push := new(MockPushClient)
	effects := service.NewEffectsProcessor(store, tokens, nil, push, zap.NewNop())
	dispatcher := service.NewDispatcher(store, users, queue, effects, zap.NewNop())
	return service.NewNotifier(dispatcher, broadcaster, zap.NewNop())
}

// workItemRequest достает запрос из аргумента мока публикации.
func workItemRequest(t *testing.T, arg any) *models.DispatchRequest {
	t.Helper()
	item, ok := arg.(messaging.WorkItem)
	require.True(t, ok, "expected messaging.WorkItem, got %T", arg)
	require.Equal(t, messaging.WorkItemKindCreate, item.Kind)
	require.NotNil(t, item.Request)
	return item.Request
}

func TestNotifyLeaveSubmission(t *testing.T) {
	ctx := context.Background()

	t.Run("Notifies every approver with the submission details", func(t *testing.T) {
		store := new(MockNotificationRepository)
		users := new(MockUserRepository)
		queue := new(MockWorkQueuePublisher)
		notifier := newTestNotifier(store, users, queue, nil)

		patron := uuid.New()
		users.On("GetIDsByRole", ctx, models.RolePatron).Return([]uuid.UUID{patron}, nil).Once()

		queue.On("PublishWorkItem", ctx, mock.Anything).
			Run(func(args mock.Arguments) {
				req := workItemRequest(t, args.Get(1))
				assert.Equal(t, patron, req.UserID)
				assert.Equal(t, "Soumission Demande de Congé", req.Titre)
				assert.Equal(t, models.PrioriteHaute, req.Priorite)
				assert.Equal(t, "Jean Dupont", req.Metadata["soumis_par"])
				require.NotNil(t, req.ActionRoute)
				assert.Equal(t, "/leave_request/congé-42", *req.ActionRoute)
			}).
			Return(nil).Once()

		err := notifier.NotifyLeaveSubmission(ctx, "congé-42", "Jean Dupont")
		require.NoError(t, err)

		users.AssertExpectations(t)
		queue.AssertExpectations(t)
	})

	t.Run("No approver is not an error", func(t *testing.T) {
		store := new(MockNotificationRepository)
		users := new(MockUserRepository)
		queue := new(MockWorkQueuePublisher)
		notifier := newTestNotifier(store, users, queue, nil)

		users.On("GetIDsByRole", ctx, models.RolePatron).Return([]uuid.UUID{}, nil).Once()

		err := notifier.NotifyLeaveSubmission(ctx, "congé-42", "Jean Dupont")
		require.NoError(t, err)
		store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestNotifyLeaveDecision(t *testing.T) {
	ctx := context.Background()
	employee := uuid.New()

	t.Run("Approval is delivered as a success notification", func(t *testing.T) {
		store := new(MockNotificationRepository)
		users := new(MockUserRepository)
		queue := new(MockWorkQueuePublisher)
		notifier := newTestNotifier(store, users, queue, nil)

		queue.On("PublishWorkItem", ctx, mock.Anything).
			Run(func(args mock.Arguments) {
				item := args.Get(1)
				req := workItemRequest(t, item)
				assert.Equal(t, employee, req.UserID)
				assert.Equal(t, models.TypeSuccess, req.Type)
				assert.Equal(t, "Votre demande de congé a été approuvée", req.Message)
				require.NotNil(t, req.ActionRoute)
				assert.Equal(t, "/leave_request/congé-42", *req.ActionRoute)
			}).
			Return(nil).Once()

		err := notifier.NotifyLeaveApproved(ctx, employee, "congé-42")
		require.NoError(t, err)
		queue.AssertExpectations(t)
	})

	t.Run("Rejection carries the reason and high priority", func(t *testing.T) {
		store := new(MockNotificationRepository)
		users := new(MockUserRepository)
		queue := new(MockWorkQueuePublisher)
		notifier := newTestNotifier(store, users, queue, nil)

		queue.On("PublishWorkItem", ctx, mock.Anything).
			Run(func(args mock.Arguments) {
				req := workItemRequest(t, args.Get(1))
				assert.Equal(t, models.TypeError, req.Type)
				assert.Equal(t, models.PrioriteHaute, req.Priorite)
				assert.Equal(t, "Votre demande de congé a été refusée", req.Message)
				assert.Equal(t, "effectif insuffisant", req.Metadata["raison"])
			}).
			Return(nil).Once()

		err := notifier.NotifyLeaveRejected(ctx, employee, "congé-42", "effectif insuffisant")
		require.NoError(t, err)
		queue.AssertExpectations(t)
	})
}

func TestBroadcastToRole(t *testing.T) {
	ctx := context.Background()

	t.Run("Publishes a single role event after dispatching", func(t *testing.T) {
		store := new(MockNotificationRepository)
		users := new(MockUserRepository)
		queue := new(MockWorkQueuePublisher)
		broadcaster := new(MockBroadcaster)
		notifier := newTestNotifier(store, users, queue, broadcaster)

		members := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
		users.On("GetIDsByRole", ctx, models.RoleRH).Return(members, nil).Once()
		queue.On("PublishWorkItem", ctx, mock.Anything).Return(nil).Times(3)
		broadcaster.On("PublishToRole", ctx, models.RoleRH, mock.MatchedBy(func(n *models.Notification) bool {
			return n.Titre == "Réunion" && n.Type == models.TypeInfo
		})).Return(nil).Once()

		dispatched, err := notifier.BroadcastToRH(ctx, "Réunion", "Réunion générale à 14h")
		require.NoError(t, err)
		assert.Equal(t, 3, dispatched)
		broadcaster.AssertExpectations(t)
	})

	t.Run("No role event when nothing was dispatched", func(t *testing.T) {
		store := new(MockNotificationRepository)
		users := new(MockUserRepository)
		queue := new(MockWorkQueuePublisher)
		broadcaster := new(MockBroadcaster)
		notifier := newTestNotifier(store, users, queue, broadcaster)

		users.On("GetIDsByRole", ctx, models.RoleAdmin).Return([]uuid.UUID{}, nil).Once()

		dispatched, err := notifier.BroadcastToAdmins(ctx, "Maintenance", "Maintenance prévue ce soir")
		require.NoError(t, err)
		assert.Equal(t, 0, dispatched)
		broadcaster.AssertNotCalled(t, "PublishToRole", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Role event failure does not fail the broadcast", func(t *testing.T) {
		store := new(MockNotificationRepository)
		users := new(MockUserRepository)
		queue := new(MockWorkQueuePublisher)
		broadcaster := new(MockBroadcaster)
		notifier := newTestNotifier(store, users, queue, broadcaster)

		users.On("GetIDsByRole", ctx, models.RoleRH).Return([]uuid.UUID{uuid.New()}, nil).Once()
		queue.On("PublishWorkItem", ctx, mock.Anything).Return(nil).Once()
		broadcaster.On("PublishToRole", ctx, models.RoleRH, mock.Anything).
			Return(errors.New("redis down")).Once()

		dispatched, err := notifier.BroadcastToRH(ctx, "Réunion", "Réunion générale à 14h")
		require.NoError(t, err)
		assert.Equal(t, 1, dispatched)
	})
}
