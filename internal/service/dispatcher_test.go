package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"easyconnect-server/internal/messaging"
	"easyconnect-server/internal/models"
	"easyconnect-server/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestDispatcher(
	store *MockNotificationRepository,
	users *MockUserRepository,
	queue messaging.WorkQueuePublisher,
	tokens *MockDeviceTokenRepository,
	push *MockPushClient,
) *service.Dispatcher {
	effects := service.NewEffectsProcessor(store, tokens, nil, push, zap.NewNop())
	return service.NewDispatcher(store, users, queue, effects, zap.NewNop())
}

func TestDispatchSync(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("Persists notification and enqueues effects", func(t *testing.T) {
		store := new(MockNotificationRepository)
		users := new(MockUserRepository)
		queue := new(MockWorkQueuePublisher)
		tokens := new(MockDeviceTokenRepository)
		push := new(MockPushClient)
		d := newTestDispatcher(store, users, queue, tokens, push)

		store.On("Create", ctx, mock.MatchedBy(func(n *models.Notification) bool {
			assert.Equal(t, userID, n.UserID)
			assert.Equal(t, models.StatutNonLue, n.Statut)
			assert.NotEqual(t, uuid.Nil, n.ID)
			return true
		})).Return(nil).Once()

		queue.On("PublishWorkItem", ctx, mock.MatchedBy(func(item messaging.WorkItem) bool {
			assert.Equal(t, messaging.WorkItemKindEffects, item.Kind)
			assert.NotEqual(t, uuid.Nil, item.NotificationID)
			return true
		})).Return(nil).Once()

		n, err := d.Dispatch(ctx, models.DispatchRequest{
			UserID:  userID,
			Titre:   "Titre",
			Message: "Message",
			Sync:    true,
		})

		require.NoError(t, err)
		require.NotNil(t, n)
		assert.Equal(t, models.StatutNonLue, n.Statut)
		// Пустые поля запроса нормализованы до значений по умолчанию
		assert.Equal(t, models.TypeInfo, n.Type)
		assert.Equal(t, models.PrioriteNormale, n.Priorite)

		store.AssertExpectations(t)
		queue.AssertExpectations(t)
	})

	t.Run("Persistence error is the only error surfaced to caller", func(t *testing.T) {
		store := new(MockNotificationRepository)
		users := new(MockUserRepository)
		queue := new(MockWorkQueuePublisher)
		tokens := new(MockDeviceTokenRepository)
		push := new(MockPushClient)
		d := newTestDispatcher(store, users, queue, tokens, push)

		dbErr := errors.New("connection reset")
		store.On("Create", ctx, mock.Anything).Return(dbErr).Once()

		n, err := d.Dispatch(ctx, models.DispatchRequest{
			UserID:  userID,
			Titre:   "Titre",
			Message: "Message",
			Sync:    true,
		})

		require.Error(t, err)
		assert.Nil(t, n)
		assert.True(t, errors.Is(err, dbErr))

		// При ошибке записи эффекты не планируются
		queue.AssertNotCalled(t, "PublishWorkItem", mock.Anything, mock.Anything)
	})

	t.Run("Effects enqueue failure does not surface to caller", func(t *testing.T) {
		store := new(MockNotificationRepository)
		users := new(MockUserRepository)
		queue := new(MockWorkQueuePublisher)
		tokens := new(MockDeviceTokenRepository)
		push := new(MockPushClient)
		d := newTestDispatcher(store, users, queue, tokens, push)

		store.On("Create", ctx, mock.Anything).Return(nil).Once()
		queue.On("PublishWorkItem", ctx, mock.Anything).Return(errors.New("broker down")).Once()
		// Fallback: эффекты выполняются в том же процессе
		tokens.On("ListActiveByUser", ctx, userID).Return([]models.DeviceToken{}, nil).Once()

		n, err := d.Dispatch(ctx, models.DispatchRequest{
			UserID:  userID,
			Titre:   "Titre",
			Message: "Message",
			Sync:    true,
		})

		require.NoError(t, err)
		require.NotNil(t, n)
		tokens.AssertExpectations(t)
	})

	t.Run("Push failure during inline effects does not surface to caller", func(t *testing.T) {
		store := new(MockNotificationRepository)
		users := new(MockUserRepository)
		tokens := new(MockDeviceTokenRepository)
		push := new(MockPushClient)
		// Без очереди эффекты всегда выполняются в том же процессе
		d := newTestDispatcher(store, users, nil, tokens, push)

		store.On("Create", ctx, mock.Anything).Return(nil).Once()
		tokens.On("ListActiveByUser", ctx, userID).Return([]models.DeviceToken{
			{Token: "token-1", IsActive: true},
		}, nil).Once()
		push.On("Send", mock.Anything, []string{"token-1"}, mock.Anything).
			Return(&service.SendResult{Success: false, FailureCount: 1, Total: 1}).Once()

		n, err := d.Dispatch(ctx, models.DispatchRequest{
			UserID:  userID,
			Titre:   "Titre",
			Message: "Message",
			Sync:    true,
		})

		require.NoError(t, err)
		require.NotNil(t, n)
		push.AssertExpectations(t)
	})
}

func TestDispatchAsync(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("Returns immediately and enqueues full work item", func(t *testing.T) {
		store := new(MockNotificationRepository)
		users := new(MockUserRepository)
		queue := new(MockWorkQueuePublisher)
		tokens := new(MockDeviceTokenRepository)
		push := new(MockPushClient)
		d := newTestDispatcher(store, users, queue, tokens, push)

		queue.On("PublishWorkItem", ctx, mock.MatchedBy(func(item messaging.WorkItem) bool {
			assert.Equal(t, messaging.WorkItemKindCreate, item.Kind)
			require.NotNil(t, item.Request)
			assert.Equal(t, userID, item.Request.UserID)
			return true
		})).Return(nil).Once()

		n, err := d.Dispatch(ctx, models.DispatchRequest{
			UserID:  userID,
			Titre:   "Titre",
			Message: "Message",
		})

		require.NoError(t, err)
		assert.Nil(t, n)
		// Запись в БД не выполняется в вызывающем процессе
		store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		queue.AssertExpectations(t)
	})

	t.Run("Falls back to in-process work when enqueue fails", func(t *testing.T) {
		store := new(MockNotificationRepository)
		users := new(MockUserRepository)
		queue := new(MockWorkQueuePublisher)
		tokens := new(MockDeviceTokenRepository)
		push := new(MockPushClient)
		d := newTestDispatcher(store, users, queue, tokens, push)

		created := make(chan struct{})
		queue.On("PublishWorkItem", ctx, mock.Anything).Return(errors.New("broker down")).Once()
		store.On("Create", mock.Anything, mock.Anything).Return(nil).Once()
		tokens.On("ListActiveByUser", mock.Anything, userID).
			Run(func(args mock.Arguments) { close(created) }).
			Return([]models.DeviceToken{}, nil).Once()

		n, err := d.Dispatch(ctx, models.DispatchRequest{
			UserID:  userID,
			Titre:   "Titre",
			Message: "Message",
		})

		require.NoError(t, err)
		assert.Nil(t, n)

		select {
		case <-created:
		case <-time.After(2 * time.Second):
			t.Fatal("in-process fallback did not run")
		}
		store.AssertExpectations(t)
	})

	t.Run("In-process persistence failure stays invisible to caller", func(t *testing.T) {
		store := new(MockNotificationRepository)
		users := new(MockUserRepository)
		tokens := new(MockDeviceTokenRepository)
		push := new(MockPushClient)
		d := newTestDispatcher(store, users, nil, tokens, push)

		done := make(chan struct{})
		store.On("Create", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) { close(done) }).
			Return(errors.New("connection reset")).Once()

		n, err := d.Dispatch(ctx, models.DispatchRequest{
			UserID:  userID,
			Titre:   "Titre",
			Message: "Message",
		})

		require.NoError(t, err)
		assert.Nil(t, n)

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("in-process work did not run")
		}
		// Эффекты после неудачной записи не выполняются
		tokens.AssertNotCalled(t, "ListActiveByUser", mock.Anything, mock.Anything)
	})
}

func TestNotifyRole(t *testing.T) {
	ctx := context.Background()

	t.Run("No users with role is a successful no-op", func(t *testing.T) {
		store := new(MockNotificationRepository)
		users := new(MockUserRepository)
		queue := new(MockWorkQueuePublisher)
		tokens := new(MockDeviceTokenRepository)
		push := new(MockPushClient)
		d := newTestDispatcher(store, users, queue, tokens, push)

		users.On("GetIDsByRole", ctx, models.RolePatron).Return([]uuid.UUID{}, nil).Once()

		dispatched, err := d.NotifyRole(ctx, models.RolePatron, models.DispatchRequest{
			Titre:   "Titre",
			Message: "Message",
			Sync:    true,
		})

		require.NoError(t, err)
		assert.Equal(t, 0, dispatched)
		store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("Partial failure is logged and skipped", func(t *testing.T) {
		store := new(MockNotificationRepository)
		users := new(MockUserRepository)
		queue := new(MockWorkQueuePublisher)
		tokens := new(MockDeviceTokenRepository)
		push := new(MockPushClient)
		d := newTestDispatcher(store, users, queue, tokens, push)

		first := uuid.New()
		second := uuid.New()
		users.On("GetIDsByRole", ctx, models.RoleRH).Return([]uuid.UUID{first, second}, nil).Once()

		store.On("Create", ctx, mock.MatchedBy(func(n *models.Notification) bool {
			return n.UserID == first
		})).Return(errors.New("connection reset")).Once()
		store.On("Create", ctx, mock.MatchedBy(func(n *models.Notification) bool {
			return n.UserID == second
		})).Return(nil).Once()
		queue.On("PublishWorkItem", ctx, mock.Anything).Return(nil).Once()

		dispatched, err := d.NotifyRole(ctx, models.RoleRH, models.DispatchRequest{
			Titre:   "Titre",
			Message: "Message",
			Sync:    true,
		})

		require.NoError(t, err)
		assert.Equal(t, 1, dispatched)
		store.AssertExpectations(t)
	})

	t.Run("Role lookup failure is returned", func(t *testing.T) {
		store := new(MockNotificationRepository)
		users := new(MockUserRepository)
		queue := new(MockWorkQueuePublisher)
		tokens := new(MockDeviceTokenRepository)
		push := new(MockPushClient)
		d := newTestDispatcher(store, users, queue, tokens, push)

		dbErr := errors.New("connection reset")
		users.On("GetIDsByRole", ctx, models.RoleAdmin).Return(nil, dbErr).Once()

		dispatched, err := d.NotifyRole(ctx, models.RoleAdmin, models.DispatchRequest{
			Titre:   "Titre",
			Message: "Message",
		})

		require.Error(t, err)
		assert.True(t, errors.Is(err, dbErr))
		assert.Equal(t, 0, dispatched)
	})
}

func TestHandleWorkItem(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("Create item persists and runs effects", func(t *testing.T) {
		store := new(MockNotificationRepository)
		users := new(MockUserRepository)
		tokens := new(MockDeviceTokenRepository)
		push := new(MockPushClient)
		d := newTestDispatcher(store, users, nil, tokens, push)

		store.On("Create", ctx, mock.MatchedBy(func(n *models.Notification) bool {
			return n.UserID == userID && n.Statut == models.StatutNonLue
		})).Return(nil).Once()
		tokens.On("ListActiveByUser", ctx, userID).Return([]models.DeviceToken{}, nil).Once()

		err := d.HandleWorkItem(ctx, messaging.WorkItem{
			Kind: messaging.WorkItemKindCreate,
			Request: &models.DispatchRequest{
				UserID:  userID,
				Titre:   "Titre",
				Message: "Message",
			},
		})

		require.NoError(t, err)
		store.AssertExpectations(t)
		tokens.AssertExpectations(t)
	})

	t.Run("Effects item loads notification and delivers", func(t *testing.T) {
		store := new(MockNotificationRepository)
		users := new(MockUserRepository)
		tokens := new(MockDeviceTokenRepository)
		push := new(MockPushClient)
		d := newTestDispatcher(store, users, nil, tokens, push)

		notificationID := uuid.New()
		stored := &models.Notification{
			ID:     notificationID,
			UserID: userID,
			Titre:  "Titre",
			Statut: models.StatutNonLue,
		}
		store.On("GetAny", ctx, notificationID).Return(stored, nil).Once()
		tokens.On("ListActiveByUser", ctx, userID).Return([]models.DeviceToken{
			{Token: "token-1", IsActive: true},
		}, nil).Once()
		push.On("Send", mock.Anything, []string{"token-1"}, stored).
			Return(&service.SendResult{Success: true, SuccessCount: 1, Total: 1}).Once()

		err := d.HandleWorkItem(ctx, messaging.WorkItem{
			Kind:           messaging.WorkItemKindEffects,
			NotificationID: notificationID,
		})

		require.NoError(t, err)
		push.AssertExpectations(t)
	})

	t.Run("Effects item for missing notification returns error", func(t *testing.T) {
		store := new(MockNotificationRepository)
		users := new(MockUserRepository)
		tokens := new(MockDeviceTokenRepository)
		push := new(MockPushClient)
		d := newTestDispatcher(store, users, nil, tokens, push)

		notificationID := uuid.New()
		store.On("GetAny", ctx, notificationID).Return(nil, models.ErrNotificationNotFound).Once()

		err := d.HandleWorkItem(ctx, messaging.WorkItem{
			Kind:           messaging.WorkItemKindEffects,
			NotificationID: notificationID,
		})

		require.Error(t, err)
		assert.True(t, errors.Is(err, models.ErrNotificationNotFound))
	})

	t.Run("Unknown kind returns error", func(t *testing.T) {
		store := new(MockNotificationRepository)
		users := new(MockUserRepository)
		tokens := new(MockDeviceTokenRepository)
		push := new(MockPushClient)
		d := newTestDispatcher(store, users, nil, tokens, push)

		err := d.HandleWorkItem(ctx, messaging.WorkItem{Kind: "reindex"})
		require.Error(t, err)
	})
}
