package service_test

import (
	"context"

	"easyconnect-server/internal/messaging"
	"easyconnect-server/internal/models"
	"easyconnect-server/internal/repository"
	"easyconnect-server/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// Моки репозиториев и зависимостей сервисного слоя.

type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func (m *MockNotificationRepository) GetByID(ctx context.Context, id, userID uuid.UUID) (*models.Notification, error) {
	args := m.Called(ctx, id, userID)
	if n, ok := args.Get(0).(*models.Notification); ok {
		return n, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockNotificationRepository) GetAny(ctx context.Context, id uuid.UUID) (*models.Notification, error) {
	args := m.Called(ctx, id)
	if n, ok := args.Get(0).(*models.Notification); ok {
		return n, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockNotificationRepository) List(ctx context.Context, userID uuid.UUID, filter repository.NotificationFilter) ([]*models.Notification, error) {
	args := m.Called(ctx, userID, filter)
	if ns, ok := args.Get(0).([]*models.Notification); ok {
		return ns, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockNotificationRepository) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

func (m *MockNotificationRepository) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNotificationRepository) Archive(ctx context.Context, id, userID uuid.UUID) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

func (m *MockNotificationRepository) ArchiveRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNotificationRepository) DeleteArchived(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNotificationRepository) Stats(ctx context.Context, userID uuid.UUID) (*models.NotificationStats, error) {
	args := m.Called(ctx, userID)
	if s, ok := args.Get(0).(*models.NotificationStats); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockNotificationRepository) UnreadCounts(ctx context.Context, userID uuid.UUID) (int64, int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Get(1).(int64), args.Error(2)
}

type MockDeviceTokenRepository struct {
	mock.Mock
}

func (m *MockDeviceTokenRepository) Save(ctx context.Context, userID uuid.UUID, token string, deviceType, deviceID, appVersion *string) (*models.DeviceToken, error) {
	args := m.Called(ctx, userID, token, deviceType, deviceID, appVersion)
	if dt, ok := args.Get(0).(*models.DeviceToken); ok {
		return dt, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDeviceTokenRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.DeviceToken, error) {
	args := m.Called(ctx, userID)
	if ts, ok := args.Get(0).([]models.DeviceToken); ok {
		return ts, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDeviceTokenRepository) ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]models.DeviceToken, error) {
	args := m.Called(ctx, userID)
	if ts, ok := args.Get(0).([]models.DeviceToken); ok {
		return ts, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDeviceTokenRepository) Delete(ctx context.Context, userID uuid.UUID, token string) error {
	args := m.Called(ctx, userID, token)
	return args.Error(0)
}

func (m *MockDeviceTokenRepository) DeleteAll(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDeviceTokenRepository) MarkUsed(ctx context.Context, tokens []string) error {
	args := m.Called(ctx, tokens)
	return args.Error(0)
}

func (m *MockDeviceTokenRepository) Deactivate(ctx context.Context, tokens []string) (int64, error) {
	args := m.Called(ctx, tokens)
	return args.Get(0).(int64), args.Error(1)
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if u, ok := args.Get(0).(*models.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserRepository) GetIDsByRole(ctx context.Context, role int) ([]uuid.UUID, error) {
	args := m.Called(ctx, role)
	if ids, ok := args.Get(0).([]uuid.UUID); ok {
		return ids, args.Error(1)
	}
	return nil, args.Error(1)
}

type MockWorkQueuePublisher struct {
	mock.Mock
}

func (m *MockWorkQueuePublisher) PublishWorkItem(ctx context.Context, item messaging.WorkItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

type MockPushClient struct {
	mock.Mock
}

func (m *MockPushClient) Send(ctx context.Context, tokens []string, n *models.Notification) *service.SendResult {
	args := m.Called(ctx, tokens, n)
	return args.Get(0).(*service.SendResult)
}

type MockBroadcaster struct {
	mock.Mock
}

func (m *MockBroadcaster) PublishNotification(ctx context.Context, n *models.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func (m *MockBroadcaster) PublishToRole(ctx context.Context, role int, n *models.Notification) error {
	args := m.Called(ctx, role, n)
	return args.Error(0)
}
