package service

import (
	"context"
	"fmt"

	"easyconnect-server/internal/models"
	"easyconnect-server/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Границы пагинации списка уведомлений.
const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// NotificationService — операции чтения и смены статусов для API.
// Создание уведомлений идет только через Dispatcher.
type NotificationService interface {
	List(ctx context.Context, userID uuid.UUID, filter repository.NotificationFilter) ([]*models.Notification, error)
	ListUnread(ctx context.Context, userID uuid.UUID) ([]*models.Notification, error)
	ListUrgent(ctx context.Context, userID uuid.UUID) ([]*models.Notification, error)
	Get(ctx context.Context, id, userID uuid.UUID) (*models.Notification, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
	Archive(ctx context.Context, id, userID uuid.UUID) error
	ArchiveRead(ctx context.Context, userID uuid.UUID) (int64, error)
	DeleteArchived(ctx context.Context, userID uuid.UUID) (int64, error)
	Stats(ctx context.Context, userID uuid.UUID) (*models.NotificationStats, error)
	UnreadCounts(ctx context.Context, userID uuid.UUID) (unread, urgent int64, err error)
}

// Убедимся, что notificationService реализует интерфейс
var _ NotificationService = (*notificationService)(nil)

type notificationService struct {
	repo   repository.NotificationRepository
	logger *zap.Logger
}

func NewNotificationService(repo repository.NotificationRepository, logger *zap.Logger) NotificationService {
	return &notificationService{
		repo:   repo,
		logger: logger.Named("notification_service"),
	}
}

// List возвращает страницу уведомлений пользователя.
func (s *notificationService) List(ctx context.Context, userID uuid.UUID, filter repository.NotificationFilter) ([]*models.Notification, error) {
	if filter.Statut != "" && filter.Statut != models.StatutNonLue && filter.Statut != models.StatutLue && filter.Statut != models.StatutArchivee {
		return nil, fmt.Errorf("%w: unknown statut %q", models.ErrInvalidInput, filter.Statut)
	}
	if filter.Priorite != "" && !models.IsValidPriorite(filter.Priorite) {
		return nil, fmt.Errorf("%w: unknown priorite %q", models.ErrInvalidInput, filter.Priorite)
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultPageSize
	}
	if filter.Limit > maxPageSize {
		filter.Limit = maxPageSize
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.repo.List(ctx, userID, filter)
}

// ListUnread возвращает непрочитанные уведомления.
func (s *notificationService) ListUnread(ctx context.Context, userID uuid.UUID) ([]*models.Notification, error) {
	return s.repo.List(ctx, userID, repository.NotificationFilter{
		Statut: models.StatutNonLue,
		Limit:  maxPageSize,
	})
}

// ListUrgent возвращает непрочитанные срочные уведомления.
func (s *notificationService) ListUrgent(ctx context.Context, userID uuid.UUID) ([]*models.Notification, error) {
	return s.repo.List(ctx, userID, repository.NotificationFilter{
		Statut:   models.StatutNonLue,
		Priorite: models.PrioriteUrgente,
		Limit:    maxPageSize,
	})
}

// Get возвращает уведомление пользователя по идентификатору.
func (s *notificationService) Get(ctx context.Context, id, userID uuid.UUID) (*models.Notification, error) {
	return s.repo.GetByID(ctx, id, userID)
}

// MarkRead помечает уведомление прочитанным. Идемпотентна.
func (s *notificationService) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	return s.repo.MarkRead(ctx, id, userID)
}

// MarkAllRead помечает все непрочитанные уведомления прочитанными.
func (s *notificationService) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID)
}

// Archive архивирует уведомление.
func (s *notificationService) Archive(ctx context.Context, id, userID uuid.UUID) error {
	return s.repo.Archive(ctx, id, userID)
}

// ArchiveRead архивирует все прочитанные уведомления.
func (s *notificationService) ArchiveRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.ArchiveRead(ctx, userID)
}

// DeleteArchived удаляет архивные уведомления пользователя.
func (s *notificationService) DeleteArchived(ctx context.Context, userID uuid.UUID) (int64, error) {
	deleted, err := s.repo.DeleteArchived(ctx, userID)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		s.logger.Info("Archived notifications deleted",
			zap.String("userID", userID.String()),
			zap.Int64("count", deleted),
		)
	}
	return deleted, nil
}

// Stats возвращает агрегаты по уведомлениям пользователя.
func (s *notificationService) Stats(ctx context.Context, userID uuid.UUID) (*models.NotificationStats, error) {
	return s.repo.Stats(ctx, userID)
}

// UnreadCounts возвращает счетчики для заголовков ответа.
func (s *notificationService) UnreadCounts(ctx context.Context, userID uuid.UUID) (int64, int64, error) {
	return s.repo.UnreadCounts(ctx, userID)
}
