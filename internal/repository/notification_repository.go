package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"easyconnect-server/internal/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const (
	createNotificationQuery = `
		INSERT INTO notifications (id, user_id, type, titre, message, metadata, entity_type, entity_id, action_route, statut, priorite)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at;
	`
	getNotificationByIDQuery = `
		SELECT id, user_id, type, titre, message, metadata, entity_type, entity_id, action_route, statut, priorite, created_at, read_at
		FROM notifications
		WHERE id = $1 AND user_id = $2;
	`
	markNotificationReadQuery = `
		UPDATE notifications
		SET statut = 'lue', read_at = NOW()
		WHERE id = $1 AND user_id = $2 AND statut = 'non_lue';
	`
	markAllNotificationsReadQuery = `
		UPDATE notifications
		SET statut = 'lue', read_at = NOW()
		WHERE user_id = $1 AND statut = 'non_lue';
	`
	archiveNotificationQuery = `
		UPDATE notifications
		SET statut = 'archivee'
		WHERE id = $1 AND user_id = $2 AND statut <> 'archivee';
	`
	archiveReadNotificationsQuery = `
		UPDATE notifications
		SET statut = 'archivee'
		WHERE user_id = $1 AND statut = 'lue';
	`
	deleteArchivedNotificationsQuery = `
		DELETE FROM notifications
		WHERE user_id = $1 AND statut = 'archivee';
	`
	getNotificationAnyUserQuery = `
		SELECT id, user_id, type, titre, message, metadata, entity_type, entity_id, action_route, statut, priorite, created_at, read_at
		FROM notifications
		WHERE id = $1;
	`
	notificationExistsQuery = `SELECT EXISTS(SELECT 1 FROM notifications WHERE id = $1 AND user_id = $2);`
	notificationStatsQuery  = `
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE statut = 'non_lue') AS non_lues,
			COUNT(*) FILTER (WHERE statut = 'lue') AS lues,
			COUNT(*) FILTER (WHERE statut = 'archivee') AS archivees,
			COUNT(*) FILTER (WHERE statut = 'non_lue' AND priorite = 'urgente') AS urgentes
		FROM notifications
		WHERE user_id = $1;
	`
	unreadCountsQuery = `
		SELECT
			COUNT(*) FILTER (WHERE statut = 'non_lue') AS non_lues,
			COUNT(*) FILTER (WHERE statut = 'non_lue' AND priorite = 'urgente') AS urgentes
		FROM notifications
		WHERE user_id = $1;
	`
)

// NotificationFilter задает фильтры и пагинацию для выборки уведомлений.
type NotificationFilter struct {
	Statut   string
	Type     string
	Priorite string
	Limit    int
	Offset   int
}

// NotificationRepository хранит уведомления пользователей.
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	GetByID(ctx context.Context, id, userID uuid.UUID) (*models.Notification, error)
	GetAny(ctx context.Context, id uuid.UUID) (*models.Notification, error)
	List(ctx context.Context, userID uuid.UUID, filter NotificationFilter) ([]*models.Notification, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
	Archive(ctx context.Context, id, userID uuid.UUID) error
	ArchiveRead(ctx context.Context, userID uuid.UUID) (int64, error)
	DeleteArchived(ctx context.Context, userID uuid.UUID) (int64, error)
	Stats(ctx context.Context, userID uuid.UUID) (*models.NotificationStats, error)
	UnreadCounts(ctx context.Context, userID uuid.UUID) (unread, urgent int64, err error)
}

// Убедимся, что pgNotificationRepository реализует интерфейс
var _ NotificationRepository = (*pgNotificationRepository)(nil)

type pgNotificationRepository struct {
	db     DBTX
	logger *zap.Logger
}

func NewNotificationRepository(db DBTX, logger *zap.Logger) NotificationRepository {
	return &pgNotificationRepository{
		db:     db,
		logger: logger.Named("notification_repo"),
	}
}

// Create вставляет новое уведомление. ID и статус должны быть уже заполнены.
func (r *pgNotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	err := r.db.QueryRow(ctx, createNotificationQuery,
		n.ID, n.UserID, n.Type, n.Titre, n.Message, n.Metadata,
		n.EntityType, n.EntityID, n.ActionRoute, n.Statut, n.Priorite,
	).Scan(&n.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to create notification",
			zap.String("userID", n.UserID.String()),
			zap.String("type", n.Type),
			zap.Error(err),
		)
		return fmt.Errorf("db error creating notification: %w", err)
	}

	r.logger.Debug("Notification created",
		zap.String("notificationID", n.ID.String()),
		zap.String("userID", n.UserID.String()),
	)
	return nil
}

// GetByID возвращает уведомление пользователя по идентификатору.
func (r *pgNotificationRepository) GetByID(ctx context.Context, id, userID uuid.UUID) (*models.Notification, error) {
	var n models.Notification
	err := pgxscan.Get(ctx, r.db, &n, getNotificationByIDQuery, id, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotificationNotFound
		}
		r.logger.Error("Failed to get notification", zap.String("notificationID", id.String()), zap.Error(err))
		return nil, fmt.Errorf("db error getting notification: %w", err)
	}
	return &n, nil
}

// GetAny возвращает уведомление по идентификатору без привязки к пользователю.
// Используется воркером фоновых эффектов, не API.
func (r *pgNotificationRepository) GetAny(ctx context.Context, id uuid.UUID) (*models.Notification, error) {
	var n models.Notification
	err := pgxscan.Get(ctx, r.db, &n, getNotificationAnyUserQuery, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotificationNotFound
		}
		r.logger.Error("Failed to get notification", zap.String("notificationID", id.String()), zap.Error(err))
		return nil, fmt.Errorf("db error getting notification: %w", err)
	}
	return &n, nil
}

// List возвращает уведомления пользователя с учетом фильтров, новые первыми.
func (r *pgNotificationRepository) List(ctx context.Context, userID uuid.UUID, filter NotificationFilter) ([]*models.Notification, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT id, user_id, type, titre, message, metadata, entity_type, entity_id, action_route, statut, priorite, created_at, read_at
		FROM notifications
		WHERE user_id = $1`)

	args := []any{userID}
	if filter.Statut != "" {
		args = append(args, filter.Statut)
		fmt.Fprintf(&sb, " AND statut = $%d", len(args))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		fmt.Fprintf(&sb, " AND type = $%d", len(args))
	}
	if filter.Priorite != "" {
		args = append(args, filter.Priorite)
		fmt.Fprintf(&sb, " AND priorite = $%d", len(args))
	}
	sb.WriteString(" ORDER BY created_at DESC")

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		fmt.Fprintf(&sb, " OFFSET $%d", len(args))
	}

	notifications := make([]*models.Notification, 0)
	if err := pgxscan.Select(ctx, r.db, &notifications, sb.String(), args...); err != nil {
		r.logger.Error("Failed to list notifications", zap.String("userID", userID.String()), zap.Error(err))
		return nil, fmt.Errorf("db error listing notifications: %w", err)
	}
	return notifications, nil
}

// MarkRead переводит уведомление в статус 'lue'.
// Повторный вызов и вызов для архивного уведомления — no-op (статус не откатывается).
func (r *pgNotificationRepository) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	cmdTag, err := r.db.Exec(ctx, markNotificationReadQuery, id, userID)
	if err != nil {
		r.logger.Error("Failed to mark notification as read", zap.String("notificationID", id.String()), zap.Error(err))
		return fmt.Errorf("db error marking notification read: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		// Либо уведомления нет, либо оно уже не в статусе non_lue
		exists, err := r.exists(ctx, id, userID)
		if err != nil {
			return err
		}
		if !exists {
			return models.ErrNotificationNotFound
		}
	}
	return nil
}

// MarkAllRead переводит все непрочитанные уведомления пользователя в 'lue'.
func (r *pgNotificationRepository) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	cmdTag, err := r.db.Exec(ctx, markAllNotificationsReadQuery, userID)
	if err != nil {
		r.logger.Error("Failed to mark all notifications as read", zap.String("userID", userID.String()), zap.Error(err))
		return 0, fmt.Errorf("db error marking all notifications read: %w", err)
	}
	return cmdTag.RowsAffected(), nil
}

// Archive переводит уведомление в статус 'archivee'.
func (r *pgNotificationRepository) Archive(ctx context.Context, id, userID uuid.UUID) error {
	cmdTag, err := r.db.Exec(ctx, archiveNotificationQuery, id, userID)
	if err != nil {
		r.logger.Error("Failed to archive notification", zap.String("notificationID", id.String()), zap.Error(err))
		return fmt.Errorf("db error archiving notification: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		exists, err := r.exists(ctx, id, userID)
		if err != nil {
			return err
		}
		if !exists {
			return models.ErrNotificationNotFound
		}
	}
	return nil
}

// ArchiveRead архивирует все прочитанные уведомления пользователя.
func (r *pgNotificationRepository) ArchiveRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	cmdTag, err := r.db.Exec(ctx, archiveReadNotificationsQuery, userID)
	if err != nil {
		r.logger.Error("Failed to archive read notifications", zap.String("userID", userID.String()), zap.Error(err))
		return 0, fmt.Errorf("db error archiving read notifications: %w", err)
	}
	return cmdTag.RowsAffected(), nil
}

// DeleteArchived удаляет архивные уведомления пользователя.
// Единственный путь удаления: активные уведомления ядро никогда не удаляет.
func (r *pgNotificationRepository) DeleteArchived(ctx context.Context, userID uuid.UUID) (int64, error) {
	cmdTag, err := r.db.Exec(ctx, deleteArchivedNotificationsQuery, userID)
	if err != nil {
		r.logger.Error("Failed to delete archived notifications", zap.String("userID", userID.String()), zap.Error(err))
		return 0, fmt.Errorf("db error deleting archived notifications: %w", err)
	}
	return cmdTag.RowsAffected(), nil
}

// Stats возвращает агрегаты по уведомлениям пользователя.
func (r *pgNotificationRepository) Stats(ctx context.Context, userID uuid.UUID) (*models.NotificationStats, error) {
	var stats models.NotificationStats
	if err := pgxscan.Get(ctx, r.db, &stats, notificationStatsQuery, userID); err != nil {
		r.logger.Error("Failed to get notification stats", zap.String("userID", userID.String()), zap.Error(err))
		return nil, fmt.Errorf("db error getting notification stats: %w", err)
	}
	return &stats, nil
}

// UnreadCounts возвращает количество непрочитанных и непрочитанных срочных уведомлений.
func (r *pgNotificationRepository) UnreadCounts(ctx context.Context, userID uuid.UUID) (int64, int64, error) {
	var unread, urgent int64
	if err := r.db.QueryRow(ctx, unreadCountsQuery, userID).Scan(&unread, &urgent); err != nil {
		r.logger.Error("Failed to get unread counts", zap.String("userID", userID.String()), zap.Error(err))
		return 0, 0, fmt.Errorf("db error getting unread counts: %w", err)
	}
	return unread, urgent, nil
}

func (r *pgNotificationRepository) exists(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, notificationExistsQuery, id, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error checking notification existence: %w", err)
	}
	return exists, nil
}
