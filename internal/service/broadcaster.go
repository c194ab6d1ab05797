package service

import (
	"context"
	"encoding/json"
	"fmt"

	"easyconnect-server/internal/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Broadcaster публикует события о новых уведомлениях для realtime-подписчиков.
type Broadcaster interface {
	PublishNotification(ctx context.Context, n *models.Notification) error
	PublishToRole(ctx context.Context, role int, n *models.Notification) error
}

// UserChannel возвращает имя канала конкретного пользователя.
func UserChannel(userID string) string {
	return "user." + userID
}

// RoleChannel возвращает имя общего канала роли.
func RoleChannel(role int) string {
	return models.RoleName(role) + "-notifications"
}

// redisBroadcaster реализует Broadcaster поверх Redis PUBLISH.
type redisBroadcaster struct {
	rdb    *redis.Client
	logger *zap.Logger
}

var _ Broadcaster = (*redisBroadcaster)(nil)

func NewRedisBroadcaster(rdb *redis.Client, logger *zap.Logger) Broadcaster {
	return &redisBroadcaster{
		rdb:    rdb,
		logger: logger.Named("broadcaster"),
	}
}

// PublishNotification публикует уведомление в персональный канал пользователя.
func (b *redisBroadcaster) PublishNotification(ctx context.Context, n *models.Notification) error {
	return b.publish(ctx, UserChannel(n.UserID.String()), n)
}

// PublishToRole публикует уведомление в общий канал роли.
func (b *redisBroadcaster) PublishToRole(ctx context.Context, role int, n *models.Notification) error {
	return b.publish(ctx, RoleChannel(role), n)
}

func (b *redisBroadcaster) publish(ctx context.Context, channel string, n *models.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("ошибка сериализации уведомления для канала %s: %w", channel, err)
	}

	if err := b.rdb.Publish(ctx, channel, body).Err(); err != nil {
		b.logger.Error("Failed to publish notification event",
			zap.String("channel", channel),
			zap.String("notificationID", n.ID.String()),
			zap.Error(err),
		)
		return fmt.Errorf("ошибка публикации в канал %s: %w", channel, err)
	}

	b.logger.Debug("Notification event published", zap.String("channel", channel))
	return nil
}
