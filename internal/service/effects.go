package service

import (
	"context"

	"easyconnect-server/internal/models"
	"easyconnect-server/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EffectsProcessor выполняет фоновые эффекты для сохраненного уведомления:
// realtime-публикацию и push-доставку. Эффекты независимы друг от друга,
// сбой одного не отменяет остальные и никогда не поднимается наружу.
type EffectsProcessor struct {
	notifications repository.NotificationRepository
	tokens        repository.DeviceTokenRepository
	broadcaster   Broadcaster // nil, если Redis не настроен
	push          PushClient
	logger        *zap.Logger
}

func NewEffectsProcessor(
	notifications repository.NotificationRepository,
	tokens repository.DeviceTokenRepository,
	broadcaster Broadcaster,
	push PushClient,
	logger *zap.Logger,
) *EffectsProcessor {
	return &EffectsProcessor{
		notifications: notifications,
		tokens:        tokens,
		broadcaster:   broadcaster,
		push:          push,
		logger:        logger.Named("effects"),
	}
}

// Run выполняет все эффекты для уведомления.
func (p *EffectsProcessor) Run(ctx context.Context, n *models.Notification) {
	log := p.logger.With(
		zap.String("notificationID", n.ID.String()),
		zap.String("userID", n.UserID.String()),
	)

	if p.broadcaster != nil {
		if err := p.broadcaster.PublishNotification(ctx, n); err != nil {
			effectsFailuresTotal.WithLabelValues("broadcast").Inc()
			log.Error("Realtime broadcast failed", zap.Error(err))
		}
	}

	p.deliverPush(ctx, n, log)
}

// RunByID загружает уведомление и выполняет эффекты.
func (p *EffectsProcessor) RunByID(ctx context.Context, id uuid.UUID) error {
	n, err := p.notifications.GetAny(ctx, id)
	if err != nil {
		return err
	}
	p.Run(ctx, n)
	return nil
}

func (p *EffectsProcessor) deliverPush(ctx context.Context, n *models.Notification, log *zap.Logger) {
	tokens, err := p.tokens.ListActiveByUser(ctx, n.UserID)
	if err != nil {
		effectsFailuresTotal.WithLabelValues("push").Inc()
		log.Error("Failed to load device tokens for push delivery", zap.Error(err))
		return
	}
	if len(tokens) == 0 {
		log.Debug("User has no active device tokens, skipping push")
		return
	}

	tokenStrings := make([]string, len(tokens))
	for i, t := range tokens {
		tokenStrings[i] = t.Token
	}

	result := p.push.Send(ctx, tokenStrings, n)
	if !result.Success {
		effectsFailuresTotal.WithLabelValues("push").Inc()
		log.Warn("Push delivery failed for all devices",
			zap.Int("total", result.Total),
			zap.Int("failures", result.FailureCount),
		)
		return
	}

	log.Debug("Push delivery finished",
		zap.Int("delivered", result.SuccessCount),
		zap.Int("failed", result.FailureCount),
	)
}
