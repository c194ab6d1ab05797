package service

import (
	"context"
	"fmt"
	"time"

	"easyconnect-server/internal/messaging"
	"easyconnect-server/internal/models"
	"easyconnect-server/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Таймаут фоновой обработки, когда работа выполняется в том же процессе
// (очередь недоступна или публикация не удалась).
const inlineWorkTimeout = 30 * time.Second

// Dispatcher — единственная точка входа для отправки уведомлений.
// Гибридный режим: синхронный путь блокируется только на записи в БД,
// асинхронный не блокируется вообще. Доступность очереди определяется
// один раз при старте процесса, а не при каждом вызове.
type Dispatcher struct {
	store   repository.NotificationRepository
	users   repository.UserRepository
	queue   messaging.WorkQueuePublisher // nil, если очередь недоступна
	effects *EffectsProcessor
	logger  *zap.Logger
}

// Убедимся, что Dispatcher может обрабатывать работы очереди
var _ messaging.WorkItemHandler = (*Dispatcher)(nil)

func NewDispatcher(
	store repository.NotificationRepository,
	users repository.UserRepository,
	queue messaging.WorkQueuePublisher,
	effects *EffectsProcessor,
	logger *zap.Logger,
) *Dispatcher {
	if queue == nil {
		logger.Warn("Work queue is unavailable, dispatcher will run work in-process")
	}
	return &Dispatcher{
		store:   store,
		users:   users,
		queue:   queue,
		effects: effects,
		logger:  logger.Named("dispatcher"),
	}
}

// Dispatch отправляет уведомление одному пользователю.
//
// Sync=false: работа целиком уходит в очередь (или в горутину, если очереди
// нет), возвращается (nil, nil). Ошибки фоновой обработки не видны вызывающему.
//
// Sync=true: запись в БД выполняется синхронно и это единственный шаг,
// ошибка которого возвращается вызывающему. Фоновые эффекты ставятся в
// очередь, при невозможности — выполняются тут же со свернутыми ошибками.
func (d *Dispatcher) Dispatch(ctx context.Context, req models.DispatchRequest) (*models.Notification, error) {
	req.Normalize()

	if !req.Sync {
		d.dispatchAsync(ctx, req)
		return nil, nil
	}

	n := newNotification(req)
	if err := d.store.Create(ctx, n); err != nil {
		dispatchesTotal.WithLabelValues("sync", "error").Inc()
		return nil, fmt.Errorf("failed to persist notification: %w", err)
	}
	dispatchesTotal.WithLabelValues("sync", "ok").Inc()

	d.scheduleEffects(ctx, n)
	return n, nil
}

// NotifyRole отправляет уведомление каждому пользователю с указанной ролью.
// Частичные сбои логируются и пропускаются; отсутствие пользователей с ролью —
// успешный no-op. Возвращает число успешно диспетчеризованных уведомлений.
func (d *Dispatcher) NotifyRole(ctx context.Context, role int, req models.DispatchRequest) (int, error) {
	ids, err := d.users.GetIDsByRole(ctx, role)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve users for role %s: %w", models.RoleName(role), err)
	}
	if len(ids) == 0 {
		d.logger.Info("No users with role, nothing to notify", zap.String("role", models.RoleName(role)))
		return 0, nil
	}

	dispatched := 0
	for _, id := range ids {
		userReq := req
		userReq.UserID = id
		if _, err := d.Dispatch(ctx, userReq); err != nil {
			d.logger.Error("Failed to dispatch notification to role member",
				zap.String("role", models.RoleName(role)),
				zap.String("userID", id.String()),
				zap.Error(err),
			)
			continue
		}
		dispatched++
	}
	return dispatched, nil
}

// HandleWorkItem обрабатывает работу из очереди диспетчеризации.
func (d *Dispatcher) HandleWorkItem(ctx context.Context, item messaging.WorkItem) error {
	switch item.Kind {
	case messaging.WorkItemKindCreate:
		req := *item.Request
		req.Normalize()
		n := newNotification(req)
		if err := d.store.Create(ctx, n); err != nil {
			dispatchesTotal.WithLabelValues("async", "error").Inc()
			return fmt.Errorf("failed to persist notification: %w", err)
		}
		dispatchesTotal.WithLabelValues("async", "ok").Inc()
		d.effects.Run(ctx, n)
		return nil
	case messaging.WorkItemKindEffects:
		return d.effects.RunByID(ctx, item.NotificationID)
	default:
		return fmt.Errorf("unknown work item kind: %s", item.Kind)
	}
}

// dispatchAsync ставит создание уведомления в очередь. Если очередь
// недоступна или публикация не удалась, вся работа выполняется на горутине:
// вызывающий в любом случае не блокируется и не видит ошибок.
func (d *Dispatcher) dispatchAsync(ctx context.Context, req models.DispatchRequest) {
	if d.queue != nil {
		item := messaging.WorkItem{Kind: messaging.WorkItemKindCreate, Request: &req}
		err := d.queue.PublishWorkItem(ctx, item)
		if err == nil {
			return
		}
		d.logger.Error("Failed to enqueue create work item, falling back to in-process work",
			zap.String("userID", req.UserID.String()),
			zap.Error(err),
		)
	}

	go func() {
		bgCtx, cancel := context.WithTimeout(context.Background(), inlineWorkTimeout)
		defer cancel()

		n := newNotification(req)
		if err := d.store.Create(bgCtx, n); err != nil {
			dispatchesTotal.WithLabelValues("async", "error").Inc()
			d.logger.Error("In-process async dispatch failed to persist notification",
				zap.String("userID", req.UserID.String()),
				zap.Error(err),
			)
			return
		}
		dispatchesTotal.WithLabelValues("async", "ok").Inc()
		d.effects.Run(bgCtx, n)
	}()
}

// scheduleEffects ставит фоновые эффекты в очередь, при невозможности —
// выполняет их сразу. Ошибки эффектов до вызывающего не доходят.
func (d *Dispatcher) scheduleEffects(ctx context.Context, n *models.Notification) {
	if d.queue != nil {
		item := messaging.WorkItem{Kind: messaging.WorkItemKindEffects, NotificationID: n.ID}
		err := d.queue.PublishWorkItem(ctx, item)
		if err == nil {
			return
		}
		d.logger.Error("Failed to enqueue effects work item, running effects inline",
			zap.String("notificationID", n.ID.String()),
			zap.Error(err),
		)
	}
	d.effects.Run(ctx, n)
}

// newNotification строит персистентную запись из запроса диспетчеризации.
func newNotification(req models.DispatchRequest) *models.Notification {
	return &models.Notification{
		ID:          uuid.New(),
		UserID:      req.UserID,
		Type:        req.Type,
		Titre:       req.Titre,
		Message:     req.Message,
		Metadata:    req.Metadata,
		EntityType:  req.EntityType,
		EntityID:    req.EntityID,
		ActionRoute: req.ActionRoute,
		Statut:      models.StatutNonLue,
		Priorite:    req.Priorite,
	}
}
