package service

import (
	"context"
	"fmt"
	"time"

	"easyconnect-server/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Notifier — высокоуровневые сценарии уведомлений для бизнес-событий.
// Все тексты на французском, как их видят пользователи приложения.
type Notifier struct {
	dispatcher  *Dispatcher
	broadcaster Broadcaster // nil, если Redis не настроен
	logger      *zap.Logger
}

func NewNotifier(dispatcher *Dispatcher, broadcaster Broadcaster, logger *zap.Logger) *Notifier {
	return &Notifier{
		dispatcher:  dispatcher,
		broadcaster: broadcaster,
		logger:      logger.Named("notifier"),
	}
}

// NotifyApproverOnSubmission уведомляет патрона о новой сущности на согласовании.
// label — человекочитаемое имя сущности ("Demande de Congé", "Contrat", ...).
func (n *Notifier) NotifyApproverOnSubmission(ctx context.Context, entityType, entityID, label, submitterName string) error {
	actionRoute := "/" + entityType + "/" + entityID
	req := models.DispatchRequest{
		Titre:       "Soumission " + label,
		Message:     fmt.Sprintf("%s a soumis : %s", submitterName, label),
		Type:        models.TypeInfo,
		Priorite:    models.PrioriteHaute,
		EntityType:  &entityType,
		EntityID:    &entityID,
		ActionRoute: &actionRoute,
		Metadata: map[string]any{
			"soumis_par": submitterName,
		},
	}

	dispatched, err := n.dispatcher.NotifyRole(ctx, models.RolePatron, req)
	if err != nil {
		return err
	}
	if dispatched == 0 {
		// Согласующего может не быть — это не ошибка, но след в логах нужен
		n.logger.Warn("No approver found for submission",
			zap.String("entityType", entityType),
			zap.String("entityID", entityID),
		)
	}
	return nil
}

// NotifyLeaveSubmission уведомляет патрона о новой демande de congé.
func (n *Notifier) NotifyLeaveSubmission(ctx context.Context, leaveID, submitterName string) error {
	return n.NotifyApproverOnSubmission(ctx, "leave_request", leaveID, "Demande de Congé", submitterName)
}

// NotifyLeaveApproved уведомляет сотрудника об одобрении его demande de congé.
func (n *Notifier) NotifyLeaveApproved(ctx context.Context, userID uuid.UUID, leaveID string) error {
	entityType := "leave_request"
	actionRoute := "/leave_request/" + leaveID
	_, err := n.dispatcher.Dispatch(ctx, models.DispatchRequest{
		UserID:      userID,
		Titre:       "Demande de congé approuvée",
		Message:     "Votre demande de congé a été approuvée",
		Type:        models.TypeSuccess,
		Priorite:    models.PrioriteNormale,
		EntityType:  &entityType,
		EntityID:    &leaveID,
		ActionRoute: &actionRoute,
	})
	return err
}

// NotifyLeaveRejected уведомляет сотрудника об отклонении его demande de congé.
func (n *Notifier) NotifyLeaveRejected(ctx context.Context, userID uuid.UUID, leaveID, raison string) error {
	entityType := "leave_request"
	actionRoute := "/leave_request/" + leaveID
	req := models.DispatchRequest{
		UserID:      userID,
		Titre:       "Demande de congé refusée",
		Message:     "Votre demande de congé a été refusée",
		Type:        models.TypeError,
		Priorite:    models.PrioriteHaute,
		EntityType:  &entityType,
		EntityID:    &leaveID,
		ActionRoute: &actionRoute,
	}
	if raison != "" {
		req.Metadata = map[string]any{"raison": raison}
	}
	_, err := n.dispatcher.Dispatch(ctx, req)
	return err
}

// NotifySystem отправляет системное уведомление одному пользователю.
func (n *Notifier) NotifySystem(ctx context.Context, userID uuid.UUID, titre, message string) error {
	_, err := n.dispatcher.Dispatch(ctx, models.DispatchRequest{
		UserID:   userID,
		Titre:    titre,
		Message:  message,
		Type:     models.TypeInfo,
		Priorite: models.PrioriteNormale,
	})
	return err
}

// BroadcastToRole уведомляет всех пользователей с ролью и публикует одно
// событие в общий канал роли для realtime-подписчиков.
func (n *Notifier) BroadcastToRole(ctx context.Context, role int, titre, message, notifType string) (int, error) {
	req := models.DispatchRequest{
		Titre:    titre,
		Message:  message,
		Type:     notifType,
		Priorite: models.PrioriteNormale,
	}

	dispatched, err := n.dispatcher.NotifyRole(ctx, role, req)
	if err != nil {
		return 0, err
	}

	if n.broadcaster != nil && dispatched > 0 {
		event := &models.Notification{
			ID:        uuid.New(),
			Type:      notifType,
			Titre:     titre,
			Message:   message,
			Statut:    models.StatutNonLue,
			Priorite:  models.PrioriteNormale,
			CreatedAt: time.Now(),
		}
		if err := n.broadcaster.PublishToRole(ctx, role, event); err != nil {
			n.logger.Error("Failed to publish role broadcast event",
				zap.String("role", models.RoleName(role)),
				zap.Error(err),
			)
		}
	}
	return dispatched, nil
}

// BroadcastToRH уведомляет всех сотрудников RH.
func (n *Notifier) BroadcastToRH(ctx context.Context, titre, message string) (int, error) {
	return n.BroadcastToRole(ctx, models.RoleRH, titre, message, models.TypeInfo)
}

// BroadcastToAdmins уведомляет всех администраторов.
func (n *Notifier) BroadcastToAdmins(ctx context.Context, titre, message string) (int, error) {
	return n.BroadcastToRole(ctx, models.RoleAdmin, titre, message, models.TypeInfo)
}
