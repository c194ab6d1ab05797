package messaging

import (
	"errors"

	"easyconnect-server/internal/models"

	"github.com/google/uuid"
)

// Виды работ в очереди диспетчеризации.
const (
	// WorkItemKindCreate — создать уведомление и выполнить фоновые эффекты.
	WorkItemKindCreate = "create"
	// WorkItemKindEffects — выполнить только фоновые эффекты для уже
	// сохраненного уведомления (синхронный путь диспетчера).
	WorkItemKindEffects = "effects"
)

// WorkItem — сообщение очереди диспетчеризации уведомлений.
type WorkItem struct {
	Kind           string                  `json:"kind"`
	Request        *models.DispatchRequest `json:"request,omitempty"`
	NotificationID uuid.UUID               `json:"notification_id,omitempty"`
}

// Validate проверяет, что сообщение согласовано со своим видом.
func (w *WorkItem) Validate() error {
	switch w.Kind {
	case WorkItemKindCreate:
		if w.Request == nil {
			return errors.New("create work item requires a dispatch request")
		}
		if w.Request.UserID == uuid.Nil {
			return errors.New("create work item requires a user id")
		}
	case WorkItemKindEffects:
		if w.NotificationID == uuid.Nil {
			return errors.New("effects work item requires a notification id")
		}
	default:
		return errors.New("unknown work item kind: " + w.Kind)
	}
	return nil
}
