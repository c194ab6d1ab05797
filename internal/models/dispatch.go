package models

import "github.com/google/uuid"

// DispatchRequest — запрос на отправку уведомления одному пользователю.
// Sync=true означает, что вызывающему нужна персистентная запись сразу
// (запись в БД выполняется синхронно, фоновые эффекты — нет).
type DispatchRequest struct {
	UserID      uuid.UUID      `json:"user_id"`
	Titre       string         `json:"titre"`
	Message     string         `json:"message"`
	Type        string         `json:"type"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	EntityType  *string        `json:"entity_type,omitempty"`
	EntityID    *string        `json:"entity_id,omitempty"`
	ActionRoute *string        `json:"action_route,omitempty"`
	Priorite    string         `json:"priorite,omitempty"`
	Canal       string         `json:"canal,omitempty"`
	Sync        bool           `json:"-"`
}

// Normalize подставляет значения по умолчанию для незаполненных полей.
func (r *DispatchRequest) Normalize() {
	if r.Type == "" {
		r.Type = TypeInfo
	}
	if r.Priorite == "" {
		r.Priorite = PrioriteNormale
	}
}
