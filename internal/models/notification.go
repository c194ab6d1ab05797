package models

import (
	"time"

	"github.com/google/uuid"
)

// Статусы уведомления. Переходы только в одну сторону:
// non_lue -> lue -> archivee.
const (
	StatutNonLue   = "non_lue"
	StatutLue      = "lue"
	StatutArchivee = "archivee"
)

// Приоритеты уведомления.
const (
	PrioriteBasse   = "basse"
	PrioriteNormale = "normale"
	PrioriteHaute   = "haute"
	PrioriteUrgente = "urgente"
)

// Базовые типы уведомлений. Поле type не ограничено этим списком:
// бизнес-события используют свои строки (например "leave_request").
const (
	TypeInfo    = "info"
	TypeSuccess = "success"
	TypeWarning = "warning"
	TypeError   = "error"
)

// Notification — персистентная запись уведомления пользователя.
type Notification struct {
	ID          uuid.UUID      `db:"id" json:"id"`
	UserID      uuid.UUID      `db:"user_id" json:"user_id"`
	Type        string         `db:"type" json:"type"`
	Titre       string         `db:"titre" json:"titre"`
	Message     string         `db:"message" json:"message"`
	Metadata    map[string]any `db:"metadata" json:"metadata,omitempty"`
	EntityType  *string        `db:"entity_type" json:"entity_type,omitempty"`
	EntityID    *string        `db:"entity_id" json:"entity_id,omitempty"`
	ActionRoute *string        `db:"action_route" json:"action_route,omitempty"`
	Statut      string         `db:"statut" json:"statut"`
	Priorite    string         `db:"priorite" json:"priorite"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	ReadAt      *time.Time     `db:"read_at" json:"read_at,omitempty"`
}

// IsValidPriorite проверяет, что строка является известным приоритетом.
func IsValidPriorite(p string) bool {
	switch p {
	case PrioriteBasse, PrioriteNormale, PrioriteHaute, PrioriteUrgente:
		return true
	}
	return false
}

// NotificationStats — агрегаты по уведомлениям пользователя.
type NotificationStats struct {
	Total    int64 `db:"total" json:"total"`
	NonLues  int64 `db:"non_lues" json:"non_lues"`
	Lues     int64 `db:"lues" json:"lues"`
	Archives int64 `db:"archivees" json:"archivees"`
	Urgentes int64 `db:"urgentes" json:"urgentes"`
}
