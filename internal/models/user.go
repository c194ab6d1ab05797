package models

import "github.com/google/uuid"

// Роли пользователей (числовые коды унаследованы от основной БД).
const (
	RoleAdmin      = 1
	RoleCommercial = 2
	RoleComptable  = 3
	RoleRH         = 4
	RoleTechnicien = 5
	RolePatron     = 6
)

// RoleName возвращает строковое имя роли для каналов и логов.
func RoleName(role int) string {
	switch role {
	case RoleAdmin:
		return "admin"
	case RoleCommercial:
		return "commercial"
	case RoleComptable:
		return "comptable"
	case RoleRH:
		return "rh"
	case RoleTechnicien:
		return "technicien"
	case RolePatron:
		return "patron"
	default:
		return "unknown"
	}
}

// User — минимальная проекция пользователя, нужная ядру уведомлений
// (рассылка по роли, поиск согласующего).
type User struct {
	ID     uuid.UUID `db:"id" json:"id"`
	Nom    string    `db:"nom" json:"nom"`
	Prenom string    `db:"prenom" json:"prenom"`
	Email  string    `db:"email" json:"email"`
	Role   int       `db:"role" json:"role"`
}
