package models

import (
	"time"

	"github.com/google/uuid"
)

// Поддерживаемые типы устройств.
const (
	DeviceTypeIOS     = "ios"
	DeviceTypeAndroid = "android"
	DeviceTypeWeb     = "web"
)

// DeviceToken — push-токен устройства пользователя.
// Пара (user_id, token) уникальна; повторная регистрация реактивирует запись.
type DeviceToken struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	UserID     uuid.UUID  `db:"user_id" json:"user_id"`
	Token      string     `db:"token" json:"token"`
	DeviceType *string    `db:"device_type" json:"device_type,omitempty"`
	DeviceID   *string    `db:"device_id" json:"device_id,omitempty"`
	AppVersion *string    `db:"app_version" json:"app_version,omitempty"`
	IsActive   bool       `db:"is_active" json:"is_active"`
	LastUsedAt *time.Time `db:"last_used_at" json:"last_used_at,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}

// IsValidDeviceType проверяет, что строка является известным типом устройства.
func IsValidDeviceType(t string) bool {
	switch t {
	case DeviceTypeIOS, DeviceTypeAndroid, DeviceTypeWeb:
		return true
	}
	return false
}
