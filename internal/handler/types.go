package handler

import "easyconnect-server/internal/models"

// --- Request Structs ---

type registerDeviceTokenRequest struct {
	Token      string  `json:"token" binding:"required"`
	DeviceType *string `json:"device_type" binding:"omitempty,oneof=ios android web"`
	DeviceID   *string `json:"device_id"`
	AppVersion *string `json:"app_version"`
}

type unregisterDeviceTokenRequest struct {
	// Token == nil означает удаление всех токенов пользователя
	Token *string `json:"token"`
}

type listNotificationsQuery struct {
	Statut   string `form:"statut" binding:"omitempty,oneof=non_lue lue archivee"`
	Type     string `form:"type"`
	Priorite string `form:"priorite" binding:"omitempty,oneof=basse normale haute urgente"`
	Limit    int    `form:"limit" binding:"omitempty,min=1,max=100"`
	Offset   int    `form:"offset" binding:"omitempty,min=0"`
}

// --- Response Structs ---

type notificationListResponse struct {
	Notifications []*models.Notification `json:"notifications"`
	Count         int                    `json:"count"`
}

type deviceTokenListResponse struct {
	Tokens []models.DeviceToken `json:"tokens"`
	Count  int                  `json:"count"`
}

type affectedResponse struct {
	Affected int64 `json:"affected"`
}
