package handler

import (
	"net/http"

	"easyconnect-server/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type dispatchNotificationRequest struct {
	UserID      uuid.UUID      `json:"user_id" binding:"required"`
	Titre       string         `json:"titre" binding:"required"`
	Message     string         `json:"message" binding:"required"`
	Type        string         `json:"type"`
	Priorite    string         `json:"priorite" binding:"omitempty,oneof=basse normale haute urgente"`
	Metadata    map[string]any `json:"metadata"`
	EntityType  *string        `json:"entity_type"`
	EntityID    *string        `json:"entity_id"`
	ActionRoute *string        `json:"action_route"`
	Sync        bool           `json:"sync"`
}

type broadcastRequest struct {
	Role    int    `json:"role" binding:"required,min=1,max=6"`
	Titre   string `json:"titre" binding:"required"`
	Message string `json:"message" binding:"required"`
	Type    string `json:"type" binding:"omitempty,oneof=info success warning error"`
}

type broadcastResponse struct {
	Dispatched int `json:"dispatched"`
}

// InternalAuthMiddleware проверяет статический межсервисный секрет.
func (h *NotificationHandler) InternalAuthMiddleware() gin.HandlerFunc {
	staticSecret := h.cfg.JWT.InterServiceSecret
	if staticSecret == "" {
		zap.L().Warn("INTER_SERVICE_SECRET is not configured, internal endpoints will reject all requests")
	}

	return func(c *gin.Context) {
		token := c.GetHeader("X-Internal-Service-Token")
		if staticSecret == "" || token != staticSecret {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
				Code:    models.ErrCodeUnauthorized,
				Message: "Missing or invalid internal service token",
			})
			return
		}
		c.Next()
	}
}

// @Summary Отправка уведомления (межсервисный вызов)
// @Description Диспетчеризует уведомление пользователю; sync=true возвращает сохраненную запись
// @Tags internal
// @Accept json
// @Produce json
// @Param request body dispatchNotificationRequest true "Запрос диспетчеризации"
// @Success 201 {object} models.Notification "Синхронная отправка"
// @Success 202 "Асинхронная отправка принята"
// @Router /internal/notifications/dispatch [post]
func (h *NotificationHandler) dispatchNotification(c *gin.Context) {
	var req dispatchNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Code: models.ErrCodeBadRequest, Message: "Invalid request data: " + err.Error()})
		return
	}

	n, err := h.dispatcher.Dispatch(c.Request.Context(), models.DispatchRequest{
		UserID:      req.UserID,
		Titre:       req.Titre,
		Message:     req.Message,
		Type:        req.Type,
		Priorite:    req.Priorite,
		Metadata:    req.Metadata,
		EntityType:  req.EntityType,
		EntityID:    req.EntityID,
		ActionRoute: req.ActionRoute,
		Sync:        req.Sync,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}

	if n == nil {
		c.Status(http.StatusAccepted)
		return
	}
	c.JSON(http.StatusCreated, n)
}

// @Summary Рассылка уведомления по роли (межсервисный вызов)
// @Tags internal
// @Accept json
// @Produce json
// @Param request body broadcastRequest true "Запрос рассылки"
// @Success 200 {object} broadcastResponse
// @Router /internal/notifications/broadcast [post]
func (h *NotificationHandler) broadcastToRole(c *gin.Context) {
	var req broadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Code: models.ErrCodeBadRequest, Message: "Invalid request data: " + err.Error()})
		return
	}

	notifType := req.Type
	if notifType == "" {
		notifType = models.TypeInfo
	}

	dispatched, err := h.notifier.BroadcastToRole(c.Request.Context(), req.Role, req.Titre, req.Message, notifType)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, broadcastResponse{Dispatched: dispatched})
}
