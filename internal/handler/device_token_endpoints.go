package handler

import (
	"net/http"

	"easyconnect-server/internal/models"

	"github.com/gin-gonic/gin"
)

// @Summary Регистрация токена устройства
// @Description Сохраняет push-токен устройства; повторная регистрация реактивирует его
// @Tags device-tokens
// @Accept json
// @Produce json
// @Param request body registerDeviceTokenRequest true "Данные токена"
// @Success 201 {object} models.DeviceToken
// @Failure 400 {object} models.ErrorResponse
// @Router /api/device-tokens [post]
func (h *NotificationHandler) registerDeviceToken(c *gin.Context) {
	userID, _ := currentUserID(c)

	var req registerDeviceTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Code: models.ErrCodeBadRequest, Message: "Invalid request data: " + err.Error()})
		return
	}

	dt, err := h.deviceTokens.Register(c.Request.Context(), userID, req.Token, req.DeviceType, req.DeviceID, req.AppVersion)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dt)
}

// @Summary Список токенов устройств пользователя
// @Tags device-tokens
// @Produce json
// @Success 200 {object} deviceTokenListResponse
// @Router /api/device-tokens [get]
func (h *NotificationHandler) listDeviceTokens(c *gin.Context) {
	userID, _ := currentUserID(c)

	tokens, err := h.deviceTokens.List(c.Request.Context(), userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, deviceTokenListResponse{Tokens: tokens, Count: len(tokens)})
}

// @Summary Удаление токена устройства
// @Description Удаляет указанный токен или все токены пользователя, если токен не передан
// @Tags device-tokens
// @Accept json
// @Produce json
// @Param request body unregisterDeviceTokenRequest false "Токен для удаления"
// @Success 200 {object} affectedResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/device-tokens [delete]
func (h *NotificationHandler) unregisterDeviceToken(c *gin.Context) {
	userID, _ := currentUserID(c)

	var req unregisterDeviceTokenRequest
	// Тело запроса необязательно: его отсутствие означает удаление всех токенов
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Code: models.ErrCodeBadRequest, Message: "Invalid request data: " + err.Error()})
			return
		}
	}

	affected, err := h.deviceTokens.Unregister(c.Request.Context(), userID, req.Token)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, affectedResponse{Affected: affected})
}
