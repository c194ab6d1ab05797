package handler

import (
	"net/http"

	"easyconnect-server/internal/models"
	"easyconnect-server/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// @Summary Список уведомлений пользователя
// @Description Возвращает уведомления текущего пользователя с фильтрами и пагинацией
// @Tags notifications
// @Produce json
// @Param statut query string false "Фильтр по статусу (non_lue, lue, archivee)"
// @Param type query string false "Фильтр по типу"
// @Param priorite query string false "Фильтр по приоритету"
// @Success 200 {object} notificationListResponse
// @Router /api/notifications [get]
func (h *NotificationHandler) listNotifications(c *gin.Context) {
	userID, _ := currentUserID(c)

	var q listNotificationsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Code: models.ErrCodeBadRequest, Message: "Invalid query parameters: " + err.Error()})
		return
	}

	notifications, err := h.notifications.List(c.Request.Context(), userID, repository.NotificationFilter{
		Statut:   q.Statut,
		Type:     q.Type,
		Priorite: q.Priorite,
		Limit:    q.Limit,
		Offset:   q.Offset,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, notificationListResponse{Notifications: notifications, Count: len(notifications)})
}

// @Summary Непрочитанные уведомления
// @Tags notifications
// @Produce json
// @Success 200 {object} notificationListResponse
// @Router /api/notifications/unread [get]
func (h *NotificationHandler) listUnread(c *gin.Context) {
	userID, _ := currentUserID(c)

	notifications, err := h.notifications.ListUnread(c.Request.Context(), userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, notificationListResponse{Notifications: notifications, Count: len(notifications)})
}

// @Summary Срочные непрочитанные уведомления
// @Tags notifications
// @Produce json
// @Success 200 {object} notificationListResponse
// @Router /api/notifications/urgent [get]
func (h *NotificationHandler) listUrgent(c *gin.Context) {
	userID, _ := currentUserID(c)

	notifications, err := h.notifications.ListUrgent(c.Request.Context(), userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, notificationListResponse{Notifications: notifications, Count: len(notifications)})
}

// @Summary Статистика по уведомлениям
// @Tags notifications
// @Produce json
// @Success 200 {object} models.NotificationStats
// @Router /api/notifications/statistics [get]
func (h *NotificationHandler) getStatistics(c *gin.Context) {
	userID, _ := currentUserID(c)

	stats, err := h.notifications.Stats(c.Request.Context(), userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// @Summary Уведомление по идентификатору
// @Tags notifications
// @Produce json
// @Param id path string true "ID уведомления"
// @Success 200 {object} models.Notification
// @Failure 404 {object} models.ErrorResponse
// @Router /api/notifications/{id} [get]
func (h *NotificationHandler) getNotification(c *gin.Context) {
	userID, _ := currentUserID(c)

	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	n, err := h.notifications.Get(c.Request.Context(), id, userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, n)
}

// @Summary Пометить уведомление прочитанным
// @Tags notifications
// @Param id path string true "ID уведомления"
// @Success 204
// @Failure 404 {object} models.ErrorResponse
// @Router /api/notifications/{id}/read [patch]
func (h *NotificationHandler) markRead(c *gin.Context) {
	userID, _ := currentUserID(c)

	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	if err := h.notifications.MarkRead(c.Request.Context(), id, userID); err != nil {
		handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// @Summary Пометить все уведомления прочитанными
// @Tags notifications
// @Produce json
// @Success 200 {object} affectedResponse
// @Router /api/notifications/read-all [patch]
func (h *NotificationHandler) markAllRead(c *gin.Context) {
	userID, _ := currentUserID(c)

	affected, err := h.notifications.MarkAllRead(c.Request.Context(), userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, affectedResponse{Affected: affected})
}

// @Summary Архивировать уведомление
// @Tags notifications
// @Param id path string true "ID уведомления"
// @Success 204
// @Failure 404 {object} models.ErrorResponse
// @Router /api/notifications/{id}/archive [patch]
func (h *NotificationHandler) archiveNotification(c *gin.Context) {
	userID, _ := currentUserID(c)

	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	if err := h.notifications.Archive(c.Request.Context(), id, userID); err != nil {
		handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// @Summary Архивировать все прочитанные уведомления
// @Tags notifications
// @Produce json
// @Success 200 {object} affectedResponse
// @Router /api/notifications/archive-read [patch]
func (h *NotificationHandler) archiveRead(c *gin.Context) {
	userID, _ := currentUserID(c)

	affected, err := h.notifications.ArchiveRead(c.Request.Context(), userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, affectedResponse{Affected: affected})
}

// @Summary Удалить архивные уведомления
// @Tags notifications
// @Produce json
// @Success 200 {object} affectedResponse
// @Router /api/notifications/archived [delete]
func (h *NotificationHandler) deleteArchived(c *gin.Context) {
	userID, _ := currentUserID(c)

	affected, err := h.notifications.DeleteArchived(c.Request.Context(), userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, affectedResponse{Affected: affected})
}

// parseIDParam разбирает path-параметр :id как UUID.
func parseIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Code: models.ErrCodeBadRequest, Message: "Invalid notification id"})
		return uuid.Nil, false
	}
	return id, true
}
