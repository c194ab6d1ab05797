package handler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"easyconnect-server/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Ключи контекста gin, заполняемые AuthMiddleware.
const (
	ContextUserIDKey = "user_id"
	ContextRoleKey   = "user_role"
)

// AuthMiddleware проверяет bearer-токен и кладет user_id и роль в контекст.
func (h *NotificationHandler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			zap.L().Warn("Authorization header missing")
			handleServiceError(c, models.ErrTokenInvalid)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			zap.L().Warn("Invalid Authorization header format")
			handleServiceError(c, models.ErrTokenMalformed)
			return
		}

		claims, err := h.verifyAccessToken(parts[1])
		if err != nil {
			zap.L().Warn("Access token verification failed", zap.Error(err))
			handleServiceError(c, err)
			return
		}

		c.Set(ContextUserIDKey, claims.UserID)
		c.Set(ContextRoleKey, claims.Role)
		c.Next()
	}
}

// UnreadCountsMiddleware добавляет счетчики непрочитанных уведомлений
// в заголовки каждого аутентифицированного ответа.
func (h *NotificationHandler) UnreadCountsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			c.Next()
			return
		}

		unread, urgent, err := h.notifications.UnreadCounts(c.Request.Context(), userID)
		if err != nil {
			// Счетчики — вспомогательная информация, запрос из-за них не падает
			zap.L().Warn("Failed to load unread counts", zap.String("userID", userID.String()), zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-Notifications-Unread", strconv.FormatInt(unread, 10))
		c.Header("X-Notifications-Urgent", strconv.FormatInt(urgent, 10))
		c.Next()
	}
}

func (h *NotificationHandler) verifyAccessToken(tokenString string) (*models.Claims, error) {
	claims := &models.Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(h.cfg.JWT.Secret), nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, models.ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, models.ErrTokenMalformed
		default:
			return nil, models.ErrTokenInvalid
		}
	}
	if !token.Valid || claims.UserID == uuid.Nil {
		return nil, models.ErrTokenInvalid
	}
	return claims, nil
}

// currentUserID достает идентификатор пользователя из контекста gin.
func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	v, exists := c.Get(ContextUserIDKey)
	if !exists {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}
