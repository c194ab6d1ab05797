package models

import "errors"

// Стандартные ошибки приложения
var (
	// Common Resource/DB Errors
	ErrNotFound             = errors.New("resource not found")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrDeviceTokenNotFound  = errors.New("device token not found")
	ErrUserNotFound         = errors.New("user not found")

	// Authentication Errors
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrTokenInvalid   = errors.New("token is invalid")
	ErrTokenMalformed = errors.New("token is malformed")
	ErrTokenExpired   = errors.New("token has expired")

	// Dispatch & Push Errors
	ErrPushNotConfigured = errors.New("push gateway is not configured")
	ErrQueueUnavailable  = errors.New("work queue is unavailable")

	// General Request/Server Errors
	ErrInternalServer = errors.New("internal server error")
	ErrBadRequest     = errors.New("bad request")
	ErrInvalidInput   = errors.New("invalid input data")
)
