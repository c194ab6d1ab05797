package service

import (
	"context"
	"fmt"
	"strings"

	"easyconnect-server/internal/models"
	"easyconnect-server/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DeviceTokenService управляет жизненным циклом push-токенов устройств.
type DeviceTokenService interface {
	Register(ctx context.Context, userID uuid.UUID, token string, deviceType, deviceID, appVersion *string) (*models.DeviceToken, error)
	List(ctx context.Context, userID uuid.UUID) ([]models.DeviceToken, error)
	Unregister(ctx context.Context, userID uuid.UUID, token *string) (int64, error)
}

// Убедимся, что deviceTokenService реализует интерфейс
var _ DeviceTokenService = (*deviceTokenService)(nil)

type deviceTokenService struct {
	repo   repository.DeviceTokenRepository
	logger *zap.Logger
}

func NewDeviceTokenService(repo repository.DeviceTokenRepository, logger *zap.Logger) DeviceTokenService {
	return &deviceTokenService{
		repo:   repo,
		logger: logger.Named("device_token_service"),
	}
}

// Register регистрирует токен устройства. Повторная регистрация той же пары
// (пользователь, токен) идемпотентна и реактивирует запись.
func (s *deviceTokenService) Register(ctx context.Context, userID uuid.UUID, token string, deviceType, deviceID, appVersion *string) (*models.DeviceToken, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("%w: device token cannot be empty", models.ErrInvalidInput)
	}
	if deviceType != nil {
		normalized := strings.ToLower(strings.TrimSpace(*deviceType))
		if !models.IsValidDeviceType(normalized) {
			return nil, fmt.Errorf("%w: device type must be one of ios, android, web", models.ErrInvalidInput)
		}
		deviceType = &normalized
	}

	dt, err := s.repo.Save(ctx, userID, token, deviceType, deviceID, appVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to save device token: %w", err)
	}

	s.logger.Info("Device token registered",
		zap.String("userID", userID.String()),
		zap.Stringp("deviceType", deviceType),
	)
	return dt, nil
}

// List возвращает все токены пользователя.
func (s *deviceTokenService) List(ctx context.Context, userID uuid.UUID) ([]models.DeviceToken, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Unregister удаляет один токен пользователя или все сразу (token == nil).
func (s *deviceTokenService) Unregister(ctx context.Context, userID uuid.UUID, token *string) (int64, error) {
	if token == nil {
		deleted, err := s.repo.DeleteAll(ctx, userID)
		if err != nil {
			return 0, fmt.Errorf("failed to delete device tokens: %w", err)
		}
		s.logger.Info("All device tokens unregistered",
			zap.String("userID", userID.String()),
			zap.Int64("count", deleted),
		)
		return deleted, nil
	}

	trimmed := strings.TrimSpace(*token)
	if trimmed == "" {
		return 0, fmt.Errorf("%w: device token cannot be empty", models.ErrInvalidInput)
	}
	if err := s.repo.Delete(ctx, userID, trimmed); err != nil {
		return 0, err
	}
	s.logger.Info("Device token unregistered", zap.String("userID", userID.String()))
	return 1, nil
}
