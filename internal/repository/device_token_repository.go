package repository

import (
	"context"
	"fmt"

	"easyconnect-server/internal/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	saveDeviceTokenQuery = `
		INSERT INTO device_tokens (id, user_id, token, device_type, device_id, app_version, is_active, last_used_at)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE, NOW())
		ON CONFLICT (user_id, token)
		DO UPDATE SET
			device_type = EXCLUDED.device_type,
			device_id = EXCLUDED.device_id,
			app_version = EXCLUDED.app_version,
			is_active = TRUE,
			last_used_at = NOW(),
			updated_at = NOW()
		RETURNING id, user_id, token, device_type, device_id, app_version, is_active, last_used_at, created_at, updated_at;
	`
	listDeviceTokensQuery = `
		SELECT id, user_id, token, device_type, device_id, app_version, is_active, last_used_at, created_at, updated_at
		FROM device_tokens
		WHERE user_id = $1
		ORDER BY created_at DESC;
	`
	listActiveDeviceTokensQuery = `
		SELECT id, user_id, token, device_type, device_id, app_version, is_active, last_used_at, created_at, updated_at
		FROM device_tokens
		WHERE user_id = $1 AND is_active = TRUE;
	`
	deleteDeviceTokenQuery     = `DELETE FROM device_tokens WHERE user_id = $1 AND token = $2;`
	deleteAllDeviceTokensQuery = `DELETE FROM device_tokens WHERE user_id = $1;`
	markTokensUsedQuery        = `UPDATE device_tokens SET last_used_at = NOW(), updated_at = NOW() WHERE token = ANY($1);`
	deactivateTokensQuery      = `UPDATE device_tokens SET is_active = FALSE, updated_at = NOW() WHERE token = ANY($1);`
)

// DeviceTokenRepository хранит push-токены устройств.
type DeviceTokenRepository interface {
	Save(ctx context.Context, userID uuid.UUID, token string, deviceType, deviceID, appVersion *string) (*models.DeviceToken, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.DeviceToken, error)
	ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]models.DeviceToken, error)
	Delete(ctx context.Context, userID uuid.UUID, token string) error
	DeleteAll(ctx context.Context, userID uuid.UUID) (int64, error)
	MarkUsed(ctx context.Context, tokens []string) error
	Deactivate(ctx context.Context, tokens []string) (int64, error)
}

// Убедимся, что pgDeviceTokenRepository реализует интерфейс
var _ DeviceTokenRepository = (*pgDeviceTokenRepository)(nil)

type pgDeviceTokenRepository struct {
	db     DBTX
	logger *zap.Logger
}

func NewDeviceTokenRepository(db DBTX, logger *zap.Logger) DeviceTokenRepository {
	return &pgDeviceTokenRepository{
		db:     db,
		logger: logger.Named("device_token_repo"),
	}
}

// Save сохраняет или реактивирует токен устройства.
// Использует INSERT ... ON CONFLICT DO UPDATE для атомарности.
func (r *pgDeviceTokenRepository) Save(ctx context.Context, userID uuid.UUID, token string, deviceType, deviceID, appVersion *string) (*models.DeviceToken, error) {
	var dt models.DeviceToken
	err := pgxscan.Get(ctx, r.db, &dt, saveDeviceTokenQuery,
		uuid.New(), userID, token, deviceType, deviceID, appVersion)
	if err != nil {
		r.logger.Error("Failed to save device token",
			zap.String("userID", userID.String()),
			zap.Error(err),
		)
		return nil, fmt.Errorf("db error saving device token: %w", err)
	}

	r.logger.Debug("Device token saved",
		zap.String("userID", userID.String()),
		zap.Bool("isActive", dt.IsActive),
	)
	return &dt, nil
}

// ListByUser возвращает все токены пользователя, включая неактивные.
func (r *pgDeviceTokenRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.DeviceToken, error) {
	tokens := make([]models.DeviceToken, 0)
	if err := pgxscan.Select(ctx, r.db, &tokens, listDeviceTokensQuery, userID); err != nil {
		r.logger.Error("Failed to list device tokens", zap.String("userID", userID.String()), zap.Error(err))
		return nil, fmt.Errorf("db error listing device tokens: %w", err)
	}
	return tokens, nil
}

// ListActiveByUser возвращает только активные токены — кандидатов на push-доставку.
func (r *pgDeviceTokenRepository) ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]models.DeviceToken, error) {
	tokens := make([]models.DeviceToken, 0)
	if err := pgxscan.Select(ctx, r.db, &tokens, listActiveDeviceTokensQuery, userID); err != nil {
		r.logger.Error("Failed to list active device tokens", zap.String("userID", userID.String()), zap.Error(err))
		return nil, fmt.Errorf("db error listing active device tokens: %w", err)
	}
	return tokens, nil
}

// Delete удаляет конкретный токен пользователя.
func (r *pgDeviceTokenRepository) Delete(ctx context.Context, userID uuid.UUID, token string) error {
	cmdTag, err := r.db.Exec(ctx, deleteDeviceTokenQuery, userID, token)
	if err != nil {
		r.logger.Error("Failed to delete device token", zap.String("userID", userID.String()), zap.Error(err))
		return fmt.Errorf("db error deleting device token: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return models.ErrDeviceTokenNotFound
	}
	return nil
}

// DeleteAll удаляет все токены пользователя (выход со всех устройств).
func (r *pgDeviceTokenRepository) DeleteAll(ctx context.Context, userID uuid.UUID) (int64, error) {
	cmdTag, err := r.db.Exec(ctx, deleteAllDeviceTokensQuery, userID)
	if err != nil {
		r.logger.Error("Failed to delete device tokens for user", zap.String("userID", userID.String()), zap.Error(err))
		return 0, fmt.Errorf("db error deleting user device tokens: %w", err)
	}
	return cmdTag.RowsAffected(), nil
}

// MarkUsed обновляет last_used_at после успешной доставки push.
func (r *pgDeviceTokenRepository) MarkUsed(ctx context.Context, tokens []string) error {
	if len(tokens) == 0 {
		return nil
	}
	if _, err := r.db.Exec(ctx, markTokensUsedQuery, tokens); err != nil {
		r.logger.Error("Failed to mark device tokens as used", zap.Int("count", len(tokens)), zap.Error(err))
		return fmt.Errorf("db error marking device tokens used: %w", err)
	}
	return nil
}

// Deactivate помечает токены неактивными (шлюз сообщил, что они невалидны).
func (r *pgDeviceTokenRepository) Deactivate(ctx context.Context, tokens []string) (int64, error) {
	if len(tokens) == 0 {
		return 0, nil
	}
	cmdTag, err := r.db.Exec(ctx, deactivateTokensQuery, tokens)
	if err != nil {
		r.logger.Error("Failed to deactivate device tokens", zap.Int("count", len(tokens)), zap.Error(err))
		return 0, fmt.Errorf("db error deactivating device tokens: %w", err)
	}
	return cmdTag.RowsAffected(), nil
}
