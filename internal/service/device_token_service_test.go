package service_test

import (
	"context"
	"errors"
	"testing"

	"easyconnect-server/internal/models"
	"easyconnect-server/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRegisterDeviceToken(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("Registers trimmed token with normalized device type", func(t *testing.T) {
		repo := new(MockDeviceTokenRepository)
		svc := service.NewDeviceTokenService(repo, zap.NewNop())

		deviceType := " Android "
		saved := &models.DeviceToken{ID: uuid.New(), UserID: userID, Token: "token-1", IsActive: true}
		repo.On("Save", ctx, userID, "token-1", mock.MatchedBy(func(dt *string) bool {
			return dt != nil && *dt == "android"
		}), (*string)(nil), (*string)(nil)).Return(saved, nil).Once()

		dt, err := svc.Register(ctx, userID, "  token-1  ", &deviceType, nil, nil)
		require.NoError(t, err)
		assert.True(t, dt.IsActive)
		repo.AssertExpectations(t)
	})

	t.Run("Empty token is rejected", func(t *testing.T) {
		repo := new(MockDeviceTokenRepository)
		svc := service.NewDeviceTokenService(repo, zap.NewNop())

		_, err := svc.Register(ctx, userID, "   ", nil, nil, nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, models.ErrInvalidInput))
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Unknown device type is rejected", func(t *testing.T) {
		repo := new(MockDeviceTokenRepository)
		svc := service.NewDeviceTokenService(repo, zap.NewNop())

		deviceType := "blackberry"
		_, err := svc.Register(ctx, userID, "token-1", &deviceType, nil, nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, models.ErrInvalidInput))
	})

	t.Run("Missing device type is allowed", func(t *testing.T) {
		repo := new(MockDeviceTokenRepository)
		svc := service.NewDeviceTokenService(repo, zap.NewNop())

		saved := &models.DeviceToken{ID: uuid.New(), UserID: userID, Token: "token-1", IsActive: true}
		repo.On("Save", ctx, userID, "token-1", (*string)(nil), (*string)(nil), (*string)(nil)).Return(saved, nil).Once()

		_, err := svc.Register(ctx, userID, "token-1", nil, nil, nil)
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})
}

func TestUnregisterDeviceToken(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("Removes a single token", func(t *testing.T) {
		repo := new(MockDeviceTokenRepository)
		svc := service.NewDeviceTokenService(repo, zap.NewNop())

		token := "token-1"
		repo.On("Delete", ctx, userID, "token-1").Return(nil).Once()

		deleted, err := svc.Unregister(ctx, userID, &token)
		require.NoError(t, err)
		assert.Equal(t, int64(1), deleted)
		repo.AssertExpectations(t)
	})

	t.Run("Removes all tokens when none is specified", func(t *testing.T) {
		repo := new(MockDeviceTokenRepository)
		svc := service.NewDeviceTokenService(repo, zap.NewNop())

		repo.On("DeleteAll", ctx, userID).Return(int64(3), nil).Once()

		deleted, err := svc.Unregister(ctx, userID, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(3), deleted)
	})

	t.Run("Unknown token returns not found", func(t *testing.T) {
		repo := new(MockDeviceTokenRepository)
		svc := service.NewDeviceTokenService(repo, zap.NewNop())

		token := "missing"
		repo.On("Delete", ctx, userID, "missing").Return(models.ErrDeviceTokenNotFound).Once()

		_, err := svc.Unregister(ctx, userID, &token)
		require.Error(t, err)
		assert.True(t, errors.Is(err, models.ErrDeviceTokenNotFound))
	})

	t.Run("Blank token is rejected", func(t *testing.T) {
		repo := new(MockDeviceTokenRepository)
		svc := service.NewDeviceTokenService(repo, zap.NewNop())

		token := "   "
		_, err := svc.Unregister(ctx, userID, &token)
		require.Error(t, err)
		assert.True(t, errors.Is(err, models.ErrInvalidInput))
	})
}
