package repository

import (
	"context"
	"errors"
	"fmt"

	"easyconnect-server/internal/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const (
	getUserByIDQuery = `
		SELECT id, nom, prenom, email, role
		FROM users
		WHERE id = $1;
	`
	getUserIDsByRoleQuery = `SELECT id FROM users WHERE role = $1;`
)

// UserRepository читает пользователей для рассылок по ролям.
type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetIDsByRole(ctx context.Context, role int) ([]uuid.UUID, error)
}

// Убедимся, что pgUserRepository реализует интерфейс
var _ UserRepository = (*pgUserRepository)(nil)

type pgUserRepository struct {
	db     DBTX
	logger *zap.Logger
}

func NewUserRepository(db DBTX, logger *zap.Logger) UserRepository {
	return &pgUserRepository{
		db:     db,
		logger: logger.Named("user_repo"),
	}
}

// GetByID возвращает пользователя по идентификатору.
func (r *pgUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	err := pgxscan.Get(ctx, r.db, &u, getUserByIDQuery, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrUserNotFound
		}
		r.logger.Error("Failed to get user", zap.String("userID", id.String()), zap.Error(err))
		return nil, fmt.Errorf("db error getting user: %w", err)
	}
	return &u, nil
}

// GetIDsByRole возвращает идентификаторы всех пользователей с ролью.
// Пустой результат не является ошибкой.
func (r *pgUserRepository) GetIDsByRole(ctx context.Context, role int) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0)
	if err := pgxscan.Select(ctx, r.db, &ids, getUserIDsByRoleQuery, role); err != nil {
		r.logger.Error("Failed to get user ids by role", zap.Int("role", role), zap.Error(err))
		return nil, fmt.Errorf("db error getting users by role: %w", err)
	}
	return ids, nil
}
