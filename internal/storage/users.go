package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/bondia/internal/models"
)

// UserStorage выполняет операции над пользователями.
type UserStorage interface {
	// SaveUser создает нового пользователя. Занятый email — ErrAlreadyExists.
	SaveUser(ctx context.Context, user *models.User) error
	// UserByEmail находит пользователя по email.
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	// UserByID находит пользователя по ID.
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// RefreshTokenStorage выполняет операции над refresh-токенами.
type RefreshTokenStorage interface {
	// SaveRefreshToken сохраняет новый refresh-токен. Коллизия хэша — ErrAlreadyExists.
	SaveRefreshToken(ctx context.Context, token *models.RefreshToken) error
	// RefreshTokenByHash находит refresh-токен по его хэшу.
	RefreshTokenByHash(ctx context.Context, hash string) (*models.RefreshToken, error)
	// RevokeRefreshTokenIfActive отзывает токен, если он ещё активен.
	// (true, nil) — отозван сейчас; (false, nil) — уже был отозван;
	// (false, ErrNotFound) — токена нет.
	RevokeRefreshTokenIfActive(ctx context.Context, hash string) (bool, error)
	// DeleteExpiredTokens удаляет все просроченные токены.
	DeleteExpiredTokens(ctx context.Context, now time.Time) error
}

// Accounts — хранилище учётных записей целиком.
//
//go:generate mockgen -destination=../../mocks/mock_accounts.go -package=mocks github.com/pribylovaa/bondia/internal/storage Accounts
type Accounts interface {
	UserStorage
	RefreshTokenStorage
	Close()
}
