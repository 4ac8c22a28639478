package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pribylovaa/bondia/internal/cache"
	"github.com/pribylovaa/bondia/internal/models"
	"github.com/pribylovaa/bondia/internal/pkg/log"
	"github.com/pribylovaa/bondia/internal/storage"
)

type accessClaims struct {
	UserID string `json:"uid"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// hashToken — sha256 от plain refresh-токена в base64url; в БД и кэше хранится только он.
func hashToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// generateAccessToken генерирует access-токен (HS256).
func (s *Service) generateAccessToken(ctx context.Context, userID uuid.UUID, email string, now time.Time) (string, error) {
	const op = "service/token/generateAccessToken"

	claims := accessClaims{
		UserID: userID.String(),
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.Auth.AccessTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.cfg.Auth.Issuer,
			Subject:   userID.String(),
			Audience:  jwt.ClaimStrings(s.cfg.Auth.Audience),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.Auth.JWTSecret))
	if err != nil {
		log.From(ctx).Error("access_token_sign_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)

		return "", fmt.Errorf("%s: %w", op, err)
	}

	return signed, nil
}

// validateAccessToken валидирует подпись, issuer, audience и срок access-токена.
func (s *Service) validateAccessToken(tokenStr string) (uuid.UUID, string, error) {
	const op = "service/token/validateAccessToken"

	token, err := jwt.ParseWithClaims(tokenStr, &accessClaims{},
		func(t *jwt.Token) (any, error) {
			return []byte(s.cfg.Auth.JWTSecret), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(5*time.Second),
		jwt.WithIssuer(s.cfg.Auth.Issuer),
		jwt.WithAudience(s.cfg.Auth.Audience...),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return uuid.Nil, "", fmt.Errorf("%s: %w", op, ErrTokenExpired)
		}

		return uuid.Nil, "", fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	claims, ok := token.Claims.(*accessClaims)
	if !ok || !token.Valid {
		return uuid.Nil, "", fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	uid, err := uuid.Parse(claims.UserID)
	if err != nil || uid == uuid.Nil {
		return uuid.Nil, "", fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	return uid, claims.Email, nil
}

// generateRefreshToken создаёт и сохраняет новый refresh-токен.
// При коллизии хэша повторяет генерацию (до 5 попыток).
func (s *Service) generateRefreshToken(ctx context.Context, userID uuid.UUID) (string, error) {
	const (
		op          = "service/token/generateRefreshToken"
		maxAttempts = 5
	)

	lg := log.From(ctx)

	for attempt := 0; attempt < maxAttempts; attempt++ {
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			lg.Error("refresh_rand_failed",
				slog.String("op", op),
				slog.String("err", err.Error()),
			)

			return "", fmt.Errorf("%s: %w", op, err)
		}

		plain := base64.RawURLEncoding.EncodeToString(b)
		hash := hashToken(plain)

		now := s.now()
		token := &models.RefreshToken{
			RefreshTokenHash: hash,
			UserID:           userID,
			CreatedAt:        now,
			ExpiresAt:        now.Add(s.cfg.Auth.RefreshTokenTTL),
		}

		if err := s.accounts.SaveRefreshToken(ctx, token); err != nil {
			if errors.Is(err, storage.ErrAlreadyExists) {
				// Редкая коллизия — пробуем заново.
				continue
			}

			lg.Error("save_refresh_token_failed",
				slog.String("op", op),
				slog.String("err", err.Error()),
			)

			return "", fmt.Errorf("%s: %w", op, err)
		}

		s.cacheRefresh(ctx, hash, &cache.RefreshEntry{UserID: userID, ExpiresAt: token.ExpiresAt})

		return plain, nil
	}

	lg.Error("refresh_collision_exceeded", slog.String("op", op))

	return "", fmt.Errorf("%s: %w", op, ErrRefreshTokenCollision)
}

// validateRefreshToken проверяет refresh-токен и возвращает владельца и хэш.
// Сначала смотрит в кэш; промах или ошибка кэша — чтение из PostgreSQL
// и заполнение кэша.
func (s *Service) validateRefreshToken(ctx context.Context, plain string) (uuid.UUID, string, error) {
	const op = "service/token/validateRefreshToken"

	lg := log.From(ctx)

	if plain == "" {
		return uuid.Nil, "", fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	hash := hashToken(plain)

	entry, hit := s.cachedRefresh(ctx, hash)
	if !hit {
		token, err := s.accounts.RefreshTokenByHash(ctx, hash)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				lg.Warn("refresh_lookup_not_found", slog.String("op", op))

				return uuid.Nil, "", fmt.Errorf("%s: %w", op, ErrInvalidToken)
			}

			lg.Error("refresh_lookup_failed",
				slog.String("op", op),
				slog.String("err", err.Error()),
			)

			return uuid.Nil, "", fmt.Errorf("%s: %w", op, err)
		}

		entry = &cache.RefreshEntry{UserID: token.UserID, Revoked: token.Revoked, ExpiresAt: token.ExpiresAt}
		s.cacheRefresh(ctx, hash, entry)
	}

	if entry.Revoked {
		lg.Warn("refresh_revoked",
			slog.String("op", op),
			slog.String("user_id", entry.UserID.String()),
		)

		return uuid.Nil, "", fmt.Errorf("%s: %w", op, ErrTokenRevoked)
	}

	if s.now().After(entry.ExpiresAt) {
		lg.Warn("refresh_expired",
			slog.String("op", op),
			slog.String("user_id", entry.UserID.String()),
		)

		return uuid.Nil, "", fmt.Errorf("%s: %w", op, ErrTokenExpired)
	}

	return entry.UserID, hash, nil
}

// revokeRefresh атомарно отзывает активный токен и помечает его в кэше.
func (s *Service) revokeRefresh(ctx context.Context, hash string) error {
	revoked, err := s.accounts.RevokeRefreshTokenIfActive(ctx, hash)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrInvalidToken
		}

		return err
	}

	if !revoked {
		return ErrTokenRevoked
	}

	if s.rcache != nil {
		if err := s.rcache.MarkRevoked(ctx, hash); err != nil {
			log.From(ctx).Warn("refresh_cache_mark_revoked_failed", slog.String("err", err.Error()))
		}
	}

	return nil
}

func (s *Service) cachedRefresh(ctx context.Context, hash string) (*cache.RefreshEntry, bool) {
	if s.rcache == nil {
		return nil, false
	}

	entry, ok, err := s.rcache.Get(ctx, hash)
	if err != nil {
		log.From(ctx).Warn("refresh_cache_get_failed", slog.String("err", err.Error()))

		return nil, false
	}

	return entry, ok && entry != nil
}

func (s *Service) cacheRefresh(ctx context.Context, hash string, e *cache.RefreshEntry) {
	if s.rcache == nil {
		return
	}

	ttl := e.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return
	}

	if err := s.rcache.Set(ctx, hash, e, ttl); err != nil {
		log.From(ctx).Warn("refresh_cache_set_failed", slog.String("err", err.Error()))
	}
}
