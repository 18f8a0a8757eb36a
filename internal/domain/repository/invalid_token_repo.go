package repository

import (
	"context"
	"time"
)

// InvalidTokenRepository определяет методы для работы с инвалидированными токенами
type InvalidTokenRepository interface {
	// AddInvalidToken добавляет запись об инвалидации токенов пользователя
	AddInvalidToken(ctx context.Context, userID uint, invalidationTime time.Time) error

	// IsTokenInvalid проверяет, инвалидирован ли токен пользователя
	IsTokenInvalid(ctx context.Context, userID uint, tokenIssuedAt time.Time) (bool, error)

	// CleanupOldInvalidTokens удаляет устаревшие записи
	CleanupOldInvalidTokens(ctx context.Context, cutoffTime time.Time) error
}
