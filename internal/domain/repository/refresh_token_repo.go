package repository

import (
	"github.com/closebase/assessment-api/internal/domain/entity"
)

// RefreshTokenRepository интерфейс для работы с refresh-токенами
type RefreshTokenRepository interface {
	// CreateToken создает новый refresh-токен и возвращает его ID
	CreateToken(refreshToken *entity.RefreshToken) (uint, error)

	// GetTokenByValue находит refresh-токен по его значению
	GetTokenByValue(token string) (*entity.RefreshToken, error)

	// RevokeToken отзывает токен по его значению
	RevokeToken(token string, reason string) error

	// RevokeAllForUser отзывает все токены пользователя
	RevokeAllForUser(userID uint, reason string) error

	// CleanupExpiredTokens удаляет все просроченные и отозванные токены
	CleanupExpiredTokens() (int64, error)

	// CountActiveForUser подсчитывает количество активных токенов пользователя
	CountActiveForUser(userID uint) (int, error)

	// RevokeOldestForUser отзывает самые старые токены пользователя, оставляя limit активных
	RevokeOldestForUser(userID uint, limit int) error
}
