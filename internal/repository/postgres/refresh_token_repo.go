package postgres

import (
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/closebase/assessment-api/internal/domain/entity"
	apperrors "github.com/closebase/assessment-api/internal/pkg/errors"
)

// RefreshTokenRepo реализует repository.RefreshTokenRepository
type RefreshTokenRepo struct {
	db *gorm.DB
}

// NewRefreshTokenRepo создает новый репозиторий refresh-токенов
func NewRefreshTokenRepo(db *gorm.DB) (*RefreshTokenRepo, error) {
	if db == nil {
		return nil, fmt.Errorf("GORM DB instance is required for RefreshTokenRepo")
	}
	return &RefreshTokenRepo{db: db}, nil
}

// CreateToken сохраняет новый refresh-токен и возвращает его ID
func (r *RefreshTokenRepo) CreateToken(token *entity.RefreshToken) (uint, error) {
	result := r.db.Create(token)
	if result.Error != nil {
		return 0, fmt.Errorf("ошибка создания refresh токена: %w", result.Error)
	}
	if token.ID == 0 {
		return 0, fmt.Errorf("не удалось получить ID после создания refresh токена")
	}
	return token.ID, nil
}

// GetTokenByValue находит refresh-токен по хешу значения.
// В БД хранится только SHA-256 хеш, сырой токен никогда не пишется.
func (r *RefreshTokenRepo) GetTokenByValue(tokenHash string) (*entity.RefreshToken, error) {
	var token entity.RefreshToken
	result := r.db.Where("token_hash = ?", tokenHash).First(&token)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения refresh токена: %w", result.Error)
	}

	if token.ExpiresAt.Before(time.Now()) {
		return nil, apperrors.ErrExpiredToken
	}
	return &token, nil
}

// RevokeToken отзывает токен по хешу значения
func (r *RefreshTokenRepo) RevokeToken(tokenHash string, reason string) error {
	result := r.db.Model(&entity.RefreshToken{}).
		Where("token_hash = ? AND revoked_at IS NULL", tokenHash).
		Updates(map[string]interface{}{
			"revoked_at": time.Now(),
			"reason":     reason,
		})
	if result.Error != nil {
		return fmt.Errorf("ошибка отзыва refresh токена: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// RevokeAllForUser отзывает все активные токены пользователя
func (r *RefreshTokenRepo) RevokeAllForUser(userID uint, reason string) error {
	result := r.db.Model(&entity.RefreshToken{}).
		Where("user_id = ? AND revoked_at IS NULL AND expires_at > ?", userID, time.Now()).
		Updates(map[string]interface{}{
			"revoked_at": time.Now(),
			"reason":     reason,
		})
	if result.Error != nil {
		return fmt.Errorf("ошибка отзыва токенов пользователя %d: %w", userID, result.Error)
	}
	// Отсутствие активных токенов - не ошибка
	return nil
}

// CleanupExpiredTokens удаляет просроченные и отозванные токены
func (r *RefreshTokenRepo) CleanupExpiredTokens() (int64, error) {
	result := r.db.Where("expires_at <= ? OR revoked_at IS NOT NULL", time.Now()).
		Delete(&entity.RefreshToken{})
	if result.Error != nil {
		return 0, fmt.Errorf("ошибка очистки истекших refresh токенов: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// CountActiveForUser возвращает количество активных токенов пользователя
func (r *RefreshTokenRepo) CountActiveForUser(userID uint) (int, error) {
	var count int64
	result := r.db.Model(&entity.RefreshToken{}).
		Where("user_id = ? AND revoked_at IS NULL AND expires_at > ?", userID, time.Now()).
		Count(&count)
	if result.Error != nil {
		return 0, fmt.Errorf("ошибка подсчета токенов пользователя %d: %w", userID, result.Error)
	}
	return int(count), nil
}

// RevokeOldestForUser отзывает самые старые активные токены пользователя,
// оставляя limit самых новых
func (r *RefreshTokenRepo) RevokeOldestForUser(userID uint, limit int) error {
	var tokenIDs []uint
	result := r.db.Model(&entity.RefreshToken{}).
		Select("id").
		Where("user_id = ? AND revoked_at IS NULL AND expires_at > ?", userID, time.Now()).
		Order("created_at DESC").
		Offset(limit).
		Find(&tokenIDs)
	if result.Error != nil {
		return fmt.Errorf("ошибка получения ID старых токенов пользователя %d: %w", userID, result.Error)
	}

	if len(tokenIDs) == 0 {
		return nil
	}

	updateResult := r.db.Model(&entity.RefreshToken{}).
		Where("id IN ?", tokenIDs).
		Updates(map[string]interface{}{
			"revoked_at": time.Now(),
			"reason":     "token limit exceeded",
		})
	if updateResult.Error != nil {
		return fmt.Errorf("ошибка отзыва старых токенов пользователя %d: %w", userID, updateResult.Error)
	}

	log.Printf("[RefreshTokenRepo] Отозвано %d старых токенов пользователя %d", len(tokenIDs), userID)
	return nil
}
