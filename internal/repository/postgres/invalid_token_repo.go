package postgres

import (
	"context"
	"errors"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/closebase/assessment-api/internal/domain/entity"
)

// InvalidTokenRepo реализует repository.InvalidTokenRepository
type InvalidTokenRepo struct {
	db *gorm.DB
}

// NewInvalidTokenRepo создает новый репозиторий инвалидированных токенов
func NewInvalidTokenRepo(db *gorm.DB) *InvalidTokenRepo {
	return &InvalidTokenRepo{db: db}
}

// AddInvalidToken добавляет запись об инвалидации токенов пользователя
func (r *InvalidTokenRepo) AddInvalidToken(ctx context.Context, userID uint, invalidationTime time.Time) error {
	// Upsert: если пользователь уже в черном списке, сдвигаем время инвалидации
	err := r.db.WithContext(ctx).Exec(`
		INSERT INTO invalid_tokens (user_id, invalidation_time)
		VALUES (?, ?)
		ON CONFLICT (user_id)
		DO UPDATE SET invalidation_time = ?
	`, userID, invalidationTime, invalidationTime).Error
	if err != nil {
		log.Printf("Ошибка при добавлении записи в invalid_tokens: %v", err)
		return err
	}
	return nil
}

// IsTokenInvalid проверяет, инвалидирован ли токен пользователя
func (r *InvalidTokenRepo) IsTokenInvalid(ctx context.Context, userID uint, tokenIssuedAt time.Time) (bool, error) {
	var invalidToken entity.InvalidToken
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&invalidToken).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Запись не найдена - токен валиден
			return false, nil
		}
		log.Printf("Ошибка при проверке токена в invalid_tokens: %v", err)
		return false, err
	}

	// Токен, выданный до момента инвалидации, недействителен
	return tokenIssuedAt.Before(invalidToken.InvalidationTime), nil
}

// CleanupOldInvalidTokens удаляет устаревшие записи
func (r *InvalidTokenRepo) CleanupOldInvalidTokens(ctx context.Context, cutoffTime time.Time) error {
	result := r.db.WithContext(ctx).Where("invalidation_time < ?", cutoffTime).Delete(&entity.InvalidToken{})
	if result.Error != nil {
		log.Printf("Ошибка при очистке устаревших записей в invalid_tokens: %v", result.Error)
		return result.Error
	}
	if result.RowsAffected > 0 {
		log.Printf("Удалено %d устаревших записей из invalid_tokens", result.RowsAffected)
	}
	return nil
}
