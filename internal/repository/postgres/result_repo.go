package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/closebase/assessment-api/internal/domain/entity"
	"github.com/closebase/assessment-api/internal/domain/repository"
	apperrors "github.com/closebase/assessment-api/internal/pkg/errors"
)

// isUniqueViolation проверяет Postgres unique violation (23505) для pgconn и lib/pq драйверов
func isUniqueViolation(err error) bool {
	// pgx/v5 driver (pgconn.PgError)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	// lib/pq driver
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return true
	}
	return false
}

// ResultRepo реализует repository.ResultRepository
type ResultRepo struct {
	db *gorm.DB
}

// NewResultRepo создает новый репозиторий результатов
func NewResultRepo(db *gorm.DB) *ResultRepo {
	return &ResultRepo{db: db}
}

// SaveResult сохраняет итоговый результат попытки.
// Уникальный индекс по attempt_id защищает от двойной агрегации.
func (r *ResultRepo) SaveResult(result *entity.AssessmentResult) error {
	if err := r.db.Create(result).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: результат попытки %s уже сохранен", apperrors.ErrConflict, result.AttemptID)
		}
		return fmt.Errorf("ошибка сохранения результата попытки %s: %w", result.AttemptID, err)
	}
	return nil
}

// GetByAttemptID возвращает результат по идентификатору попытки
func (r *ResultRepo) GetByAttemptID(attemptID string) (*entity.AssessmentResult, error) {
	var result entity.AssessmentResult
	err := r.db.Where("attempt_id = ?", attemptID).First(&result).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &result, nil
}

// GetUserResults возвращает результаты пользователя с пагинацией
func (r *ResultRepo) GetUserResults(userID uint, limit, offset int) ([]entity.AssessmentResult, error) {
	var results []entity.AssessmentResult
	err := r.db.Where("user_id = ?", userID).
		Order("completed_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// GetBestUserResult возвращает лучший результат пользователя
func (r *ResultRepo) GetBestUserResult(userID uint) (*entity.AssessmentResult, error) {
	var result entity.AssessmentResult
	err := r.db.Where("user_id = ?", userID).
		Order("total_score DESC, completed_at ASC").
		First(&result).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &result, nil
}

// applyFilters накладывает фильтры выборки результатов на запрос
func applyResultFilters(query *gorm.DB, filters repository.ResultFilters) *gorm.DB {
	if filters.Passed != nil {
		query = query.Where("passed = ?", *filters.Passed)
	}
	if filters.DateFrom != nil {
		query = query.Where("completed_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("completed_at <= ?", *filters.DateTo)
	}
	return query
}

// List возвращает страницу результатов под фильтрами и общее количество
func (r *ResultRepo) List(filters repository.ResultFilters, limit, offset int) ([]entity.AssessmentResult, int64, error) {
	var results []entity.AssessmentResult
	var total int64

	query := applyResultFilters(r.db.Model(&entity.AssessmentResult{}), filters)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("completed_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&results).Error
	if err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

// ListAll возвращает все результаты под фильтрами (для экспорта)
func (r *ResultRepo) ListAll(filters repository.ResultFilters) ([]entity.AssessmentResult, error) {
	var results []entity.AssessmentResult
	err := applyResultFilters(r.db.Model(&entity.AssessmentResult{}), filters).
		Order("completed_at DESC").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
