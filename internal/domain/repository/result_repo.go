package repository

import (
	"time"

	"github.com/closebase/assessment-api/internal/domain/entity"
)

// ResultFilters определяет фильтры для выборки результатов
type ResultFilters struct {
	Passed   *bool      // Фильтр по статусу прохождения
	DateFrom *time.Time // Фильтр по дате завершения (от)
	DateTo   *time.Time // Фильтр по дате завершения (до)
}

// ResultRepository определяет методы для работы с результатами ассессмента
type ResultRepository interface {
	SaveResult(result *entity.AssessmentResult) error
	GetByAttemptID(attemptID string) (*entity.AssessmentResult, error)
	GetUserResults(userID uint, limit, offset int) ([]entity.AssessmentResult, error)
	// GetBestUserResult возвращает результат пользователя с максимальным total_score
	GetBestUserResult(userID uint) (*entity.AssessmentResult, error)
	List(filters ResultFilters, limit, offset int) ([]entity.AssessmentResult, int64, error)
	// ListAll возвращает все результаты под фильтрами (для экспорта)
	ListAll(filters ResultFilters) ([]entity.AssessmentResult, error)
}
