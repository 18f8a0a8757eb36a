package service

import (
	"fmt"
	"log"

	"github.com/closebase/assessment-api/internal/domain/entity"
	"github.com/closebase/assessment-api/internal/domain/repository"
	apperrors "github.com/closebase/assessment-api/internal/pkg/errors"
)

// ResultService предоставляет методы для работы с результатами ассессмента
type ResultService struct {
	resultRepo repository.ResultRepository
	userRepo   repository.UserRepository
}

// NewResultService создает новый сервис результатов
func NewResultService(
	resultRepo repository.ResultRepository,
	userRepo repository.UserRepository,
) (*ResultService, error) {
	if resultRepo == nil {
		return nil, fmt.Errorf("ResultRepository is required for ResultService")
	}
	if userRepo == nil {
		return nil, fmt.Errorf("UserRepository is required for ResultService")
	}
	return &ResultService{
		resultRepo: resultRepo,
		userRepo:   userRepo,
	}, nil
}

// GetResultByAttempt возвращает результат попытки с проверкой доступа.
// Кандидат видит только свои результаты, рекрутер и админ - любые.
func (s *ResultService) GetResultByAttempt(attemptID string, requester *entity.User) (*entity.AssessmentResult, error) {
	result, err := s.resultRepo.GetByAttemptID(attemptID)
	if err != nil {
		return nil, err
	}

	if result.UserID != requester.ID && !requester.IsRecruiter() {
		return nil, fmt.Errorf("%w: result belongs to another user", apperrors.ErrForbidden)
	}
	return result, nil
}

// GetUserResults возвращает результаты пользователя с пагинацией
func (s *ResultService) GetUserResults(userID uint, page, pageSize int) ([]entity.AssessmentResult, error) {
	page, pageSize = normalizePagination(page, pageSize)
	return s.resultRepo.GetUserResults(userID, pageSize, (page-1)*pageSize)
}

// GetBestUserResult возвращает лучший результат пользователя
func (s *ResultService) GetBestUserResult(userID uint) (*entity.AssessmentResult, error) {
	return s.resultRepo.GetBestUserResult(userID)
}

// ListResults возвращает страницу результатов под фильтрами (для рекрутеров)
func (s *ResultService) ListResults(filters repository.ResultFilters, page, pageSize int) ([]entity.AssessmentResult, int64, error) {
	page, pageSize = normalizePagination(page, pageSize)
	return s.resultRepo.List(filters, pageSize, (page-1)*pageSize)
}

// ExportRow объединяет результат с данными кандидата для выгрузки
type ExportRow struct {
	Result entity.AssessmentResult
	User   *entity.User
}

// ListResultsForExport возвращает ВСЕ результаты под фильтрами без пагинации,
// дополненные данными кандидатов. Используется для экспорта.
func (s *ResultService) ListResultsForExport(filters repository.ResultFilters) ([]ExportRow, error) {
	results, err := s.resultRepo.ListAll(filters)
	if err != nil {
		return nil, err
	}

	// Кешируем пользователей, чтобы не ходить в БД на каждый повтор
	userCache := make(map[uint]*entity.User)
	rows := make([]ExportRow, 0, len(results))
	for _, r := range results {
		user, ok := userCache[r.UserID]
		if !ok {
			user, err = s.userRepo.GetByID(r.UserID)
			if err != nil {
				log.Printf("[ResultService] Не удалось получить пользователя ID=%d для экспорта: %v", r.UserID, err)
				user = nil
			}
			userCache[r.UserID] = user
		}
		rows = append(rows, ExportRow{Result: r, User: user})
	}
	return rows, nil
}

// AssessmentStatistics представляет агрегированную статистику по ассессменту
type AssessmentStatistics struct {
	TotalResults      int                `json:"total_results"`
	PassedCount       int                `json:"passed_count"`
	PassRate          float64            `json:"pass_rate"`
	AvgTotalScore     float64            `json:"avg_total_score"`
	AvgPart1Score     float64            `json:"avg_part1_score"`
	AvgPart2Score     float64            `json:"avg_part2_score"`
	BadgeDistribution map[string]int     `json:"badge_distribution"`
	CategoryAverages  map[string]float64 `json:"category_averages"`
}

// CalculateStatistics вычисляет агрегированную статистику по всем результатам
// под фильтрами
func (s *ResultService) CalculateStatistics(filters repository.ResultFilters) (*AssessmentStatistics, error) {
	results, err := s.resultRepo.ListAll(filters)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения результатов для статистики: %w", err)
	}

	stats := &AssessmentStatistics{
		TotalResults:      len(results),
		BadgeDistribution: make(map[string]int),
		CategoryAverages:  make(map[string]float64),
	}
	if len(results) == 0 {
		return stats, nil
	}

	var sumTotal, sumPart1, sumPart2 float64
	categorySums := make(map[string]float64)
	for _, r := range results {
		if r.Passed {
			stats.PassedCount++
		}
		sumTotal += r.TotalScore
		sumPart1 += r.Part1Score
		sumPart2 += r.Part2Score
		stats.BadgeDistribution[r.BadgeTier]++
		for category, percent := range r.CategoryScores {
			categorySums[category] += percent
		}
	}

	n := float64(len(results))
	stats.PassRate = float64(stats.PassedCount) / n * 100
	stats.AvgTotalScore = sumTotal / n
	stats.AvgPart1Score = sumPart1 / n
	stats.AvgPart2Score = sumPart2 / n
	for _, category := range entity.AllCategories() {
		stats.CategoryAverages[category] = categorySums[category] / n
	}

	return stats, nil
}

// normalizePagination приводит параметры пагинации к допустимым границам
func normalizePagination(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	} else if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}
