package attemptmanager

import (
	"time"

	"github.com/closebase/assessment-api/internal/domain/entity"
)

// ResultAggregator собирает итоговый результат из зафиксированного
// состояния отправленной попытки. Детерминированная чистая функция:
// одинаковый вход дает побитово одинаковый результат.
type ResultAggregator struct {
	config *Config
}

// NewResultAggregator создает новый агрегатор результатов
func NewResultAggregator(config *Config) *ResultAggregator {
	return &ResultAggregator{config: config}
}

// Aggregate вычисляет итоговый результат попытки.
// Полнота попытки не валидируется: ноль ответов и пустой сценарий -
// легитимный случай (время вышло), он дает корректный минимальный
// результат, а не ошибку.
func (a *ResultAggregator) Aggregate(
	attempt *entity.AssessmentAttempt,
	questions []entity.McQuestion,
	answers map[uint]*entity.AttemptAnswer,
	scenarioScore ScenarioScore,
	completedAt time.Time,
) *entity.AssessmentResult {
	// Сырая сумма баллов первой части и максимум, достижимый
	// на именно этом наборе вопросов
	rawPoints := 0
	maxRawPoints := 0
	for i := range questions {
		maxRawPoints += questions[i].MaxPoints()
		if answer, ok := answers[questions[i].ID]; ok {
			rawPoints += answer.Points
		}
	}

	// Линейное масштабирование на шкалу 0-MaxPart1Score
	part1 := 0.0
	if maxRawPoints > 0 {
		part1 = float64(rawPoints) / float64(maxRawPoints) * a.config.MaxPart1Score
	}
	part1 = round2(clamp(part1, 0, a.config.MaxPart1Score))

	part2 := round2(clamp(scenarioScore.Total, 0, a.config.MaxPart2Score))
	total := round2(clamp(part1+part2, 0, a.config.MaxTotalScore()))

	passed := total >= a.config.PassThreshold

	matched := scenarioScore.MatchedKeywords
	if matched == nil {
		matched = []string{}
	}

	return &entity.AssessmentResult{
		AttemptID:         attempt.ID,
		UserID:            attempt.UserID,
		TotalScore:        total,
		Part1Score:        part1,
		Part2Score:        part2,
		CategoryScores:    a.categoryPercentages(questions, answers),
		Passed:            passed,
		BadgeTier:         a.badgeTier(total, passed),
		AnsweredQuestions: len(answers),
		MatchedKeywords:   matched,
		FocusChanges:      attempt.FocusChanges,
		PasteCount:        attempt.PasteCount,
		CompletedAt:       completedAt,
	}
}

// categoryPercentages считает процент набранных баллов по каждой
// из фиксированных категорий компетенций. Категория задается явным
// полем вопроса; категории без вопросов в выборке получают 0.
func (a *ResultAggregator) categoryPercentages(questions []entity.McQuestion, answers map[uint]*entity.AttemptAnswer) entity.CategoryPercentMap {
	achieved := make(map[string]int)
	possible := make(map[string]int)

	for i := range questions {
		q := &questions[i]
		possible[q.Category] += q.MaxPoints()
		if answer, ok := answers[q.ID]; ok {
			achieved[q.Category] += answer.Points
		}
	}

	percentages := make(entity.CategoryPercentMap, len(entity.AllCategories()))
	for _, category := range entity.AllCategories() {
		if possible[category] > 0 {
			percentages[category] = round2(float64(achieved[category]) / float64(possible[category]) * 100)
		} else {
			percentages[category] = 0
		}
	}
	return percentages
}

// badgeTier определяет уровень бейджа по доле от максимального балла
func (a *ResultAggregator) badgeTier(total float64, passed bool) string {
	if !passed {
		return entity.BadgeTierNone
	}
	ratio := total / a.config.MaxTotalScore()
	switch {
	case ratio >= a.config.GoldRatio:
		return entity.BadgeTierGold
	case ratio >= a.config.SilverRatio:
		return entity.BadgeTierSilver
	default:
		return entity.BadgeTierBronze
	}
}
