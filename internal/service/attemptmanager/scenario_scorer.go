package attemptmanager

import (
	"math"
	"strings"

	"github.com/closebase/assessment-api/internal/domain/entity"
)

// ScenarioScore - результат оценки ответа на сценарий
type ScenarioScore struct {
	Text            string   `json:"text"`
	WordCount       int      `json:"word_count"`
	MatchedKeywords []string `json:"matched_keywords"`
	KeywordScore    float64  `json:"keyword_score"`
	LengthScore     float64  `json:"length_score"`
	Total           float64  `json:"total"`
}

// ScenarioScorer оценивает свободный ответ по покрытию ключевых слов
// и соответствию длины. Чистая функция, без состояния и побочных эффектов.
//
// Кривая оценки (сумма ограничена [0, MaxPart2Score]):
//   - keyword_score = KeywordWeight * (совпавшие / все ключевые слова)
//   - length_score  = LengthWeight, если число слов в [minWords, maxWords];
//     LengthWeight/2 при превышении maxWords;
//     (LengthWeight/2) * words/minWords при недоборе.
//     Недобор штрафуется сильнее перебора: слишком короткий ответ -
//     признак недостатка содержания.
//   - пустой текст дает 0 в обеих составляющих.
//
// Покрытие ключевых слов весит больше длины: длина сама по себе -
// слабый сигнал качества.
type ScenarioScorer struct {
	config *Config
}

// NewScenarioScorer создает новый оценщик сценариев
func NewScenarioScorer(config *Config) *ScenarioScorer {
	return &ScenarioScorer{config: config}
}

// Score оценивает текст ответа против сценария
func (s *ScenarioScorer) Score(scenario *entity.Scenario, text string) ScenarioScore {
	score := ScenarioScore{
		Text:            text,
		MatchedKeywords: []string{},
	}

	words := strings.Fields(text)
	score.WordCount = len(words)

	if score.WordCount == 0 {
		return score
	}

	// Покрытие ключевых слов: регистронезависимое вхождение
	lowerText := strings.ToLower(text)
	for _, keyword := range scenario.Keywords {
		if keyword == "" {
			continue
		}
		if strings.Contains(lowerText, strings.ToLower(keyword)) {
			score.MatchedKeywords = append(score.MatchedKeywords, keyword)
		}
	}

	totalKeywords := 0
	for _, keyword := range scenario.Keywords {
		if keyword != "" {
			totalKeywords++
		}
	}
	if totalKeywords > 0 {
		score.KeywordScore = s.config.KeywordWeight * float64(len(score.MatchedKeywords)) / float64(totalKeywords)
	} else {
		// Сценарий без ключевых слов: оцениваем только длину
		score.KeywordScore = s.config.KeywordWeight
	}

	// Соответствие длины
	switch {
	case scenario.InWordRange(score.WordCount):
		score.LengthScore = s.config.LengthWeight
	case score.WordCount > scenario.MaxWords:
		score.LengthScore = s.config.LengthWeight / 2
	default:
		// Недобор: пропорционально приближению к нижней границе
		score.LengthScore = (s.config.LengthWeight / 2) * float64(score.WordCount) / float64(scenario.MinWords)
	}

	total := score.KeywordScore + score.LengthScore
	score.Total = round2(clamp(total, 0, s.config.MaxPart2Score))
	return score
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
