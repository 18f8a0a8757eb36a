package attemptmanager

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/closebase/assessment-api/internal/domain/entity"
)

// makeWords генерирует текст из n слов с включением заданных фраз
func makeWords(n int, include ...string) string {
	words := make([]string, 0, n)
	words = append(words, include...)
	for len(words) < n {
		words = append(words, "wort")
	}
	return strings.Join(words[:n], " ")
}

func testScenario() *entity.Scenario {
	return &entity.Scenario{
		ID:       1,
		Title:    "Preiseinwand",
		Prompt:   "Der Kunde sagt, das Produkt sei zu teuer.",
		Keywords: entity.StringArray{"Verständnis", "Nutzen", "Frage", "Mehrwert", "Lösung"},
		MinWords: 100,
		MaxWords: 150,
	}
}

func TestScenarioScorer_EmptyTextScoresZero(t *testing.T) {
	scorer := NewScenarioScorer(DefaultConfig())

	for _, text := range []string{"", "   ", "\n\t  "} {
		score := scorer.Score(testScenario(), text)
		assert.Equal(t, 0, score.WordCount)
		assert.Equal(t, 0.0, score.Total)
		assert.Empty(t, score.MatchedKeywords)
	}
}

func TestScenarioScorer_AllKeywordsInRangeScoresMaximum(t *testing.T) {
	// Arrange
	scorer := NewScenarioScorer(DefaultConfig())
	scenario := testScenario()
	text := makeWords(120, "Verständnis", "Nutzen", "Frage", "Mehrwert", "Lösung")

	// Act
	score := scorer.Score(scenario, text)

	// Assert
	assert.Equal(t, 120, score.WordCount)
	assert.Len(t, score.MatchedKeywords, 5)
	assert.Equal(t, 7.0, score.Total)
}

func TestScenarioScorer_KeywordMatchIsCaseInsensitive(t *testing.T) {
	scorer := NewScenarioScorer(DefaultConfig())
	scenario := testScenario()

	score := scorer.Score(scenario, makeWords(120, "VERSTÄNDNIS", "nutzen"))

	assert.Contains(t, score.MatchedKeywords, "Verständnis")
	assert.Contains(t, score.MatchedKeywords, "Nutzen")
	assert.Len(t, score.MatchedKeywords, 2)
}

func TestScenarioScorer_PartialKeywordCoverage(t *testing.T) {
	scorer := NewScenarioScorer(DefaultConfig())
	scenario := testScenario()

	// 2 из 5 ключевых слов, длина в норме
	score := scorer.Score(scenario, makeWords(110, "Verständnis", "Nutzen"))

	// keyword: 5.0 * 2/5 = 2.0, length: 2.0
	assert.Equal(t, 2.0, score.KeywordScore)
	assert.Equal(t, 2.0, score.LengthScore)
	assert.Equal(t, 4.0, score.Total)
}

func TestScenarioScorer_LengthPenaltyMonotonicity(t *testing.T) {
	// При одинаковом покрытии ключевых слов ответ в границах длины
	// не может набрать меньше, чем ответ далеко за границами
	scorer := NewScenarioScorer(DefaultConfig())
	scenario := testScenario()
	keywords := []string{"Verständnis", "Nutzen", "Frage"}

	inRange := scorer.Score(scenario, makeWords(125, keywords...))
	farUnder := scorer.Score(scenario, makeWords(15, keywords...))
	farOver := scorer.Score(scenario, makeWords(400, keywords...))

	assert.GreaterOrEqual(t, inRange.Total, farUnder.Total)
	assert.GreaterOrEqual(t, inRange.Total, farOver.Total)
}

func TestScenarioScorer_UnderLengthPenalizedHarderThanOver(t *testing.T) {
	// Недобор слов - признак недостатка содержания,
	// штрафуется сильнее перебора
	scorer := NewScenarioScorer(DefaultConfig())
	scenario := testScenario()

	under := scorer.Score(scenario, makeWords(20, "Verständnis"))
	over := scorer.Score(scenario, makeWords(300, "Verständnis"))

	assert.Less(t, under.LengthScore, over.LengthScore)
}

func TestScenarioScorer_ScoreNeverExceedsBounds(t *testing.T) {
	scorer := NewScenarioScorer(DefaultConfig())
	scenario := testScenario()

	texts := []string{
		"",
		"kurz",
		makeWords(50),
		makeWords(100, "Verständnis", "Nutzen", "Frage", "Mehrwert", "Lösung"),
		makeWords(150, "Verständnis", "Nutzen", "Frage", "Mehrwert", "Lösung"),
		makeWords(1000, "Verständnis", "Nutzen", "Frage", "Mehrwert", "Lösung"),
	}

	for _, text := range texts {
		score := scorer.Score(scenario, text)
		assert.GreaterOrEqual(t, score.Total, 0.0)
		assert.LessOrEqual(t, score.Total, 7.0)
	}
}

func TestScenarioScorer_Deterministic(t *testing.T) {
	scorer := NewScenarioScorer(DefaultConfig())
	scenario := testScenario()
	text := makeWords(110, "Verständnis", "Mehrwert")

	first := scorer.Score(scenario, text)
	second := scorer.Score(scenario, text)

	assert.Equal(t, first, second)
}
