package attemptmanager

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/closebase/assessment-api/internal/domain/entity"
)

// ContentSelector отвечает за случайную выборку контента попытки:
// подмножество MC-вопросов без повторов и один сценарий.
type ContentSelector struct {
	// Настройки
	config *Config

	// Зависимости
	deps *Dependencies

	// Источник случайности. Инжектируется, чтобы тесты могли
	// зафиксировать seed; равномерность выборки важна, криптостойкость - нет.
	rng *rand.Rand
	mu  sync.Mutex // rand.Rand не потокобезопасен
}

// NewContentSelector создает новый селектор контента
func NewContentSelector(config *Config, deps *Dependencies) *ContentSelector {
	return newContentSelectorWithRand(config, deps, rand.New(rand.NewSource(time.Now().UnixNano())))
}

func newContentSelectorWithRand(config *Config, deps *Dependencies, rng *rand.Rand) *ContentSelector {
	return &ContentSelector{
		config: config,
		deps:   deps,
		rng:    rng,
	}
}

// SelectQuestions выбирает McQuestionCount различных вопросов равновероятно
// и без повторов. Возвращает ошибку, если пул меньше требуемого размера:
// молча выбрать меньше или с дублями нельзя.
func (s *ContentSelector) SelectQuestions(ctx context.Context) ([]entity.McQuestion, error) {
	pool, err := s.deps.QuestionRepo.GetAll()
	if err != nil {
		return nil, fmt.Errorf("ошибка при загрузке пула вопросов: %w", err)
	}

	n := s.config.McQuestionCount
	if len(pool) < n {
		return nil, fmt.Errorf("question pool too small: have %d, need %d", len(pool), n)
	}

	// Частичный Fisher-Yates: перемешиваем только первые n позиций.
	// Каждый вопрос попадает в выборку с одинаковой вероятностью.
	s.mu.Lock()
	for i := 0; i < n; i++ {
		j := i + s.rng.Intn(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	s.mu.Unlock()

	selected := make([]entity.McQuestion, n)
	copy(selected, pool[:n])

	log.Printf("[ContentSelector] Выбрано %d вопросов из пула размером %d", n, len(pool))
	return selected, nil
}

// SelectScenario выбирает один случайный сценарий из пула.
// Возвращает ошибку при пустом пуле.
func (s *ContentSelector) SelectScenario(ctx context.Context) (*entity.Scenario, error) {
	pool, err := s.deps.ScenarioRepo.GetAll()
	if err != nil {
		return nil, fmt.Errorf("ошибка при загрузке пула сценариев: %w", err)
	}

	if len(pool) == 0 {
		return nil, fmt.Errorf("scenario pool is empty")
	}

	s.mu.Lock()
	idx := s.rng.Intn(len(pool))
	s.mu.Unlock()

	scenario := pool[idx]
	log.Printf("[ContentSelector] Выбран сценарий #%d (%s) из пула размером %d", scenario.ID, scenario.Title, len(pool))
	return &scenario, nil
}
