package attemptmanager

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/closebase/assessment-api/internal/domain/entity"
)

// ============================================================================
// Моки для ContentSelector
// ============================================================================

// MockQuestionRepoForSelector реализует repository.QuestionRepository
type MockQuestionRepoForSelector struct {
	mock.Mock
}

func (m *MockQuestionRepoForSelector) Create(question *entity.McQuestion) error {
	args := m.Called(question)
	return args.Error(0)
}

func (m *MockQuestionRepoForSelector) CreateBatch(questions []entity.McQuestion) error {
	args := m.Called(questions)
	return args.Error(0)
}

func (m *MockQuestionRepoForSelector) GetByID(id uint) (*entity.McQuestion, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.McQuestion), args.Error(1)
}

func (m *MockQuestionRepoForSelector) GetByIDs(ids []uint) ([]entity.McQuestion, error) {
	args := m.Called(ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.McQuestion), args.Error(1)
}

func (m *MockQuestionRepoForSelector) GetAll() ([]entity.McQuestion, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.McQuestion), args.Error(1)
}

func (m *MockQuestionRepoForSelector) Update(question *entity.McQuestion) error {
	args := m.Called(question)
	return args.Error(0)
}

func (m *MockQuestionRepoForSelector) Delete(id uint) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockQuestionRepoForSelector) Count() (int64, error) {
	args := m.Called()
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockQuestionRepoForSelector) CountByCategory(category string) (int64, error) {
	args := m.Called(category)
	return args.Get(0).(int64), args.Error(1)
}

// MockScenarioRepoForSelector реализует repository.ScenarioRepository
type MockScenarioRepoForSelector struct {
	mock.Mock
}

func (m *MockScenarioRepoForSelector) Create(scenario *entity.Scenario) error {
	args := m.Called(scenario)
	return args.Error(0)
}

func (m *MockScenarioRepoForSelector) CreateBatch(scenarios []entity.Scenario) error {
	args := m.Called(scenarios)
	return args.Error(0)
}

func (m *MockScenarioRepoForSelector) GetByID(id uint) (*entity.Scenario, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Scenario), args.Error(1)
}

func (m *MockScenarioRepoForSelector) GetAll() ([]entity.Scenario, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Scenario), args.Error(1)
}

func (m *MockScenarioRepoForSelector) Update(scenario *entity.Scenario) error {
	args := m.Called(scenario)
	return args.Error(0)
}

func (m *MockScenarioRepoForSelector) Delete(id uint) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockScenarioRepoForSelector) Count() (int64, error) {
	args := m.Called()
	return args.Get(0).(int64), args.Error(1)
}

// createTestSelector создает селектор с зафиксированным seed
func createTestSelector(questionRepo *MockQuestionRepoForSelector, scenarioRepo *MockScenarioRepoForSelector, seed int64) *ContentSelector {
	config := DefaultConfig()
	deps := &Dependencies{
		QuestionRepo: questionRepo,
		ScenarioRepo: scenarioRepo,
		Config:       config,
	}
	return newContentSelectorWithRand(config, deps, rand.New(rand.NewSource(seed)))
}

// ============================================================================
// Тесты для ContentSelector
// ============================================================================

func TestContentSelector_NoRepeatsAcrossTrials(t *testing.T) {
	// 1000 выборок из пула в 60 вопросов: каждая выборка содержит
	// ровно 20 попарно различных идентификаторов
	mockQuestionRepo := new(MockQuestionRepoForSelector)
	mockQuestionRepo.On("GetAll").Return(makeTestQuestions(60), nil)
	selector := createTestSelector(mockQuestionRepo, nil, 1)

	for trial := 0; trial < 1000; trial++ {
		selected, err := selector.SelectQuestions(context.Background())
		require.NoError(t, err)
		require.Len(t, selected, 20)

		seen := make(map[uint]bool, 20)
		for _, q := range selected {
			require.False(t, seen[q.ID], "повтор вопроса #%d в выборке %d", q.ID, trial)
			seen[q.ID] = true
		}
	}
}

func TestContentSelector_EveryQuestionReachable(t *testing.T) {
	// За много выборок каждый вопрос пула должен хоть раз попасть
	// в выборку (равновероятность на уровне здравого смысла)
	mockQuestionRepo := new(MockQuestionRepoForSelector)
	mockQuestionRepo.On("GetAll").Return(makeTestQuestions(60), nil)
	selector := createTestSelector(mockQuestionRepo, nil, 7)

	seen := make(map[uint]int)
	for trial := 0; trial < 500; trial++ {
		selected, err := selector.SelectQuestions(context.Background())
		require.NoError(t, err)
		for _, q := range selected {
			seen[q.ID]++
		}
	}

	for id := uint(1); id <= 60; id++ {
		assert.Greater(t, seen[id], 0, "вопрос #%d ни разу не выбран", id)
	}
}

func TestContentSelector_FailsOnSmallPool(t *testing.T) {
	// Пул меньше требуемого размера - громкая ошибка,
	// а не молчаливая выборка с недобором
	mockQuestionRepo := new(MockQuestionRepoForSelector)
	mockQuestionRepo.On("GetAll").Return(makeTestQuestions(19), nil)
	selector := createTestSelector(mockQuestionRepo, nil, 1)

	_, err := selector.SelectQuestions(context.Background())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "question pool too small")
}

func TestContentSelector_ExactPoolSizeSelectsAll(t *testing.T) {
	mockQuestionRepo := new(MockQuestionRepoForSelector)
	mockQuestionRepo.On("GetAll").Return(makeTestQuestions(20), nil)
	selector := createTestSelector(mockQuestionRepo, nil, 1)

	selected, err := selector.SelectQuestions(context.Background())

	require.NoError(t, err)
	assert.Len(t, selected, 20)
}

func TestContentSelector_SelectScenario(t *testing.T) {
	scenarios := []entity.Scenario{
		{ID: 1, Title: "Preiseinwand"},
		{ID: 2, Title: "Kaltakquise"},
		{ID: 3, Title: "Reklamation"},
	}
	mockScenarioRepo := new(MockScenarioRepoForSelector)
	mockScenarioRepo.On("GetAll").Return(scenarios, nil)
	selector := createTestSelector(nil, mockScenarioRepo, 3)

	seen := make(map[uint]int)
	for trial := 0; trial < 300; trial++ {
		scenario, err := selector.SelectScenario(context.Background())
		require.NoError(t, err)
		seen[scenario.ID]++
	}

	// Все сценарии пула достижимы
	for _, s := range scenarios {
		assert.Greater(t, seen[s.ID], 0, "сценарий #%d ни разу не выбран", s.ID)
	}
}

func TestContentSelector_FailsOnEmptyScenarioPool(t *testing.T) {
	mockScenarioRepo := new(MockScenarioRepoForSelector)
	mockScenarioRepo.On("GetAll").Return([]entity.Scenario{}, nil)
	selector := createTestSelector(nil, mockScenarioRepo, 1)

	_, err := selector.SelectScenario(context.Background())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "scenario pool is empty")
}

func TestContentSelector_SeededSelectionIsDeterministic(t *testing.T) {
	// Одинаковый seed дает одинаковую выборку - свойство,
	// на котором держится воспроизводимость тестов
	mockQuestionRepo1 := new(MockQuestionRepoForSelector)
	mockQuestionRepo1.On("GetAll").Return(makeTestQuestions(60), nil)
	mockQuestionRepo2 := new(MockQuestionRepoForSelector)
	mockQuestionRepo2.On("GetAll").Return(makeTestQuestions(60), nil)

	first, err := createTestSelector(mockQuestionRepo1, nil, 99).SelectQuestions(context.Background())
	require.NoError(t, err)
	second, err := createTestSelector(mockQuestionRepo2, nil, 99).SelectQuestions(context.Background())
	require.NoError(t, err)

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
	}
}
