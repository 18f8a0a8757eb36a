package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/closebase/assessment-api/internal/domain/entity"
	apperrors "github.com/closebase/assessment-api/internal/pkg/errors"
)

// ============================================================================
// Моки репозиториев каталога
// ============================================================================

// MockQuestionRepo реализует repository.QuestionRepository
type MockQuestionRepo struct {
	mock.Mock
}

func (m *MockQuestionRepo) Create(question *entity.McQuestion) error {
	args := m.Called(question)
	return args.Error(0)
}

func (m *MockQuestionRepo) CreateBatch(questions []entity.McQuestion) error {
	args := m.Called(questions)
	return args.Error(0)
}

func (m *MockQuestionRepo) GetByID(id uint) (*entity.McQuestion, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.McQuestion), args.Error(1)
}

func (m *MockQuestionRepo) GetByIDs(ids []uint) ([]entity.McQuestion, error) {
	args := m.Called(ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.McQuestion), args.Error(1)
}

func (m *MockQuestionRepo) GetAll() ([]entity.McQuestion, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.McQuestion), args.Error(1)
}

func (m *MockQuestionRepo) Update(question *entity.McQuestion) error {
	args := m.Called(question)
	return args.Error(0)
}

func (m *MockQuestionRepo) Delete(id uint) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockQuestionRepo) Count() (int64, error) {
	args := m.Called()
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockQuestionRepo) CountByCategory(category string) (int64, error) {
	args := m.Called(category)
	return args.Get(0).(int64), args.Error(1)
}

// MockScenarioRepo реализует repository.ScenarioRepository
type MockScenarioRepo struct {
	mock.Mock
}

func (m *MockScenarioRepo) Create(scenario *entity.Scenario) error {
	args := m.Called(scenario)
	return args.Error(0)
}

func (m *MockScenarioRepo) CreateBatch(scenarios []entity.Scenario) error {
	args := m.Called(scenarios)
	return args.Error(0)
}

func (m *MockScenarioRepo) GetByID(id uint) (*entity.Scenario, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Scenario), args.Error(1)
}

func (m *MockScenarioRepo) GetAll() ([]entity.Scenario, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Scenario), args.Error(1)
}

func (m *MockScenarioRepo) Update(scenario *entity.Scenario) error {
	args := m.Called(scenario)
	return args.Error(0)
}

func (m *MockScenarioRepo) Delete(id uint) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockScenarioRepo) Count() (int64, error) {
	args := m.Called()
	return args.Get(0).(int64), args.Error(1)
}

// ============================================================================
// Вспомогательные функции
// ============================================================================

func newTestCatalogService(t *testing.T) (*CatalogService, *MockQuestionRepo, *MockScenarioRepo) {
	t.Helper()
	questionRepo := new(MockQuestionRepo)
	scenarioRepo := new(MockScenarioRepo)
	svc, err := NewCatalogService(questionRepo, scenarioRepo, 20)
	require.NoError(t, err)
	return svc, questionRepo, scenarioRepo
}

func validQuestion() *entity.McQuestion {
	return &entity.McQuestion{
		Text:     "Wie reagierst du auf eine emotionale Beschwerde?",
		Category: entity.CategoryEmpathie,
		Options: entity.OptionList{
			{ID: "a", Text: "Zuhören und spiegeln", Points: 3},
			{ID: "b", Text: "Sofort widersprechen", Points: 0},
			{ID: "c", Text: "Thema wechseln", Points: 0},
		},
	}
}

func validScenario() *entity.Scenario {
	return &entity.Scenario{
		Title:    "Verärgerter Kunde",
		Prompt:   "Beschreibe dein Vorgehen im Gespräch.",
		Keywords: entity.StringArray{"zuhören", "lösung"},
		MinWords: 100,
		MaxWords: 150,
	}
}

// ============================================================================
// Тесты вопросов
// ============================================================================

func TestCreateQuestion_Valid(t *testing.T) {
	svc, questionRepo, _ := newTestCatalogService(t)
	questionRepo.On("Create", mock.AnythingOfType("*entity.McQuestion")).Return(nil)

	err := svc.CreateQuestion(validQuestion())

	require.NoError(t, err)
	questionRepo.AssertExpectations(t)
}

func TestCreateQuestion_TrimsText(t *testing.T) {
	svc, questionRepo, _ := newTestCatalogService(t)
	questionRepo.On("Create", mock.AnythingOfType("*entity.McQuestion")).Return(nil)

	q := validQuestion()
	q.Text = "  Frage mit Leerzeichen  "
	err := svc.CreateQuestion(q)

	require.NoError(t, err)
	assert.Equal(t, "Frage mit Leerzeichen", q.Text)
}

func TestCreateQuestion_InvalidCategory(t *testing.T) {
	svc, questionRepo, _ := newTestCatalogService(t)

	q := validQuestion()
	q.Category = "verhandlung"
	err := svc.CreateQuestion(q)

	assert.ErrorIs(t, err, apperrors.ErrValidation)
	questionRepo.AssertNotCalled(t, "Create")
}

func TestCreateQuestion_TooFewOptions(t *testing.T) {
	svc, _, _ := newTestCatalogService(t)

	q := validQuestion()
	q.Options = q.Options[:1]
	err := svc.CreateQuestion(q)

	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestCreateQuestion_DuplicateOptionID(t *testing.T) {
	svc, _, _ := newTestCatalogService(t)

	q := validQuestion()
	q.Options = append(q.Options, entity.AnswerOption{ID: "a", Text: "Duplikat", Points: 1})
	err := svc.CreateQuestion(q)

	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.Contains(t, err.Error(), "duplicate option id")
}

func TestCreateQuestion_NoPositivePoints(t *testing.T) {
	svc, _, _ := newTestCatalogService(t)

	q := validQuestion()
	for i := range q.Options {
		q.Options[i].Points = 0
	}
	err := svc.CreateQuestion(q)

	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestCreateQuestion_NegativePoints(t *testing.T) {
	svc, _, _ := newTestCatalogService(t)

	q := validQuestion()
	q.Options[1].Points = -1
	err := svc.CreateQuestion(q)

	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestUpdateQuestion_RequiresID(t *testing.T) {
	svc, _, _ := newTestCatalogService(t)

	err := svc.UpdateQuestion(validQuestion())

	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestUpdateQuestion_NotFound(t *testing.T) {
	svc, questionRepo, _ := newTestCatalogService(t)
	questionRepo.On("GetByID", uint(42)).Return(nil, apperrors.ErrNotFound)

	q := validQuestion()
	q.ID = 42
	err := svc.UpdateQuestion(q)

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	questionRepo.AssertNotCalled(t, "Update")
}

func TestDeleteQuestion_PoolProtection(t *testing.T) {
	svc, questionRepo, _ := newTestCatalogService(t)
	// Пул ровно на минимуме - удалять нельзя
	questionRepo.On("Count").Return(int64(20), nil)

	err := svc.DeleteQuestion(1)

	assert.ErrorIs(t, err, apperrors.ErrConflict)
	questionRepo.AssertNotCalled(t, "Delete")
}

func TestDeleteQuestion_AbovePool(t *testing.T) {
	svc, questionRepo, _ := newTestCatalogService(t)
	questionRepo.On("Count").Return(int64(25), nil)
	questionRepo.On("Delete", uint(1)).Return(nil)

	err := svc.DeleteQuestion(1)

	require.NoError(t, err)
	questionRepo.AssertExpectations(t)
}

// ============================================================================
// Тесты сценариев
// ============================================================================

func TestCreateScenario_Valid(t *testing.T) {
	svc, _, scenarioRepo := newTestCatalogService(t)
	scenarioRepo.On("Create", mock.AnythingOfType("*entity.Scenario")).Return(nil)

	err := svc.CreateScenario(validScenario())

	require.NoError(t, err)
	scenarioRepo.AssertExpectations(t)
}

func TestCreateScenario_InvalidWordRange(t *testing.T) {
	svc, _, _ := newTestCatalogService(t)

	s := validScenario()
	s.MinWords = 200
	s.MaxWords = 150
	err := svc.CreateScenario(s)

	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestCreateScenario_EmptyKeyword(t *testing.T) {
	svc, _, _ := newTestCatalogService(t)

	s := validScenario()
	s.Keywords = entity.StringArray{"zuhören", "  "}
	err := svc.CreateScenario(s)

	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestDeleteScenario_LastScenario(t *testing.T) {
	svc, _, scenarioRepo := newTestCatalogService(t)
	scenarioRepo.On("Count").Return(int64(1), nil)

	err := svc.DeleteScenario(1)

	assert.ErrorIs(t, err, apperrors.ErrConflict)
	scenarioRepo.AssertNotCalled(t, "Delete")
}

// ============================================================================
// Тесты готовности каталога
// ============================================================================

func TestCheckCatalogHealth_Ready(t *testing.T) {
	svc, questionRepo, scenarioRepo := newTestCatalogService(t)
	questionRepo.On("Count").Return(int64(24), nil)
	scenarioRepo.On("Count").Return(int64(3), nil)
	for _, category := range entity.AllCategories() {
		questionRepo.On("CountByCategory", category).Return(int64(6), nil)
	}

	health, err := svc.CheckCatalogHealth()

	require.NoError(t, err)
	assert.True(t, health.Ready)
	assert.Equal(t, int64(24), health.QuestionCount)
	assert.Equal(t, int64(3), health.ScenarioCount)
	assert.Len(t, health.QuestionsByCategory, len(entity.AllCategories()))
}

func TestCheckCatalogHealth_NotEnoughQuestions(t *testing.T) {
	svc, questionRepo, scenarioRepo := newTestCatalogService(t)
	questionRepo.On("Count").Return(int64(12), nil)
	scenarioRepo.On("Count").Return(int64(3), nil)
	for _, category := range entity.AllCategories() {
		questionRepo.On("CountByCategory", category).Return(int64(3), nil)
	}

	health, err := svc.CheckCatalogHealth()

	require.NoError(t, err)
	assert.False(t, health.Ready)
}

func TestCheckCatalogHealth_NoScenarios(t *testing.T) {
	svc, questionRepo, scenarioRepo := newTestCatalogService(t)
	questionRepo.On("Count").Return(int64(24), nil)
	scenarioRepo.On("Count").Return(int64(0), nil)
	for _, category := range entity.AllCategories() {
		questionRepo.On("CountByCategory", category).Return(int64(6), nil)
	}

	health, err := svc.CheckCatalogHealth()

	require.NoError(t, err)
	assert.False(t, health.Ready)
}
