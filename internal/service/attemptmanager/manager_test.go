package attemptmanager

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/closebase/assessment-api/internal/domain/entity"
	"github.com/closebase/assessment-api/internal/domain/repository"
	apperrors "github.com/closebase/assessment-api/internal/pkg/errors"
)

// ============================================================================
// Моки для Manager
// ============================================================================

// MockAttemptRepo реализует repository.AttemptRepository
type MockAttemptRepo struct {
	mock.Mock
}

func (m *MockAttemptRepo) Create(attempt *entity.AssessmentAttempt) error {
	args := m.Called(attempt)
	return args.Error(0)
}

func (m *MockAttemptRepo) GetByID(id string) (*entity.AssessmentAttempt, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.AssessmentAttempt), args.Error(1)
}

func (m *MockAttemptRepo) GetActiveByUser(userID uint) (*entity.AssessmentAttempt, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.AssessmentAttempt), args.Error(1)
}

func (m *MockAttemptRepo) GetAllInProgress() ([]entity.AssessmentAttempt, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.AssessmentAttempt), args.Error(1)
}

func (m *MockAttemptRepo) Update(attempt *entity.AssessmentAttempt) error {
	args := m.Called(attempt)
	return args.Error(0)
}

func (m *MockAttemptRepo) MarkSubmitted(attemptID string) error {
	args := m.Called(attemptID)
	return args.Error(0)
}

func (m *MockAttemptRepo) SaveSelectedQuestions(records []entity.AttemptQuestion) error {
	args := m.Called(records)
	return args.Error(0)
}

func (m *MockAttemptRepo) GetSelectedQuestions(attemptID string) ([]entity.AttemptQuestion, error) {
	args := m.Called(attemptID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.AttemptQuestion), args.Error(1)
}

func (m *MockAttemptRepo) SaveAnswer(answer *entity.AttemptAnswer) error {
	args := m.Called(answer)
	return args.Error(0)
}

func (m *MockAttemptRepo) GetAnswers(attemptID string) ([]entity.AttemptAnswer, error) {
	args := m.Called(attemptID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.AttemptAnswer), args.Error(1)
}

// MockResultRepo реализует repository.ResultRepository
type MockResultRepo struct {
	mock.Mock
}

func (m *MockResultRepo) SaveResult(result *entity.AssessmentResult) error {
	args := m.Called(result)
	return args.Error(0)
}

func (m *MockResultRepo) GetByAttemptID(attemptID string) (*entity.AssessmentResult, error) {
	args := m.Called(attemptID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.AssessmentResult), args.Error(1)
}

func (m *MockResultRepo) GetUserResults(userID uint, limit, offset int) ([]entity.AssessmentResult, error) {
	args := m.Called(userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.AssessmentResult), args.Error(1)
}

func (m *MockResultRepo) GetBestUserResult(userID uint) (*entity.AssessmentResult, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.AssessmentResult), args.Error(1)
}

func (m *MockResultRepo) List(filters repository.ResultFilters, limit, offset int) ([]entity.AssessmentResult, int64, error) {
	args := m.Called(filters, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]entity.AssessmentResult), args.Get(1).(int64), args.Error(2)
}

func (m *MockResultRepo) ListAll(filters repository.ResultFilters) ([]entity.AssessmentResult, error) {
	args := m.Called(filters)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.AssessmentResult), args.Error(1)
}

// MockCacheRepo реализует repository.CacheRepository
type MockCacheRepo struct {
	mock.Mock
}

func (m *MockCacheRepo) Set(key string, value interface{}, expiration time.Duration) error {
	args := m.Called(key, value, expiration)
	return args.Error(0)
}

func (m *MockCacheRepo) Get(key string) (string, error) {
	args := m.Called(key)
	return args.String(0), args.Error(1)
}

func (m *MockCacheRepo) Delete(key string) error {
	args := m.Called(key)
	return args.Error(0)
}

func (m *MockCacheRepo) Increment(key string) (int64, error) {
	args := m.Called(key)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCacheRepo) SetJSON(key string, value interface{}, expiration time.Duration) error {
	args := m.Called(key, value, expiration)
	return args.Error(0)
}

func (m *MockCacheRepo) GetJSON(key string, dest interface{}) error {
	args := m.Called(key, dest)
	return args.Error(0)
}

func (m *MockCacheRepo) Exists(key string) (bool, error) {
	args := m.Called(key)
	return args.Bool(0), args.Error(1)
}

func (m *MockCacheRepo) SetNX(key string, value interface{}, expiration time.Duration) (bool, error) {
	args := m.Called(key, value, expiration)
	return args.Bool(0), args.Error(1)
}

// MockUserRepoForManager реализует repository.UserRepository
type MockUserRepoForManager struct {
	mock.Mock
}

func (m *MockUserRepoForManager) Create(user *entity.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockUserRepoForManager) GetByID(id uint) (*entity.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepoForManager) GetByEmail(email string) (*entity.User, error) {
	args := m.Called(email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepoForManager) Update(user *entity.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockUserRepoForManager) UpdateProfile(userID uint, updates map[string]interface{}) error {
	args := m.Called(userID, updates)
	return args.Error(0)
}

func (m *MockUserRepoForManager) UpdatePassword(userID uint, newPassword string) error {
	args := m.Called(userID, newPassword)
	return args.Error(0)
}

func (m *MockUserRepoForManager) UnlockBadge(userID uint, badgeTier string) error {
	args := m.Called(userID, badgeTier)
	return args.Error(0)
}

func (m *MockUserRepoForManager) IncrementAttemptsCount(userID uint) error {
	args := m.Called(userID)
	return args.Error(0)
}

func (m *MockUserRepoForManager) List(limit, offset int) ([]entity.User, error) {
	args := m.Called(limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.User), args.Error(1)
}

// createTestManager собирает менеджер с моками и готовым состоянием попытки
func createTestManager(attemptRepo *MockAttemptRepo, resultRepo *MockResultRepo, cacheRepo *MockCacheRepo, userRepo *MockUserRepoForManager) *Manager {
	deps := &Dependencies{
		AttemptRepo: attemptRepo,
		ResultRepo:  resultRepo,
		CacheRepo:   cacheRepo,
		UserRepo:    userRepo,
		Config:      DefaultConfig(),
	}
	return NewManager(deps)
}

// ============================================================================
// Тесты для Manager
// ============================================================================

func TestManager_SubmitScenario_Idempotent(t *testing.T) {
	// Arrange: попытка во второй фазе с черновиком ответа
	mockAttemptRepo := new(MockAttemptRepo)
	mockResultRepo := new(MockResultRepo)
	mockCacheRepo := new(MockCacheRepo)
	mockUserRepo := new(MockUserRepoForManager)
	manager := createTestManager(mockAttemptRepo, mockResultRepo, mockCacheRepo, mockUserRepo)
	defer manager.Shutdown()

	state := newTestState()
	state.Attempt.Phase = entity.PhaseScenario
	state.Attempt.PartTimeLeft = 100
	state.Attempt.ScenarioResponse = makeWords(120, "Verständnis", "Nutzen")
	manager.attempts.Store(state.Attempt.ID, state)

	mockAttemptRepo.On("MarkSubmitted", state.Attempt.ID).Return(nil).Once()
	mockAttemptRepo.On("Update", mock.Anything).Return(nil)
	mockResultRepo.On("SaveResult", mock.Anything).Return(nil)
	mockCacheRepo.On("Delete", mock.Anything).Return(nil)
	mockCacheRepo.On("SetJSON", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()

	// Act: первая отправка
	first, err := manager.SubmitScenario(context.Background(), state.Attempt.ID, 42)
	require.NoError(t, err)
	require.NotNil(t, first)

	// Повторная отправка возвращает уже сохраненный результат
	mockResultRepo.On("GetByAttemptID", state.Attempt.ID).Return(first, nil)
	second, err := manager.SubmitScenario(context.Background(), state.Attempt.ID, 42)
	require.NoError(t, err)

	// Assert: результат агрегирован и сохранен ровно один раз
	mockResultRepo.AssertNumberOfCalls(t, "SaveResult", 1)
	assert.Equal(t, first.TotalScore, second.TotalScore)
	assert.Equal(t, entity.AttemptStatusSubmitted, state.Attempt.Status)
}

func TestManager_SubmitScenario_RejectedInPhase1(t *testing.T) {
	mockAttemptRepo := new(MockAttemptRepo)
	mockResultRepo := new(MockResultRepo)
	mockCacheRepo := new(MockCacheRepo)
	mockUserRepo := new(MockUserRepoForManager)
	manager := createTestManager(mockAttemptRepo, mockResultRepo, mockCacheRepo, mockUserRepo)
	defer manager.Shutdown()

	state := newTestState()
	manager.attempts.Store(state.Attempt.ID, state)
	mockCacheRepo.On("SetJSON", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()

	_, err := manager.SubmitScenario(context.Background(), state.Attempt.ID, 42)

	assert.ErrorIs(t, err, apperrors.ErrValidation)
	mockResultRepo.AssertNotCalled(t, "SaveResult")
}

func TestManager_PartTimerExpiryForcesSingleSubmission(t *testing.T) {
	// Arrange: вторая фаза, бюджет времени на исходе
	mockAttemptRepo := new(MockAttemptRepo)
	mockResultRepo := new(MockResultRepo)
	mockCacheRepo := new(MockCacheRepo)
	mockUserRepo := new(MockUserRepoForManager)
	manager := createTestManager(mockAttemptRepo, mockResultRepo, mockCacheRepo, mockUserRepo)
	defer manager.Shutdown()

	state := newTestState()
	state.Attempt.Phase = entity.PhaseScenario
	state.Attempt.PartTimeLeft = 180
	manager.attempts.Store(state.Attempt.ID, state)

	mockAttemptRepo.On("MarkSubmitted", state.Attempt.ID).Return(nil).Once()
	mockAttemptRepo.On("Update", mock.Anything).Return(nil)
	mockResultRepo.On("SaveResult", mock.Anything).Return(nil)
	mockCacheRepo.On("Delete", mock.Anything).Return(nil)
	mockCacheRepo.On("SetJSON", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()

	// Act: исчерпываем бюджет второй части
	var submitDue bool
	for i := 0; i < 180; i++ {
		_, submitDue = state.TickPartTimer(180)
	}
	require.True(t, submitDue)

	result, err := manager.finalize(context.Background(), state, "part_timer")
	require.NoError(t, err)
	require.NotNil(t, result)

	// Конкурирующий путь (sweeper) приходит следом
	mockResultRepo.On("GetByAttemptID", state.Attempt.ID).Return(result, nil)
	_, err = manager.finalize(context.Background(), state, "sweeper")
	require.NoError(t, err)

	// Assert: агрегация выполнена ровно один раз
	mockResultRepo.AssertNumberOfCalls(t, "SaveResult", 1)
	mockAttemptRepo.AssertNumberOfCalls(t, "MarkSubmitted", 1)
}

func TestManager_ConcurrentMarkSubmittedLosesGracefully(t *testing.T) {
	// Если БД сообщает, что попытка уже отправлена другим путем,
	// finalize возвращает существующий результат без повторной агрегации
	mockAttemptRepo := new(MockAttemptRepo)
	mockResultRepo := new(MockResultRepo)
	mockCacheRepo := new(MockCacheRepo)
	mockUserRepo := new(MockUserRepoForManager)
	manager := createTestManager(mockAttemptRepo, mockResultRepo, mockCacheRepo, mockUserRepo)
	defer manager.Shutdown()

	state := newTestState()
	state.Attempt.Phase = entity.PhaseScenario
	manager.attempts.Store(state.Attempt.ID, state)
	mockCacheRepo.On("SetJSON", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()

	existing := &entity.AssessmentResult{AttemptID: state.Attempt.ID, TotalScore: 21.5, Passed: true}
	mockAttemptRepo.On("MarkSubmitted", state.Attempt.ID).
		Return(repository.ErrAttemptNotInProgress)
	mockResultRepo.On("GetByAttemptID", state.Attempt.ID).Return(existing, nil)

	result, err := manager.finalize(context.Background(), state, "user")

	require.NoError(t, err)
	assert.Equal(t, 21.5, result.TotalScore)
	mockResultRepo.AssertNotCalled(t, "SaveResult")
	assert.Equal(t, entity.AttemptStatusSubmitted, state.Attempt.Status)
}

func TestManager_StaleAnswerAfterPhaseTransitionIgnored(t *testing.T) {
	// Событие answerSelected, пришедшее после ухода из первой фазы,
	// не применяется и не меняет состояние
	mockAttemptRepo := new(MockAttemptRepo)
	mockResultRepo := new(MockResultRepo)
	mockCacheRepo := new(MockCacheRepo)
	mockUserRepo := new(MockUserRepoForManager)
	manager := createTestManager(mockAttemptRepo, mockResultRepo, mockCacheRepo, mockUserRepo)
	defer manager.Shutdown()

	state := newTestState()
	state.Attempt.Phase = entity.PhaseScenario
	state.Attempt.PartTimeLeft = 180
	manager.attempts.Store(state.Attempt.ID, state)
	mockCacheRepo.On("SetJSON", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()

	_, err := manager.HandleAnswerSelected(context.Background(), state.Attempt.ID, 42, 1, "c")

	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.Empty(t, state.Answers)
	mockAttemptRepo.AssertNotCalled(t, "SaveAnswer")
}

func TestManager_HandleAnswerSelected_PersistsAndCheckpoints(t *testing.T) {
	mockAttemptRepo := new(MockAttemptRepo)
	mockResultRepo := new(MockResultRepo)
	mockCacheRepo := new(MockCacheRepo)
	mockUserRepo := new(MockUserRepoForManager)
	manager := createTestManager(mockAttemptRepo, mockResultRepo, mockCacheRepo, mockUserRepo)
	defer manager.Shutdown()

	state := newTestState()
	manager.attempts.Store(state.Attempt.ID, state)

	mockAttemptRepo.On("SaveAnswer", mock.MatchedBy(func(a *entity.AttemptAnswer) bool {
		return a.QuestionID == 1 && a.OptionID == "c" && a.Points == 5
	})).Return(nil)
	mockCacheRepo.On("SetJSON", checkpointKey(state.Attempt.ID), mock.Anything, mock.Anything).Return(nil)

	snapshot, err := manager.HandleAnswerSelected(context.Background(), state.Attempt.ID, 42, 1, "c")

	require.NoError(t, err)
	assert.Equal(t, "c", snapshot.Answers[1])
	mockAttemptRepo.AssertExpectations(t)
	mockCacheRepo.AssertExpectations(t)
}

func TestManager_ForeignAttemptForbidden(t *testing.T) {
	mockAttemptRepo := new(MockAttemptRepo)
	mockResultRepo := new(MockResultRepo)
	mockCacheRepo := new(MockCacheRepo)
	mockUserRepo := new(MockUserRepoForManager)
	manager := createTestManager(mockAttemptRepo, mockResultRepo, mockCacheRepo, mockUserRepo)
	defer manager.Shutdown()

	state := newTestState() // принадлежит пользователю #42
	manager.attempts.Store(state.Attempt.ID, state)
	mockCacheRepo.On("SetJSON", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()

	_, err := manager.HandleAnswerSelected(context.Background(), state.Attempt.ID, 7, 1, "c")

	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestManager_StartAttempt_ConflictWhenLockHeld(t *testing.T) {
	mockAttemptRepo := new(MockAttemptRepo)
	mockResultRepo := new(MockResultRepo)
	mockCacheRepo := new(MockCacheRepo)
	mockUserRepo := new(MockUserRepoForManager)
	manager := createTestManager(mockAttemptRepo, mockResultRepo, mockCacheRepo, mockUserRepo)
	defer manager.Shutdown()

	mockCacheRepo.On("SetNX", userLockKey(42), mock.Anything, mock.Anything).Return(false, nil)

	_, err := manager.StartAttempt(context.Background(), 42)

	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.ErrorIs(t, err, repository.ErrActiveAttemptExists)
	mockAttemptRepo.AssertNotCalled(t, "Create")
}

func TestManager_StartAttempt_ConflictOnUnfinishedAttempt(t *testing.T) {
	// Блокировка свободна, но в БД висит незавершенная попытка -
	// источник истины за БД, старт отклоняется
	mockAttemptRepo := new(MockAttemptRepo)
	mockResultRepo := new(MockResultRepo)
	mockCacheRepo := new(MockCacheRepo)
	mockUserRepo := new(MockUserRepoForManager)
	manager := createTestManager(mockAttemptRepo, mockResultRepo, mockCacheRepo, mockUserRepo)
	defer manager.Shutdown()

	existing := &entity.AssessmentAttempt{
		ID:     "attempt-open",
		UserID: 42,
		Status: entity.AttemptStatusInProgress,
	}
	mockCacheRepo.On("SetNX", userLockKey(42), mock.Anything, mock.Anything).Return(true, nil)
	mockAttemptRepo.On("GetActiveByUser", uint(42)).Return(existing, nil)

	_, err := manager.StartAttempt(context.Background(), 42)

	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.ErrorIs(t, err, repository.ErrActiveAttemptExists)
	mockAttemptRepo.AssertNotCalled(t, "Create")
}

func TestManager_SubmitScenario_AfterRestartReturnsSavedResult(t *testing.T) {
	// Повторная отправка после рестарта процесса: состояния в памяти нет,
	// попытка восстанавливается из БД уже отправленной, и кандидат получает
	// сохраненный результат без повторной агрегации
	mockAttemptRepo := new(MockAttemptRepo)
	mockResultRepo := new(MockResultRepo)
	mockCacheRepo := new(MockCacheRepo)
	mockUserRepo := new(MockUserRepoForManager)
	mockQuestionRepo := new(MockQuestionRepoForSelector)
	mockScenarioRepo := new(MockScenarioRepoForSelector)
	manager := NewManager(&Dependencies{
		AttemptRepo:  mockAttemptRepo,
		QuestionRepo: mockQuestionRepo,
		ScenarioRepo: mockScenarioRepo,
		ResultRepo:   mockResultRepo,
		CacheRepo:    mockCacheRepo,
		UserRepo:     mockUserRepo,
		Config:       DefaultConfig(),
	})
	defer manager.Shutdown()

	submittedAt := time.Now().Add(-time.Minute)
	attempt := &entity.AssessmentAttempt{
		ID:          "attempt-1",
		UserID:      42,
		Status:      entity.AttemptStatusSubmitted,
		Phase:       entity.PhaseScenario,
		ScenarioID:  1,
		SubmittedAt: &submittedAt,
		CreatedAt:   time.Now().Add(-15 * time.Minute),
	}
	questions := makeTestQuestions(20)
	records := make([]entity.AttemptQuestion, len(questions))
	for i := range questions {
		records[i] = entity.AttemptQuestion{AttemptID: attempt.ID, QuestionID: questions[i].ID, QuestionOrder: i}
	}
	saved := &entity.AssessmentResult{AttemptID: attempt.ID, TotalScore: 22.0, Passed: true}

	mockAttemptRepo.On("GetByID", attempt.ID).Return(attempt, nil)
	mockCacheRepo.On("GetJSON", checkpointKey(attempt.ID), mock.Anything).Return(assert.AnError)
	mockAttemptRepo.On("GetSelectedQuestions", attempt.ID).Return(records, nil)
	mockQuestionRepo.On("GetByIDs", mock.Anything).Return(questions, nil)
	mockScenarioRepo.On("GetByID", uint(1)).Return(testScenario(), nil)
	mockAttemptRepo.On("GetAnswers", attempt.ID).Return([]entity.AttemptAnswer{}, nil)
	mockResultRepo.On("GetByAttemptID", attempt.ID).Return(saved, nil)

	result, err := manager.SubmitScenario(context.Background(), attempt.ID, 42)

	require.NoError(t, err)
	assert.Equal(t, 22.0, result.TotalScore)
	mockAttemptRepo.AssertNotCalled(t, "MarkSubmitted")
	mockResultRepo.AssertNotCalled(t, "SaveResult")
}

func TestManager_QuestionTimerEntersPhase2KeepsFullBudget(t *testing.T) {
	// Тик, который переводит попытку во вторую фазу, не трогает таймер
	// части: кандидат видит ровно полный бюджет сценария, убывание
	// начинается со следующей секунды
	mockAttemptRepo := new(MockAttemptRepo)
	mockResultRepo := new(MockResultRepo)
	mockCacheRepo := new(MockCacheRepo)
	mockUserRepo := new(MockUserRepoForManager)
	manager := createTestManager(mockAttemptRepo, mockResultRepo, mockCacheRepo, mockUserRepo)
	defer manager.Shutdown()

	state := newTestState()
	state.Attempt.CurrentQuestion = len(state.Questions) - 1
	state.Attempt.QuestionTimeLeft = 1

	phaseChanged, submitDue := manager.tickOnce(state)

	require.True(t, phaseChanged)
	require.False(t, submitDue)
	assert.Equal(t, entity.PhaseScenario, state.Attempt.Phase)
	assert.Equal(t, manager.config.Part2TimeSec, state.Attempt.PartTimeLeft)

	phaseChanged, submitDue = manager.tickOnce(state)

	assert.False(t, phaseChanged)
	assert.False(t, submitDue)
	assert.Equal(t, manager.config.Part2TimeSec-1, state.Attempt.PartTimeLeft)
}
