package service

import (
	"errors"
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
// Моки репозиториев результатов
// ============================================================================

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

// MockUserRepo реализует repository.UserRepository
type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) Create(user *entity.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockUserRepo) GetByID(id uint) (*entity.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepo) GetByEmail(email string) (*entity.User, error) {
	args := m.Called(email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepo) Update(user *entity.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockUserRepo) UpdateProfile(userID uint, updates map[string]interface{}) error {
	args := m.Called(userID, updates)
	return args.Error(0)
}

func (m *MockUserRepo) UpdatePassword(userID uint, newPassword string) error {
	args := m.Called(userID, newPassword)
	return args.Error(0)
}

func (m *MockUserRepo) UnlockBadge(userID uint, badgeTier string) error {
	args := m.Called(userID, badgeTier)
	return args.Error(0)
}

func (m *MockUserRepo) IncrementAttemptsCount(userID uint) error {
	args := m.Called(userID)
	return args.Error(0)
}

func (m *MockUserRepo) List(limit, offset int) ([]entity.User, error) {
	args := m.Called(limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.User), args.Error(1)
}

// ============================================================================
// Вспомогательные функции
// ============================================================================

func newTestResultService(t *testing.T) (*ResultService, *MockResultRepo, *MockUserRepo) {
	t.Helper()
	resultRepo := new(MockResultRepo)
	userRepo := new(MockUserRepo)
	svc, err := NewResultService(resultRepo, userRepo)
	require.NoError(t, err)
	return svc, resultRepo, userRepo
}

func sampleResult(userID uint, total float64, passed bool) entity.AssessmentResult {
	badge := entity.BadgeTierNone
	if passed {
		badge = entity.BadgeTierBronze
	}
	return entity.AssessmentResult{
		AttemptID:  "c0a80121-7ac0-4e1c-9f41-0000000000aa",
		UserID:     userID,
		TotalScore: total,
		Part1Score: total - 5,
		Part2Score: 5,
		CategoryScores: entity.CategoryPercentMap{
			entity.CategoryEmpathie: 80.0,
			entity.CategoryAkquise:  60.0,
		},
		Passed:      passed,
		BadgeTier:   badge,
		CompletedAt: time.Now(),
	}
}

// ============================================================================
// Тесты доступа к результатам
// ============================================================================

func TestGetResultByAttempt_Owner(t *testing.T) {
	svc, resultRepo, _ := newTestResultService(t)
	result := sampleResult(7, 22, true)
	resultRepo.On("GetByAttemptID", result.AttemptID).Return(&result, nil)

	requester := &entity.User{ID: 7, Role: entity.RoleCandidate}
	got, err := svc.GetResultByAttempt(result.AttemptID, requester)

	require.NoError(t, err)
	assert.Equal(t, result.AttemptID, got.AttemptID)
}

func TestGetResultByAttempt_ForeignCandidate(t *testing.T) {
	svc, resultRepo, _ := newTestResultService(t)
	result := sampleResult(7, 22, true)
	resultRepo.On("GetByAttemptID", result.AttemptID).Return(&result, nil)

	requester := &entity.User{ID: 8, Role: entity.RoleCandidate}
	_, err := svc.GetResultByAttempt(result.AttemptID, requester)

	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestGetResultByAttempt_Recruiter(t *testing.T) {
	svc, resultRepo, _ := newTestResultService(t)
	result := sampleResult(7, 22, true)
	resultRepo.On("GetByAttemptID", result.AttemptID).Return(&result, nil)

	requester := &entity.User{ID: 99, Role: entity.RoleRecruiter}
	got, err := svc.GetResultByAttempt(result.AttemptID, requester)

	require.NoError(t, err)
	assert.Equal(t, uint(7), got.UserID)
}

func TestGetResultByAttempt_NotFound(t *testing.T) {
	svc, resultRepo, _ := newTestResultService(t)
	resultRepo.On("GetByAttemptID", "missing").Return(nil, apperrors.ErrNotFound)

	requester := &entity.User{ID: 7, Role: entity.RoleCandidate}
	_, err := svc.GetResultByAttempt("missing", requester)

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

// ============================================================================
// Тесты пагинации
// ============================================================================

func TestGetUserResults_NormalizesPagination(t *testing.T) {
	svc, resultRepo, _ := newTestResultService(t)
	// page=0, pageSize=0 приводятся к page=1, pageSize=10
	resultRepo.On("GetUserResults", uint(7), 10, 0).Return([]entity.AssessmentResult{}, nil)

	_, err := svc.GetUserResults(7, 0, 0)

	require.NoError(t, err)
	resultRepo.AssertExpectations(t)
}

func TestGetUserResults_CapsPageSize(t *testing.T) {
	svc, resultRepo, _ := newTestResultService(t)
	resultRepo.On("GetUserResults", uint(7), 100, 100).Return([]entity.AssessmentResult{}, nil)

	_, err := svc.GetUserResults(7, 2, 500)

	require.NoError(t, err)
	resultRepo.AssertExpectations(t)
}

// ============================================================================
// Тесты экспорта
// ============================================================================

func TestListResultsForExport_JoinsUsers(t *testing.T) {
	svc, resultRepo, userRepo := newTestResultService(t)
	r1 := sampleResult(7, 22, true)
	r2 := sampleResult(7, 18, true)
	r2.AttemptID = "c0a80121-7ac0-4e1c-9f41-0000000000bb"
	resultRepo.On("ListAll", mock.Anything).Return([]entity.AssessmentResult{r1, r2}, nil)

	user := &entity.User{ID: 7, Email: "anna@example.com", FirstName: "Anna", LastName: "Schmidt"}
	// Оба результата одного пользователя - репозиторий дергается один раз
	userRepo.On("GetByID", uint(7)).Return(user, nil).Once()

	rows, err := svc.ListResultsForExport(repository.ResultFilters{})

	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Anna Schmidt", rows[0].User.FullName())
	userRepo.AssertExpectations(t)
}

func TestListResultsForExport_MissingUserTolerated(t *testing.T) {
	svc, resultRepo, userRepo := newTestResultService(t)
	r := sampleResult(7, 22, true)
	resultRepo.On("ListAll", mock.Anything).Return([]entity.AssessmentResult{r}, nil)
	userRepo.On("GetByID", uint(7)).Return(nil, apperrors.ErrNotFound)

	rows, err := svc.ListResultsForExport(repository.ResultFilters{})

	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Nil(t, rows[0].User)
}

// ============================================================================
// Тесты статистики
// ============================================================================

func TestCalculateStatistics_Empty(t *testing.T) {
	svc, resultRepo, _ := newTestResultService(t)
	resultRepo.On("ListAll", mock.Anything).Return([]entity.AssessmentResult{}, nil)

	stats, err := svc.CalculateStatistics(repository.ResultFilters{})

	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalResults)
	assert.Equal(t, 0.0, stats.PassRate)
}

func TestCalculateStatistics_Aggregates(t *testing.T) {
	svc, resultRepo, _ := newTestResultService(t)
	passed := sampleResult(7, 22, true)
	failed := sampleResult(8, 10, false)
	resultRepo.On("ListAll", mock.Anything).Return([]entity.AssessmentResult{passed, failed}, nil)

	stats, err := svc.CalculateStatistics(repository.ResultFilters{})

	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalResults)
	assert.Equal(t, 1, stats.PassedCount)
	assert.Equal(t, 50.0, stats.PassRate)
	assert.Equal(t, 16.0, stats.AvgTotalScore)
	assert.Equal(t, 1, stats.BadgeDistribution[entity.BadgeTierBronze])
	assert.Equal(t, 1, stats.BadgeDistribution[entity.BadgeTierNone])
	assert.InDelta(t, 80.0, stats.CategoryAverages[entity.CategoryEmpathie], 0.001)
}

func TestCalculateStatistics_RepoError(t *testing.T) {
	svc, resultRepo, _ := newTestResultService(t)
	resultRepo.On("ListAll", mock.Anything).Return(nil, errors.New("db down"))

	_, err := svc.CalculateStatistics(repository.ResultFilters{})

	assert.Error(t, err)
}
