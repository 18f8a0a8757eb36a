package attemptmanager

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/closebase/assessment-api/internal/domain/entity"
)

// makeTestQuestions генерирует n вопросов с вариантами на 0/3/5 баллов
func makeTestQuestions(n int) []entity.McQuestion {
	categories := entity.AllCategories()
	questions := make([]entity.McQuestion, n)
	for i := 0; i < n; i++ {
		questions[i] = entity.McQuestion{
			ID:       uint(i + 1),
			Text:     fmt.Sprintf("Frage %d", i+1),
			Category: categories[i%len(categories)],
			Options: entity.OptionList{
				{ID: "a", Text: "schwach", Points: 0},
				{ID: "b", Text: "okay", Points: 3},
				{ID: "c", Text: "stark", Points: 5},
			},
		}
	}
	return questions
}

// newTestState создает свежую попытку в первой фазе с дефолтными таймерами
func newTestState() *ActiveAttemptState {
	config := DefaultConfig()
	attempt := &entity.AssessmentAttempt{
		ID:               "attempt-1",
		UserID:           42,
		Status:           entity.AttemptStatusInProgress,
		Phase:            entity.PhaseMultipleChoice,
		CurrentQuestion:  0,
		PartTimeLeft:     config.Part1TimeSec,
		QuestionTimeLeft: config.QuestionTimeSec,
		ScenarioID:       1,
		CreatedAt:        time.Now(),
	}
	return NewActiveAttemptState(attempt, makeTestQuestions(config.McQuestionCount), testScenario())
}

func TestAttemptState_InitialValues(t *testing.T) {
	state := newTestState()

	assert.Equal(t, entity.PhaseMultipleChoice, state.Attempt.Phase)
	assert.Equal(t, 0, state.Attempt.CurrentQuestion)
	assert.Equal(t, 420, state.Attempt.PartTimeLeft)
	assert.Equal(t, 21, state.Attempt.QuestionTimeLeft)
	assert.Equal(t, entity.AttemptStatusInProgress, state.Attempt.Status)
	assert.Empty(t, state.Answers)
}

func TestAttemptState_SelectAnswer_CapturesPointsAtSelection(t *testing.T) {
	// Arrange
	state := newTestState()

	// Act
	answer, err := state.SelectAnswer(1, "c")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "c", answer.OptionID)
	assert.Equal(t, 5, answer.Points)

	// Последующая мутация пула не меняет зафиксированный балл
	state.Questions[0].Options[2].Points = 1
	assert.Equal(t, 5, state.Answers[1].Points)
}

func TestAttemptState_SelectAnswer_OverwritesPreviousChoice(t *testing.T) {
	state := newTestState()

	_, err := state.SelectAnswer(1, "c")
	require.NoError(t, err)
	_, err = state.SelectAnswer(1, "a")
	require.NoError(t, err)

	assert.Len(t, state.Answers, 1)
	assert.Equal(t, "a", state.Answers[1].OptionID)
	assert.Equal(t, 0, state.Answers[1].Points)
}

func TestAttemptState_SelectAnswer_DoesNotAdvanceOrResetTimers(t *testing.T) {
	state := newTestState()
	state.Attempt.QuestionTimeLeft = 7

	_, err := state.SelectAnswer(1, "b")
	require.NoError(t, err)

	assert.Equal(t, 0, state.Attempt.CurrentQuestion)
	assert.Equal(t, 7, state.Attempt.QuestionTimeLeft)
}

func TestAttemptState_SelectAnswer_RejectsUnknownQuestionAndOption(t *testing.T) {
	state := newTestState()

	_, err := state.SelectAnswer(999, "a")
	assert.Error(t, err)

	_, err = state.SelectAnswer(1, "z")
	assert.Error(t, err)
	assert.Empty(t, state.Answers)
}

func TestAttemptState_QuestionTimerAutoAdvance(t *testing.T) {
	// 21 тик таймера вопроса продвигает индекс с 0 на 1
	// и сбрасывает таймер вопроса обратно на 21
	state := newTestState()

	for i := 0; i < 21; i++ {
		state.TickQuestionTimer(21, 180)
	}

	assert.Equal(t, 1, state.Attempt.CurrentQuestion)
	assert.Equal(t, 21, state.Attempt.QuestionTimeLeft)
	assert.Equal(t, entity.PhaseMultipleChoice, state.Attempt.Phase)
}

func TestAttemptState_LastQuestionTransitionsToPhase2(t *testing.T) {
	// Arrange: попытка на последнем (20-м) вопросе
	state := newTestState()
	state.Attempt.CurrentQuestion = 19

	// Act
	var enteredPhase2 bool
	for i := 0; i < 21; i++ {
		entered, _ := state.TickQuestionTimer(21, 180)
		enteredPhase2 = enteredPhase2 || entered
	}

	// Assert
	assert.True(t, enteredPhase2)
	assert.Equal(t, entity.PhaseScenario, state.Attempt.Phase)
	assert.Equal(t, 180, state.Attempt.PartTimeLeft)
	assert.Equal(t, 0, state.Attempt.CurrentQuestion)
}

func TestAttemptState_ManualAdvanceMatchesTimerPath(t *testing.T) {
	// Ручной nextQuestion и истечение таймера вопроса идут
	// через одну и ту же логику перехода
	manual := newTestState()
	timed := newTestState()

	enteredManual, applied := manual.AdvanceQuestion(21, 180)
	require.True(t, applied)

	for i := 0; i < 21; i++ {
		timed.TickQuestionTimer(21, 180)
	}

	assert.False(t, enteredManual)
	assert.Equal(t, timed.Attempt.CurrentQuestion, manual.Attempt.CurrentQuestion)
	assert.Equal(t, timed.Attempt.QuestionTimeLeft, manual.Attempt.QuestionTimeLeft)
	assert.Equal(t, timed.Attempt.Phase, manual.Attempt.Phase)
}

func TestAttemptState_PartTimerForcesPhase2(t *testing.T) {
	// 420 тиков таймера части переводят во вторую фазу независимо
	// от того, на каком вопросе стоит попытка
	state := newTestState()
	state.Attempt.CurrentQuestion = 4

	var enteredPhase2 bool
	for i := 0; i < 420; i++ {
		entered, _ := state.TickPartTimer(180)
		enteredPhase2 = enteredPhase2 || entered
	}

	assert.True(t, enteredPhase2)
	assert.Equal(t, entity.PhaseScenario, state.Attempt.Phase)
	assert.Equal(t, 180, state.Attempt.PartTimeLeft)
	assert.Equal(t, 0, state.Attempt.CurrentQuestion)
}

func TestAttemptState_Phase2PartTimerSignalsSubmission(t *testing.T) {
	// Arrange: попытка во второй фазе
	state := newTestState()
	state.Attempt.Phase = entity.PhaseScenario
	state.Attempt.PartTimeLeft = 180

	// Act: 179 тиков - отправка еще не требуется
	for i := 0; i < 179; i++ {
		_, submitDue := state.TickPartTimer(180)
		require.False(t, submitDue, "тик %d не должен требовать отправку", i+1)
	}

	// 180-й тик исчерпывает бюджет
	_, submitDue := state.TickPartTimer(180)

	// Assert
	assert.True(t, submitDue)
}

func TestAttemptState_ScenarioResponseOnlyInPhase2(t *testing.T) {
	state := newTestState()

	err := state.SetScenarioResponse("zu früh")
	assert.Error(t, err)

	state.Attempt.Phase = entity.PhaseScenario
	err = state.SetScenarioResponse("Ich würde zuerst Verständnis zeigen.")
	require.NoError(t, err)
	assert.Equal(t, "Ich würde zuerst Verständnis zeigen.", state.Attempt.ScenarioResponse)
}

func TestAttemptState_ProctorFlagsAccumulate(t *testing.T) {
	state := newTestState()

	assert.True(t, state.MarkFocusLost())
	assert.True(t, state.MarkFocusLost())
	assert.True(t, state.MarkPasteDetected())

	assert.Equal(t, 2, state.Attempt.FocusChanges)
	assert.Equal(t, 1, state.Attempt.PasteCount)

	// Флаги работают и во второй фазе
	state.Attempt.Phase = entity.PhaseScenario
	assert.True(t, state.MarkFocusLost())
	assert.Equal(t, 3, state.Attempt.FocusChanges)
}

func TestAttemptState_SubmittedAttemptIgnoresAllEvents(t *testing.T) {
	// Arrange: отправленная попытка
	state := newTestState()
	state.Attempt.Phase = entity.PhaseScenario
	state.Attempt.Status = entity.AttemptStatusSubmitted
	before, err := json.Marshal(state.Snapshot())
	require.NoError(t, err)

	// Act: все события должны быть no-op
	_, answerErr := state.SelectAnswer(1, "c")
	_, applied := state.AdvanceQuestion(21, 180)
	state.TickQuestionTimer(21, 180)
	state.TickPartTimer(180)
	respErr := state.SetScenarioResponse("nachträglich")
	focusApplied := state.MarkFocusLost()
	pasteApplied := state.MarkPasteDetected()

	// Assert: снапшот побайтово не изменился
	after, err := json.Marshal(state.Snapshot())
	require.NoError(t, err)
	assert.Equal(t, before, after)

	assert.Error(t, answerErr)
	assert.False(t, applied)
	assert.Error(t, respErr)
	assert.False(t, focusApplied)
	assert.False(t, pasteApplied)
}

func TestAttemptState_SnapshotRoundTrip(t *testing.T) {
	state := newTestState()
	_, err := state.SelectAnswer(1, "b")
	require.NoError(t, err)
	state.MarkFocusLost()

	snapshot := state.Snapshot()

	assert.Equal(t, "attempt-1", snapshot.AttemptID)
	assert.Equal(t, uint(42), snapshot.UserID)
	assert.Len(t, snapshot.QuestionIDs, 20)
	assert.Equal(t, "b", snapshot.Answers[1])
	assert.Equal(t, 1, snapshot.FocusChanges)

	// Снапшот сериализуем в JSON без потерь ключевых полей
	data, err := json.Marshal(snapshot)
	require.NoError(t, err)
	var decoded AttemptSnapshot
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, snapshot.AttemptID, decoded.AttemptID)
	assert.Equal(t, snapshot.Answers, decoded.Answers)
}
