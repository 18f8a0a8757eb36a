package attemptmanager

import (
	"fmt"
	"sync"
	"time"

	"github.com/closebase/assessment-api/internal/domain/entity"
)

// ActiveAttemptState хранит авторитетное состояние активной попытки:
// запись попытки, выбранный контент и зафиксированные ответы.
// Все мутации проходят через методы с внутренней блокировкой, поэтому
// события одной попытки применяются строго последовательно.
type ActiveAttemptState struct {
	Attempt   *entity.AssessmentAttempt
	Questions []entity.McQuestion // Выбранные вопросы в порядке показа
	Scenario  *entity.Scenario
	Answers   map[uint]*entity.AttemptAnswer // question_id -> ответ
	Mu        sync.Mutex
}

// AttemptSnapshot - сериализуемый срез состояния попытки.
// Отдается хосту после каждой мутации и пишется в Redis как чекпоинт.
type AttemptSnapshot struct {
	AttemptID        string             `json:"attempt_id"`
	UserID           uint               `json:"user_id"`
	Status           string             `json:"status"`
	Phase            int                `json:"phase"`
	CurrentQuestion  int                `json:"current_question"`
	PartTimeLeft     int                `json:"part_time_left"`
	QuestionTimeLeft int                `json:"question_time_left"`
	QuestionIDs      []uint             `json:"question_ids"`
	ScenarioID       uint               `json:"scenario_id"`
	ScenarioResponse string             `json:"scenario_response"`
	Answers          map[uint]string    `json:"answers"` // question_id -> option_id
	FocusChanges     int                `json:"focus_changes"`
	PasteCount       int                `json:"paste_count"`
	CreatedAt        time.Time          `json:"created_at"`
}

// NewActiveAttemptState создает состояние активной попытки
func NewActiveAttemptState(attempt *entity.AssessmentAttempt, questions []entity.McQuestion, scenario *entity.Scenario) *ActiveAttemptState {
	return &ActiveAttemptState{
		Attempt:   attempt,
		Questions: questions,
		Scenario:  scenario,
		Answers:   make(map[uint]*entity.AttemptAnswer),
	}
}

// questionByID ищет вопрос в выбранном наборе попытки (без блокировки)
func (s *ActiveAttemptState) questionByID(questionID uint) (*entity.McQuestion, bool) {
	for i := range s.Questions {
		if s.Questions[i].ID == questionID {
			return &s.Questions[i], true
		}
	}
	return nil, false
}

// CurrentQuestion возвращает вопрос на текущем индексе (только фаза 1)
func (s *ActiveAttemptState) CurrentQuestion() (*entity.McQuestion, bool) {
	s.Mu.Lock()
	defer s.Mu.Unlock()

	if s.Attempt.Phase != entity.PhaseMultipleChoice {
		return nil, false
	}
	idx := s.Attempt.CurrentQuestion
	if idx < 0 || idx >= len(s.Questions) {
		return nil, false
	}
	return &s.Questions[idx], true
}

// SelectAnswer фиксирует выбор варианта ответа. Балл копируется из варианта
// в момент выбора: последующие правки пула не меняют уже записанный ответ.
// Повторный выбор по тому же вопросу перезаписывает предыдущий.
// Индекс вопроса и таймеры при этом не меняются.
func (s *ActiveAttemptState) SelectAnswer(questionID uint, optionID string) (*entity.AttemptAnswer, error) {
	s.Mu.Lock()
	defer s.Mu.Unlock()

	if s.Attempt.IsSubmitted() {
		return nil, fmt.Errorf("attempt is already submitted")
	}
	if s.Attempt.Phase != entity.PhaseMultipleChoice {
		return nil, fmt.Errorf("answer selection is only valid in phase 1")
	}

	question, ok := s.questionByID(questionID)
	if !ok {
		return nil, fmt.Errorf("question #%d is not part of this attempt", questionID)
	}

	option, ok := question.OptionByID(optionID)
	if !ok {
		return nil, fmt.Errorf("option %q does not exist for question #%d", optionID, questionID)
	}

	answer, exists := s.Answers[questionID]
	if !exists {
		answer = &entity.AttemptAnswer{
			AttemptID:  s.Attempt.ID,
			UserID:     s.Attempt.UserID,
			QuestionID: questionID,
		}
		s.Answers[questionID] = answer
	}
	answer.OptionID = option.ID
	answer.Points = option.Points

	return answer, nil
}

// advanceLocked выполняет общий шаг перехода к следующему вопросу.
// Вызывается и по ручному nextQuestion, и по истечению таймера вопроса -
// оба пути идут через одну и ту же логику.
// Возвращает true, если попытка перешла во вторую фазу.
func (s *ActiveAttemptState) advanceLocked() bool {
	if s.Attempt.CurrentQuestion < len(s.Questions)-1 {
		s.Attempt.CurrentQuestion++
		s.Attempt.QuestionTimeLeft = 0 // Сбрасывается менеджером через config
		return false
	}
	// Последний вопрос - переход во вторую фазу
	s.enterScenarioPhaseLocked()
	return true
}

// enterScenarioPhaseLocked переводит попытку во вторую фазу.
// Вход во вторую фазу всегда сбрасывает таймеры к одним и тем же значениям,
// каким бы путем он ни был вызван, поэтому гонки таймеров не создают
// неоднозначности.
func (s *ActiveAttemptState) enterScenarioPhaseLocked() {
	s.Attempt.Phase = entity.PhaseScenario
	s.Attempt.CurrentQuestion = 0
	s.Attempt.QuestionTimeLeft = 0
}

// AdvanceQuestion обрабатывает ручной переход к следующему вопросу.
// questionTime - значение, к которому сбрасывается таймер вопроса,
// part2Time - бюджет второй фазы при переходе.
// Возвращает (перешли во фазу 2, событие применено).
func (s *ActiveAttemptState) AdvanceQuestion(questionTime, part2Time int) (enteredPhase2, applied bool) {
	s.Mu.Lock()
	defer s.Mu.Unlock()

	if s.Attempt.IsSubmitted() || s.Attempt.Phase != entity.PhaseMultipleChoice {
		return false, false
	}

	enteredPhase2 = s.advanceLocked()
	if enteredPhase2 {
		s.Attempt.PartTimeLeft = part2Time
	} else {
		s.Attempt.QuestionTimeLeft = questionTime
	}
	return enteredPhase2, true
}

// TickQuestionTimer уменьшает таймер текущего вопроса на секунду.
// При достижении нуля срабатывает автопереход - та же логика, что и
// у ручного nextQuestion. Значимо только в первой фазе.
func (s *ActiveAttemptState) TickQuestionTimer(questionTime, part2Time int) (enteredPhase2, advanced bool) {
	s.Mu.Lock()
	defer s.Mu.Unlock()

	if s.Attempt.IsSubmitted() || s.Attempt.Phase != entity.PhaseMultipleChoice {
		return false, false
	}

	if s.Attempt.QuestionTimeLeft > 0 {
		s.Attempt.QuestionTimeLeft--
	}
	if s.Attempt.QuestionTimeLeft > 0 {
		return false, false
	}

	enteredPhase2 = s.advanceLocked()
	if enteredPhase2 {
		s.Attempt.PartTimeLeft = part2Time
	} else {
		s.Attempt.QuestionTimeLeft = questionTime
	}
	return enteredPhase2, true
}

// TickPartTimer уменьшает таймер текущей части на секунду.
// Работает в обеих фазах параллельно с таймером вопроса.
// При нуле в первой фазе - принудительный переход во вторую,
// сколько бы вопросов ни осталось; при нуле во второй - попытка
// должна быть принудительно отправлена (submitDue).
func (s *ActiveAttemptState) TickPartTimer(part2Time int) (enteredPhase2, submitDue bool) {
	s.Mu.Lock()
	defer s.Mu.Unlock()

	if s.Attempt.IsSubmitted() {
		return false, false
	}

	if s.Attempt.PartTimeLeft > 0 {
		s.Attempt.PartTimeLeft--
	}
	if s.Attempt.PartTimeLeft > 0 {
		return false, false
	}

	if s.Attempt.Phase == entity.PhaseMultipleChoice {
		s.enterScenarioPhaseLocked()
		s.Attempt.PartTimeLeft = part2Time
		return true, false
	}
	return false, true
}

// SetScenarioResponse обновляет черновик ответа на сценарий (только фаза 2)
func (s *ActiveAttemptState) SetScenarioResponse(text string) error {
	s.Mu.Lock()
	defer s.Mu.Unlock()

	if s.Attempt.IsSubmitted() {
		return fmt.Errorf("attempt is already submitted")
	}
	if s.Attempt.Phase != entity.PhaseScenario {
		return fmt.Errorf("scenario response is only valid in phase 2")
	}
	s.Attempt.ScenarioResponse = text
	return nil
}

// MarkFocusLost увеличивает счетчик потерь фокуса.
// Чисто наблюдательная телеметрия: не блокирует и не влияет на оценку.
func (s *ActiveAttemptState) MarkFocusLost() bool {
	s.Mu.Lock()
	defer s.Mu.Unlock()

	if s.Attempt.IsSubmitted() {
		return false
	}
	s.Attempt.FocusChanges++
	return true
}

// MarkPasteDetected увеличивает счетчик вставок из буфера
func (s *ActiveAttemptState) MarkPasteDetected() bool {
	s.Mu.Lock()
	defer s.Mu.Unlock()

	if s.Attempt.IsSubmitted() {
		return false
	}
	s.Attempt.PasteCount++
	return true
}

// Snapshot возвращает сериализуемый срез состояния попытки
func (s *ActiveAttemptState) Snapshot() AttemptSnapshot {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	return s.snapshotLocked()
}

func (s *ActiveAttemptState) snapshotLocked() AttemptSnapshot {
	questionIDs := make([]uint, len(s.Questions))
	for i := range s.Questions {
		questionIDs[i] = s.Questions[i].ID
	}
	answers := make(map[uint]string, len(s.Answers))
	for qid, a := range s.Answers {
		answers[qid] = a.OptionID
	}
	return AttemptSnapshot{
		AttemptID:        s.Attempt.ID,
		UserID:           s.Attempt.UserID,
		Status:           s.Attempt.Status,
		Phase:            s.Attempt.Phase,
		CurrentQuestion:  s.Attempt.CurrentQuestion,
		PartTimeLeft:     s.Attempt.PartTimeLeft,
		QuestionTimeLeft: s.Attempt.QuestionTimeLeft,
		QuestionIDs:      questionIDs,
		ScenarioID:       s.Attempt.ScenarioID,
		ScenarioResponse: s.Attempt.ScenarioResponse,
		Answers:          answers,
		FocusChanges:     s.Attempt.FocusChanges,
		PasteCount:       s.Attempt.PasteCount,
		CreatedAt:        s.Attempt.CreatedAt,
	}
}

// SubmittedTime возвращает момент отправки попытки, если она отправлена
func (s *ActiveAttemptState) SubmittedTime() (time.Time, bool) {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	if s.Attempt.SubmittedAt == nil {
		return time.Time{}, false
	}
	return *s.Attempt.SubmittedAt, true
}

// Deadline возвращает жесткий wall-clock дедлайн попытки:
// бюджет обеих частей от момента создания плюс запас.
// Сравнение с дедлайном идемпотентно и переживает рестарт процесса,
// в отличие от посекундного декремента.
func (s *ActiveAttemptState) Deadline(config *Config) time.Time {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	budget := time.Duration(config.Part1TimeSec+config.Part2TimeSec+config.SweepGraceSec) * time.Second
	return s.Attempt.CreatedAt.Add(budget)
}
