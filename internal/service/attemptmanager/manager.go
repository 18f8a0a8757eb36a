package attemptmanager

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/closebase/assessment-api/internal/domain/entity"
	"github.com/closebase/assessment-api/internal/domain/repository"
	apperrors "github.com/closebase/assessment-api/internal/pkg/errors"
)

// Manager координирует жизненный цикл попыток ассессмента:
// выборку контента, таймеры, прием событий и финальную агрегацию.
// Попытки независимы друг от друга и обрабатываются параллельно,
// события одной попытки - строго последовательно (мьютекс состояния).
type Manager struct {
	// Настройки
	config *Config

	// Зависимости
	deps *Dependencies

	// Компоненты
	selector   *ContentSelector
	scorer     *ScenarioScorer
	aggregator *ResultAggregator

	// Активные попытки: attempt_id -> *ActiveAttemptState
	attempts sync.Map

	// Функции отмены тикеров: attempt_id -> context.CancelFunc
	tickerCancels sync.Map

	// Контекст для управления жизненным циклом
	ctx    context.Context
	cancel context.CancelFunc
}

// NewManager создает новый менеджер попыток
func NewManager(deps *Dependencies) *Manager {
	config := deps.Config
	if config == nil {
		config = DefaultConfig()
		deps.Config = config
	}

	ctx, cancel := context.WithCancel(context.Background())

	m := &Manager{
		config:     config,
		deps:       deps,
		selector:   NewContentSelector(config, deps),
		scorer:     NewScenarioScorer(config),
		aggregator: NewResultAggregator(config),
		ctx:        ctx,
		cancel:     cancel,
	}

	log.Println("[AttemptManager] Менеджер попыток успешно инициализирован")
	return m
}

// userLockKey - ключ Redis-блокировки "одна активная попытка на пользователя"
func userLockKey(userID uint) string {
	return fmt.Sprintf("assessment:active:user:%d", userID)
}

// checkpointKey - ключ чекпоинта попытки в Redis
func checkpointKey(attemptID string) string {
	return fmt.Sprintf("assessment:attempt:%s", attemptID)
}

// StartAttempt создает новую попытку для кандидата: выбирает контент,
// фиксирует его в БД и запускает серверный тикер.
func (m *Manager) StartAttempt(ctx context.Context, userID uint) (*ActiveAttemptState, error) {
	lockTTL := time.Duration(m.config.Part1TimeSec+m.config.Part2TimeSec+m.config.SweepGraceSec) * time.Second

	// Redis-блокировка против параллельного старта второй попытки
	acquired, err := m.deps.CacheRepo.SetNX(userLockKey(userID), "1", lockTTL)
	if err != nil {
		// Redis недоступен - полагаемся на проверку по БД ниже
		log.Printf("[AttemptManager] Ошибка Redis при захвате блокировки для пользователя #%d: %v", userID, err)
	} else if !acquired {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrConflict, repository.ErrActiveAttemptExists)
	}

	// Проверка по БД (источник истины)
	if existing, err := m.deps.AttemptRepo.GetActiveByUser(userID); err == nil && existing != nil {
		return nil, fmt.Errorf("%w: %w (попытка %s)", apperrors.ErrConflict, repository.ErrActiveAttemptExists, existing.ID)
	} else if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		m.releaseUserLock(userID)
		return nil, fmt.Errorf("ошибка при проверке активной попытки: %w", err)
	}

	questions, err := m.selector.SelectQuestions(ctx)
	if err != nil {
		m.releaseUserLock(userID)
		return nil, fmt.Errorf("assessment unavailable: %w", err)
	}
	scenario, err := m.selector.SelectScenario(ctx)
	if err != nil {
		m.releaseUserLock(userID)
		return nil, fmt.Errorf("assessment unavailable: %w", err)
	}

	attempt := &entity.AssessmentAttempt{
		ID:               uuid.NewString(),
		UserID:           userID,
		Status:           entity.AttemptStatusInProgress,
		Phase:            entity.PhaseMultipleChoice,
		CurrentQuestion:  0,
		PartTimeLeft:     m.config.Part1TimeSec,
		QuestionTimeLeft: m.config.QuestionTimeSec,
		ScenarioID:       scenario.ID,
		CreatedAt:        time.Now(),
	}

	if err := m.deps.AttemptRepo.Create(attempt); err != nil {
		m.releaseUserLock(userID)
		return nil, fmt.Errorf("ошибка при создании попытки: %w", err)
	}

	// Фиксируем выборку вопросов с порядком показа
	records := make([]entity.AttemptQuestion, len(questions))
	now := time.Now()
	for i := range questions {
		records[i] = entity.AttemptQuestion{
			AttemptID:     attempt.ID,
			QuestionID:    questions[i].ID,
			QuestionOrder: i,
			SelectedAt:    now,
		}
	}
	if err := m.deps.AttemptRepo.SaveSelectedQuestions(records); err != nil {
		m.releaseUserLock(userID)
		return nil, fmt.Errorf("ошибка при сохранении выборки вопросов: %w", err)
	}

	if err := m.deps.UserRepo.IncrementAttemptsCount(userID); err != nil {
		log.Printf("[AttemptManager] Ошибка при инкременте счетчика попыток пользователя #%d: %v", userID, err)
	}

	state := NewActiveAttemptState(attempt, questions, scenario)
	m.attempts.Store(attempt.ID, state)
	m.checkpoint(state)
	m.startTicker(state)

	log.Printf("[AttemptManager] Попытка %s создана для пользователя #%d (%d вопросов, сценарий #%d)",
		attempt.ID, userID, len(questions), scenario.ID)
	return state, nil
}

// GetState возвращает состояние попытки, при необходимости восстанавливая
// его из чекпоинта Redis или из БД (после рестарта процесса).
func (m *Manager) GetState(attemptID string) (*ActiveAttemptState, error) {
	if v, ok := m.attempts.Load(attemptID); ok {
		return v.(*ActiveAttemptState), nil
	}
	return m.rehydrate(attemptID)
}

// HandleAnswerSelected обрабатывает выбор варианта ответа.
// Ответ пишется в БД сразу (запись - первична), чекпоинт - асинхронно.
func (m *Manager) HandleAnswerSelected(ctx context.Context, attemptID string, userID, questionID uint, optionID string) (*AttemptSnapshot, error) {
	state, err := m.authorizedState(attemptID, userID)
	if err != nil {
		return nil, err
	}

	answer, err := state.SelectAnswer(questionID, optionID)
	if err != nil {
		// Невалидное событие: логируем и не роняем обработку экзамена
		log.Printf("[AttemptManager] Попытка %s: выбор ответа отклонен: %v", attemptID, err)
		return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}

	if err := m.deps.AttemptRepo.SaveAnswer(answer); err != nil {
		// Ответ остается в памяти; финальная отправка запишет его повторно
		log.Printf("[AttemptManager] Попытка %s: ошибка сохранения ответа на вопрос #%d: %v", attemptID, questionID, err)
	}
	m.checkpoint(state)

	snapshot := state.Snapshot()
	return &snapshot, nil
}

// HandleNextQuestion обрабатывает ручной переход к следующему вопросу
func (m *Manager) HandleNextQuestion(ctx context.Context, attemptID string, userID uint) (*AttemptSnapshot, error) {
	state, err := m.authorizedState(attemptID, userID)
	if err != nil {
		return nil, err
	}

	enteredPhase2, applied := state.AdvanceQuestion(m.config.QuestionTimeSec, m.config.Part2TimeSec)
	if !applied {
		log.Printf("[AttemptManager] Попытка %s: nextQuestion вне первой фазы проигнорирован", attemptID)
	}
	if enteredPhase2 {
		m.notifyPhaseChange(state)
	}
	m.checkpoint(state)

	snapshot := state.Snapshot()
	return &snapshot, nil
}

// HandleScenarioChanged обновляет черновик ответа на сценарий
func (m *Manager) HandleScenarioChanged(ctx context.Context, attemptID string, userID uint, text string) (*AttemptSnapshot, error) {
	state, err := m.authorizedState(attemptID, userID)
	if err != nil {
		return nil, err
	}

	if err := state.SetScenarioResponse(text); err != nil {
		log.Printf("[AttemptManager] Попытка %s: правка сценария отклонена: %v", attemptID, err)
		return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	m.checkpoint(state)

	snapshot := state.Snapshot()
	return &snapshot, nil
}

// HandleFocusLost фиксирует потерю фокуса страницы
func (m *Manager) HandleFocusLost(ctx context.Context, attemptID string, userID uint) (*AttemptSnapshot, error) {
	state, err := m.authorizedState(attemptID, userID)
	if err != nil {
		return nil, err
	}
	state.MarkFocusLost()
	m.checkpoint(state)

	snapshot := state.Snapshot()
	return &snapshot, nil
}

// HandlePasteDetected фиксирует вставку из буфера обмена
func (m *Manager) HandlePasteDetected(ctx context.Context, attemptID string, userID uint) (*AttemptSnapshot, error) {
	state, err := m.authorizedState(attemptID, userID)
	if err != nil {
		return nil, err
	}
	state.MarkPasteDetected()
	m.checkpoint(state)

	snapshot := state.Snapshot()
	return &snapshot, nil
}

// SubmitScenario обрабатывает явную отправку кандидатом.
// Идемпотентна: повторный вызов возвращает уже сохраненный результат.
func (m *Manager) SubmitScenario(ctx context.Context, attemptID string, userID uint) (*entity.AssessmentResult, error) {
	state, err := m.authorizedState(attemptID, userID)
	if err != nil {
		return nil, err
	}

	state.Mu.Lock()
	phase := state.Attempt.Phase
	submitted := state.Attempt.IsSubmitted()
	state.Mu.Unlock()

	if !submitted && phase != entity.PhaseScenario {
		return nil, fmt.Errorf("%w: отправка доступна только во второй фазе", apperrors.ErrValidation)
	}
	return m.finalize(ctx, state, "user")
}

// GetResult возвращает сохраненный результат попытки
func (m *Manager) GetResult(attemptID string) (*entity.AssessmentResult, error) {
	return m.deps.ResultRepo.GetByAttemptID(attemptID)
}

// authorizedState возвращает состояние попытки с проверкой владельца
func (m *Manager) authorizedState(attemptID string, userID uint) (*ActiveAttemptState, error) {
	state, err := m.GetState(attemptID)
	if err != nil {
		return nil, err
	}
	if state.Attempt.UserID != userID {
		return nil, fmt.Errorf("%w: попытка принадлежит другому пользователю", apperrors.ErrForbidden)
	}
	return state, nil
}

// startTicker запускает серверный посекундный тикер попытки
func (m *Manager) startTicker(state *ActiveAttemptState) {
	tickerCtx, tickerCancel := context.WithCancel(m.ctx)
	m.tickerCancels.Store(state.Attempt.ID, tickerCancel)
	go m.runTicker(tickerCtx, state)
}

// stopTicker останавливает тикер попытки
func (m *Manager) stopTicker(attemptID string) {
	if cancel, ok := m.tickerCancels.Load(attemptID); ok {
		cancel.(context.CancelFunc)()
		m.tickerCancels.Delete(attemptID)
	}
}

// tickOnce продвигает оба таймера попытки на одну секунду.
// Сначала тикает таймер вопроса; если этот тик перевел попытку во
// вторую фазу, таймер части в том же тике не трогаем - свежий бюджет
// второй части начинает убывать только со следующей секунды.
func (m *Manager) tickOnce(state *ActiveAttemptState) (phaseChanged, submitDue bool) {
	if entered, _ := state.TickQuestionTimer(m.config.QuestionTimeSec, m.config.Part2TimeSec); entered {
		return true, false
	}
	return state.TickPartTimer(m.config.Part2TimeSec)
}

// runTicker ведет оба таймера попытки с шагом в одну секунду
func (m *Manager) runTicker(ctx context.Context, state *ActiveAttemptState) {
	attemptID := state.Attempt.ID
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			phaseChanged, submitDue := m.tickOnce(state)

			if submitDue {
				log.Printf("[AttemptManager] Попытка %s: время второй части истекло, принудительная отправка", attemptID)
				if _, err := m.finalize(context.Background(), state, "part_timer"); err != nil {
					log.Printf("[AttemptManager] Попытка %s: ошибка принудительной отправки: %v", attemptID, err)
				}
				return
			}

			if phaseChanged {
				m.notifyPhaseChange(state)
			} else {
				m.notifyTimer(state)
			}
			m.checkpoint(state)

		case <-ctx.Done():
			log.Printf("[AttemptManager] Попытка %s: тикер остановлен", attemptID)
			return
		}
	}
}

// finalize переводит попытку в терминальный статус и агрегирует результат.
// Выполняется ровно один раз на попытку: статусный переход в БД атомарный,
// конкурирующие пути (явная отправка, таймер, фоновый обход) сходятся
// к уже сохраненному результату.
func (m *Manager) finalize(ctx context.Context, state *ActiveAttemptState, trigger string) (*entity.AssessmentResult, error) {
	attemptID := state.Attempt.ID

	state.Mu.Lock()
	if state.Attempt.IsSubmitted() {
		state.Mu.Unlock()
		return m.deps.ResultRepo.GetByAttemptID(attemptID)
	}

	if err := m.deps.AttemptRepo.MarkSubmitted(attemptID); err != nil {
		if errors.Is(err, repository.ErrAttemptNotInProgress) {
			// Другой путь уже отправил попытку
			state.Attempt.Status = entity.AttemptStatusSubmitted
			if state.Attempt.SubmittedAt == nil {
				now := time.Now()
				state.Attempt.SubmittedAt = &now
			}
			state.Mu.Unlock()
			return m.deps.ResultRepo.GetByAttemptID(attemptID)
		}
		state.Mu.Unlock()
		return nil, fmt.Errorf("ошибка при отправке попытки: %w", err)
	}

	completedAt := time.Now()
	state.Attempt.Status = entity.AttemptStatusSubmitted
	state.Attempt.SubmittedAt = &completedAt

	// Копируем все, что нужно для агрегации, и отпускаем мьютекс
	attemptCopy := *state.Attempt
	questions := state.Questions
	answers := make(map[uint]*entity.AttemptAnswer, len(state.Answers))
	for qid, a := range state.Answers {
		answerCopy := *a
		answers[qid] = &answerCopy
	}
	scenario := state.Scenario
	response := state.Attempt.ScenarioResponse
	userID := state.Attempt.UserID
	state.Mu.Unlock()

	m.stopTicker(attemptID)

	// Финальная фиксация попытки в БД обязательна и блокирующая
	if err := m.deps.AttemptRepo.Update(&attemptCopy); err != nil {
		log.Printf("[AttemptManager] Попытка %s: ошибка финальной записи попытки: %v", attemptID, err)
	}
	for _, answer := range answers {
		if err := m.deps.AttemptRepo.SaveAnswer(answer); err != nil {
			log.Printf("[AttemptManager] Попытка %s: ошибка дозаписи ответа на вопрос #%d: %v", attemptID, answer.QuestionID, err)
		}
	}

	scenarioScore := m.scorer.Score(scenario, response)
	result := m.aggregator.Aggregate(&attemptCopy, questions, answers, scenarioScore, completedAt)

	if err := m.deps.ResultRepo.SaveResult(result); err != nil {
		return nil, fmt.Errorf("ошибка при сохранении результата попытки %s: %w", attemptID, err)
	}

	log.Printf("[AttemptManager] Попытка %s отправлена (%s): total=%.2f, passed=%v, badge=%s",
		attemptID, trigger, result.TotalScore, result.Passed, result.BadgeTier)

	// Терминальное состояние остается в памяти: повторные отправки
	// обслуживаются без похода в БД за восстановлением. Вычищает его
	// фоновый обход по истечении срока удержания.
	m.releaseUserLock(userID)
	if err := m.deps.CacheRepo.Delete(checkpointKey(attemptID)); err != nil {
		log.Printf("[AttemptManager] Попытка %s: ошибка удаления чекпоинта: %v", attemptID, err)
	}

	m.emitResult(userID, result)
	return result, nil
}

// emitResult выполняет побочные эффекты успешной отправки:
// событие кандидату, бейдж профиля и письмо о прохождении.
func (m *Manager) emitResult(userID uint, result *entity.AssessmentResult) {
	if m.deps.WSManager != nil {
		if err := m.deps.WSManager.SendEventToUser(userID, "assessment:result", result); err != nil {
			log.Printf("[AttemptManager] Ошибка отправки результата пользователю #%d: %v", userID, err)
		}
	}

	if !result.Passed {
		return
	}

	if err := m.deps.UserRepo.UnlockBadge(userID, result.BadgeTier); err != nil {
		log.Printf("[AttemptManager] Ошибка обновления бейджа пользователя #%d: %v", userID, err)
	}

	if m.deps.EmailService != nil {
		// Письмо не должно задерживать ответ кандидату
		go func() {
			user, err := m.deps.UserRepo.GetByID(userID)
			if err != nil {
				log.Printf("[AttemptManager] Ошибка загрузки пользователя #%d для письма: %v", userID, err)
				return
			}
			if err := m.deps.EmailService.SendPassNotification(context.Background(), user.Email, user.FirstName, result); err != nil {
				log.Printf("[AttemptManager] Ошибка отправки письма пользователю #%d: %v", userID, err)
			}
		}()
	}
}

// notifyPhaseChange отправляет кандидату событие смены фазы
func (m *Manager) notifyPhaseChange(state *ActiveAttemptState) {
	if m.deps.WSManager == nil {
		return
	}
	snapshot := state.Snapshot()
	if err := m.deps.WSManager.SendEventToUser(snapshot.UserID, "assessment:phase", snapshot); err != nil {
		log.Printf("[AttemptManager] Попытка %s: ошибка отправки события смены фазы: %v", snapshot.AttemptID, err)
	}
}

// notifyTimer отправляет кандидату текущее состояние таймеров
func (m *Manager) notifyTimer(state *ActiveAttemptState) {
	if m.deps.WSManager == nil {
		return
	}
	snapshot := state.Snapshot()
	event := map[string]interface{}{
		"attempt_id":         snapshot.AttemptID,
		"phase":              snapshot.Phase,
		"current_question":   snapshot.CurrentQuestion,
		"part_time_left":     snapshot.PartTimeLeft,
		"question_time_left": snapshot.QuestionTimeLeft,
	}
	if err := m.deps.WSManager.SendEventToUser(snapshot.UserID, "assessment:timer", event); err != nil {
		log.Printf("[AttemptManager] Попытка %s: ошибка отправки таймера: %v", snapshot.AttemptID, err)
	}
}

// checkpoint пишет снапшот попытки в Redis.
// Fire-and-forget: ошибка записи логируется и не трогает состояние в памяти.
func (m *Manager) checkpoint(state *ActiveAttemptState) {
	snapshot := state.Snapshot()
	if err := m.deps.CacheRepo.SetJSON(checkpointKey(snapshot.AttemptID), snapshot, m.config.CheckpointTTL); err != nil {
		log.Printf("[AttemptManager] Попытка %s: ошибка записи чекпоинта: %v", snapshot.AttemptID, err)
	}
}

// releaseUserLock снимает Redis-блокировку активной попытки пользователя
func (m *Manager) releaseUserLock(userID uint) {
	if err := m.deps.CacheRepo.Delete(userLockKey(userID)); err != nil {
		log.Printf("[AttemptManager] Ошибка снятия блокировки пользователя #%d: %v", userID, err)
	}
}

// rehydrate восстанавливает состояние попытки после рестарта процесса:
// сначала из чекпоинта Redis, при его отсутствии - из записей БД.
func (m *Manager) rehydrate(attemptID string) (*ActiveAttemptState, error) {
	attempt, err := m.deps.AttemptRepo.GetByID(attemptID)
	if err != nil {
		return nil, err
	}

	var snapshot AttemptSnapshot
	haveCheckpoint := false
	if err := m.deps.CacheRepo.GetJSON(checkpointKey(attemptID), &snapshot); err == nil && snapshot.AttemptID == attemptID {
		haveCheckpoint = true
	}

	// Порядок показа вопросов фиксирован в attempt_questions
	questionRecords, err := m.deps.AttemptRepo.GetSelectedQuestions(attemptID)
	if err != nil {
		return nil, fmt.Errorf("ошибка при загрузке выборки вопросов попытки %s: %w", attemptID, err)
	}
	questionIDs := make([]uint, len(questionRecords))
	for i, record := range questionRecords {
		questionIDs[i] = record.QuestionID
	}
	loaded, err := m.deps.QuestionRepo.GetByIDs(questionIDs)
	if err != nil {
		return nil, fmt.Errorf("ошибка при загрузке вопросов попытки %s: %w", attemptID, err)
	}
	byID := make(map[uint]entity.McQuestion, len(loaded))
	for _, q := range loaded {
		byID[q.ID] = q
	}
	questions := make([]entity.McQuestion, 0, len(questionIDs))
	for _, id := range questionIDs {
		if q, ok := byID[id]; ok {
			questions = append(questions, q)
		}
	}

	scenario, err := m.deps.ScenarioRepo.GetByID(attempt.ScenarioID)
	if err != nil {
		return nil, fmt.Errorf("ошибка при загрузке сценария #%d: %w", attempt.ScenarioID, err)
	}

	state := NewActiveAttemptState(attempt, questions, scenario)

	// Таймеры и черновик берем из чекпоинта, он свежее записи в БД
	if haveCheckpoint && attempt.IsInProgress() {
		attempt.Phase = snapshot.Phase
		attempt.CurrentQuestion = snapshot.CurrentQuestion
		attempt.PartTimeLeft = snapshot.PartTimeLeft
		attempt.QuestionTimeLeft = snapshot.QuestionTimeLeft
		attempt.ScenarioResponse = snapshot.ScenarioResponse
		attempt.FocusChanges = snapshot.FocusChanges
		attempt.PasteCount = snapshot.PasteCount
	}

	// Сохраненные ответы
	savedAnswers, err := m.deps.AttemptRepo.GetAnswers(attemptID)
	if err != nil {
		log.Printf("[AttemptManager] Попытка %s: ошибка загрузки ответов: %v", attemptID, err)
	}
	for i := range savedAnswers {
		answer := savedAnswers[i]
		state.Answers[answer.QuestionID] = &answer
	}

	if attempt.IsInProgress() {
		existing, loaded := m.attempts.LoadOrStore(attemptID, state)
		if loaded {
			return existing.(*ActiveAttemptState), nil
		}
		m.startTicker(state)
		log.Printf("[AttemptManager] Попытка %s восстановлена (checkpoint=%v, фаза %d)", attemptID, haveCheckpoint, attempt.Phase)
	}
	return state, nil
}

// RecoverInProgress восстанавливает незавершенные попытки при старте сервиса.
// Просроченные по wall-clock дедлайну попытки принудительно отправляются.
func (m *Manager) RecoverInProgress(ctx context.Context) error {
	attempts, err := m.deps.AttemptRepo.GetAllInProgress()
	if err != nil {
		return fmt.Errorf("ошибка при загрузке незавершенных попыток: %w", err)
	}

	recovered, forced := 0, 0
	for i := range attempts {
		state, err := m.rehydrate(attempts[i].ID)
		if err != nil {
			log.Printf("[AttemptManager] Ошибка восстановления попытки %s: %v", attempts[i].ID, err)
			continue
		}

		if time.Now().After(state.Deadline(m.config)) {
			if _, err := m.finalize(ctx, state, "recovery"); err != nil {
				log.Printf("[AttemptManager] Ошибка принудительной отправки попытки %s: %v", attempts[i].ID, err)
				continue
			}
			forced++
			continue
		}

		// Блокировка могла истечь вместе с процессом - восстанавливаем
		lockTTL := time.Until(state.Deadline(m.config))
		if err := m.deps.CacheRepo.Set(userLockKey(state.Attempt.UserID), "1", lockTTL); err != nil {
			log.Printf("[AttemptManager] Ошибка восстановления блокировки пользователя #%d: %v", state.Attempt.UserID, err)
		}
		recovered++
	}

	log.Printf("[AttemptManager] Восстановление завершено: %d попыток возобновлено, %d принудительно отправлено", recovered, forced)
	return nil
}

// Shutdown корректно завершает работу менеджера попыток
func (m *Manager) Shutdown() {
	log.Println("[AttemptManager] Завершение работы менеджера попыток...")

	// Сохраняем чекпоинты всех активных попыток перед остановкой тикеров
	m.attempts.Range(func(_, v interface{}) bool {
		m.checkpoint(v.(*ActiveAttemptState))
		return true
	})

	m.cancel()
	log.Println("[AttemptManager] Менеджер попыток остановлен")
}
