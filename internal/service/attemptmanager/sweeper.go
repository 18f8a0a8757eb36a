package attemptmanager

import (
	"context"
	"log"
	"time"
)

// Sweeper - фоновый обход активных попыток, принудительно отправляющий
// те, чей wall-clock дедлайн прошел. Страховка на случай пропущенных
// тиков и брошенных сессий: сравнение с дедлайном идемпотентно и
// безопасно переживает рестарты.
type Sweeper struct {
	manager *Manager
}

// NewSweeper создает новый обходчик попыток
func NewSweeper(manager *Manager) *Sweeper {
	return &Sweeper{manager: manager}
}

// Run запускает периодический обход. Блокирует до отмены контекста.
func (s *Sweeper) Run(ctx context.Context) {
	interval := s.manager.config.SweepInterval
	log.Printf("[Sweeper] Запуск фонового обхода попыток (интервал %v)", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep(ctx)
		case <-ctx.Done():
			log.Println("[Sweeper] Фоновый обход остановлен")
			return
		}
	}
}

// sweep проверяет дедлайны всех попыток в памяти и просроченные
// записи в БД (попытки, потерянные при рестарте без чекпоинта).
// Отправленные попытки после срока удержания выселяются из памяти.
func (s *Sweeper) sweep(ctx context.Context) {
	now := time.Now()
	forced := 0
	retention := time.Duration(s.manager.config.SweepGraceSec) * time.Second

	s.manager.attempts.Range(func(_, v interface{}) bool {
		state := v.(*ActiveAttemptState)
		if submittedAt, submitted := state.SubmittedTime(); submitted {
			// Терминальное состояние держится в памяти ради идемпотентных
			// повторных отправок; после срока удержания оно больше не нужно
			if now.Sub(submittedAt) > retention {
				s.manager.attempts.Delete(state.Attempt.ID)
			}
			return true
		}
		if now.After(state.Deadline(s.manager.config)) {
			if _, err := s.manager.finalize(ctx, state, "sweeper"); err != nil {
				log.Printf("[Sweeper] Ошибка принудительной отправки попытки %s: %v", state.Attempt.ID, err)
			} else {
				forced++
			}
		}
		return true
	})

	// Попытки, оставшиеся в БД без состояния в памяти
	stale, err := s.manager.deps.AttemptRepo.GetAllInProgress()
	if err != nil {
		log.Printf("[Sweeper] Ошибка загрузки незавершенных попыток: %v", err)
		return
	}
	for i := range stale {
		if _, inMemory := s.manager.attempts.Load(stale[i].ID); inMemory {
			continue
		}
		deadline := stale[i].CreatedAt.Add(time.Duration(s.manager.config.Part1TimeSec+s.manager.config.Part2TimeSec+s.manager.config.SweepGraceSec) * time.Second)
		if !now.After(deadline) {
			continue
		}
		state, err := s.manager.rehydrate(stale[i].ID)
		if err != nil {
			log.Printf("[Sweeper] Ошибка восстановления попытки %s: %v", stale[i].ID, err)
			continue
		}
		if _, err := s.manager.finalize(ctx, state, "sweeper"); err != nil {
			log.Printf("[Sweeper] Ошибка принудительной отправки попытки %s: %v", stale[i].ID, err)
			continue
		}
		forced++
	}

	if forced > 0 {
		log.Printf("[Sweeper] Принудительно отправлено %d просроченных попыток", forced)
	}
}
