package attemptmanager

import (
	"context"
	"time"

	"github.com/closebase/assessment-api/internal/domain/entity"
	"github.com/closebase/assessment-api/internal/domain/repository"
)

// Constants for default values
const (
	DefaultMcQuestionCount = 20
	DefaultQuestionPool    = 60 // Целевой размер пула MC-вопросов
)

// Config содержит настройки для всех компонентов AttemptManager
type Config struct {
	// Параметры выборки контента
	McQuestionCount int // Количество MC-вопросов в попытке

	// Таймеры (в секундах)
	Part1TimeSec    int // Общий бюджет времени первой части (все MC-вопросы)
	QuestionTimeSec int // Бюджет времени на один MC-вопрос
	Part2TimeSec    int // Бюджет времени второй части (сценарий)

	// Веса оценки сценария. Сумма весов задает максимум второй части:
	// KeywordWeight + LengthWeight = MaxPart2Score.
	KeywordWeight float64 // Вес покрытия ключевых слов
	LengthWeight  float64 // Вес соответствия длины ответа

	// Шкалы итогового результата
	MaxPart1Score float64 // Максимум первой части (линейное масштабирование сырых баллов)
	MaxPart2Score float64 // Максимум второй части
	PassThreshold float64 // Проходной балл (от суммы частей, 0-27)

	// Пороги бейджей как доля от максимального балла
	GoldRatio   float64
	SilverRatio float64

	// Настройки фонового обхода просроченных попыток
	SweepInterval time.Duration // Интервал между обходами
	SweepGraceSec int           // Запас после дедлайна, прежде чем принудительно отправить

	// TTL чекпоинта попытки в Redis
	CheckpointTTL time.Duration
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() *Config {
	return &Config{
		McQuestionCount: DefaultMcQuestionCount,
		Part1TimeSec:    420, // 7 минут на всю первую часть
		QuestionTimeSec: 21,
		Part2TimeSec:    180, // 3 минуты на сценарий
		KeywordWeight:   5.0,
		LengthWeight:    2.0,
		MaxPart1Score:   20.0,
		MaxPart2Score:   7.0,
		PassThreshold:   18.0, // 18 из 27, примерно 67% от максимума
		GoldRatio:       0.9,
		SilverRatio:     0.8,
		SweepInterval:   30 * time.Second,
		SweepGraceSec:   30,
		CheckpointTTL:   15 * time.Minute,
	}
}

// MaxTotalScore возвращает максимальный суммарный балл
func (c *Config) MaxTotalScore() float64 {
	return c.MaxPart1Score + c.MaxPart2Score
}

// EventSender определяет интерфейс отправки событий кандидату,
// необходимый AttemptManager.
type EventSender interface {
	SendEventToUser(userID uint, eventType string, data interface{}) error
}

// PassNotifier определяет интерфейс для уведомления о прохождении ассессмента.
type PassNotifier interface {
	SendPassNotification(ctx context.Context, email, firstName string, result *entity.AssessmentResult) error
}

// Dependencies содержит зависимости для AttemptManager
type Dependencies struct {
	AttemptRepo  repository.AttemptRepository
	QuestionRepo repository.QuestionRepository
	ScenarioRepo repository.ScenarioRepository
	ResultRepo   repository.ResultRepository
	UserRepo     repository.UserRepository
	CacheRepo    repository.CacheRepository
	WSManager    EventSender
	EmailService PassNotifier
	Config       *Config
}
