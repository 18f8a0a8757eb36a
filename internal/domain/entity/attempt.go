package entity

import (
	"time"
)

// Константы статусов попытки
const (
	AttemptStatusInProgress = "in_progress"
	AttemptStatusSubmitted  = "submitted"
)

// Константы фаз попытки
const (
	PhaseMultipleChoice = 1
	PhaseScenario       = 2
)

// AssessmentAttempt представляет попытку прохождения ассессмента.
// Авторитетное состояние живет в памяти (attemptmanager), запись в БД -
// чекпоинт для восстановления и финальная фиксация при отправке.
type AssessmentAttempt struct {
	ID               string     `gorm:"primaryKey;size:36" json:"id"`
	UserID           uint       `gorm:"not null;index" json:"user_id"`
	Status           string     `gorm:"size:20;not null;default:'in_progress';index" json:"status"`
	Phase            int        `gorm:"not null;default:1" json:"phase"`
	CurrentQuestion  int        `gorm:"not null;default:0" json:"current_question"`
	PartTimeLeft     int        `gorm:"not null" json:"part_time_left"`
	QuestionTimeLeft int        `gorm:"not null" json:"question_time_left"`
	ScenarioID       uint       `gorm:"not null" json:"scenario_id"`
	ScenarioResponse string     `gorm:"type:text;not null;default:''" json:"scenario_response"`
	FocusChanges     int        `gorm:"not null;default:0" json:"focus_changes"`
	PasteCount       int        `gorm:"not null;default:0" json:"paste_count"`
	SubmittedAt      *time.Time `json:"submitted_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (AssessmentAttempt) TableName() string {
	return "assessment_attempts"
}

// IsSubmitted проверяет, отправлена ли попытка (терминальный статус)
func (a *AssessmentAttempt) IsSubmitted() bool {
	return a.Status == AttemptStatusSubmitted
}

// IsInProgress проверяет, идет ли попытка
func (a *AssessmentAttempt) IsInProgress() bool {
	return a.Status == AttemptStatusInProgress
}
