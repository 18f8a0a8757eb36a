package entity

import (
	"time"
)

// AttemptAnswer представляет зафиксированный ответ на MC-вопрос.
// Балл копируется из варианта в момент выбора: последующее изменение
// пула вопросов не меняет уже записанный ответ.
type AttemptAnswer struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	AttemptID  string    `gorm:"size:36;not null;index;uniqueIndex:idx_attempt_question" json:"attempt_id"`
	UserID     uint      `gorm:"not null;index" json:"user_id"`
	QuestionID uint      `gorm:"not null;uniqueIndex:idx_attempt_question" json:"question_id"`
	OptionID   string    `gorm:"size:20;not null" json:"option_id"`
	Points     int       `gorm:"not null;default:0" json:"points"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (AttemptAnswer) TableName() string {
	return "attempt_answers"
}
