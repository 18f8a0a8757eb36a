package entity

import "time"

// AttemptQuestion фиксирует вопрос, выбранный для конкретной попытки,
// и его порядок показа. Это журнал выборки, а не справочник вопросов.
type AttemptQuestion struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	AttemptID     string    `gorm:"size:36;not null;index:idx_attempt_questions_order,priority:1;index" json:"attempt_id"`
	QuestionID    uint      `gorm:"not null;index" json:"question_id"`
	QuestionOrder int       `gorm:"not null;index:idx_attempt_questions_order,priority:2" json:"question_order"`
	SelectedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"selected_at"`
}

// TableName задает имя таблицы для GORM.
func (AttemptQuestion) TableName() string {
	return "attempt_questions"
}
