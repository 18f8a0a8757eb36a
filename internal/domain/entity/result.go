package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// Уровни бейджа по итогам ассессмента
const (
	BadgeTierGold   = "gold"
	BadgeTierSilver = "silver"
	BadgeTierBronze = "bronze"
	BadgeTierNone   = "none"
)

// CategoryPercentMap - JSONB-отображение категория -> процент
type CategoryPercentMap map[string]float64

// Scan реализует интерфейс sql.Scanner для CategoryPercentMap
func (m *CategoryPercentMap) Scan(value interface{}) error {
	if value == nil {
		*m = CategoryPercentMap{}
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to unmarshal JSONB value: expected []byte")
	}

	if len(bytes) == 0 {
		*m = CategoryPercentMap{}
		return nil
	}

	return json.Unmarshal(bytes, m)
}

// Value реализует интерфейс driver.Valuer для CategoryPercentMap
func (m CategoryPercentMap) Value() (driver.Value, error) {
	if len(m) == 0 {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// AssessmentResult представляет итоговый результат отправленной попытки
type AssessmentResult struct {
	ID                uint               `gorm:"primaryKey" json:"id"`
	AttemptID         string             `gorm:"size:36;not null;uniqueIndex" json:"attempt_id"`
	UserID            uint               `gorm:"not null;index" json:"user_id"`
	TotalScore        float64            `gorm:"not null;default:0" json:"total_score"`
	Part1Score        float64            `gorm:"not null;default:0" json:"part1_score"`
	Part2Score        float64            `gorm:"not null;default:0" json:"part2_score"`
	CategoryScores    CategoryPercentMap `gorm:"type:jsonb;not null" json:"category_scores"`
	Passed            bool               `gorm:"not null;default:false;index" json:"passed"`
	BadgeTier         string             `gorm:"size:10;not null;default:'none'" json:"badge_tier"`
	AnsweredQuestions int                `gorm:"not null;default:0" json:"answered_questions"`
	MatchedKeywords   StringArray        `gorm:"type:jsonb;not null" json:"matched_keywords"`
	FocusChanges      int                `gorm:"not null;default:0" json:"focus_changes"`
	PasteCount        int                `gorm:"not null;default:0" json:"paste_count"`
	CompletedAt       time.Time          `gorm:"not null" json:"completed_at"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (AssessmentResult) TableName() string {
	return "assessment_results"
}
