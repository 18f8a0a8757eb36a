package dto

import (
	"time"

	"github.com/closebase/assessment-api/internal/domain/entity"
	"github.com/closebase/assessment-api/internal/service/attemptmanager"
)

// OptionView представляет вариант ответа в формате для кандидата.
// Баллы вариантов никогда не отдаются наружу.
type OptionView struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// QuestionView представляет MC-вопрос в формате для кандидата
type QuestionView struct {
	ID       uint         `json:"id"`
	Text     string       `json:"text"`
	Category string       `json:"category"`
	Options  []OptionView `json:"options"`
}

// NewQuestionView создает DTO вопроса, скрывая баллы вариантов
func NewQuestionView(q *entity.McQuestion) *QuestionView {
	if q == nil {
		return nil
	}
	options := make([]OptionView, len(q.Options))
	for i, opt := range q.Options {
		options[i] = OptionView{ID: opt.ID, Text: opt.Text}
	}
	return &QuestionView{
		ID:       q.ID,
		Text:     q.Text,
		Category: q.Category,
		Options:  options,
	}
}

// ScenarioView представляет сценарий в формате для кандидата.
// Ключевые слова оценки скрыты.
type ScenarioView struct {
	ID       uint   `json:"id"`
	Title    string `json:"title"`
	Prompt   string `json:"prompt"`
	MinWords int    `json:"min_words"`
	MaxWords int    `json:"max_words"`
}

// NewScenarioView создает DTO сценария без ключевых слов
func NewScenarioView(s *entity.Scenario) *ScenarioView {
	if s == nil {
		return nil
	}
	return &ScenarioView{
		ID:       s.ID,
		Title:    s.Title,
		Prompt:   s.Prompt,
		MinWords: s.MinWords,
		MaxWords: s.MaxWords,
	}
}

// AttemptStateResponse представляет состояние активной попытки для кандидата.
// В первой фазе включает текущий вопрос, во второй - сценарий.
type AttemptStateResponse struct {
	AttemptID        string          `json:"attempt_id"`
	Status           string          `json:"status"`
	Phase            int             `json:"phase"`
	QuestionIndex    int             `json:"question_index"`
	TotalQuestions   int             `json:"total_questions"`
	PartTimeLeft     int             `json:"part_time_left"`
	QuestionTimeLeft int             `json:"question_time_left"`
	Question         *QuestionView   `json:"question,omitempty"`
	Scenario         *ScenarioView   `json:"scenario,omitempty"`
	ScenarioResponse string          `json:"scenario_response,omitempty"`
	Answers          map[uint]string `json:"answers"`
	CreatedAt        time.Time       `json:"created_at"`
}

// NewAttemptStateResponse строит ответ из снапшота и контента попытки
func NewAttemptStateResponse(state *attemptmanager.ActiveAttemptState) *AttemptStateResponse {
	if state == nil {
		return nil
	}
	snapshot := state.Snapshot()

	resp := &AttemptStateResponse{
		AttemptID:        snapshot.AttemptID,
		Status:           snapshot.Status,
		Phase:            snapshot.Phase,
		QuestionIndex:    snapshot.CurrentQuestion,
		TotalQuestions:   len(snapshot.QuestionIDs),
		PartTimeLeft:     snapshot.PartTimeLeft,
		QuestionTimeLeft: snapshot.QuestionTimeLeft,
		Answers:          snapshot.Answers,
		CreatedAt:        snapshot.CreatedAt,
	}

	switch snapshot.Phase {
	case entity.PhaseMultipleChoice:
		if question, ok := state.CurrentQuestion(); ok {
			resp.Question = NewQuestionView(question)
		}
	case entity.PhaseScenario:
		resp.Scenario = NewScenarioView(state.Scenario)
		resp.ScenarioResponse = snapshot.ScenarioResponse
	}
	return resp
}

// ResultResponse представляет результат ассессмента в формате для ответа клиенту
type ResultResponse struct {
	ID                uint               `json:"id"`
	AttemptID         string             `json:"attempt_id"`
	UserID            uint               `json:"user_id"`
	TotalScore        float64            `json:"total_score"`
	Part1Score        float64            `json:"part1_score"`
	Part2Score        float64            `json:"part2_score"`
	CategoryScores    map[string]float64 `json:"category_scores"`
	Passed            bool               `json:"passed"`
	BadgeTier         string             `json:"badge_tier"`
	AnsweredQuestions int                `json:"answered_questions"`
	FocusChanges      int                `json:"focus_changes"`
	PasteCount        int                `json:"paste_count"`
	CompletedAt       time.Time          `json:"completed_at"`
}

// NewResultResponse создает DTO для результата
func NewResultResponse(result *entity.AssessmentResult) *ResultResponse {
	if result == nil {
		return nil
	}
	return &ResultResponse{
		ID:                result.ID,
		AttemptID:         result.AttemptID,
		UserID:            result.UserID,
		TotalScore:        result.TotalScore,
		Part1Score:        result.Part1Score,
		Part2Score:        result.Part2Score,
		CategoryScores:    result.CategoryScores,
		Passed:            result.Passed,
		BadgeTier:         result.BadgeTier,
		AnsweredQuestions: result.AnsweredQuestions,
		FocusChanges:      result.FocusChanges,
		PasteCount:        result.PasteCount,
		CompletedAt:       result.CompletedAt,
	}
}

// NewListResultResponse создает слайс DTO для списка результатов
func NewListResultResponse(results []entity.AssessmentResult) []*ResultResponse {
	list := make([]*ResultResponse, len(results))
	for i := range results {
		list[i] = NewResultResponse(&results[i])
	}
	return list
}

// PaginatedResultResponse представляет пагинированный список результатов
type PaginatedResultResponse struct {
	Results []*ResultResponse `json:"results"`
	Total   int64             `json:"total"`
	Page    int               `json:"page"`
	PerPage int               `json:"per_page"`
}

// NewPaginatedResultResponse создает DTO для пагинированного списка результатов
func NewPaginatedResultResponse(results []entity.AssessmentResult, total int64, page, perPage int) *PaginatedResultResponse {
	return &PaginatedResultResponse{
		Results: NewListResultResponse(results),
		Total:   total,
		Page:    page,
		PerPage: perPage,
	}
}
