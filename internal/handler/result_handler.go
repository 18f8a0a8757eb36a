package handler

import (
	"encoding/csv"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"github.com/closebase/assessment-api/internal/domain/entity"
	"github.com/closebase/assessment-api/internal/domain/repository"
	"github.com/closebase/assessment-api/internal/handler/dto"
	apperrors "github.com/closebase/assessment-api/internal/pkg/errors"
	"github.com/closebase/assessment-api/internal/service"
)

// ResultHandler обрабатывает запросы к результатам ассессмента
type ResultHandler struct {
	resultService *service.ResultService
	authService   *service.AuthService
}

// NewResultHandler создает новый обработчик результатов
func NewResultHandler(resultService *service.ResultService, authService *service.AuthService) *ResultHandler {
	return &ResultHandler{
		resultService: resultService,
		authService:   authService,
	}
}

// GetAttemptResult возвращает результат попытки.
// Кандидат видит только свои результаты, рекрутер и админ - любые.
// GET /api/results/attempt/:attempt_id
func (h *ResultHandler) GetAttemptResult(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)
	attemptID := strings.TrimSpace(c.Param("attempt_id"))
	if attemptID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid attempt id", "error_type": "validation_error"})
		return
	}

	requester, err := h.authService.GetUserByID(userID)
	if err != nil {
		h.handleResultError(c, err)
		return
	}

	result, err := h.resultService.GetResultByAttempt(attemptID, requester)
	if err != nil {
		h.handleResultError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewResultResponse(result))
}

// GetMyResults возвращает результаты текущего пользователя
// GET /api/results/my
func (h *ResultHandler) GetMyResults(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)
	page, pageSize := parsePagination(c)

	results, err := h.resultService.GetUserResults(userID, page, pageSize)
	if err != nil {
		h.handleResultError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"results": dto.NewListResultResponse(results),
		"page":    page,
		"size":    pageSize,
	})
}

// GetMyBestResult возвращает лучший результат текущего пользователя
// GET /api/results/my/best
func (h *ResultHandler) GetMyBestResult(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)

	result, err := h.resultService.GetBestUserResult(userID)
	if err != nil {
		h.handleResultError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewResultResponse(result))
}

// ListResults возвращает пагинированный список результатов для рекрутеров
// GET /api/recruiter/results?passed=true&date_from=...&date_to=...
func (h *ResultHandler) ListResults(c *gin.Context) {
	page, pageSize := parsePagination(c)
	filters := parseResultFilters(c)

	results, total, err := h.resultService.ListResults(filters, page, pageSize)
	if err != nil {
		h.handleResultError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewPaginatedResultResponse(results, total, page, pageSize))
}

// GetStatistics возвращает агрегированную статистику по результатам
// GET /api/recruiter/results/statistics
func (h *ResultHandler) GetStatistics(c *gin.Context) {
	stats, err := h.resultService.CalculateStatistics(parseResultFilters(c))
	if err != nil {
		h.handleResultError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// ExportResults экспортирует результаты в CSV или Excel формате
// GET /api/recruiter/results/export?format=csv|xlsx
func (h *ResultHandler) ExportResults(c *gin.Context) {
	format := c.DefaultQuery("format", "csv")

	rows, err := h.resultService.ListResultsForExport(parseResultFilters(c))
	if err != nil {
		h.handleResultError(c, err)
		return
	}

	filename := fmt.Sprintf("assessment_results_%s", time.Now().Format("2006-01-02"))

	switch format {
	case "xlsx":
		h.exportXLSX(c, rows, filename)
	default:
		h.exportCSV(c, rows, filename)
	}
}

// exportHeaders возвращает заголовки колонок выгрузки
func exportHeaders() []string {
	headers := []string{"Попытка", "Кандидат", "Email", "Итог", "Часть 1", "Часть 2"}
	for _, category := range entity.AllCategories() {
		headers = append(headers, category)
	}
	return append(headers, "Пройден", "Бейдж", "Отвечено", "Потери фокуса", "Вставки", "Завершено")
}

// exportRowValues преобразует строку выгрузки в плоский список значений
func exportRowValues(row service.ExportRow) []string {
	r := row.Result
	candidateName := ""
	candidateEmail := ""
	if row.User != nil {
		candidateName = row.User.FullName()
		candidateEmail = row.User.Email
	}
	passed := "Нет"
	if r.Passed {
		passed = "Да"
	}

	values := []string{
		r.AttemptID,
		sanitizeForExcel(candidateName),
		sanitizeForExcel(candidateEmail),
		strconv.FormatFloat(r.TotalScore, 'f', 1, 64),
		strconv.FormatFloat(r.Part1Score, 'f', 1, 64),
		strconv.FormatFloat(r.Part2Score, 'f', 1, 64),
	}
	for _, category := range entity.AllCategories() {
		values = append(values, strconv.FormatFloat(r.CategoryScores[category], 'f', 1, 64))
	}
	return append(values,
		passed,
		r.BadgeTier,
		strconv.Itoa(r.AnsweredQuestions),
		strconv.Itoa(r.FocusChanges),
		strconv.Itoa(r.PasteCount),
		r.CompletedAt.Format(time.RFC3339),
	)
}

// exportCSV экспортирует результаты в CSV с правильным экранированием спецсимволов
func (h *ResultHandler) exportCSV(c *gin.Context, rows []service.ExportRow, filename string) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.csv\"", filename))

	// BOM для корректного отображения UTF-8 в Excel
	c.Writer.Write([]byte{0xEF, 0xBB, 0xBF})

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	writer.Write(exportHeaders())
	for _, row := range rows {
		writer.Write(exportRowValues(row))
	}
}

// exportXLSX экспортирует результаты в Excel с использованием StreamWriter
func (h *ResultHandler) exportXLSX(c *gin.Context, rows []service.ExportRow, filename string) {
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.xlsx\"", filename))

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Результаты"
	f.SetSheetName("Sheet1", sheetName)

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		log.Printf("[ResultHandler] Ошибка создания StreamWriter: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Excel file"})
		return
	}

	headers := make([]interface{}, 0)
	for _, header := range exportHeaders() {
		headers = append(headers, header)
	}
	if err := sw.SetRow("A1", headers); err != nil {
		log.Printf("[ResultHandler] Ошибка записи заголовков: %v", err)
	}

	for i, row := range rows {
		rowNum := i + 2 // Начинаем с 2 строки (1 - заголовки)
		cell := fmt.Sprintf("A%d", rowNum)

		values := make([]interface{}, 0)
		for _, value := range exportRowValues(row) {
			values = append(values, value)
		}
		if err := sw.SetRow(cell, values); err != nil {
			log.Printf("[ResultHandler] Ошибка записи строки %d: %v", rowNum, err)
		}
	}

	if err := sw.Flush(); err != nil {
		log.Printf("[ResultHandler] Ошибка при Flush: %v", err)
	}

	if err := f.Write(c.Writer); err != nil {
		log.Printf("[ResultHandler] Ошибка записи Excel в response: %v", err)
	}
}

// sanitizeForExcel экранирует данные для защиты от formula injection в Excel/CSV
func sanitizeForExcel(s string) string {
	if len(s) == 0 {
		return s
	}
	// Символы, начинающие формулу в Excel/LibreOffice: = + - @ \t \r
	if s[0] == '=' || s[0] == '+' || s[0] == '-' || s[0] == '@' || s[0] == '\t' || s[0] == '\r' {
		return "'" + s
	}
	return s
}

// parsePagination извлекает параметры пагинации из query
func parsePagination(c *gin.Context) (int, int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	pageSize, err := strconv.Atoi(c.DefaultQuery("page_size", "10"))
	if err != nil || pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}
	return page, pageSize
}

// parseResultFilters собирает фильтры результатов из query-параметров
func parseResultFilters(c *gin.Context) repository.ResultFilters {
	var filters repository.ResultFilters

	if passedStr := c.Query("passed"); passedStr != "" {
		if passed, err := strconv.ParseBool(passedStr); err == nil {
			filters.Passed = &passed
		}
	}
	if dateFromStr := c.Query("date_from"); dateFromStr != "" {
		if dateFrom, err := time.Parse(time.RFC3339, dateFromStr); err == nil {
			filters.DateFrom = &dateFrom
		}
	}
	if dateToStr := c.Query("date_to"); dateToStr != "" {
		if dateTo, err := time.Parse(time.RFC3339, dateToStr); err == nil {
			filters.DateTo = &dateTo
		}
	}
	return filters
}

// handleResultError обрабатывает ошибки сервиса результатов
func (h *ResultHandler) handleResultError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Result not found", "error_type": "not_found"})
	case errors.Is(err, apperrors.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied", "error_type": "forbidden"})
	case errors.Is(err, apperrors.ErrValidation):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "error_type": "validation_error"})
	default:
		log.Printf("[ResultHandler] Внутренняя ошибка: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error", "error_type": "internal_server_error"})
	}
}
