package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/closebase/assessment-api/internal/pkg/errors"
	"github.com/closebase/assessment-api/internal/service"
	"github.com/closebase/assessment-api/pkg/auth/manager"
)

// AuthHandler обрабатывает запросы, связанные с аутентификацией
type AuthHandler struct {
	authService  *service.AuthService
	tokenManager *manager.TokenManager
}

// NewAuthHandler создает новый обработчик аутентификации
func NewAuthHandler(authService *service.AuthService, tokenManager *manager.TokenManager) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		tokenManager: tokenManager,
	}
}

// Структуры запросов и ответов

// RegisterRequest представляет запрос на регистрацию
type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8,max=72"`
	FirstName string `json:"first_name" binding:"required,max=100"`
	LastName  string `json:"last_name" binding:"required,max=100"`
	Language  string `json:"language" binding:"omitempty,oneof=de en"`
}

// LoginRequest представляет запрос на вход
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	DeviceID string `json:"device_id" binding:"omitempty"`
}

// ChangePasswordRequest представляет запрос на изменение пароля
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

// UpdateProfileRequest представляет запрос на обновление профиля
type UpdateProfileRequest struct {
	FirstName string `json:"first_name" binding:"required,max=100"`
	LastName  string `json:"last_name" binding:"required,max=100"`
}

// UpdateLanguageRequest представляет запрос на смену языка интерфейса
type UpdateLanguageRequest struct {
	Language string `json:"language" binding:"required,oneof=de en"`
}

// Register обрабатывает запрос на регистрацию кандидата
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "validation_error"})
		return
	}

	user, err := h.authService.RegisterUser(service.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Language:  req.Language,
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		h.handleAuthError(c, err)
		return
	}

	log.Printf("[AuthHandler] Пользователь ID=%d (%s) успешно зарегистрирован", user.ID, user.Email)

	// Генерируем токены сразу после регистрации
	tokenResp, err := h.tokenManager.GenerateTokenPair(user.ID, "", c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		h.handleAuthError(c, err)
		return
	}
	h.tokenManager.SetRefreshTokenCookie(c.Writer, tokenResp.RefreshToken)

	c.JSON(http.StatusCreated, gin.H{
		"user":        user,
		"accessToken": tokenResp.AccessToken,
		"userId":      tokenResp.UserID,
		"expiresIn":   tokenResp.ExpiresIn,
		"tokenType":   tokenResp.TokenType,
	})
}

// Login обрабатывает запрос на вход
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "error_type": "validation_error"})
		return
	}

	deviceID := req.DeviceID
	if deviceID == "" {
		deviceID = c.Request.UserAgent()
	}

	tokenResp, err := h.authService.LoginUser(req.Email, req.Password, deviceID, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		h.handleAuthError(c, err)
		return
	}

	// Refresh-токен уходит только в HttpOnly cookie, в теле его нет
	h.tokenManager.SetRefreshTokenCookie(c.Writer, tokenResp.RefreshToken)

	user, userErr := h.authService.GetUserByID(tokenResp.UserID)
	if userErr != nil {
		log.Printf("[AuthHandler] Ошибка получения пользователя ID=%d после логина: %v", tokenResp.UserID, userErr)
	}

	c.JSON(http.StatusOK, gin.H{
		"user":        user,
		"accessToken": tokenResp.AccessToken,
		"userId":      tokenResp.UserID,
		"expiresIn":   tokenResp.ExpiresIn,
		"tokenType":   tokenResp.TokenType,
	})
}

// RefreshToken обновляет пару токенов по refresh-токену из HttpOnly cookie
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	refreshToken, err := h.tokenManager.GetRefreshTokenFromCookie(c.Request)
	if err != nil {
		h.handleAuthError(c, err)
		return
	}

	tokenResp, err := h.authService.RefreshTokens(refreshToken, "", c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		// Старый cookie больше не годится - чистим, чтобы клиент не зациклился
		h.tokenManager.ClearRefreshTokenCookie(c.Writer)
		h.handleAuthError(c, err)
		return
	}

	h.tokenManager.SetRefreshTokenCookie(c.Writer, tokenResp.RefreshToken)

	c.JSON(http.StatusOK, gin.H{
		"accessToken": tokenResp.AccessToken,
		"userId":      tokenResp.UserID,
		"expiresIn":   tokenResp.ExpiresIn,
		"tokenType":   tokenResp.TokenType,
	})
}

// Logout инвалидирует refresh-токен и очищает cookie
func (h *AuthHandler) Logout(c *gin.Context) {
	refreshToken, err := h.tokenManager.GetRefreshTokenFromCookie(c.Request)
	if err != nil || refreshToken == "" {
		h.tokenManager.ClearRefreshTokenCookie(c.Writer)
		c.JSON(http.StatusOK, gin.H{"message": "Already logged out or session expired"})
		return
	}

	if err := h.authService.LogoutUser(refreshToken); err != nil {
		log.Printf("[AuthHandler] Logout: не удалось инвалидировать refresh-токен: %v", err)
	}

	h.tokenManager.ClearRefreshTokenCookie(c.Writer)
	c.JSON(http.StatusOK, gin.H{"message": "Successfully logged out"})
}

// LogoutAllDevices отзывает все сессии пользователя
func (h *AuthHandler) LogoutAllDevices(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)

	if err := h.authService.LogoutAllDevices(userID); err != nil {
		log.Printf("[AuthHandler] Ошибка при выходе из всех сессий для ID=%d: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to log out of all sessions", "error_type": "internal_error"})
		return
	}

	h.tokenManager.ClearRefreshTokenCookie(c.Writer)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out of all sessions"})
}

// GetMe возвращает информацию о текущем пользователе
func (h *AuthHandler) GetMe(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)

	user, err := h.authService.GetUserByID(userID)
	if err != nil {
		h.handleAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":                   user.ID,
		"email":                user.Email,
		"first_name":           user.FirstName,
		"last_name":            user.LastName,
		"role":                 user.Role,
		"language":             user.Language,
		"badge_tier":           user.BadgeTier,
		"assessment_passed_at": user.AssessmentPassedAt,
		"attempts_count":       user.AttemptsCount,
	})
}

// UpdateProfile обновляет имя пользователя
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "validation_error"})
		return
	}

	if err := h.authService.UpdateUserProfile(userID, req.FirstName, req.LastName); err != nil {
		h.handleAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Profile updated successfully"})
}

// UpdateLanguage переключает язык интерфейса пользователя
func (h *AuthHandler) UpdateLanguage(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)

	var req UpdateLanguageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "validation_error"})
		return
	}

	if err := h.authService.UpdateUserLanguage(userID, req.Language); err != nil {
		h.handleAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Language updated successfully", "language": req.Language})
}

// ChangePassword обрабатывает запрос на изменение пароля пользователя
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "validation_error"})
		return
	}

	if err := h.authService.ChangePassword(userID, req.OldPassword, req.NewPassword); err != nil {
		h.handleAuthError(c, err)
		return
	}

	// Все сессии уже отозваны сервисом, чистим cookie текущей
	h.tokenManager.ClearRefreshTokenCookie(c.Writer)

	log.Printf("[AuthHandler] Пароль успешно изменен для пользователя ID=%d", userID)
	c.JSON(http.StatusOK, gin.H{"message": "Password changed successfully"})
}

// handleAuthError обрабатывает ошибки аутентификации и возвращает соответствующие HTTP-ответы
func (h *AuthHandler) handleAuthError(c *gin.Context, err error) {
	var tokenErr *manager.TokenError
	log.Printf("[AuthHandler] Auth Error: %v", err)

	if errors.As(err, &tokenErr) {
		switch tokenErr.Type {
		case manager.ExpiredRefreshToken:
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Session expired", "error_type": "token_expired"})
		case manager.InvalidRefreshToken:
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token", "error_type": "token_invalid"})
		case manager.UserNotFound:
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials", "error_type": "invalid_credentials"})
		case manager.TokenGenerationFailed:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process request", "error_type": "token_generation_failed"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error", "error_type": "internal_server_error"})
		}
		return
	}

	switch {
	case errors.Is(err, apperrors.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials", "error_type": "unauthorized"})
	case errors.Is(err, apperrors.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied", "error_type": "forbidden"})
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Resource not found", "error_type": "not_found"})
	case errors.Is(err, apperrors.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "Email is already registered", "error_type": "conflict"})
	case errors.Is(err, apperrors.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "validation_error"})
	case errors.Is(err, apperrors.ErrExpiredToken):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Token expired", "error_type": "token_expired"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error", "error_type": "internal_server_error"})
	}
}
