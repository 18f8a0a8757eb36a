package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/closebase/assessment-api/internal/config"
	"github.com/closebase/assessment-api/internal/domain/entity"
	"github.com/closebase/assessment-api/internal/handler"
	"github.com/closebase/assessment-api/internal/middleware"
	pgRepo "github.com/closebase/assessment-api/internal/repository/postgres"
	redisRepo "github.com/closebase/assessment-api/internal/repository/redis"
	"github.com/closebase/assessment-api/internal/service"
	"github.com/closebase/assessment-api/internal/service/attemptmanager"
	ws "github.com/closebase/assessment-api/internal/websocket"
	"github.com/closebase/assessment-api/pkg/auth"
	"github.com/closebase/assessment-api/pkg/auth/manager"
	"github.com/closebase/assessment-api/pkg/database"
)

func main() {
	// Загружаем конфигурацию
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	log.Printf("Загрузка конфигурации из %s", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		os.Exit(1)
	}

	// Инициализируем подключение к PostgreSQL
	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString())
	if err != nil {
		log.Printf("Failed to connect to database: %v", err)
		os.Exit(1)
	}

	// Применяем миграции
	if err := database.MigrateDB(db); err != nil {
		log.Printf("Failed to migrate database: %v", err)
		os.Exit(1)
	}

	// Инициализируем подключение к Redis
	redisClient, err := database.NewUniversalRedisClient(cfg.Redis)
	if err != nil {
		log.Printf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}
	log.Println("Successfully connected to Redis")

	// Инициализируем репозитории
	userRepo := pgRepo.NewUserRepo(db)
	questionRepo := pgRepo.NewQuestionRepo(db)
	scenarioRepo := pgRepo.NewScenarioRepo(db)
	attemptRepo := pgRepo.NewAttemptRepo(db)
	resultRepo := pgRepo.NewResultRepo(db)
	invalidTokenRepo := pgRepo.NewInvalidTokenRepo(db)

	refreshTokenRepo, err := pgRepo.NewRefreshTokenRepo(db)
	if err != nil {
		log.Printf("Failed to initialize RefreshTokenRepo: %v", err)
		os.Exit(1)
	}

	cacheRepo, err := redisRepo.NewCacheRepo(redisClient)
	if err != nil {
		log.Printf("Failed to initialize CacheRepo: %v", err)
		os.Exit(1)
	}

	// Корневой контекст приложения для управления жизненным циклом горутин
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Инициализация JWTService и TokenManager ---
	jwtService, err := auth.NewJWTService(
		cfg.JWT.Secret,
		cfg.JWT.ExpirationHrs,
		invalidTokenRepo,
		cfg.JWT.CleanupInterval,
		ctx,
	)
	if err != nil {
		log.Printf("Failed to initialize JWTService: %v", err)
		os.Exit(1)
	}

	tokenManager, err := manager.NewTokenManager(jwtService, refreshTokenRepo, userRepo)
	if err != nil {
		log.Printf("Failed to initialize TokenManager: %v", err)
		os.Exit(1)
	}
	if cfg.Auth.RefreshTokenLifetime > 0 {
		tokenManager.SetRefreshTokenExpiry(time.Duration(cfg.Auth.RefreshTokenLifetime) * time.Hour)
	}
	if cfg.Auth.SessionLimit > 0 {
		tokenManager.SetMaxRefreshTokensPerUser(cfg.Auth.SessionLimit)
	}

	isProduction := gin.Mode() == gin.ReleaseMode
	tokenManager.SetProductionMode(isProduction) // Secure-куки только в продакшене

	authService, err := service.NewAuthService(userRepo, tokenManager)
	if err != nil {
		log.Printf("Failed to initialize AuthService: %v", err)
		os.Exit(1)
	}

	// Фоновая очистка истекших refresh-токенов
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()

		log.Println("Запуск механизма периодической очистки истекших refresh-токенов (каждый час)")

		for {
			select {
			case <-ticker.C:
				if err := tokenManager.CleanupExpiredTokens(); err != nil {
					log.Printf("Ошибка при очистке токенов: %v", err)
				}
			case <-ctx.Done():
				log.Println("Завершение работы горутины очистки токенов")
				return
			}
		}
	}()

	// --- Инициализация WebSocket ---
	wsHub := ws.NewHub()
	go wsHub.Run()
	wsManager := ws.NewManager(wsHub)

	// --- Инициализация email-уведомлений ---
	var emailService service.EmailService = &service.NoopEmailService{}
	if cfg.Email.Enabled {
		resendService, err := service.NewResendEmailService(cfg.Email.ResendAPIKey, cfg.Email.FromAddress)
		if err != nil {
			log.Printf("Failed to initialize ResendEmailService: %v", err)
			os.Exit(1)
		}
		emailService = resendService
	}

	// --- Инициализация движка ассессмента ---
	assessmentConfig := buildAssessmentConfig(cfg.Assessment)
	attemptManager := attemptmanager.NewManager(&attemptmanager.Dependencies{
		AttemptRepo:  attemptRepo,
		QuestionRepo: questionRepo,
		ScenarioRepo: scenarioRepo,
		ResultRepo:   resultRepo,
		UserRepo:     userRepo,
		CacheRepo:    cacheRepo,
		WSManager:    wsManager,
		EmailService: emailService,
		Config:       assessmentConfig,
	})

	// Восстанавливаем незавершенные попытки после рестарта
	if err := attemptManager.RecoverInProgress(ctx); err != nil {
		log.Printf("Ошибка восстановления незавершенных попыток: %v", err)
	}

	// Фоновый обход просроченных попыток
	sweeper := attemptmanager.NewSweeper(attemptManager)
	go sweeper.Run(ctx)

	// Инициализируем сервисы
	catalogService, err := service.NewCatalogService(questionRepo, scenarioRepo, assessmentConfig.McQuestionCount)
	if err != nil {
		log.Printf("Failed to initialize CatalogService: %v", err)
		os.Exit(1)
	}
	resultService, err := service.NewResultService(resultRepo, userRepo)
	if err != nil {
		log.Printf("Failed to initialize ResultService: %v", err)
		os.Exit(1)
	}

	// Разрешенные origin для CORS и WebSocket
	allowedOrigins := cfg.CORS.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:5173", "http://localhost:3000"}
	}

	// Инициализируем обработчики
	authHandler := handler.NewAuthHandler(authService, tokenManager)
	assessmentHandler := handler.NewAssessmentHandler(attemptManager)
	resultHandler := handler.NewResultHandler(resultService, authService)
	catalogHandler := handler.NewCatalogHandler(catalogService)
	wsHandler := handler.NewWSHandler(wsHub, wsManager, attemptManager, jwtService, allowedOrigins)

	// Инициализируем middleware
	authMiddleware := middleware.NewAuthMiddleware(jwtService)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Инициализируем роутер Gin
	router := gin.Default()

	// Настройка доверенных прокси для корректной работы c.ClientIP()
	if isProduction {
		if err := router.SetTrustedProxies(nil); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	} else {
		if err := router.SetTrustedProxies([]string{"127.0.0.1", "::1"}); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	}

	// Настройка CORS
	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Настраиваем маршруты API
	api := router.Group("/api")
	{
		// Аутентификация
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", rateLimiter.Limit(middleware.StrictAuthRateLimitConfig()), authHandler.Register)
			authGroup.POST("/login", rateLimiter.Limit(middleware.StrictAuthRateLimitConfig()), authHandler.Login)
			authGroup.POST("/refresh", rateLimiter.Limit(middleware.DefaultAuthRateLimitConfig()), authHandler.RefreshToken)
			authGroup.POST("/logout", authHandler.Logout)

			authedAuth := authGroup.Group("/")
			authedAuth.Use(authMiddleware.RequireAuth())
			{
				authedAuth.POST("/logout-all", authHandler.LogoutAllDevices)
				authedAuth.POST("/change-password", authHandler.ChangePassword)
			}
		}

		// Пользователи
		users := api.Group("/users")
		users.Use(authMiddleware.RequireAuth())
		{
			users.GET("/me", authHandler.GetMe)
			users.PUT("/me", authHandler.UpdateProfile)
			users.PUT("/me/language", authHandler.UpdateLanguage)
		}

		// Жизненный цикл попытки ассессмента
		assessment := api.Group("/assessment")
		assessment.Use(authMiddleware.RequireAuth())
		{
			assessment.POST("/attempts", assessmentHandler.StartAttempt)

			attempt := assessment.Group("/attempts/:attempt_id")
			{
				attempt.GET("", assessmentHandler.GetAttemptState)
				attempt.POST("/answer", assessmentHandler.SelectAnswer)
				attempt.POST("/next", assessmentHandler.NextQuestion)
				attempt.PUT("/scenario", assessmentHandler.UpdateScenarioText)
				attempt.POST("/submit", assessmentHandler.SubmitAttempt)
				attempt.POST("/events/focus-lost", assessmentHandler.ReportFocusLost)
				attempt.POST("/events/paste", assessmentHandler.ReportPaste)
			}
		}

		// Результаты
		results := api.Group("/results")
		results.Use(authMiddleware.RequireAuth())
		{
			results.GET("/my", resultHandler.GetMyResults)
			results.GET("/my/best", resultHandler.GetMyBestResult)
			results.GET("/attempt/:attempt_id", resultHandler.GetAttemptResult)
		}

		// Рекрутерские маршруты
		recruiter := api.Group("/recruiter")
		recruiter.Use(authMiddleware.RequireAuth(), authMiddleware.RequireRole(entity.RoleRecruiter))
		{
			recruiter.GET("/results", resultHandler.ListResults)
			recruiter.GET("/results/statistics", resultHandler.GetStatistics)
			recruiter.GET("/results/export", resultHandler.ExportResults)
		}

		// Админские маршруты каталога
		catalog := api.Group("/admin/catalog")
		catalog.Use(authMiddleware.RequireAuth(), authMiddleware.AdminOnly())
		{
			catalog.GET("/health", catalogHandler.GetCatalogHealth)

			catalog.GET("/questions", catalogHandler.ListQuestions)
			catalog.POST("/questions", catalogHandler.CreateQuestion)
			questionWithID := catalog.Group("/questions/:id")
			questionWithID.Use(middleware.ExtractUintParam("id", "questionID"))
			{
				questionWithID.GET("", catalogHandler.GetQuestion)
				questionWithID.PUT("", catalogHandler.UpdateQuestion)
				questionWithID.DELETE("", catalogHandler.DeleteQuestion)
			}

			catalog.GET("/scenarios", catalogHandler.ListScenarios)
			catalog.POST("/scenarios", catalogHandler.CreateScenario)
			scenarioWithID := catalog.Group("/scenarios/:id")
			scenarioWithID.Use(middleware.ExtractUintParam("id", "scenarioID"))
			{
				scenarioWithID.GET("", catalogHandler.GetScenario)
				scenarioWithID.PUT("", catalogHandler.UpdateScenario)
				scenarioWithID.DELETE("", catalogHandler.DeleteScenario)
			}
		}
	}

	// WebSocket маршрут
	router.GET("/ws", wsHandler.HandleConnection)

	// Настраиваем HTTP сервер с тайм-аутами для защиты от slow client attacks
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Запускаем сервер в горутине
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Failed to start server: %v", err)
		}
	}()

	log.Printf("Server started on port %s", cfg.Server.Port)

	// Ждем сигнал остановки
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Завершаем фоновые горутины и движок ассессмента.
	// Shutdown пишет финальные чекпоинты активных попыток в Redis,
	// поэтому вызывается до закрытия соединений.
	cancel()
	attemptManager.Shutdown()
	wsHub.Close()

	// Graceful shutdown HTTP сервера
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
		os.Exit(1)
	}

	log.Println("Server exited properly")
}

// buildAssessmentConfig накладывает значения из конфигурации на дефолты движка
func buildAssessmentConfig(cfg config.AssessmentConfig) *attemptmanager.Config {
	result := attemptmanager.DefaultConfig()
	if cfg.McQuestionCount > 0 {
		result.McQuestionCount = cfg.McQuestionCount
	}
	if cfg.Part1TimeSec > 0 {
		result.Part1TimeSec = cfg.Part1TimeSec
	}
	if cfg.QuestionTimeSec > 0 {
		result.QuestionTimeSec = cfg.QuestionTimeSec
	}
	if cfg.Part2TimeSec > 0 {
		result.Part2TimeSec = cfg.Part2TimeSec
	}
	if cfg.KeywordWeight > 0 {
		result.KeywordWeight = cfg.KeywordWeight
	}
	if cfg.LengthWeight > 0 {
		result.LengthWeight = cfg.LengthWeight
	}
	// Сумма весов задает максимум второй части
	result.MaxPart2Score = result.KeywordWeight + result.LengthWeight
	if cfg.PassThreshold > 0 {
		result.PassThreshold = cfg.PassThreshold
	}
	if cfg.GoldRatio > 0 {
		result.GoldRatio = cfg.GoldRatio
	}
	if cfg.SilverRatio > 0 {
		result.SilverRatio = cfg.SilverRatio
	}
	if cfg.SweepIntervalSec > 0 {
		result.SweepInterval = time.Duration(cfg.SweepIntervalSec) * time.Second
	}
	if cfg.SweepGraceSec > 0 {
		result.SweepGraceSec = cfg.SweepGraceSec
	}
	return result
}
