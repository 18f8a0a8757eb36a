package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/closebase/assessment-api/internal/config"
	"github.com/closebase/assessment-api/internal/domain/entity"
	pgRepo "github.com/closebase/assessment-api/internal/repository/postgres"
	"github.com/closebase/assessment-api/internal/service"
	"github.com/closebase/assessment-api/pkg/database"
)

// seedFile описывает формат JSON-файла с контентом каталога
type seedFile struct {
	Questions []struct {
		Text     string `json:"text"`
		Category string `json:"category"`
		Options  []struct {
			ID     string `json:"id"`
			Text   string `json:"text"`
			Points int    `json:"points"`
		} `json:"options"`
	} `json:"questions"`
	Scenarios []struct {
		Title    string   `json:"title"`
		Prompt   string   `json:"prompt"`
		Keywords []string `json:"keywords"`
		MinWords int      `json:"min_words"`
		MaxWords int      `json:"max_words"`
	} `json:"scenarios"`
}

func main() {
	seedPath := flag.String("seed", "seed/catalog.json", "путь к JSON-файлу с контентом каталога")
	force := flag.Bool("force", false, "загружать даже если каталог не пуст")
	flag.Parse()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString())
	if err != nil {
		log.Fatalf("Ошибка подключения к базе данных: %v", err)
	}

	if err := database.MigrateDB(db); err != nil {
		log.Fatalf("Ошибка применения миграций: %v", err)
	}

	questionRepo := pgRepo.NewQuestionRepo(db)
	scenarioRepo := pgRepo.NewScenarioRepo(db)

	catalogService, err := service.NewCatalogService(questionRepo, scenarioRepo, 0)
	if err != nil {
		log.Fatalf("Ошибка инициализации CatalogService: %v", err)
	}

	if !*force {
		questionCount, err := questionRepo.Count()
		if err != nil {
			log.Fatalf("Ошибка подсчета вопросов: %v", err)
		}
		if questionCount > 0 {
			log.Printf("Каталог уже содержит %d вопросов. Запустите с -force для догрузки.", questionCount)
			return
		}
	}

	data, err := os.ReadFile(*seedPath)
	if err != nil {
		log.Fatalf("Ошибка чтения файла '%s': %v", *seedPath, err)
	}

	var seed seedFile
	if err := json.Unmarshal(data, &seed); err != nil {
		log.Fatalf("Ошибка разбора JSON: %v", err)
	}

	questionsLoaded := 0
	for i, q := range seed.Questions {
		options := make(entity.OptionList, len(q.Options))
		for j, opt := range q.Options {
			options[j] = entity.AnswerOption{ID: opt.ID, Text: opt.Text, Points: opt.Points}
		}
		question := &entity.McQuestion{
			Text:     q.Text,
			Category: q.Category,
			Options:  options,
		}
		if err := catalogService.CreateQuestion(question); err != nil {
			log.Fatalf("Ошибка загрузки вопроса #%d (%q): %v", i+1, q.Text, err)
		}
		questionsLoaded++
	}

	scenariosLoaded := 0
	for i, s := range seed.Scenarios {
		scenario := &entity.Scenario{
			Title:    s.Title,
			Prompt:   s.Prompt,
			Keywords: entity.StringArray(s.Keywords),
			MinWords: s.MinWords,
			MaxWords: s.MaxWords,
		}
		if err := catalogService.CreateScenario(scenario); err != nil {
			log.Fatalf("Ошибка загрузки сценария #%d (%q): %v", i+1, s.Title, err)
		}
		scenariosLoaded++
	}

	health, err := catalogService.CheckCatalogHealth()
	if err != nil {
		log.Fatalf("Ошибка проверки каталога: %v", err)
	}

	fmt.Printf("Загружено %d вопросов и %d сценариев.\n", questionsLoaded, scenariosLoaded)
	fmt.Printf("Каталог: %d вопросов, %d сценариев, готов к попыткам: %t\n",
		health.QuestionCount, health.ScenarioCount, health.Ready)
	for category, count := range health.QuestionsByCategory {
		fmt.Printf("  %s: %d\n", category, count)
	}
}
