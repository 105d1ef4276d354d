package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Ai       AIConfig
	Training TrainingConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

type AIConfig struct {
	LLMProvider    string // "ollama" or "gemini"
	LLMModel       string // e.g. "llama3", "qwen2.5"
	OllamaBaseURL  string
	GeminiAPIKey   string
	EmbeddingModel string
}

type TrainingConfig struct {
	MaxTurns         int
	StageTimeout     time.Duration
	StaleThreshold   time.Duration
	SweepInterval    time.Duration
	ArchiveRetention time.Duration
	RetrievalLimit   int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log.csv"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Ai: AIConfig{
			LLMProvider:    getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:       getEnv("LLM_MODEL", "llama3"),
			OllamaBaseURL:  getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			GeminiAPIKey:   getEnv("GOOGLE_GEMINI_API_KEY", ""),
			EmbeddingModel: getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
		},
		Training: TrainingConfig{
			MaxTurns:         getEnvAsInt("TRAINING_MAX_TURNS", 12),
			StageTimeout:     getEnvAsDuration("TRAINING_STAGE_TIMEOUT", 8*time.Second),
			StaleThreshold:   getEnvAsDuration("TRAINING_STALE_THRESHOLD", 30*time.Minute),
			SweepInterval:    getEnvAsDuration("TRAINING_SWEEP_INTERVAL", 5*time.Minute),
			ArchiveRetention: getEnvAsDuration("TRAINING_ARCHIVE_RETENTION", 24*time.Hour),
			RetrievalLimit:   getEnvAsInt("TRAINING_RETRIEVAL_LIMIT", 5),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
