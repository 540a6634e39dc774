package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Supported LLM providers
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Config holds all the configuration for the application
type Config struct {
	BotToken string
	Debug    bool

	LLMProvider string
	LLMAPIKey   string
	LLMBaseURL  string
	LLMModel    string
	// AllowModelOverride lets users pick their own model with /model
	AllowModelOverride bool
	TheoryMode         string
	AITimeout          time.Duration

	TranscribeAPIKey   string
	TranscribeBaseURL  string
	TranscribeModel    string
	TranscribeLanguage string

	DatabaseDriver string
	DatabasePath   string

	TopicsFile   string
	QuestionsDir string

	StatusAddr     string
	ReconnectDelay time.Duration
}

// Load loads the configuration from the environment, reading .env first if present
func Load() (*Config, error) {
	_ = godotenv.Load()

	botToken := os.Getenv("BOT_TOKEN")
	if botToken == "" {
		return nil, errors.New("BOT_TOKEN environment variable is required")
	}

	apiKey := os.Getenv("LLM_API_KEY")
	if apiKey == "" {
		return nil, errors.New("LLM_API_KEY environment variable is required")
	}

	provider := getenvDefault("LLM_PROVIDER", ProviderOpenAI)
	if provider != ProviderOpenAI && provider != ProviderAnthropic {
		return nil, fmt.Errorf("unsupported LLM_PROVIDER %q", provider)
	}

	theoryMode := getenvDefault("THEORY_MODE", "didactic")
	if theoryMode != "didactic" && theoryMode != "concise" {
		return nil, fmt.Errorf("unsupported THEORY_MODE %q", theoryMode)
	}

	aiTimeout, err := getDuration("AI_TIMEOUT", 90*time.Second)
	if err != nil {
		return nil, err
	}
	reconnect, err := getDuration("RECONNECT_DELAY", 5*time.Second)
	if err != nil {
		return nil, err
	}
	override, err := getBool("ALLOW_MODEL_OVERRIDE", false)
	if err != nil {
		return nil, err
	}
	debug, err := getBool("DEBUG", false)
	if err != nil {
		return nil, err
	}

	baseURL := getenvDefault("LLM_BASE_URL", "https://api.groq.com/openai/v1")

	return &Config{
		BotToken: botToken,
		Debug:    debug,

		LLMProvider:        provider,
		LLMAPIKey:          apiKey,
		LLMBaseURL:         baseURL,
		LLMModel:           getenvDefault("LLM_MODEL", "openai/gpt-oss-120b"),
		AllowModelOverride: override,
		TheoryMode:         theoryMode,
		AITimeout:          aiTimeout,

		TranscribeAPIKey:   getenvDefault("TRANSCRIBE_API_KEY", apiKey),
		TranscribeBaseURL:  getenvDefault("TRANSCRIBE_BASE_URL", baseURL),
		TranscribeModel:    getenvDefault("TRANSCRIBE_MODEL", "whisper-large-v3-turbo"),
		TranscribeLanguage: getenvDefault("TRANSCRIBE_LANGUAGE", "ru"),

		DatabaseDriver: getenvDefault("DB_DRIVER", "sqlite3"),
		DatabasePath:   getenvDefault("DB_PATH", "./data/exambot.db"),

		TopicsFile:   os.Getenv("TOPICS_FILE"),
		QuestionsDir: getenvDefault("QUESTIONS_DIR", "."),

		StatusAddr:     os.Getenv("STATUS_ADDR"),
		ReconnectDelay: reconnect,
	}, nil
}

func getenvDefault(k, fallback string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return fallback
}

func getDuration(k string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(k)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s=%q is not a valid duration: %w", k, v, err)
	}
	return d, nil
}

func getBool(k string, fallback bool) (bool, error) {
	v := os.Getenv(k)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s=%q is not a valid boolean: %w", k, v, err)
	}
	return b, nil
}
