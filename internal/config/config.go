package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Service names double as the suffix of the per-agent environment variables,
// e.g. BASE_URL_ADVISOR.
const (
	ServiceAdvisor     = "advisor"
	ServiceCommentator = "commentator"
	ServiceBot         = "bot"
	ServiceRegistry    = "registry"
)

const (
	ProviderAutonome = "autonome"
	ProviderGemini   = "gemini"

	PolicyStrict   = "strict"
	PolicyFallback = "fallback"
)

var defaultPorts = map[string]string{
	ServiceAdvisor:     "3001",
	ServiceCommentator: "3000",
	ServiceRegistry:    "3002",
	ServiceBot:         "3003",
}

var defaultPolicies = map[string]string{
	ServiceAdvisor:     PolicyFallback,
	ServiceCommentator: PolicyStrict,
}

// zero waits until the client goes away
var defaultCallerTimeouts = map[string]time.Duration{
	ServiceAdvisor: 30 * time.Second,
}

var defaultAgentTimeouts = map[string]time.Duration{
	ServiceAdvisor:     60 * time.Second,
	ServiceCommentator: 30 * time.Second,
}

// AgentConfig describes how one service reaches its conversational agent
type AgentConfig struct {
	Name         string
	Provider     string
	BaseURL      string
	AgentID      string
	Credentials  string
	GeminiAPIKey string
	GeminiModel  string
	Timeout      time.Duration
	MaxRetries   int
	BaseDelay    time.Duration
}

type Config struct {
	Service  string
	LogLevel string
	LogDir   string
	Port     string

	ChatHistoryPath string
	UsersPath       string
	PostgreDSN      string
	CORSOrigin      string

	// Queue behaviour
	QueuePolicy   string
	CallerTimeout time.Duration
	DrainDelay    time.Duration

	// Telegram relay
	TelegramBotToken string
	AdvisorURL       string
	CommentatorURL   string
	CommentaryChatID int64
	TurnInterval     time.Duration
	StartWithTurn    bool

	Agent AgentConfig
}

// Load reads the configuration for the named service. A missing .env file is not an error.
func Load(service string) (*Config, error) {
	_ = godotenv.Load()

	suffix := strings.ToUpper(service)

	cfg := &Config{
		Service:  service,
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		LogDir:   getEnvOrDefault("LOG_DIR", "logs"),
		Port:     getEnvOrDefault("PORT", defaultPorts[service]),

		ChatHistoryPath: getEnvOrDefault("CHAT_HISTORY_PATH", "messageHistory/chillguybitcoin.json"),
		UsersPath:       getEnvOrDefault("USERS_PATH", "data/users.json"),
		PostgreDSN:      os.Getenv("POSTGRE_DSN"),
		CORSOrigin:      getEnvOrDefault("CORS_ORIGIN", "http://localhost:5173"),
		QueuePolicy:     strings.ToLower(getEnvOrDefault("QUEUE_POLICY_"+suffix, defaultPolicies[service])),

		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		AdvisorURL:       getEnvOrDefault("ADVISOR_URL", "http://localhost:3001"),
		CommentatorURL:   getEnvOrDefault("COMMENTATOR_URL", "http://localhost:3000"),
		StartWithTurn:    os.Getenv("START_WITH_TURN") == "true",

		Agent: AgentConfig{
			Name:         service,
			Provider:     strings.ToLower(getEnvOrDefault("AGENT_PROVIDER_"+suffix, getEnvOrDefault("AGENT_PROVIDER", ProviderAutonome))),
			BaseURL:      strings.TrimRight(os.Getenv("BASE_URL_"+suffix), "/"),
			AgentID:      os.Getenv("AGENT_ID_" + suffix),
			Credentials:  os.Getenv("CREDENTIALS_" + suffix),
			GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
			GeminiModel:  getEnvOrDefault("GEMINI_MODEL", "gemini-2.5-flash"),
		},
	}

	var err error
	if cfg.CallerTimeout, err = getDurationOrDefault("CALLER_TIMEOUT", defaultCallerTimeouts[service]); err != nil {
		return nil, err
	}
	if cfg.DrainDelay, err = getDurationOrDefault("DRAIN_DELAY", time.Second); err != nil {
		return nil, err
	}
	if cfg.TurnInterval, err = getDurationOrDefault("TURN_INTERVAL", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.Agent.Timeout, err = getDurationOrDefault("AGENT_TIMEOUT_"+suffix, defaultAgentTimeouts[service]); err != nil {
		return nil, err
	}
	if cfg.Agent.BaseDelay, err = getDurationOrDefault("AGENT_BASE_DELAY", 2*time.Second); err != nil {
		return nil, err
	}
	if cfg.Agent.MaxRetries, err = getIntOrDefault("AGENT_MAX_RETRIES", 3); err != nil {
		return nil, err
	}

	if chatID := os.Getenv("COMMENTARY_CHAT_ID"); chatID != "" {
		id, err := strconv.ParseInt(chatID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid COMMENTARY_CHAT_ID %q: %w", chatID, err)
		}
		cfg.CommentaryChatID = id
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	required := map[string]string{}

	switch c.Service {
	case ServiceAdvisor, ServiceCommentator:
		suffix := strings.ToUpper(c.Service)
		switch c.Agent.Provider {
		case ProviderAutonome:
			required["BASE_URL_"+suffix] = c.Agent.BaseURL
			required["AGENT_ID_"+suffix] = c.Agent.AgentID
			required["CREDENTIALS_"+suffix] = c.Agent.Credentials
		case ProviderGemini:
			required["GEMINI_API_KEY"] = c.Agent.GeminiAPIKey
		default:
			return fmt.Errorf("unsupported agent provider %q", c.Agent.Provider)
		}
		if c.QueuePolicy != PolicyStrict && c.QueuePolicy != PolicyFallback {
			return fmt.Errorf("unsupported queue policy %q", c.QueuePolicy)
		}
	case ServiceBot:
		required["TELEGRAM_BOT_TOKEN"] = c.TelegramBotToken
	}

	for key, value := range required {
		if value == "" {
			return fmt.Errorf("required environment variable %s is not set", key)
		}
	}

	if c.Agent.MaxRetries < 1 {
		return fmt.Errorf("AGENT_MAX_RETRIES must be at least 1, got %d", c.Agent.MaxRetries)
	}

	return nil
}

func (c *Config) HasDatabaseConfig() bool {
	return c.PostgreDSN != ""
}

func (c *Config) HasCommentaryConfig() bool {
	return c.CommentaryChatID != 0 && c.CommentatorURL != ""
}

// getEnvOrDefault returns the environment variable value or a default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
	}
	return d, nil
}

func getIntOrDefault(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid integer for %s: %w", key, err)
	}
	return n, nil
}
