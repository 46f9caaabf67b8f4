package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendBadger   = "badger"
)

type Config struct {
	HTTPAddr    string
	CORSOrigins []string
	H2C         bool

	SessionBackend string
	SQLitePath     string
	BadgerPath     string

	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string

	ChoresAPIBase string
	SubmitTimeout time.Duration

	ConfirmTokens      []string
	YesTokens          []string
	ConditionalAnswers bool

	LLMAPIKey string
	LLMModel  string
	LLMURL    string

	UseKeyring bool
}

// Load reads settings from the environment and, when CONFIG_FILE points to
// one, a yaml file. Environment variables win over the file.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":5000")
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("H2C", false)
	v.SetDefault("SESSION_BACKEND", BackendMemory)
	v.SetDefault("SQLITE_PATH", "data/sessions.db")
	v.SetDefault("BADGER_PATH", "data/badger")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("CHORES_API_BASE", "http://your-chores-api.com/api")
	v.SetDefault("SUBMIT_TIMEOUT", "10s")
	v.SetDefault("CONFIRM_TOKENS", "确认,yes,确认创建")
	v.SetDefault("YES_TOKENS", "是,yes")
	v.SetDefault("CONDITIONAL_ANSWERS", false)
	v.SetDefault("LLM_MODEL", "DeepSeek-V3.1")
	v.SetDefault("LLM_URL", "https://api.deepseek.com/v1/chat/completions")
	v.SetDefault("USE_KEYRING", false)

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			var pathErr *os.PathError
			if !errors.As(err, &notFound) && !errors.As(err, &pathErr) {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		}
	}

	backend := strings.ToLower(strings.TrimSpace(v.GetString("SESSION_BACKEND")))
	switch backend {
	case BackendMemory, BackendPostgres, BackendSQLite, BackendBadger:
	default:
		return nil, fmt.Errorf("unknown SESSION_BACKEND %q", backend)
	}

	timeout := v.GetDuration("SUBMIT_TIMEOUT")
	if timeout <= 0 {
		timeout = 10 * time.Second // fallback
	}

	port := v.GetInt("DB_PORT")
	if port == 0 {
		port = 5432 // fallback
	}

	apiKey := v.GetString("LLM_API_KEY")
	if apiKey == "" {
		apiKey = v.GetString("DEEPSEEK_API_KEY")
	}

	return &Config{
		HTTPAddr:    v.GetString("HTTP_ADDR"),
		CORSOrigins: splitList(v.GetString("CORS_ORIGINS")),
		H2C:         v.GetBool("H2C"),

		SessionBackend: backend,
		SQLitePath:     v.GetString("SQLITE_PATH"),
		BadgerPath:     v.GetString("BADGER_PATH"),

		DBHost:     v.GetString("DB_HOST"),
		DBPort:     port,
		DBUser:     v.GetString("DB_USER"),
		DBPassword: v.GetString("DB_PASSWORD"),
		DBName:     v.GetString("DB_NAME"),

		ChoresAPIBase: v.GetString("CHORES_API_BASE"),
		SubmitTimeout: timeout,

		ConfirmTokens:      splitList(v.GetString("CONFIRM_TOKENS")),
		YesTokens:          splitList(v.GetString("YES_TOKENS")),
		ConditionalAnswers: v.GetBool("CONDITIONAL_ANSWERS"),

		LLMAPIKey: apiKey,
		LLMModel:  v.GetString("LLM_MODEL"),
		LLMURL:    v.GetString("LLM_URL"),

		UseKeyring: v.GetBool("USE_KEYRING"),
	}, nil
}

func (c *Config) ConnString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName,
	)
}

// FillSecrets fills empty secrets through lookup (the OS keyring in
// production). Lookup failures leave the field empty.
func (c *Config) FillSecrets(lookup func(key string) (string, error), llmKey, dbPasswordKey string) {
	if c.LLMAPIKey == "" {
		if v, err := lookup(llmKey); err == nil {
			c.LLMAPIKey = v
		}
	}
	if c.DBPassword == "" && c.SessionBackend == BackendPostgres {
		if v, err := lookup(dbPasswordKey); err == nil {
			c.DBPassword = v
		}
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
