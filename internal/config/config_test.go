package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":5000", cfg.HTTPAddr)
	assert.Equal(t, BackendMemory, cfg.SessionBackend)
	assert.Equal(t, 10*time.Second, cfg.SubmitTimeout)
	assert.Equal(t, []string{"确认", "yes", "确认创建"}, cfg.ConfirmTokens)
	assert.Equal(t, []string{"是", "yes"}, cfg.YesTokens)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, 5432, cfg.DBPort)
	assert.False(t, cfg.ConditionalAnswers)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("SESSION_BACKEND", "SQLite")
	t.Setenv("SUBMIT_TIMEOUT", "3s")
	t.Setenv("CONFIRM_TOKENS", "ok, 好的 ")
	t.Setenv("DEEPSEEK_API_KEY", "sk-env")
	t.Setenv("CONDITIONAL_ANSWERS", "true")
	t.Setenv("DB_PORT", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendSQLite, cfg.SessionBackend)
	assert.Equal(t, 3*time.Second, cfg.SubmitTimeout)
	assert.Equal(t, []string{"ok", "好的"}, cfg.ConfirmTokens)
	assert.Equal(t, "sk-env", cfg.LLMAPIKey)
	assert.True(t, cfg.ConditionalAnswers)
	assert.Equal(t, 5432, cfg.DBPort)
}

func TestLoadFromYAMLFileEnvWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("HTTP_ADDR: \":9000\"\nCHORES_API_BASE: http://chores.local/api\nLLM_MODEL: file-model\n"), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("LLM_MODEL", "env-model")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.HTTPAddr)
	assert.Equal(t, "http://chores.local/api", cfg.ChoresAPIBase)
	assert.Equal(t, "env-model", cfg.LLMModel)
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("SESSION_BACKEND", "redis")

	_, err := Load()
	assert.Error(t, err)
}

func TestFillSecrets(t *testing.T) {
	cfg := &Config{SessionBackend: BackendPostgres}
	lookup := func(key string) (string, error) {
		switch key {
		case "llm":
			return "sk-ring", nil
		case "db":
			return "", errors.New("locked")
		}
		return "", nil
	}

	cfg.FillSecrets(lookup, "llm", "db")
	assert.Equal(t, "sk-ring", cfg.LLMAPIKey)
	assert.Equal(t, "", cfg.DBPassword)

	cfg.LLMAPIKey = "sk-env"
	cfg.FillSecrets(lookup, "llm", "db")
	assert.Equal(t, "sk-env", cfg.LLMAPIKey)
}

func TestConnString(t *testing.T) {
	cfg := &Config{DBHost: "db", DBPort: 5433, DBUser: "u", DBPassword: "p", DBName: "chores"}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=chores sslmode=disable", cfg.ConnString())
}
