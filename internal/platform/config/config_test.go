package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "embedchain-demo-app", cfg.AppID)
	assert.Equal(t, 8000, cfg.HTTP.Port)
	assert.Equal(t, "embedchain_store", cfg.Database.Collection)
	assert.Equal(t, 2000, cfg.Chunker.ChunkSize)
	assert.Equal(t, 0, cfg.Chunker.ChunkOverlap)
	assert.Equal(t, 1, cfg.Chunker.MinChunkSize)
	assert.Equal(t, 5, cfg.Chat.NumberDocuments)
	assert.Equal(t, 10, cfg.Chat.PromptHistoryRounds)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, 10*time.Second, cfg.HTTP.ShutdownTimeout)
	assert.True(t, cfg.Chat.IncludeContent)
}

func TestLoad_EnvFile(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	content := "APP_ID=notebook-app\nHTTP_PORT=9090\nCORS_ALLOWED_ORIGINS=http://a.test, http://b.test\nQUERY_CLASSIFIER=heuristic\n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o600))
	for _, key := range []string{"APP_ID", "HTTP_PORT", "CORS_ALLOWED_ORIGINS", "QUERY_CLASSIFIER"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	cfg, err := Load(envFile)
	require.NoError(t, err)

	assert.Equal(t, "notebook-app", cfg.AppID)
	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.HTTP.AllowedOrigins)
	assert.Equal(t, "heuristic", cfg.LLM.Classifier)
}

func TestLoad_PromptHistoryRounds(t *testing.T) {
	t.Setenv("CHAT_PROMPT_HISTORY_ROUNDS", "0")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Chat.PromptHistoryRounds)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "未対応のLLMプロバイダー", key: "LLM_PROVIDER", val: "llama"},
		{name: "未対応の分類器", key: "QUERY_CLASSIFIER", val: "bert"},
		{name: "オーバーラップがチャンクサイズ以上", key: "CHUNK_OVERLAP", val: "2000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)

			_, err := Load("")
			assert.Error(t, err)
		})
	}
}

func TestGetEnvAsInt_InvalidFallsBack(t *testing.T) {
	t.Setenv("PPX_TEST_INT", "abc")
	assert.Equal(t, 42, getEnvAsInt("PPX_TEST_INT", 42))
}
