package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持します
type Config struct {
	// アプリケーションID（ベクトルストアとチャット履歴のテナントキー）
	AppID string

	HTTP      HTTPConfig
	Log       LogConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Resources ResourcesConfig
	OpenAI    OpenAIConfig
	Gemini    GeminiConfig
	LLM       LLMConfig
	Chat      ChatConfig
	Chunker   ChunkerConfig
	YouTube   YouTubeConfig
	Telemetry TelemetryConfig

	// 管理APIの認証トークン（空の場合は認証なし）
	AdminAPIToken string
}

// HTTPConfig はHTTPサーバ設定
type HTTPConfig struct {
	Port            int
	AllowedOrigins  []string
	ShutdownTimeout time.Duration
}

// LogConfig はログ設定
type LogConfig struct {
	Level  string
	Format string
}

// DatabaseConfig はベクトルストア（PostgreSQL + pgvector）の接続設定
type DatabaseConfig struct {
	Host       string
	Port       int
	User       string
	Password   string
	DBName     string
	SSLMode    string
	Collection string
}

// RedisConfig はチャット履歴用Redisの接続設定
type RedisConfig struct {
	URL      string
	Password string
	DB       int
}

// ResourcesConfig はリソースDB（SQLite）の設定
type ResourcesConfig struct {
	Path string
}

// OpenAIConfig はOpenAI API設定（Embeddings + LLM + 分類器）
type OpenAIConfig struct {
	APIKey             string
	EmbeddingModel     string
	EmbeddingDimension int
	LLMModel           string
	ClassifierModel    string
}

// GeminiConfig はGemini API設定
type GeminiConfig struct {
	APIKey string
	Model  string
}

// LLMConfig はチャット生成の共通設定
type LLMConfig struct {
	Provider          string // "openai" or "gemini"
	Temperature       float64
	MaxTokens         int
	TopP              float64
	RequestsPerMinute int
	ContextTokenLimit int
	Classifier        string // "llm" or "heuristic"
}

// ChatConfig はチャットオーケストレータの設定
type ChatConfig struct {
	SystemPrompt        string
	NumberDocuments     int
	HistoryRounds       int
	PromptHistoryRounds int
	ScanLimit           int
	IncludeContent      bool
}

// ChunkerConfig はチャンク分割の設定
type ChunkerConfig struct {
	ChunkSize    int
	ChunkOverlap int
	MinChunkSize int
}

// YouTubeConfig はYouTube字幕取得の設定
type YouTubeConfig struct {
	Language    string
	Translation string
}

// TelemetryConfig はOpenTelemetry設定
type TelemetryConfig struct {
	OTLPEndpoint string
	ServiceName  string
	SampleRatio  float64
}

// Load は環境変数または.envファイルから設定を読み込みます
func Load(envFilePath string) (*Config, error) {
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			// ファイルが存在しない場合はエラーとしない（環境変数のみで動作可能）
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load .env file: %w", err)
			}
		}
	}

	cfg := &Config{
		AppID: getEnv("APP_ID", "embedchain-demo-app"),
		HTTP: HTTPConfig{
			Port:            getEnvAsInt("HTTP_PORT", 8000),
			AllowedOrigins:  getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
			ShutdownTimeout: getEnvAsDuration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Database: DatabaseConfig{
			Host:       getEnv("DB_HOST", "localhost"),
			Port:       getEnvAsInt("DB_PORT", 5432),
			User:       getEnv("DB_USER", "ppx"),
			Password:   getEnv("DB_PASSWORD", ""),
			DBName:     getEnv("DB_NAME", "ppx"),
			SSLMode:    getEnv("DB_SSLMODE", "disable"),
			Collection: getEnv("VECTOR_COLLECTION", "embedchain_store"),
		},
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Resources: ResourcesConfig{
			Path: getEnv("RESOURCES_DB_PATH", "./sffs/resources.db"),
		},
		OpenAI: OpenAIConfig{
			APIKey:             getEnv("OPENAI_API_KEY", ""),
			EmbeddingModel:     getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
			EmbeddingDimension: getEnvAsInt("OPENAI_EMBEDDING_DIMENSION", 1536),
			LLMModel:           getEnv("OPENAI_LLM_MODEL", "gpt-4o"),
			ClassifierModel:    getEnv("OPENAI_CLASSIFIER_MODEL", "gpt-4o-mini"),
		},
		Gemini: GeminiConfig{
			APIKey: getEnv("GEMINI_API_KEY", ""),
			Model:  getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		},
		LLM: LLMConfig{
			Provider:          getEnv("LLM_PROVIDER", "openai"),
			Temperature:       getEnvAsFloat("LLM_TEMPERATURE", 0),
			MaxTokens:         getEnvAsInt("LLM_MAX_TOKENS", 1000),
			TopP:              getEnvAsFloat("LLM_TOP_P", 1),
			RequestsPerMinute: getEnvAsInt("LLM_REQUESTS_PER_MINUTE", 500),
			ContextTokenLimit: getEnvAsInt("LLM_CONTEXT_TOKEN_LIMIT", 6000),
			Classifier:        getEnv("QUERY_CLASSIFIER", "llm"),
		},
		Chat: ChatConfig{
			SystemPrompt:        getEnv("CHAT_SYSTEM_PROMPT", ""),
			NumberDocuments:     getEnvAsInt("CHAT_NUMBER_DOCUMENTS", 5),
			HistoryRounds:       getEnvAsInt("CHAT_HISTORY_ROUNDS", 100),
			PromptHistoryRounds: getEnvAsInt("CHAT_PROMPT_HISTORY_ROUNDS", 10),
			ScanLimit:           getEnvAsInt("CHAT_SCAN_LIMIT", 100),
			IncludeContent:      getEnvAsBool("CHAT_SOURCES_INCLUDE_CONTENT", true),
		},
		Chunker: ChunkerConfig{
			ChunkSize:    getEnvAsInt("CHUNK_SIZE", 2000),
			ChunkOverlap: getEnvAsInt("CHUNK_OVERLAP", 0),
			MinChunkSize: getEnvAsInt("MIN_CHUNK_SIZE", 1),
		},
		YouTube: YouTubeConfig{
			Language:    getEnv("YOUTUBE_LANGUAGE", "en"),
			Translation: getEnv("YOUTUBE_TRANSLATION", ""),
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			ServiceName:  getEnv("OTEL_SERVICE_NAME", "ppx-backend"),
			SampleRatio:  getEnvAsFloat("OTEL_SAMPLE_RATIO", 0.1),
		},
		AdminAPIToken: getEnv("ADMIN_API_TOKEN", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate は設定値の整合性を検証します
func (c *Config) Validate() error {
	if c.AppID == "" {
		return fmt.Errorf("APP_ID is required")
	}
	if c.Chunker.ChunkSize <= 0 {
		return fmt.Errorf("CHUNK_SIZE must be positive: %d", c.Chunker.ChunkSize)
	}
	if c.Chunker.ChunkOverlap < 0 || c.Chunker.ChunkOverlap >= c.Chunker.ChunkSize {
		return fmt.Errorf("CHUNK_OVERLAP must be in [0, CHUNK_SIZE): %d", c.Chunker.ChunkOverlap)
	}
	switch c.LLM.Provider {
	case "openai", "gemini":
	default:
		return fmt.Errorf("unsupported LLM_PROVIDER: %s", c.LLM.Provider)
	}
	switch c.LLM.Classifier {
	case "llm", "heuristic":
	default:
		return fmt.Errorf("unsupported QUERY_CLASSIFIER: %s", c.LLM.Classifier)
	}
	return nil
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt は環境変数を整数として取得します
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsFloat は環境変数を浮動小数点数として取得します
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsList はカンマ区切りの環境変数をスライスとして取得します
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var values []string
	for _, v := range strings.Split(valueStr, ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return defaultValue
	}
	return values
}
