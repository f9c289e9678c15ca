package container

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"

	chatredis "github.com/jinford/ppx-backend/internal/module/chat/adapter/redis"
	chatapp "github.com/jinford/ppx-backend/internal/module/chat/application"
	"github.com/jinford/ppx-backend/internal/module/indexing/adapter/chunker"
	"github.com/jinford/ppx-backend/internal/module/indexing/adapter/loader"
	"github.com/jinford/ppx-backend/internal/module/indexing/adapter/youtube"
	indexingapp "github.com/jinford/ppx-backend/internal/module/indexing/application"
	indexingdomain "github.com/jinford/ppx-backend/internal/module/indexing/domain"
	llmadapter "github.com/jinford/ppx-backend/internal/module/llm/adapter"
	llmdomain "github.com/jinford/ppx-backend/internal/module/llm/domain"
	resourcesqlite "github.com/jinford/ppx-backend/internal/module/resource/adapter/sqlite"
	resourceapp "github.com/jinford/ppx-backend/internal/module/resource/application"
	"github.com/jinford/ppx-backend/internal/module/search/adapter/pg"
	searchapp "github.com/jinford/ppx-backend/internal/module/search/application"
	topicsapp "github.com/jinford/ppx-backend/internal/module/topics/application"
	"github.com/jinford/ppx-backend/internal/platform/config"
	"github.com/jinford/ppx-backend/internal/platform/database"
	"github.com/jinford/ppx-backend/internal/platform/redisclient"
	"github.com/jinford/ppx-backend/internal/platform/sqlitedb"
)

// Container はアプリケーション全体の依存関係を保持します
type Container struct {
	Config *config.Config
	Logger *slog.Logger

	Database    *database.Database
	Redis       *redis.Client
	ResourcesDB *sql.DB

	VectorStore *pg.VectorStore
	Embedder    *llmadapter.OpenAIEmbedder

	Orchestrator    *chatapp.Orchestrator
	HistoryService  *chatapp.HistoryService
	ResourceService *resourceapp.Service
	ResourceQuery   *searchapp.ResourceQueryService
	Similarity      *searchapp.SimilarityService
	Transcripts     *youtube.Loader
	IndexService    *indexingapp.IndexService
	SourceService   *indexingapp.SourceService
	TopicService    *topicsapp.Service

	closers []func() error
}

type options struct {
	logger     *slog.Logger
	httpClient *http.Client
	generator  llmdomain.ChatStreamer
	classifier llmdomain.Classifier
}

// Option は Container 構築時のオプション
type Option func(*options)

// WithLogger はロガーを差し替えます
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithHTTPClient はローダーと字幕取得で使うHTTPクライアントを差し替えます
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithChatStreamer は回答生成に使うLLMを差し替えます
func WithChatStreamer(generator llmdomain.ChatStreamer) Option {
	return func(o *options) {
		o.generator = generator
	}
}

// WithClassifier は質問判定の分類器を差し替えます
func WithClassifier(classifier llmdomain.Classifier) Option {
	return func(o *options) {
		o.classifier = classifier
	}
}

// New は設定から接続を確立し、コンテナを生成します
// 途中で失敗した場合はそれまでに開いた接続を閉じます
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Container, error) {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	c := &Container{Config: cfg, Logger: o.logger}
	if err := c.openStores(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	if err := c.buildServices(ctx, o); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Container) openStores(ctx context.Context) error {
	cfg := c.Config

	db, err := database.New(ctx, database.ConnectionParams{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.Database = db
	c.closers = append(c.closers, func() error {
		db.Close()
		return nil
	})

	if err := db.EnsureSchema(ctx, cfg.OpenAI.EmbeddingDimension); err != nil {
		return fmt.Errorf("failed to ensure vector store schema: %w", err)
	}

	rdb, err := redisclient.New(ctx, redisclient.Params{
		URL:      cfg.Redis.URL,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize redis: %w", err)
	}
	c.Redis = rdb
	c.closers = append(c.closers, rdb.Close)

	resourcesDB, err := sqlitedb.Open(ctx, cfg.Resources.Path, true)
	if err != nil {
		return fmt.Errorf("failed to open resources database: %w", err)
	}
	c.ResourcesDB = resourcesDB
	c.closers = append(c.closers, resourcesDB.Close)

	return nil
}

func (c *Container) buildServices(ctx context.Context, o options) error {
	cfg := c.Config
	log := c.Logger

	guard := llmadapter.NewGuard("openai", cfg.LLM.RequestsPerMinute, log)

	embedder, err := llmadapter.NewOpenAIEmbedder(
		cfg.OpenAI.APIKey,
		cfg.OpenAI.EmbeddingModel,
		cfg.OpenAI.EmbeddingDimension,
		llmadapter.WithGuard(guard),
	)
	if err != nil {
		return fmt.Errorf("failed to initialize embedder: %w", err)
	}
	c.Embedder = embedder

	generator := o.generator
	if generator == nil {
		if generator, err = c.newGenerator(ctx, guard); err != nil {
			return err
		}
	}

	classifier := o.classifier
	if classifier == nil {
		if classifier, err = c.newClassifier(guard); err != nil {
			return err
		}
	}

	counter, err := llmadapter.NewTokenCounter()
	if err != nil {
		return fmt.Errorf("failed to initialize token counter: %w", err)
	}

	// 検索
	c.VectorStore = pg.NewVectorStore(c.Database.Pool)
	retriever := searchapp.NewRetriever(c.VectorStore, embedder, cfg.Database.Collection,
		searchapp.WithScanLimit(cfg.Chat.ScanLimit),
		searchapp.WithRetrieverLogger(log),
	)
	c.ResourceQuery = searchapp.NewResourceQueryService(retriever, cfg.AppID)
	c.Similarity = searchapp.NewSimilarityService(embedder)

	// チャット
	history := chatredis.NewHistoryStore(c.Redis)
	prompts := chatapp.NewPromptBuilder(cfg.Chat.SystemPrompt, counter, cfg.LLM.ContextTokenLimit)
	c.Orchestrator = chatapp.NewOrchestrator(retriever, classifier, generator, history, prompts, cfg.AppID,
		chatapp.WithLogger(log),
		chatapp.WithIncludeContent(cfg.Chat.IncludeContent),
		chatapp.WithNumberDocuments(cfg.Chat.NumberDocuments),
		chatapp.WithPromptHistoryRounds(cfg.Chat.PromptHistoryRounds),
		chatapp.WithGenerationParams(chatapp.GenerationParams{
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
			TopP:        cfg.LLM.TopP,
		}),
	)
	c.HistoryService = chatapp.NewHistoryService(history, cfg.AppID, cfg.Chat.HistoryRounds, log)

	// リソース
	c.ResourceService = resourceapp.NewService(resourcesqlite.NewRepository(c.ResourcesDB), log)

	// インデックス
	ytOpts := []youtube.ClientOption{youtube.WithLogger(log)}
	if o.httpClient != nil {
		ytOpts = append(ytOpts, youtube.WithHTTPClient(o.httpClient))
	}
	ytClient := youtube.NewClient(ytOpts...)
	c.Transcripts = youtube.NewLoader(ytClient,
		youtube.WithLanguages(cfg.YouTube.Language),
		youtube.WithTranslation(cfg.YouTube.Translation),
		youtube.WithLoaderLogger(log),
	)

	loaders := loader.NewRegistry().
		Register(indexingdomain.DataTypeText, loader.NewTextLoader()).
		Register(indexingdomain.DataTypeWebPage, loader.NewWebPageLoader(o.httpClient)).
		Register(indexingdomain.DataTypePDFFile, loader.NewPDFLoader(o.httpClient)).
		Register(indexingdomain.DataTypeExcelFile, loader.NewExcelLoader(o.httpClient)).
		Register(indexingdomain.DataTypeYouTubeVideo, c.Transcripts)

	c.IndexService = indexingapp.NewIndexService(
		loaders,
		chunker.NewChunker(cfg.Chunker.ChunkSize, cfg.Chunker.ChunkOverlap),
		embedder,
		c.VectorStore,
		indexingapp.IndexServiceConfig{
			AppID:        cfg.AppID,
			Collection:   cfg.Database.Collection,
			MinChunkSize: cfg.Chunker.MinChunkSize,
		},
		log,
	)
	c.SourceService = indexingapp.NewSourceService(c.VectorStore, c.IndexService, cfg.AppID, cfg.Database.Collection, log)

	// トピック
	c.TopicService = topicsapp.NewService(c.VectorStore, log)

	return nil
}

// newGenerator は設定されたプロバイダーの回答生成クライアントを作成します
func (c *Container) newGenerator(ctx context.Context, openaiGuard *llmadapter.Guard) (llmdomain.ChatStreamer, error) {
	cfg := c.Config

	switch cfg.LLM.Provider {
	case "gemini":
		guard := llmadapter.NewGuard("gemini", cfg.LLM.RequestsPerMinute, c.Logger)
		client, err := llmadapter.NewGeminiClient(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, guard)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize gemini client: %w", err)
		}
		c.closers = append(c.closers, client.Close)
		return client, nil
	default:
		client, err := llmadapter.NewOpenAIClient(cfg.OpenAI.APIKey, cfg.OpenAI.LLMModel, llmadapter.WithGuard(openaiGuard))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize openai client: %w", err)
		}
		return client, nil
	}
}

// newClassifier は設定に応じた質問判定の分類器を作成します
func (c *Container) newClassifier(guard *llmadapter.Guard) (llmdomain.Classifier, error) {
	cfg := c.Config

	if cfg.LLM.Classifier == "heuristic" {
		return llmadapter.NewHeuristicClassifier(), nil
	}

	completer, err := llmadapter.NewOpenAIClient(cfg.OpenAI.APIKey, cfg.OpenAI.ClassifierModel, llmadapter.WithGuard(guard))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize classifier client: %w", err)
	}
	return llmadapter.NewLLMClassifier(completer, cfg.OpenAI.ClassifierModel, c.Logger), nil
}

// Close は内部リソースを開いた順と逆順に解放します
func (c *Container) Close() error {
	if c == nil {
		return nil
	}
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
