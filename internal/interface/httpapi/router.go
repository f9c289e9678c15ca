package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	chatdomain "github.com/jinford/ppx-backend/internal/module/chat/domain"
	indexingapp "github.com/jinford/ppx-backend/internal/module/indexing/application"
	indexingdomain "github.com/jinford/ppx-backend/internal/module/indexing/domain"
	resourcedomain "github.com/jinford/ppx-backend/internal/module/resource/domain"
	searchapp "github.com/jinford/ppx-backend/internal/module/search/application"
	searchdomain "github.com/jinford/ppx-backend/internal/module/search/domain"
	topicsapp "github.com/jinford/ppx-backend/internal/module/topics/application"
	topicsdomain "github.com/jinford/ppx-backend/internal/module/topics/domain"
)

// ChatService はチャットのストリーミング応答を返すポート
type ChatService interface {
	Chat(ctx context.Context, req chatdomain.ChatRequest) (<-chan string, error)
}

// QueryEmbedder はテキストの埋め込みを返すポート
type QueryEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ResourceService はリソース参照のポート
type ResourceService interface {
	Get(ctx context.Context, id string) (*resourcedomain.Resource, error)
}

// ResourceQueryService は関連リソース検索のポート
type ResourceQueryService interface {
	RelevantResources(ctx context.Context, query string, resourceIDs []string) ([]string, error)
}

// SimilarityService はドキュメント類似度のポート
type SimilarityService interface {
	DocsSimilarity(ctx context.Context, query string, docs []string, threshold float64) ([]searchapp.DocSimilarity, error)
}

// TranscriptLoader は動画の字幕を読み込むポート
type TranscriptLoader interface {
	Load(ctx context.Context, url string) (*indexingdomain.LoadResult, error)
}

// TopicService はトピック抽出のポート
type TopicService interface {
	LDA(ctx context.Context, collection string, params topicsapp.LDAParams) (*topicsdomain.LDAResult, error)
	Clusters(ctx context.Context, collection string, params topicsapp.ClusterParams) ([]topicsdomain.DocumentTopic, error)
}

// HistoryService はチャット履歴の管理ビューのポート
type HistoryService interface {
	ListAll(ctx context.Context) ([]chatdomain.ConversationTurn, error)
	SessionHistory(ctx context.Context, sessionID string) (*chatdomain.SessionHistory, error)
}

// SourceService はデータソース管理のポート
type SourceService interface {
	ListSources(ctx context.Context) ([]searchdomain.DataSource, error)
	GetSource(ctx context.Context, hash string) (*indexingapp.SourceContent, error)
	AddSource(ctx context.Context, params indexingapp.AddSourceParams) (*indexingapp.IndexResult, error)
	DeleteSource(ctx context.Context, resourceID, collection string) (int, error)
}

// Dependencies はルーターが必要とするサービス群
type Dependencies struct {
	Chat          ChatService
	Embedder      QueryEmbedder
	Resources     ResourceService
	ResourceQuery ResourceQueryService
	Similarity    SimilarityService
	Transcripts   TranscriptLoader
	Collections   searchdomain.CollectionReader
	Topics        TopicService
	History       HistoryService
	Sources       SourceService

	AllowedOrigins []string
	AdminToken     string
	Logger         *slog.Logger
}

// Handler はHTTPハンドラ群
type Handler struct {
	deps Dependencies
	log  *slog.Logger
}

// NewRouter はアプリケーションのルーターを作成します
func NewRouter(deps Dependencies) http.Handler {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	h := &Handler{deps: deps, log: log}

	allowedOrigins := deps.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", h.health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/chat", h.chat)
		r.Post("/embeddings", h.embeddings)
		r.Get("/resources/{resourceID}", h.getResource)
		r.Post("/resources/query", h.queryResources)
		r.Post("/docs_similarity", h.docsSimilarity)
		r.Get("/transcripts/youtube", h.youtubeTranscript)

		r.Route("/admin", func(r chi.Router) {
			r.Use(adminAuth(deps.AdminToken))

			r.Get("/collections", h.listCollections)
			r.Get("/collections/{name}", h.getCollection)
			r.Get("/collections/{name}/topics/bertopic", h.clusterTopics)
			r.Get("/collections/{name}/topics/lda", h.ldaTopics)

			r.Get("/chat_history", h.listChatHistory)
			r.Get("/chat_history/{sessionID}", h.getChatHistory)

			r.Get("/data_sources", h.listDataSources)
			r.Get("/data_sources/{hash}", h.getDataSource)
			r.Post("/data_sources", h.addDataSource)
			r.Delete("/data_sources", h.deleteDataSource)
		})
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
