package application

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/jinford/ppx-backend/internal/module/chat/domain"
	llmdomain "github.com/jinford/ppx-backend/internal/module/llm/domain"
	searchdomain "github.com/jinford/ppx-backend/internal/module/search/domain"
	"github.com/jinford/ppx-backend/internal/shared/apperr"
)

const (
	// GeneralPrefix が付いたクエリは検索を行わずに汎用アシスタントとして回答します
	GeneralPrefix = "general:"

	// DefaultSessionID はセッションIDが指定されない場合のセッション
	DefaultSessionID = "default"

	// DefaultPromptHistoryRounds はプロンプトに含める履歴の往復数
	DefaultPromptHistoryRounds = 10

	defaultNumberDocuments = 5
	persistTimeout         = 10 * time.Second
	tokenBufferSize        = 64

	instrumentationName = "github.com/jinford/ppx-backend/internal/module/chat"
)

// 会話モード
const (
	modeMock    = "mock"
	modeGeneral = "general"
	modeRAG     = "rag"
	modeRAGOnly = "rag_only"
)

// Retriever はコンテキスト取得のポート
type Retriever interface {
	Retrieve(ctx context.Context, query string, filter searchdomain.Filter, k int) ([]searchdomain.RetrievedContext, error)
	Scan(ctx context.Context, filter searchdomain.Filter) ([]searchdomain.RetrievedContext, error)
}

// GenerationParams はLLM生成のパラメータ
type GenerationParams struct {
	Temperature float64
	MaxTokens   int
	TopP        float64
}

// Orchestrator はチャットのストリーミングパイプラインを実行します
type Orchestrator struct {
	retriever  Retriever
	classifier llmdomain.Classifier
	generator  llmdomain.ChatStreamer
	history    domain.HistoryStore
	prompts    *PromptBuilder

	appID               string
	includeContent      bool
	numberDocuments     int
	promptHistoryRounds int
	generation          GenerationParams

	log      *slog.Logger
	tracer   trace.Tracer
	turns    metric.Int64Counter
	failures metric.Int64Counter
}

// OrchestratorOption はOrchestratorの設定オプション
type OrchestratorOption func(*Orchestrator)

// WithLogger はロガーを設定します
func WithLogger(log *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		o.log = log
	}
}

// WithIncludeContent は sources ブロックにチャンク本文を含めるかを設定します
func WithIncludeContent(include bool) OrchestratorOption {
	return func(o *Orchestrator) {
		o.includeContent = include
	}
}

// WithNumberDocuments は検索件数の既定値を設定します
func WithNumberDocuments(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		if n > 0 {
			o.numberDocuments = n
		}
	}
}

// WithPromptHistoryRounds はプロンプトに含める履歴の往復数を設定します（0で履歴なし）
func WithPromptHistoryRounds(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		if n >= 0 {
			o.promptHistoryRounds = n
		}
	}
}

// WithGenerationParams はLLM生成のパラメータを設定します
func WithGenerationParams(p GenerationParams) OrchestratorOption {
	return func(o *Orchestrator) {
		o.generation = p
	}
}

// WithMeterProvider はメトリクスの出力先を設定します
func WithMeterProvider(mp metric.MeterProvider) OrchestratorOption {
	return func(o *Orchestrator) {
		o.initMetrics(mp.Meter(instrumentationName))
	}
}

// NewOrchestrator は新しいOrchestratorを作成します
func NewOrchestrator(
	retriever Retriever,
	classifier llmdomain.Classifier,
	generator llmdomain.ChatStreamer,
	history domain.HistoryStore,
	prompts *PromptBuilder,
	appID string,
	opts ...OrchestratorOption,
) *Orchestrator {
	o := &Orchestrator{
		retriever:           retriever,
		classifier:          classifier,
		generator:           generator,
		history:             history,
		prompts:             prompts,
		appID:               appID,
		includeContent:      true,
		numberDocuments:     defaultNumberDocuments,
		promptHistoryRounds: DefaultPromptHistoryRounds,
		log:                 slog.Default(),
		tracer:              otel.Tracer(instrumentationName),
	}
	o.initMetrics(otel.Meter(instrumentationName))

	for _, opt := range opts {
		opt(o)
	}

	if o.log == nil {
		o.log = slog.Default()
	}

	return o
}

func (o *Orchestrator) initMetrics(meter metric.Meter) {
	var err error
	if o.turns, err = meter.Int64Counter("chat.turns",
		metric.WithDescription("Number of chat turns by mode")); err != nil {
		otel.Handle(err)
	}
	if o.failures, err = meter.Int64Counter("chat.generation.failures",
		metric.WithDescription("Number of chat generations that ended with an error")); err != nil {
		otel.Handle(err)
	}
}

// turn は1回の会話ターンの実行内容
type turn struct {
	sessionID string
	query     string
	sources   string
	mode      string
	produce   func(ctx context.Context, tokens chan<- string) error
}

// Chat はクエリに対する応答をチャネルで返します
// 最初のチャンクは常に sources ブロックです。ストリーム開始前のエラー（検索の失敗や分類の不一致）は同期的に返します
func (o *Orchestrator) Chat(ctx context.Context, req domain.ChatRequest) (<-chan string, error) {
	if req.Mock {
		o.countTurn(ctx, modeMock)
		return mockStream(), nil
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = DefaultSessionID
	}

	ctx, span := o.tracer.Start(ctx, "chat.Chat", trace.WithAttributes(
		attribute.String("chat.session_id", sessionID),
		attribute.Bool("chat.rag_only", req.RAGOnly),
	))

	t, err := o.prepare(ctx, req, sessionID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.End()
		return nil, err
	}

	span.SetAttributes(attribute.String("chat.mode", t.mode))
	o.countTurn(ctx, t.mode)

	return o.run(ctx, span, t), nil
}

// prepare は分類・検索・メッセージ組み立てを行います
func (o *Orchestrator) prepare(ctx context.Context, req domain.ChatRequest, sessionID string) (*turn, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, apperr.Validation("query is required")
	}

	if isGeneral(query) {
		t := &turn{
			sessionID: sessionID,
			query:     req.Query,
			sources:   EmptySources,
			mode:      modeGeneral,
		}
		// rag_only では生成を呼ばず、空の回答として記録する
		if req.RAGOnly {
			t.mode = modeRAGOnly
			t.produce = func(context.Context, chan<- string) error { return nil }
			return t, nil
		}

		stripped := strings.TrimSpace(query[len(GeneralPrefix):])
		messages := []llmdomain.Message{
			{Role: llmdomain.RoleSystem, Content: GeneralPersonaPrompt},
			{Role: llmdomain.RoleUser, Content: stripped},
		}
		t.produce = o.generate(messages)
		return t, nil
	}

	isQuestion, err := o.classifier.IsQuestion(ctx, query)
	if err != nil {
		return nil, apperr.Upstream("classify query", err)
	}
	if req.RAGOnly && !isQuestion {
		return nil, apperr.ClassificationConflict(query)
	}

	filter := searchdomain.Filter{AppID: o.appID, ResourceIDs: req.ResourceIDs}

	var contexts []searchdomain.RetrievedContext
	if isQuestion {
		k := req.NumberDocuments
		if k <= 0 {
			k = o.numberDocuments
		}
		contexts, err = o.retriever.Retrieve(ctx, query, filter, k)
	} else {
		contexts, err = o.retriever.Scan(ctx, filter)
	}
	if err != nil {
		return nil, err
	}

	t := &turn{
		sessionID: sessionID,
		query:     req.Query,
		sources:   AssembleSources(contexts, o.includeContent),
	}

	if req.RAGOnly {
		rendered := RenderContexts(contexts)
		t.mode = modeRAGOnly
		t.produce = func(_ context.Context, tokens chan<- string) error {
			if rendered != "" {
				tokens <- rendered
			}
			return nil
		}
		return t, nil
	}

	history := o.loadHistory(ctx, sessionID)
	t.mode = modeRAG
	t.produce = o.generate(o.prompts.AssembleMessages(query, contexts, req.SystemPrompt, history))
	return t, nil
}

// generate はLLMでトークンを生成する producer を返します
func (o *Orchestrator) generate(messages []llmdomain.Message) func(ctx context.Context, tokens chan<- string) error {
	return func(ctx context.Context, tokens chan<- string) error {
		return o.generator.StreamChat(ctx, llmdomain.ChatRequest{
			Messages:    messages,
			Temperature: o.generation.Temperature,
			MaxTokens:   o.generation.MaxTokens,
			TopP:        o.generation.TopP,
		}, tokens)
	}
}

// run は sources ブロックを送信した後、producer のトークンを転送し、最後に履歴を保存します
// 生成と保存はリクエストのキャンセルから切り離されたコンテキストで実行されます
func (o *Orchestrator) run(ctx context.Context, span trace.Span, t *turn) <-chan string {
	out := make(chan string)
	detached := context.WithoutCancel(ctx)

	go func() {
		defer span.End()
		defer close(out)

		var answer strings.Builder
		defer func() {
			o.persist(detached, t, answer.String())
		}()

		connected := o.send(ctx, out, t.sources)

		tokens := make(chan string, tokenBufferSize)
		errc := make(chan error, 1)
		go func() {
			defer close(tokens)
			errc <- t.produce(detached, tokens)
		}()

		for token := range tokens {
			answer.WriteString(token)
			if connected {
				connected = o.send(ctx, out, token)
			}
		}

		if err := <-errc; err != nil {
			o.log.Error("Chat generation failed",
				"sessionID", t.sessionID,
				"mode", t.mode,
				"answerLength", answer.Len(),
				"error", err,
			)
			span.RecordError(err)
			span.SetStatus(codes.Error, "generation failed")
			if o.failures != nil {
				o.failures.Add(detached, 1, metric.WithAttributes(attribute.String("chat.mode", t.mode)))
			}
		}

		if !connected {
			o.log.Info("Client disconnected before the stream ended", "sessionID", t.sessionID)
		}
	}()

	return out
}

// send はクライアントへチャンクを送信します。クライアントが切断済みなら false を返します
func (o *Orchestrator) send(ctx context.Context, out chan<- string, chunk string) bool {
	select {
	case out <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}

// persist は会話ターンを履歴に保存します。失敗はログに記録します
func (o *Orchestrator) persist(ctx context.Context, t *turn, answer string) {
	ctx, cancel := context.WithTimeout(ctx, persistTimeout)
	defer cancel()

	err := o.history.Append(ctx, domain.ConversationTurn{
		ID:               uuid.NewString(),
		AppID:            o.appID,
		SessionID:        t.sessionID,
		UserMessage:      t.query,
		AssistantMessage: t.sources + answer,
		CreatedAt:        time.Now().UTC(),
	})
	if err != nil {
		o.log.Error("Failed to persist chat turn",
			"sessionID", t.sessionID,
			"error", err,
		)
	}
}

func (o *Orchestrator) loadHistory(ctx context.Context, sessionID string) []domain.ConversationTurn {
	if o.promptHistoryRounds == 0 {
		return nil
	}
	history, err := o.history.ListBySession(ctx, o.appID, sessionID, o.promptHistoryRounds)
	if err != nil {
		o.log.Warn("Failed to load chat history",
			"sessionID", sessionID,
			"error", err,
		)
		return nil
	}
	return history
}

func (o *Orchestrator) countTurn(ctx context.Context, mode string) {
	if o.turns != nil {
		o.turns.Add(ctx, 1, metric.WithAttributes(attribute.String("chat.mode", mode)))
	}
}

func isGeneral(query string) bool {
	return len(query) >= len(GeneralPrefix) && strings.EqualFold(query[:len(GeneralPrefix)], GeneralPrefix)
}
