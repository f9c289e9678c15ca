package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/jinford/ppx-backend/internal/module/llm/domain"
)

const (
	// DefaultModel はデフォルトで使用するOpenAIモデル
	DefaultModel = "gpt-4o"

	// DefaultTimeout は単発API呼び出しのデフォルトタイムアウト
	DefaultTimeout = 60 * time.Second

	// DefaultStreamTimeout はストリーミング生成全体のタイムアウト
	DefaultStreamTimeout = 5 * time.Minute

	// MaxRetries はレート制限エラー時の最大リトライ回数
	MaxRetries = 3

	// BaseBackoff はExponential Backoffの基底時間
	BaseBackoff = 2 * time.Second

	// MaxBackoff はExponential Backoffの最大待機時間
	MaxBackoff = 32 * time.Second

	// JSONParseMaxRetries はJSON解析エラー時の最大リトライ回数
	JSONParseMaxRetries = 1
)

// ErrAPIKeyNotSet はAPIキーが設定されていない場合のエラー
var ErrAPIKeyNotSet = domain.ErrAPIKeyNotSet

// OpenAIClient はOpenAI APIを使用したLLMクライアント実装
type OpenAIClient struct {
	client        openai.Client
	model         string
	timeout       time.Duration
	streamTimeout time.Duration
	baseBackoff   time.Duration
	guard         *Guard
}

// ClientOption は OpenAIClient / OpenAIEmbedder のオプション
type ClientOption func(*clientOptions)

type clientOptions struct {
	baseURL     string
	guard       *Guard
	baseBackoff time.Duration
}

// WithBaseURL はAPIのベースURLを差し替える（テストやプロキシ用）
func WithBaseURL(baseURL string) ClientOption {
	return func(o *clientOptions) {
		o.baseURL = baseURL
	}
}

// WithGuard はレート制限とサーキットブレーカーを設定する
func WithGuard(g *Guard) ClientOption {
	return func(o *clientOptions) {
		o.guard = g
	}
}

// WithBaseBackoff はリトライ時の基底待機時間を差し替える
func WithBaseBackoff(d time.Duration) ClientOption {
	return func(o *clientOptions) {
		o.baseBackoff = d
	}
}

func buildClientOptions(opts []ClientOption) clientOptions {
	o := clientOptions{baseBackoff: BaseBackoff}
	for _, opt := range opts {
		opt(&o)
	}
	if o.guard == nil {
		o.guard = NewGuard("openai", 0, nil)
	}
	return o
}

func newSDKClient(apiKey string, o clientOptions) openai.Client {
	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		// リトライは generateWithRetry で行う
		option.WithMaxRetries(0),
	}
	if o.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(o.baseURL))
	}
	return openai.NewClient(reqOpts...)
}

// NewOpenAIClient はAPIキーとモデルを指定してOpenAIClientを作成する
func NewOpenAIClient(apiKey, model string, opts ...ClientOption) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}

	if model == "" {
		model = DefaultModel
	}

	o := buildClientOptions(opts)

	return &OpenAIClient{
		client:        newSDKClient(apiKey, o),
		model:         model,
		timeout:       DefaultTimeout,
		streamTimeout: DefaultStreamTimeout,
		baseBackoff:   o.baseBackoff,
		guard:         o.guard,
	}, nil
}

// SetTimeout はAPIコールのタイムアウトを設定する
func (c *OpenAIClient) SetTimeout(timeout time.Duration) {
	c.timeout = timeout
}

// GetModelName はモデル名を返す
func (c *OpenAIClient) GetModelName() string {
	return c.model
}

// StreamChat はストリーミングでチャット応答を生成し、差分トークンを tokens に送信する
func (c *OpenAIClient) StreamChat(ctx context.Context, req domain.ChatRequest, tokens chan<- string) error {
	ctx, cancel := context.WithTimeout(ctx, c.streamTimeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(c.model),
		Messages:    toOpenAIMessages(req.Messages),
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.TopP > 0 {
		params.TopP = openai.Float(req.TopP)
	}

	return c.guard.Do(ctx, "stream_chat", func(ctx context.Context) error {
		stream := c.client.Chat.Completions.NewStreaming(ctx, params)
		defer stream.Close()

		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			delta := chunk.Choices[0].Delta.Content
			if delta == "" {
				continue
			}
			select {
			case tokens <- delta:
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if err := stream.Err(); err != nil {
			return fmt.Errorf("OpenAI streaming failed: %w", err)
		}
		return nil
	})
}

// GenerateCompletion はOpenAI APIを使用してテキストを生成する
func (c *OpenAIClient) GenerateCompletion(ctx context.Context, req domain.CompletionRequest) (domain.CompletionResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	model := c.model
	if req.Model != "" {
		model = req.Model
	}

	var jsonParseRetries int
	for {
		resp, err := c.generateWithRetry(ctx, model, req)
		if err != nil {
			return domain.CompletionResponse{}, err
		}

		// JSON形式が要求されている場合は妥当性を検証
		if req.ResponseFormat == "json" && !isValidJSON(resp.Content) {
			jsonParseRetries++
			if jsonParseRetries > JSONParseMaxRetries {
				return domain.CompletionResponse{}, fmt.Errorf("JSON parse failed after %d retries", JSONParseMaxRetries)
			}
			continue
		}

		return resp, nil
	}
}

// generateWithRetry はレート制限エラー時にExponential Backoffでリトライする
func (c *OpenAIClient) generateWithRetry(ctx context.Context, model string, req domain.CompletionRequest) (domain.CompletionResponse, error) {
	var lastErr error

	for attempt := 0; attempt <= MaxRetries; attempt++ {
		if attempt > 0 {
			backoffDuration := time.Duration(math.Pow(2, float64(attempt-1))) * c.baseBackoff
			if backoffDuration > MaxBackoff {
				backoffDuration = MaxBackoff
			}

			select {
			case <-ctx.Done():
				return domain.CompletionResponse{}, ctx.Err()
			case <-time.After(backoffDuration):
			}
		}

		params := openai.ChatCompletionNewParams{
			Model: shared.ChatModel(model),
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.UserMessage(req.Prompt),
			},
			Temperature: openai.Float(req.Temperature),
		}
		if req.MaxTokens > 0 {
			params.MaxTokens = openai.Int(int64(req.MaxTokens))
		}
		if req.ResponseFormat == "json" {
			params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
				OfJSONObject: &shared.ResponseFormatJSONObjectParam{
					Type: "json_object",
				},
			}
		}

		var completion *openai.ChatCompletion
		err := c.guard.Do(ctx, "completion", func(ctx context.Context) error {
			var callErr error
			completion, callErr = c.client.Chat.Completions.New(ctx, params)
			return callErr
		})
		if err != nil {
			lastErr = err
			if isRateLimitError(err) {
				continue
			}
			return domain.CompletionResponse{}, fmt.Errorf("OpenAI API call failed: %w", err)
		}

		if len(completion.Choices) == 0 {
			return domain.CompletionResponse{}, domain.ErrEmptyResponse
		}

		return domain.CompletionResponse{
			Content:    completion.Choices[0].Message.Content,
			TokensUsed: int(completion.Usage.TotalTokens),
			Model:      string(completion.Model),
		}, nil
	}

	return domain.CompletionResponse{}, fmt.Errorf("%w: %v", domain.ErrMaxRetriesExceeded, lastErr)
}

func toOpenAIMessages(messages []domain.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case domain.RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case domain.RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

// isRateLimitError はエラーがレート制限エラーかどうかを判定する
func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}

	return false
}

// isValidJSON は文字列が有効なJSONかどうかを判定する
func isValidJSON(s string) bool {
	var js json.RawMessage
	return json.Unmarshal([]byte(s), &js) == nil
}

var (
	_ domain.ChatStreamer = (*OpenAIClient)(nil)
	_ domain.Completer    = (*OpenAIClient)(nil)
)
