package adapter

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/jinford/ppx-backend/internal/module/llm/domain"
)

// DefaultGeminiModel はデフォルトで使用するGeminiモデル
const DefaultGeminiModel = "gemini-2.0-flash"

// GeminiClient はGemini APIを使用したストリーミング生成クライアント
type GeminiClient struct {
	client *genai.Client
	model  string
	guard  *Guard
}

// NewGeminiClient はAPIキーとモデルを指定してGeminiClientを作成する
func NewGeminiClient(ctx context.Context, apiKey, model string, guard *Guard) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	if guard == nil {
		guard = NewGuard("gemini", 0, nil)
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiClient{
		client: client,
		model:  model,
		guard:  guard,
	}, nil
}

// StreamChat はストリーミングで応答を生成し、テキストパートを tokens に送信する
func (g *GeminiClient) StreamChat(ctx context.Context, req domain.ChatRequest, tokens chan<- string) error {
	model := g.client.GenerativeModel(g.model)
	model.SetTemperature(float32(req.Temperature))
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	if req.TopP > 0 {
		model.SetTopP(float32(req.TopP))
	}

	system, parts := toGeminiParts(req.Messages)
	if system != nil {
		model.SystemInstruction = system
	}
	if len(parts) == 0 {
		return fmt.Errorf("gemini: no user content")
	}

	return g.guard.Do(ctx, "stream_chat", func(ctx context.Context) error {
		iter := model.GenerateContentStream(ctx, parts...)
		for {
			resp, err := iter.Next()
			if errors.Is(err, iterator.Done) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("gemini streaming failed: %w", err)
			}

			for _, cand := range resp.Candidates {
				if cand.Content == nil {
					continue
				}
				for _, part := range cand.Content.Parts {
					text, ok := part.(genai.Text)
					if !ok || text == "" {
						continue
					}
					select {
					case tokens <- string(text):
					case <-ctx.Done():
						return ctx.Err()
					}
				}
			}
		}
	})
}

// Close はクライアントを閉じる
func (g *GeminiClient) Close() error {
	return g.client.Close()
}

// toGeminiParts はシステムメッセージを SystemInstruction に、それ以外をテキストパートに変換する
func toGeminiParts(messages []domain.Message) (*genai.Content, []genai.Part) {
	var system *genai.Content
	var parts []genai.Part
	for _, m := range messages {
		if m.Role == domain.RoleSystem {
			if system == nil {
				system = &genai.Content{}
			}
			system.Parts = append(system.Parts, genai.Text(m.Content))
			continue
		}
		parts = append(parts, genai.Text(m.Content))
	}
	return system, parts
}

var _ domain.ChatStreamer = (*GeminiClient)(nil)
