package domain

import "context"

// Role はチャットメッセージの話者
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message はLLMに渡す1メッセージ
type Message struct {
	Role    Role
	Content string
}

// ChatRequest はチャット生成リクエスト
type ChatRequest struct {
	Messages    []Message
	Temperature float64
	MaxTokens   int
	TopP        float64
}

// ChatStreamer はトークン単位でチャット応答を生成するポート
// 実装は生成したトークンを tokens に送信し、tokens は閉じない（呼び出し側が閉じる）
type ChatStreamer interface {
	StreamChat(ctx context.Context, req ChatRequest, tokens chan<- string) error
}

// CompletionRequest は単発の補完リクエスト
type CompletionRequest struct {
	Prompt         string
	Temperature    float64
	MaxTokens      int
	ResponseFormat string // "json" or ""
	Model          string
}

// CompletionResponse は単発の補完レスポンス
type CompletionResponse struct {
	Content    string
	TokensUsed int
	Model      string
}

// Completer は単発の補完を行うポート
type Completer interface {
	GenerateCompletion(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
}

// Classifier は入力文が質問かどうかを判定するポート
type Classifier interface {
	IsQuestion(ctx context.Context, text string) (bool, error)
}
