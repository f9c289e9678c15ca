package testing

import (
	"context"
	"sync"

	"github.com/jinford/ppx-backend/internal/module/chat/domain"
	llmdomain "github.com/jinford/ppx-backend/internal/module/llm/domain"
	searchdomain "github.com/jinford/ppx-backend/internal/module/search/domain"
)

// MockHistoryStore はテスト用のインメモリHistoryStoreです
// AppendFunc などが未設定の場合は内部のスライスに記録します
type MockHistoryStore struct {
	AppendFunc        func(ctx context.Context, turn domain.ConversationTurn) error
	ListBySessionFunc func(ctx context.Context, appID, sessionID string, rounds int) ([]domain.ConversationTurn, error)
	ListByAppFunc     func(ctx context.Context, appID string, rounds int) ([]domain.ConversationTurn, error)

	mu    sync.Mutex
	turns []domain.ConversationTurn
}

var _ domain.HistoryStore = (*MockHistoryStore)(nil)

func (m *MockHistoryStore) Append(ctx context.Context, turn domain.ConversationTurn) error {
	if m.AppendFunc != nil {
		return m.AppendFunc(ctx, turn)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = append(m.turns, turn)
	return nil
}

func (m *MockHistoryStore) ListBySession(ctx context.Context, appID, sessionID string, rounds int) ([]domain.ConversationTurn, error) {
	if m.ListBySessionFunc != nil {
		return m.ListBySessionFunc(ctx, appID, sessionID, rounds)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []domain.ConversationTurn
	for _, t := range m.turns {
		if t.AppID == appID && t.SessionID == sessionID {
			result = append(result, t)
		}
	}
	if rounds > 0 && len(result) > rounds {
		result = result[len(result)-rounds:]
	}
	return result, nil
}

func (m *MockHistoryStore) ListByApp(ctx context.Context, appID string, rounds int) ([]domain.ConversationTurn, error) {
	if m.ListByAppFunc != nil {
		return m.ListByAppFunc(ctx, appID, rounds)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []domain.ConversationTurn
	for _, t := range m.turns {
		if t.AppID == appID {
			result = append(result, t)
		}
	}
	return result, nil
}

// Turns は記録された会話ターンのコピーを返します
func (m *MockHistoryStore) Turns() []domain.ConversationTurn {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.ConversationTurn(nil), m.turns...)
}

// MockClassifier はテスト用のモックClassifierです
type MockClassifier struct {
	IsQuestionFunc func(ctx context.Context, text string) (bool, error)
}

var _ llmdomain.Classifier = (*MockClassifier)(nil)

func (m *MockClassifier) IsQuestion(ctx context.Context, text string) (bool, error) {
	if m.IsQuestionFunc != nil {
		return m.IsQuestionFunc(ctx, text)
	}
	return true, nil
}

// MockChatStreamer はテスト用のモックChatStreamerです
// StreamChatFunc が未設定の場合は Tokens を順に送信します
type MockChatStreamer struct {
	StreamChatFunc func(ctx context.Context, req llmdomain.ChatRequest, tokens chan<- string) error
	Tokens         []string

	mu       sync.Mutex
	requests []llmdomain.ChatRequest
}

var _ llmdomain.ChatStreamer = (*MockChatStreamer)(nil)

func (m *MockChatStreamer) StreamChat(ctx context.Context, req llmdomain.ChatRequest, tokens chan<- string) error {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.StreamChatFunc != nil {
		return m.StreamChatFunc(ctx, req, tokens)
	}
	for _, token := range m.Tokens {
		tokens <- token
	}
	return nil
}

// Requests は受け取ったリクエストのコピーを返します
func (m *MockChatStreamer) Requests() []llmdomain.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]llmdomain.ChatRequest(nil), m.requests...)
}

// MockRetriever はテスト用のモックRetrieverです
type MockRetriever struct {
	RetrieveFunc func(ctx context.Context, query string, filter searchdomain.Filter, k int) ([]searchdomain.RetrievedContext, error)
	ScanFunc     func(ctx context.Context, filter searchdomain.Filter) ([]searchdomain.RetrievedContext, error)
}

func (m *MockRetriever) Retrieve(ctx context.Context, query string, filter searchdomain.Filter, k int) ([]searchdomain.RetrievedContext, error) {
	if m.RetrieveFunc != nil {
		return m.RetrieveFunc(ctx, query, filter, k)
	}
	return nil, nil
}

func (m *MockRetriever) Scan(ctx context.Context, filter searchdomain.Filter) ([]searchdomain.RetrievedContext, error) {
	if m.ScanFunc != nil {
		return m.ScanFunc(ctx, filter)
	}
	return nil, nil
}
