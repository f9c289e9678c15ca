package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jinford/ppx-backend/internal/module/chat/domain"
)

// DefaultHistoryRounds は管理画面で表示する履歴の往復数
const DefaultHistoryRounds = 100

// 履歴表示での話者
const (
	historyRoleUser      = "user"
	historyRoleAssistant = "system"
)

// HistoryService はチャット履歴の管理画面向けビューを提供します
type HistoryService struct {
	reader domain.HistoryReader
	appID  string
	rounds int
	log    *slog.Logger
}

// NewHistoryService は新しいHistoryServiceを作成します
func NewHistoryService(reader domain.HistoryReader, appID string, rounds int, log *slog.Logger) *HistoryService {
	if rounds <= 0 {
		rounds = DefaultHistoryRounds
	}
	if log == nil {
		log = slog.Default()
	}
	return &HistoryService{
		reader: reader,
		appID:  appID,
		rounds: rounds,
		log:    log,
	}
}

// ListAll はアプリ内の全セッションの履歴を返します
func (s *HistoryService) ListAll(ctx context.Context) ([]domain.ConversationTurn, error) {
	turns, err := s.reader.ListByApp(ctx, s.appID, s.rounds)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat history: %w", err)
	}
	if turns == nil {
		turns = []domain.ConversationTurn{}
	}
	return turns, nil
}

// SessionHistory はセッションの履歴をユーザーとアシスタントのメッセージ列として返します
// アシスタントの回答は sources ブロックと本文に分割されます
func (s *HistoryService) SessionHistory(ctx context.Context, sessionID string) (*domain.SessionHistory, error) {
	if sessionID == "" {
		return nil, domain.ErrEmptySessionID
	}

	turns, err := s.reader.ListBySession(ctx, s.appID, sessionID, s.rounds)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat history: %w", err)
	}

	messages := make([]domain.HistoryMessage, 0, len(turns)*2)
	for _, turn := range turns {
		messages = append(messages, domain.HistoryMessage{
			Role:    historyRoleUser,
			Content: turn.UserMessage,
		})

		content, sources, err := SplitSources(turn.AssistantMessage)
		if err != nil {
			s.log.Warn("Failed to parse sources in chat history",
				"sessionID", sessionID,
				"turnID", turn.ID,
				"error", err,
			)
		}
		messages = append(messages, domain.HistoryMessage{
			Role:    historyRoleAssistant,
			Content: content,
			Sources: sources,
		})
	}

	return &domain.SessionHistory{
		ID:       sessionID,
		Messages: messages,
	}, nil
}
