package domain

import "context"

// HistoryStore はチャット履歴を永続化するポートです
// 追記のみで、同一セッションへの同時追記の順序は保証しません
type HistoryStore interface {
	HistoryWriter
	HistoryReader
}

// HistoryWriter はチャット履歴の追記操作を定義します
type HistoryWriter interface {
	Append(ctx context.Context, turn ConversationTurn) error
}

// HistoryReader はチャット履歴の読み取り操作を定義します
type HistoryReader interface {
	// ListBySession はセッションの直近 rounds 件を古い順に返します
	ListBySession(ctx context.Context, appID, sessionID string, rounds int) ([]ConversationTurn, error)

	// ListByApp はアプリ内の全セッションについて直近 rounds 件ずつを返します
	ListByApp(ctx context.Context, appID string, rounds int) ([]ConversationTurn, error)
}
