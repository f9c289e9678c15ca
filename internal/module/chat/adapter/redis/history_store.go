package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/jinford/ppx-backend/internal/module/chat/domain"
)

const keyPrefix = "ppx:chat"

// HistoryStore はRedisのリストに会話ターンを保存するHistoryStore実装です
// セッションごとに1つのリストを持ち、アプリ単位のセッション一覧をセットで管理します
type HistoryStore struct {
	rdb redis.Cmdable
}

var _ domain.HistoryStore = (*HistoryStore)(nil)

// NewHistoryStore は新しいHistoryStoreを作成します
func NewHistoryStore(rdb redis.Cmdable) *HistoryStore {
	return &HistoryStore{rdb: rdb}
}

// Append は会話ターンをセッションのリスト末尾に追加します
func (s *HistoryStore) Append(ctx context.Context, turn domain.ConversationTurn) error {
	if turn.SessionID == "" {
		return domain.ErrEmptySessionID
	}

	payload, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("failed to encode chat turn: %w", err)
	}

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, sessionKey(turn.AppID, turn.SessionID), payload)
		pipe.SAdd(ctx, sessionsKey(turn.AppID), turn.SessionID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to append chat turn: %w", err)
	}
	return nil
}

// ListBySession はセッションの直近 rounds 件を古い順に返します（rounds <= 0 で全件）
func (s *HistoryStore) ListBySession(ctx context.Context, appID, sessionID string, rounds int) ([]domain.ConversationTurn, error) {
	start := int64(0)
	if rounds > 0 {
		start = -int64(rounds)
	}

	values, err := s.rdb.LRange(ctx, sessionKey(appID, sessionID), start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read chat history: %w", err)
	}

	turns := make([]domain.ConversationTurn, 0, len(values))
	for _, v := range values {
		var turn domain.ConversationTurn
		if err := json.Unmarshal([]byte(v), &turn); err != nil {
			return nil, fmt.Errorf("failed to decode chat turn: %w", err)
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

// ListByApp はアプリ内の全セッションについて直近 rounds 件ずつを作成日時順に返します
func (s *HistoryStore) ListByApp(ctx context.Context, appID string, rounds int) ([]domain.ConversationTurn, error) {
	sessions, err := s.rdb.SMembers(ctx, sessionsKey(appID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list chat sessions: %w", err)
	}
	sort.Strings(sessions)

	var turns []domain.ConversationTurn
	for _, sessionID := range sessions {
		sessionTurns, err := s.ListBySession(ctx, appID, sessionID, rounds)
		if err != nil {
			return nil, err
		}
		turns = append(turns, sessionTurns...)
	}

	sort.SliceStable(turns, func(i, j int) bool {
		return turns[i].CreatedAt.Before(turns[j].CreatedAt)
	})
	return turns, nil
}

func sessionKey(appID, sessionID string) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, appID, sessionID)
}

func sessionsKey(appID string) string {
	return fmt.Sprintf("%s:%s:sessions", keyPrefix, appID)
}
