package domain

import "time"

// ConversationTurn はチャット履歴の1往復
type ConversationTurn struct {
	ID               string    `json:"id"`
	AppID            string    `json:"app_id"`
	SessionID        string    `json:"session_id"`
	UserMessage      string    `json:"human"`
	AssistantMessage string    `json:"ai"`
	CreatedAt        time.Time `json:"timestamp"`
}

// ChatRequest は1回のチャット呼び出しの入力
type ChatRequest struct {
	Query           string
	SessionID       string
	NumberDocuments int
	SystemPrompt    string
	ResourceIDs     []string
	RAGOnly         bool
	Mock            bool
}

// Source は sources ブロックの1エントリ
type Source struct {
	ID         string         `json:"id" xml:"id"`
	ResourceID string         `json:"resource_id" xml:"resource_id"`
	Content    string         `json:"content,omitempty" xml:"content"`
	Metadata   SourceMetadata `json:"metadata" xml:"metadata"`
}

// SourceMetadata は sources ブロックのメタデータ要素
type SourceMetadata struct {
	Timestamp string `json:"timestamp" xml:"timestamp"`
	URL       string `json:"url" xml:"url"`
	Hash      string `json:"hash,omitempty" xml:"hash"`
}

// HistoryMessage は管理画面に表示する履歴メッセージ
type HistoryMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Sources []Source `json:"sources,omitempty"`
}

// SessionHistory はセッション単位の履歴
type SessionHistory struct {
	ID       string           `json:"id"`
	Messages []HistoryMessage `json:"messages"`
}
