package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Chunk はベクトルストアに保存する1チャンク
type Chunk struct {
	ID        string
	Document  string
	Metadata  map[string]any
	Embedding []float32
}

// RetrievedContext は検索で得られたチャンク
// Score はベクトル距離で、小さいほど近い
type RetrievedContext struct {
	ID       string
	Text     string
	Metadata map[string]any
	Score    float64
}

// ResourceID はメタデータの resource_id を返します
func (c RetrievedContext) ResourceID() string {
	return metaString(c.Metadata, "resource_id")
}

// URL はメタデータの url を返します
func (c RetrievedContext) URL() string {
	return metaString(c.Metadata, "url")
}

// Timestamp はメタデータの timestamp を返します
func (c RetrievedContext) Timestamp() string {
	return metaString(c.Metadata, "timestamp")
}

// Hash はメタデータの hash を返します
func (c RetrievedContext) Hash() string {
	return metaString(c.Metadata, "hash")
}

// Filter は検索対象を絞り込む条件
type Filter struct {
	AppID       string
	ResourceIDs []string
}

// Collection はコレクション名と件数
type Collection struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Document は保存済みチャンクの本文とメタデータ
type Document struct {
	ID        string         `json:"id"`
	Document  string         `json:"document"`
	Metadata  map[string]any `json:"metadata"`
	CreatedAt time.Time      `json:"created_at"`
}

// EmbeddedDocument は埋め込みベクトル付きのドキュメント
type EmbeddedDocument struct {
	Document
	Embedding []float32
}

// DataSource はハッシュ単位で集約したデータソース
type DataSource struct {
	Hash      string         `json:"hash"`
	DataType  string         `json:"data_type"`
	DataValue string         `json:"data_value"`
	Metadata  map[string]any `json:"metadata"`
	AppID     string         `json:"app_id"`
	Chunks    int            `json:"chunks"`
}

func metaString(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
