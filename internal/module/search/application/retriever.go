package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	searchdomain "github.com/jinford/ppx-backend/internal/module/search/domain"
	"github.com/jinford/ppx-backend/internal/shared/apperr"
)

const (
	// DefaultNumberDocuments は検索件数の既定値
	DefaultNumberDocuments = 5

	// DefaultScanLimit はScanで返す最大件数の既定値
	DefaultScanLimit = 100
)

// Retriever はクエリに関連するチャンクをベクトルストアから取得します
type Retriever struct {
	store      searchdomain.VectorSearcher
	embedder   searchdomain.Embedder
	collection string
	scanLimit  int
	log        *slog.Logger
}

// RetrieverOption はRetrieverの設定オプション
type RetrieverOption func(*Retriever)

// WithScanLimit はScanの最大件数を設定します
func WithScanLimit(limit int) RetrieverOption {
	return func(r *Retriever) {
		if limit > 0 {
			r.scanLimit = limit
		}
	}
}

// WithRetrieverLogger はロガーを設定します
func WithRetrieverLogger(log *slog.Logger) RetrieverOption {
	return func(r *Retriever) {
		r.log = log
	}
}

// NewRetriever は新しいRetrieverを作成します
func NewRetriever(store searchdomain.VectorSearcher, embedder searchdomain.Embedder, collection string, opts ...RetrieverOption) *Retriever {
	r := &Retriever{
		store:      store,
		embedder:   embedder,
		collection: collection,
		scanLimit:  DefaultScanLimit,
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve はクエリを埋め込み、近い順に最大 k 件のチャンクを返します（k<=0 の場合は5件）
func (r *Retriever) Retrieve(ctx context.Context, query string, filter searchdomain.Filter, k int) ([]searchdomain.RetrievedContext, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, searchdomain.ErrEmptyQuery
	}
	if k <= 0 {
		k = DefaultNumberDocuments
	}

	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, apperr.Upstream("embed query", err)
	}
	if len(vector) == 0 {
		return nil, apperr.Upstream("embed query", searchdomain.ErrNoEmbedding)
	}

	results, err := r.store.Search(ctx, r.collection, vector, filter, k)
	if err != nil {
		r.log.Error("Vector search failed",
			"query", query,
			"error", err,
		)
		return nil, fmt.Errorf("failed to retrieve contexts: %w", err)
	}

	r.log.Info("Contexts retrieved",
		"appID", filter.AppID,
		"resourceIDs", filter.ResourceIDs,
		"k", k,
		"results", len(results),
	)

	return results, nil
}

// Scan は条件に一致するチャンクを順位付けせずに返します
func (r *Retriever) Scan(ctx context.Context, filter searchdomain.Filter) ([]searchdomain.RetrievedContext, error) {
	results, err := r.store.Scan(ctx, r.collection, filter, r.scanLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to scan contexts: %w", err)
	}

	r.log.Info("Contexts scanned",
		"appID", filter.AppID,
		"resourceIDs", filter.ResourceIDs,
		"results", len(results),
	)

	return results, nil
}
