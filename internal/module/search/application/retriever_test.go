package application

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	searchdomain "github.com/jinford/ppx-backend/internal/module/search/domain"
	searchtesting "github.com/jinford/ppx-backend/internal/module/search/testing"
	"github.com/jinford/ppx-backend/internal/shared/apperr"
)

func TestRetriever_Retrieve(t *testing.T) {
	ctx := context.Background()

	t.Run("既定の件数で検索する", func(t *testing.T) {
		var gotK int
		var gotFilter searchdomain.Filter
		store := &searchtesting.MockVectorStore{
			SearchFunc: func(ctx context.Context, collection string, queryVector []float32, filter searchdomain.Filter, k int) ([]searchdomain.RetrievedContext, error) {
				assert.Equal(t, "embedchain_store", collection)
				gotK = k
				gotFilter = filter
				return []searchdomain.RetrievedContext{{Text: "a", Score: 0.1}}, nil
			},
		}
		r := NewRetriever(store, &searchtesting.MockEmbedder{}, "embedchain_store")

		filter := searchdomain.Filter{AppID: "app", ResourceIDs: []string{"r1"}}
		results, err := r.Retrieve(ctx, "what is this?", filter, 0)
		require.NoError(t, err)

		assert.Len(t, results, 1)
		assert.Equal(t, DefaultNumberDocuments, gotK)
		assert.Equal(t, filter, gotFilter)
	})

	t.Run("空のクエリは検証エラー", func(t *testing.T) {
		r := NewRetriever(&searchtesting.MockVectorStore{}, &searchtesting.MockEmbedder{}, "c")

		_, err := r.Retrieve(ctx, "  ", searchdomain.Filter{}, 5)
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("埋め込みの失敗はUpstreamエラー", func(t *testing.T) {
		embedder := &searchtesting.MockEmbedder{
			EmbedFunc: func(ctx context.Context, text string) ([]float32, error) {
				return nil, errors.New("boom")
			},
		}
		r := NewRetriever(&searchtesting.MockVectorStore{}, embedder, "c")

		_, err := r.Retrieve(ctx, "q", searchdomain.Filter{}, 5)
		assert.ErrorIs(t, err, apperr.ErrUpstream)
	})

	t.Run("検索の失敗を返す", func(t *testing.T) {
		store := &searchtesting.MockVectorStore{
			SearchFunc: func(ctx context.Context, collection string, queryVector []float32, filter searchdomain.Filter, k int) ([]searchdomain.RetrievedContext, error) {
				return nil, apperr.Upstream("vector search", errors.New("down"))
			},
		}
		r := NewRetriever(store, &searchtesting.MockEmbedder{}, "c")

		_, err := r.Retrieve(ctx, "q", searchdomain.Filter{}, 5)
		assert.ErrorIs(t, err, apperr.ErrUpstream)
	})
}

func TestRetriever_Scan(t *testing.T) {
	var gotLimit int
	store := &searchtesting.MockVectorStore{
		ScanFunc: func(ctx context.Context, collection string, filter searchdomain.Filter, limit int) ([]searchdomain.RetrievedContext, error) {
			gotLimit = limit
			return []searchdomain.RetrievedContext{{Text: "a"}, {Text: "b"}}, nil
		},
	}
	r := NewRetriever(store, &searchtesting.MockEmbedder{}, "c", WithScanLimit(42))

	results, err := r.Scan(context.Background(), searchdomain.Filter{AppID: "app"})
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Equal(t, 42, gotLimit)
}
