package youtube

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/ppx-backend/internal/module/indexing/domain"
	"github.com/jinford/ppx-backend/internal/shared/apperr"
)

func TestLoader_Load(t *testing.T) {
	srv := newTestServer(t, playerJSON)
	loader := NewLoader(NewClient(WithBaseURL(srv.URL)))

	url := "https://youtu.be/" + testVideoID
	result, err := loader.Load(context.Background(), url)
	require.NoError(t, err)

	require.Len(t, result.Data, 1)
	record := result.Data[0]

	assert.Equal(t, "Hello there it's  great!", record.Content)
	assert.Equal(t, domain.DataTypeYouTubeVideo, result.DataType)

	sum := sha256.Sum256([]byte(record.Content + url))
	assert.Equal(t, hex.EncodeToString(sum[:]), result.DocID)

	assert.Equal(t, testVideoID, record.Metadata[domain.MetaSource])
	assert.Equal(t, url, record.Metadata[domain.MetaURL])
	assert.Equal(t, "Test Video", record.Metadata["title"])
	assert.Len(t, record.Segments, 2)
}

func TestLoader_Load_LanguageFallback(t *testing.T) {
	srv := newTestServer(t, playerJSON)
	loader := NewLoader(NewClient(WithBaseURL(srv.URL)), WithLanguages("fr"))

	result, err := loader.Load(context.Background(), "https://www.youtube.com/watch?v="+testVideoID)
	require.NoError(t, err)
	assert.Len(t, result.Data, 1)
}

func TestLoader_Load_Translation(t *testing.T) {
	srv := newTestServer(t, playerJSON)
	loader := NewLoader(NewClient(WithBaseURL(srv.URL)), WithLanguages("ja"), WithTranslation("en"))

	result, err := loader.Load(context.Background(), "https://youtu.be/"+testVideoID)
	require.NoError(t, err)
	assert.NotEmpty(t, result.Data[0].Content)
}

func TestLoader_Load_TranscriptsDisabled(t *testing.T) {
	srv := newTestServer(t, func(string) string {
		return `{"playabilityStatus": {"status": "OK"}, "videoDetails": {"title": "x"}}`
	})
	loader := NewLoader(NewClient(WithBaseURL(srv.URL)))

	_, err := loader.Load(context.Background(), "https://youtu.be/"+testVideoID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestLoader_Load_InvalidURL(t *testing.T) {
	loader := NewLoader(NewClient())

	_, err := loader.Load(context.Background(), "https://example.com/x")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
