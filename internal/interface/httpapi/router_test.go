package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	chatdomain "github.com/jinford/ppx-backend/internal/module/chat/domain"
	indexingapp "github.com/jinford/ppx-backend/internal/module/indexing/application"
	indexingdomain "github.com/jinford/ppx-backend/internal/module/indexing/domain"
	resourcedomain "github.com/jinford/ppx-backend/internal/module/resource/domain"
	searchapp "github.com/jinford/ppx-backend/internal/module/search/application"
	searchdomain "github.com/jinford/ppx-backend/internal/module/search/domain"
	searchtesting "github.com/jinford/ppx-backend/internal/module/search/testing"
	topicsapp "github.com/jinford/ppx-backend/internal/module/topics/application"
	topicsdomain "github.com/jinford/ppx-backend/internal/module/topics/domain"
	"github.com/jinford/ppx-backend/internal/shared/apperr"
)

type fakeChat struct {
	ChatFunc func(ctx context.Context, req chatdomain.ChatRequest) (<-chan string, error)
}

func (f *fakeChat) Chat(ctx context.Context, req chatdomain.ChatRequest) (<-chan string, error) {
	return f.ChatFunc(ctx, req)
}

type fakeEmbedder struct {
	EmbedFunc func(ctx context.Context, text string) ([]float32, error)
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return f.EmbedFunc(ctx, text)
}

type fakeResources struct {
	GetFunc func(ctx context.Context, id string) (*resourcedomain.Resource, error)
}

func (f *fakeResources) Get(ctx context.Context, id string) (*resourcedomain.Resource, error) {
	return f.GetFunc(ctx, id)
}

type fakeResourceQuery struct {
	RelevantResourcesFunc func(ctx context.Context, query string, ids []string) ([]string, error)
}

func (f *fakeResourceQuery) RelevantResources(ctx context.Context, query string, ids []string) ([]string, error) {
	return f.RelevantResourcesFunc(ctx, query, ids)
}

type fakeSimilarity struct {
	DocsSimilarityFunc func(ctx context.Context, query string, docs []string, threshold float64) ([]searchapp.DocSimilarity, error)
}

func (f *fakeSimilarity) DocsSimilarity(ctx context.Context, query string, docs []string, threshold float64) ([]searchapp.DocSimilarity, error) {
	return f.DocsSimilarityFunc(ctx, query, docs, threshold)
}

type fakeTranscripts struct {
	LoadFunc func(ctx context.Context, url string) (*indexingdomain.LoadResult, error)
}

func (f *fakeTranscripts) Load(ctx context.Context, url string) (*indexingdomain.LoadResult, error) {
	return f.LoadFunc(ctx, url)
}

type fakeTopics struct {
	LDAFunc      func(ctx context.Context, collection string, params topicsapp.LDAParams) (*topicsdomain.LDAResult, error)
	ClustersFunc func(ctx context.Context, collection string, params topicsapp.ClusterParams) ([]topicsdomain.DocumentTopic, error)
}

func (f *fakeTopics) LDA(ctx context.Context, collection string, params topicsapp.LDAParams) (*topicsdomain.LDAResult, error) {
	return f.LDAFunc(ctx, collection, params)
}

func (f *fakeTopics) Clusters(ctx context.Context, collection string, params topicsapp.ClusterParams) ([]topicsdomain.DocumentTopic, error) {
	return f.ClustersFunc(ctx, collection, params)
}

type fakeHistory struct {
	ListAllFunc        func(ctx context.Context) ([]chatdomain.ConversationTurn, error)
	SessionHistoryFunc func(ctx context.Context, sessionID string) (*chatdomain.SessionHistory, error)
}

func (f *fakeHistory) ListAll(ctx context.Context) ([]chatdomain.ConversationTurn, error) {
	return f.ListAllFunc(ctx)
}

func (f *fakeHistory) SessionHistory(ctx context.Context, sessionID string) (*chatdomain.SessionHistory, error) {
	return f.SessionHistoryFunc(ctx, sessionID)
}

type fakeSources struct {
	ListSourcesFunc  func(ctx context.Context) ([]searchdomain.DataSource, error)
	GetSourceFunc    func(ctx context.Context, hash string) (*indexingapp.SourceContent, error)
	AddSourceFunc    func(ctx context.Context, params indexingapp.AddSourceParams) (*indexingapp.IndexResult, error)
	DeleteSourceFunc func(ctx context.Context, resourceID, collection string) (int, error)
}

func (f *fakeSources) ListSources(ctx context.Context) ([]searchdomain.DataSource, error) {
	return f.ListSourcesFunc(ctx)
}

func (f *fakeSources) GetSource(ctx context.Context, hash string) (*indexingapp.SourceContent, error) {
	return f.GetSourceFunc(ctx, hash)
}

func (f *fakeSources) AddSource(ctx context.Context, params indexingapp.AddSourceParams) (*indexingapp.IndexResult, error) {
	return f.AddSourceFunc(ctx, params)
}

func (f *fakeSources) DeleteSource(ctx context.Context, resourceID, collection string) (int, error) {
	return f.DeleteSourceFunc(ctx, resourceID, collection)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestServer(t *testing.T, deps Dependencies) *httptest.Server {
	t.Helper()
	deps.Logger = testLogger()
	srv := httptest.NewServer(NewRouter(deps))
	t.Cleanup(srv.Close)
	return srv
}

func streamOf(chunks ...string) <-chan string {
	ch := make(chan string, len(chunks))
	for _, c := range chunks {
		ch <- c
	}
	close(ch)
	return ch
}

func doRequest(t *testing.T, method, url string, body io.Reader, header http.Header) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err)
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(b)
}

func TestChatHandler(t *testing.T) {
	var got chatdomain.ChatRequest
	srv := newTestServer(t, Dependencies{
		Chat: &fakeChat{ChatFunc: func(ctx context.Context, req chatdomain.ChatRequest) (<-chan string, error) {
			got = req
			return streamOf("<sources>\n</sources>\n\n", "Hello", " world"), nil
		}},
	})

	resp, body := doRequest(t, http.MethodGet,
		srv.URL+"/api/v1/chat?query=what%3F&session_id=s1&number_documents=3&system_prompt=brief&rag_only=true&resource_ids=r1,r2&resource_ids=r3",
		nil, nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/plain; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Equal(t, "<sources>\n</sources>\n\nHello world", body)
	assert.Equal(t, chatdomain.ChatRequest{
		Query:           "what?",
		SessionID:       "s1",
		NumberDocuments: 3,
		SystemPrompt:    "brief",
		ResourceIDs:     []string{"r1", "r2", "r3"},
		RAGOnly:         true,
	}, got)
}

func TestChatHandler_Errors(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		chatErr    error
		wantStatus int
		wantBody   []string
	}{
		{name: "クエリなし", query: "", wantStatus: http.StatusBadRequest},
		{name: "件数が数値でない", query: "query=q&number_documents=abc", wantStatus: http.StatusBadRequest},
		{name: "分類の不一致", query: "query=hello&rag_only=1", chatErr: apperr.ClassificationConflict("hello"), wantStatus: http.StatusBadRequest},
		{
			name:       "検索の失敗はエラー内容をメッセージに含める",
			query:      "query=q",
			chatErr:    apperr.Upstream("embed query", errors.New("timeout")),
			wantStatus: http.StatusInternalServerError,
			wantBody:   []string{"An error occurred: ", "timeout"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, Dependencies{
				Chat: &fakeChat{ChatFunc: func(ctx context.Context, req chatdomain.ChatRequest) (<-chan string, error) {
					if tt.chatErr != nil {
						return nil, tt.chatErr
					}
					return streamOf("ok"), nil
				}},
			})

			resp, body := doRequest(t, http.MethodGet, srv.URL+"/api/v1/chat?"+tt.query, nil, nil)

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Contains(t, body, `"message"`)
			for _, want := range tt.wantBody {
				assert.Contains(t, body, want)
			}
		})
	}
}

func TestEmbeddingsHandler(t *testing.T) {
	srv := newTestServer(t, Dependencies{
		Embedder: &fakeEmbedder{EmbedFunc: func(ctx context.Context, text string) ([]float32, error) {
			return []float32{float32(len(text)), 0.5}, nil
		}},
	})

	t.Run("クエリパラメータ", func(t *testing.T) {
		resp, body := doRequest(t, http.MethodPost, srv.URL+"/api/v1/embeddings?data=abc", nil, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.JSONEq(t, `[3, 0.5]`, body)
	})

	t.Run("リクエストボディ", func(t *testing.T) {
		resp, body := doRequest(t, http.MethodPost, srv.URL+"/api/v1/embeddings", strings.NewReader("hello"), nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.JSONEq(t, `[5, 0.5]`, body)
	})

	t.Run("データなし", func(t *testing.T) {
		resp, _ := doRequest(t, http.MethodPost, srv.URL+"/api/v1/embeddings", nil, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestResourceHandlers(t *testing.T) {
	srv := newTestServer(t, Dependencies{
		Resources: &fakeResources{GetFunc: func(ctx context.Context, id string) (*resourcedomain.Resource, error) {
			if id != "r1" {
				return nil, apperr.NotFound("Resource not found")
			}
			return &resourcedomain.Resource{ID: "r1", Path: "/f", Type: "video"}, nil
		}},
		ResourceQuery: &fakeResourceQuery{RelevantResourcesFunc: func(ctx context.Context, query string, ids []string) ([]string, error) {
			assert.Equal(t, "talk", query)
			assert.Equal(t, []string{"r1", "r2"}, ids)
			return nil, nil
		}},
	})

	resp, body := doRequest(t, http.MethodGet, srv.URL+"/api/v1/resources/r1", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"id":"r1","path":"/f","type":"video","createdAt":"","updatedAt":"","deleted":false,"metadata":null}`, body)

	resp, _ = doRequest(t, http.MethodGet, srv.URL+"/api/v1/resources/missing", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = doRequest(t, http.MethodPost, srv.URL+"/api/v1/resources/query",
		strings.NewReader(`{"query":"talk","resource_ids":["r1","r2"]}`), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, body)

	resp, _ = doRequest(t, http.MethodPost, srv.URL+"/api/v1/resources/query", strings.NewReader(`{`), nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDocsSimilarityHandler(t *testing.T) {
	var gotThreshold float64
	srv := newTestServer(t, Dependencies{
		Similarity: &fakeSimilarity{DocsSimilarityFunc: func(ctx context.Context, query string, docs []string, threshold float64) ([]searchapp.DocSimilarity, error) {
			gotThreshold = threshold
			return []searchapp.DocSimilarity{{Doc: docs[0], Similarity: 0.9}}, nil
		}},
	})

	resp, body := doRequest(t, http.MethodPost, srv.URL+"/api/v1/docs_similarity",
		strings.NewReader(`{"query":"q","docs":["a","b"]}`), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[{"doc":"a","similarity":0.9}]`, body)
	assert.InDelta(t, searchapp.DefaultSimilarityThreshold, gotThreshold, 1e-9)

	_, _ = doRequest(t, http.MethodPost, srv.URL+"/api/v1/docs_similarity",
		strings.NewReader(`{"query":"q","docs":["a"],"threshold":0.8}`), nil)
	assert.InDelta(t, 0.8, gotThreshold, 1e-9)
}

func TestYouTubeTranscriptHandler(t *testing.T) {
	srv := newTestServer(t, Dependencies{
		Transcripts: &fakeTranscripts{LoadFunc: func(ctx context.Context, url string) (*indexingdomain.LoadResult, error) {
			switch url {
			case "https://youtu.be/dQw4w9WgXcQ":
				return &indexingdomain.LoadResult{Data: []indexingdomain.Record{{
					Content:  "Hello there",
					Metadata: map[string]any{"title": "Video"},
					Segments: []indexingdomain.TranscriptSegment{{Text: "Hello there", Start: 0, Duration: 1.5}},
				}}}, nil
			case "https://example.com/x":
				return nil, apperr.Validation("invalid youtube url")
			default:
				return nil, apperr.NotFound("no data found for url")
			}
		}},
	})

	resp, body := doRequest(t, http.MethodGet, srv.URL+"/api/v1/transcripts/youtube?url=https://youtu.be/dQw4w9WgXcQ", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{
		"transcript": "Hello there",
		"metadata": {"title": "Video", "transcript_pieces": [{"text": "Hello there", "start": 0, "duration": 1.5}]}
	}`, body)

	resp, _ = doRequest(t, http.MethodGet, srv.URL+"/api/v1/transcripts/youtube?url=https://example.com/x", nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doRequest(t, http.MethodGet, srv.URL+"/api/v1/transcripts/youtube?url=https://youtu.be/aaaaaaaaaaa", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAdminAuth(t *testing.T) {
	srv := newTestServer(t, Dependencies{
		AdminToken: "secret",
		History: &fakeHistory{ListAllFunc: func(ctx context.Context) ([]chatdomain.ConversationTurn, error) {
			return []chatdomain.ConversationTurn{}, nil
		}},
	})

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{name: "トークンなし", wantStatus: http.StatusUnauthorized},
		{name: "不正なトークン", header: "Bearer wrong", wantStatus: http.StatusUnauthorized},
		{name: "不正な形式", header: "secret", wantStatus: http.StatusUnauthorized},
		{name: "正しいトークン", header: "Bearer secret", wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := http.Header{}
			if tt.header != "" {
				header.Set("Authorization", tt.header)
			}
			resp, _ := doRequest(t, http.MethodGet, srv.URL+"/api/v1/admin/chat_history", nil, header)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}

func TestCollectionHandlers(t *testing.T) {
	store := &searchtesting.MockVectorStore{
		ListCollectionsFunc: func(ctx context.Context) ([]searchdomain.Collection, error) {
			return []searchdomain.Collection{{Name: "embedchain_store", Count: 2}}, nil
		},
		ListDocumentsFunc: func(ctx context.Context, collection string) ([]searchdomain.Document, error) {
			if collection != "embedchain_store" {
				return nil, searchdomain.ErrCollectionNotFound
			}
			return []searchdomain.Document{
				{Document: "first", Metadata: map[string]any{"resource_id": "r1"}},
				{Document: "second", Metadata: map[string]any{"resource_id": "r2"}},
			}, nil
		},
	}
	srv := newTestServer(t, Dependencies{Collections: store})

	resp, body := doRequest(t, http.MethodGet, srv.URL+"/api/v1/admin/collections", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[{"name":"embedchain_store","count":2}]`, body)

	resp, body = doRequest(t, http.MethodGet, srv.URL+"/api/v1/admin/collections/embedchain_store", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{
		"details": {"name": "embedchain_store", "count": 2},
		"data": [
			{"metadata": {"resource_id": "r1"}, "document": "first"},
			{"metadata": {"resource_id": "r2"}, "document": "second"}
		]
	}`, body)

	resp, _ = doRequest(t, http.MethodGet, srv.URL+"/api/v1/admin/collections/missing", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTopicHandlers(t *testing.T) {
	var gotCluster topicsapp.ClusterParams
	var gotLDA topicsapp.LDAParams
	srv := newTestServer(t, Dependencies{
		Topics: &fakeTopics{
			ClustersFunc: func(ctx context.Context, collection string, params topicsapp.ClusterParams) ([]topicsdomain.DocumentTopic, error) {
				gotCluster = params
				return []topicsdomain.DocumentTopic{{DocID: 0, TopicID: 0, Name: "kubernetes, pods", Probability: 0.9, ResourceID: "r1"}}, nil
			},
			LDAFunc: func(ctx context.Context, collection string, params topicsapp.LDAParams) (*topicsdomain.LDAResult, error) {
				gotLDA = params
				return &topicsdomain.LDAResult{Topics: []topicsdomain.Topic{}, Documents: []topicsdomain.DocumentTopics{}}, nil
			},
		},
	})

	resp, body := doRequest(t, http.MethodGet,
		srv.URL+"/api/v1/admin/collections/c/topics/bertopic?minimum_topics=3&nr_topics=4&top_n_words=5&prob_threshold=0.4", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, topicsapp.ClusterParams{MinTopicSize: 3, NrTopics: 4, TopNWords: 5, ProbThreshold: 0.4}, gotCluster)
	var topics []topicsdomain.DocumentTopic
	require.NoError(t, json.Unmarshal([]byte(body), &topics))
	assert.Equal(t, "r1", topics[0].ResourceID)

	resp, _ = doRequest(t, http.MethodGet, srv.URL+"/api/v1/admin/collections/c/topics/lda", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, topicsapp.LDAParams{NumTopics: 10, Passes: 10}, gotLDA)

	resp, _ = doRequest(t, http.MethodGet, srv.URL+"/api/v1/admin/collections/c/topics/lda?passes=x", nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestChatHistoryHandlers(t *testing.T) {
	srv := newTestServer(t, Dependencies{
		History: &fakeHistory{
			SessionHistoryFunc: func(ctx context.Context, sessionID string) (*chatdomain.SessionHistory, error) {
				return &chatdomain.SessionHistory{ID: sessionID, Messages: []chatdomain.HistoryMessage{
					{Role: "user", Content: "q"},
					{Role: "system", Content: "a", Sources: []chatdomain.Source{{ID: "1", ResourceID: "r1"}}},
				}}, nil
			},
		},
	})

	resp, body := doRequest(t, http.MethodGet, srv.URL+"/api/v1/admin/chat_history/s1", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{
		"id": "s1",
		"messages": [
			{"role": "user", "content": "q"},
			{"role": "system", "content": "a", "sources": [{"id": "1", "resource_id": "r1", "metadata": {"timestamp": "", "url": ""}}]}
		]
	}`, body)
}

func TestDataSourceHandlers(t *testing.T) {
	var added indexingapp.AddSourceParams
	var deletedCollection string
	srv := newTestServer(t, Dependencies{
		Sources: &fakeSources{
			ListSourcesFunc: func(ctx context.Context) ([]searchdomain.DataSource, error) {
				return nil, nil
			},
			GetSourceFunc: func(ctx context.Context, hash string) (*indexingapp.SourceContent, error) {
				if hash != "h1" {
					return nil, apperr.NotFound("data source not found: %s", hash)
				}
				return &indexingapp.SourceContent{Content: "text", Metadata: map[string]any{"hash": "h1"}}, nil
			},
			AddSourceFunc: func(ctx context.Context, params indexingapp.AddSourceParams) (*indexingapp.IndexResult, error) {
				if params.Metadata == "[]" {
					return nil, apperr.Validation("invalid metadata. Enter a valid JSON object")
				}
				added = params
				return &indexingapp.IndexResult{DocID: "d1", Chunks: 1, Inserted: 1}, nil
			},
			DeleteSourceFunc: func(ctx context.Context, resourceID, collection string) (int, error) {
				deletedCollection = collection
				return 2, nil
			},
		},
	})

	resp, body := doRequest(t, http.MethodGet, srv.URL+"/api/v1/admin/data_sources", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, body)

	resp, body = doRequest(t, http.MethodGet, srv.URL+"/api/v1/admin/data_sources/h1", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"content":"text","metadata":{"hash":"h1"}}`, body)

	resp, _ = doRequest(t, http.MethodGet, srv.URL+"/api/v1/admin/data_sources/zz", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = doRequest(t, http.MethodPost, srv.URL+"/api/v1/admin/data_sources",
		strings.NewReader(`{"dataType":"text","dataValue":"hello","metadata":"{\"resource_id\":\"r1\"}","envVariables":""}`), nil)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.JSONEq(t, `{"message":"Data of data_type='text' added successfully."}`, body)
	assert.Equal(t, indexingapp.AddSourceParams{DataType: "text", DataValue: "hello", Metadata: `{"resource_id":"r1"}`}, added)

	resp, _ = doRequest(t, http.MethodPost, srv.URL+"/api/v1/admin/data_sources",
		strings.NewReader(`{"dataType":"text","dataValue":"hello","metadata":"[]"}`), nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = doRequest(t, http.MethodDelete, srv.URL+"/api/v1/admin/data_sources?resource_id=r1", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"message":"Resource deleted successfully."}`, body)
	assert.Empty(t, deletedCollection)

	resp, _ = doRequest(t, http.MethodDelete, srv.URL+"/api/v1/admin/data_sources", nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, Dependencies{})

	resp, body := doRequest(t, http.MethodGet, srv.URL+"/health", nil, nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, body)
}
