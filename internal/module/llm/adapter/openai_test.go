package adapter

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/ppx-backend/internal/module/llm/domain"
)

func TestNewOpenAIClient(t *testing.T) {
	tests := []struct {
		name      string
		apiKey    string
		model     string
		wantModel string
		wantErr   error
	}{
		{name: "モデル省略時はデフォルト", apiKey: "sk-test", wantModel: DefaultModel},
		{name: "モデル指定", apiKey: "sk-test", model: "gpt-4o-mini", wantModel: "gpt-4o-mini"},
		{name: "APIキー未設定はエラー", wantErr: ErrAPIKeyNotSet},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewOpenAIClient(tt.apiKey, tt.model)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, client)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantModel, client.GetModelName())
			assert.Equal(t, DefaultTimeout, client.timeout)
		})
	}
}

func sseChunk(content string) string {
	return fmt.Sprintf(`data: {"id":"c1","object":"chat.completion.chunk","created":1,"model":"gpt-4o","choices":[{"index":0,"delta":{"content":%q},"finish_reason":null}]}`+"\n\n", content)
}

func TestOpenAIClient_StreamChat(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)

		w.Header().Set("Content-Type", "text/event-stream")
		for _, tok := range []string{"Hel", "lo", " world"} {
			_, _ = fmt.Fprint(w, sseChunk(tok))
		}
		_, _ = fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	client, err := NewOpenAIClient("sk-test", "gpt-4o", WithBaseURL(srv.URL+"/"))
	require.NoError(t, err)

	tokens := make(chan string, 10)
	err = client.StreamChat(context.Background(), domain.ChatRequest{
		Messages: []domain.Message{
			{Role: domain.RoleSystem, Content: "be brief"},
			{Role: domain.RoleUser, Content: "hi"},
		},
		MaxTokens: 100,
	}, tokens)
	require.NoError(t, err)
	close(tokens)

	var got []string
	for tok := range tokens {
		got = append(got, tok)
	}
	assert.Equal(t, []string{"Hel", "lo", " world"}, got)
	assert.Contains(t, body, `"stream":true`)
	assert.Contains(t, body, `"role":"system"`)
}

func TestOpenAIClient_StreamChat_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = fmt.Fprint(w, `{"error":{"message":"boom","type":"server_error"}}`)
	}))
	defer srv.Close()

	client, err := NewOpenAIClient("sk-test", "gpt-4o", WithBaseURL(srv.URL+"/"))
	require.NoError(t, err)

	tokens := make(chan string, 1)
	err = client.StreamChat(context.Background(), domain.ChatRequest{
		Messages: []domain.Message{{Role: domain.RoleUser, Content: "hi"}},
	}, tokens)
	assert.Error(t, err)
}

func TestOpenAIClient_GenerateCompletion_RetriesOnRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = fmt.Fprint(w, `{"error":{"message":"slow down","type":"rate_limit"}}`)
			return
		}
		_, _ = fmt.Fprint(w, `{"id":"c1","object":"chat.completion","created":1,"model":"gpt-4o-mini","choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"{\"question_probability\": 0.9}"}}],"usage":{"prompt_tokens":5,"completion_tokens":5,"total_tokens":10}}`)
	}))
	defer srv.Close()

	client, err := NewOpenAIClient("sk-test", "gpt-4o-mini",
		WithBaseURL(srv.URL+"/"),
		WithBaseBackoff(time.Millisecond),
	)
	require.NoError(t, err)

	resp, err := client.GenerateCompletion(context.Background(), domain.CompletionRequest{
		Prompt:         "classify",
		ResponseFormat: "json",
	})
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, 10, resp.TokensUsed)
	assert.Equal(t, "gpt-4o-mini", resp.Model)
	assert.JSONEq(t, `{"question_probability": 0.9}`, resp.Content)
}
