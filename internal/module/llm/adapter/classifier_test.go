package adapter

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/ppx-backend/internal/module/llm/domain"
)

type stubCompleter struct {
	content string
	err     error
	last    domain.CompletionRequest
}

func (s *stubCompleter) GenerateCompletion(_ context.Context, req domain.CompletionRequest) (domain.CompletionResponse, error) {
	s.last = req
	if s.err != nil {
		return domain.CompletionResponse{}, s.err
	}
	return domain.CompletionResponse{Content: s.content}, nil
}

func TestLLMClassifier_IsQuestion(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    bool
		wantErr bool
	}{
		{name: "確率が閾値を超える", content: `{"question_probability": 0.93}`, want: true},
		{name: "確率がちょうど閾値", content: `{"question_probability": 0.5}`, want: false},
		{name: "確率が低い", content: `{"question_probability": 0.1}`, want: false},
		{name: "フィールド欠落", content: `{"label": "question"}`, wantErr: true},
		{name: "不正なJSON", content: `question`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubCompleter{content: tt.content}
			c := NewLLMClassifier(stub, "gpt-4o-mini", discardLogger())

			got, err := c.IsQuestion(context.Background(), "what is a vector store")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, "json", stub.last.ResponseFormat)
			assert.Equal(t, "gpt-4o-mini", stub.last.Model)
			assert.Contains(t, stub.last.Prompt, "what is a vector store")
		})
	}
}

func TestLLMClassifier_UpstreamError(t *testing.T) {
	boom := errors.New("unavailable")
	c := NewLLMClassifier(&stubCompleter{err: boom}, "", discardLogger())

	_, err := c.IsQuestion(context.Background(), "hi")
	assert.ErrorIs(t, err, boom)
}

func TestHeuristicClassifier_IsQuestion(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"What is RAG", true},
		{"summarize this video?", true},
		{"How, exactly, does it work", true},
		{"Summarize the video", false},
		{"tell me more", false},
		{"   ", false},
	}

	c := NewHeuristicClassifier()
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := c.IsQuestion(context.Background(), tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
