package application_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/ppx-backend/internal/module/chat/application"
	chattesting "github.com/jinford/ppx-backend/internal/module/chat/testing"
	llmdomain "github.com/jinford/ppx-backend/internal/module/llm/domain"
	searchdomain "github.com/jinford/ppx-backend/internal/module/search/domain"
)

// wordCounter は空白区切りの単語数をトークン数とみなします
type wordCounter struct{}

func (wordCounter) CountTokens(text string) int {
	return len(strings.Fields(text))
}

func TestPromptBuilder_AssembleMessages_SystemPrompt(t *testing.T) {
	tests := []struct {
		name          string
		defaultPrompt string
		override      string
		wantSystem    string
	}{
		{name: "システムプロンプトなし"},
		{name: "既定のプロンプト", defaultPrompt: "default", wantSystem: "default"},
		{name: "明示指定が優先", defaultPrompt: "default", override: "override", wantSystem: "override"},
		{name: "既定なしで明示指定", override: "override", wantSystem: "override"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			builder := application.NewPromptBuilder(tt.defaultPrompt, nil, 0)

			messages := builder.AssembleMessages("q?", twoContexts(), tt.override, nil)

			if tt.wantSystem == "" {
				require.Len(t, messages, 1)
				assert.Equal(t, llmdomain.RoleUser, messages[0].Role)
				return
			}
			require.Len(t, messages, 2)
			assert.Equal(t, llmdomain.Message{Role: llmdomain.RoleSystem, Content: tt.wantSystem}, messages[0])
			assert.Equal(t, llmdomain.RoleUser, messages[1].Role)
		})
	}
}

func TestPromptBuilder_AssembleMessages_Template(t *testing.T) {
	builder := application.NewPromptBuilder("", nil, 0)

	messages := builder.AssembleMessages("what is this?", twoContexts(), "", nil)

	require.Len(t, messages, 1)
	prompt := messages[0].Content
	assert.Contains(t, prompt, "Context information:\n----------------------\nfirst chunk | second chunk\n----------------------\n")
	assert.True(t, strings.HasSuffix(prompt, "Query: what is this?\nAnswer:\n"))
	assert.NotContains(t, prompt, "Conversation history")
}

func TestPromptBuilder_AssembleMessages_TokenBudget(t *testing.T) {
	contexts := []searchdomain.RetrievedContext{
		chattesting.TestContext("one two three", "r1", "", 0),
		chattesting.TestContext("four five", "r2", "", 0),
		chattesting.TestContext("six", "r3", "", 0),
	}

	tests := []struct {
		name     string
		limit    int
		expected string
	}{
		{name: "全て収まる", limit: 10, expected: "one two three | four five | six"},
		{name: "上限で打ち切る", limit: 5, expected: "one two three | four five\n"},
		{name: "先頭は必ず含める", limit: 1, expected: "----------------------\none two three\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			builder := application.NewPromptBuilder("", wordCounter{}, tt.limit)

			messages := builder.AssembleMessages("q", contexts, "", nil)

			assert.Contains(t, messages[0].Content, tt.expected)
		})
	}
}
