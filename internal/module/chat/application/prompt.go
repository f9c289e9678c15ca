package application

import (
	"fmt"
	"strings"

	"github.com/jinford/ppx-backend/internal/module/chat/domain"
	llmdomain "github.com/jinford/ppx-backend/internal/module/llm/domain"
	searchdomain "github.com/jinford/ppx-backend/internal/module/search/domain"
)

const (
	// DefaultContextTokenLimit はプロンプトに含めるコンテキストのトークン上限
	DefaultContextTokenLimit = 6000

	contextSeparator = " | "
)

// GeneralPersonaPrompt は "general:" モードで使うシステムプロンプト
const GeneralPersonaPrompt = "You are a helpful, friendly assistant. Answer the user's message directly and concisely using your general knowledge."

// TokenCounter はトークン数を数えるポート
type TokenCounter interface {
	CountTokens(text string) int
}

// PromptBuilder はLLMに渡すメッセージ列を組み立てます
type PromptBuilder struct {
	defaultSystemPrompt string
	counter             TokenCounter
	contextTokenLimit   int
}

// NewPromptBuilder は新しいPromptBuilderを作成します
// counter が nil の場合、コンテキストのトークン数は制限しません
func NewPromptBuilder(defaultSystemPrompt string, counter TokenCounter, contextTokenLimit int) *PromptBuilder {
	if contextTokenLimit <= 0 {
		contextTokenLimit = DefaultContextTokenLimit
	}
	return &PromptBuilder{
		defaultSystemPrompt: defaultSystemPrompt,
		counter:             counter,
		contextTokenLimit:   contextTokenLimit,
	}
}

// AssembleMessages はシステムメッセージ（任意）とユーザーメッセージをこの順で返します
// systemPrompt が空でなければ既定のシステムプロンプトより優先されます
func (b *PromptBuilder) AssembleMessages(query string, contexts []searchdomain.RetrievedContext, systemPrompt string, history []domain.ConversationTurn) []llmdomain.Message {
	messages := make([]llmdomain.Message, 0, 2)

	if systemPrompt == "" {
		systemPrompt = b.defaultSystemPrompt
	}
	if systemPrompt != "" {
		messages = append(messages, llmdomain.Message{Role: llmdomain.RoleSystem, Content: systemPrompt})
	}

	messages = append(messages, llmdomain.Message{
		Role:    llmdomain.RoleUser,
		Content: b.buildPrompt(query, b.fitContexts(contexts), history),
	})
	return messages
}

// fitContexts はトークン上限に収まる先頭からのコンテキスト本文を返します
func (b *PromptBuilder) fitContexts(contexts []searchdomain.RetrievedContext) []string {
	texts := make([]string, 0, len(contexts))
	used := 0
	for _, c := range contexts {
		if b.counter != nil {
			n := b.counter.CountTokens(c.Text)
			if used+n > b.contextTokenLimit && len(texts) > 0 {
				break
			}
			used += n
		}
		texts = append(texts, c.Text)
	}
	return texts
}

func (b *PromptBuilder) buildPrompt(query string, contexts []string, history []domain.ConversationTurn) string {
	var sb strings.Builder

	sb.WriteString("You are a Q&A expert system. Your responses must always be rooted in the context provided for each query.")
	if len(history) > 0 {
		sb.WriteString(" You are also provided with the conversation history with the user. Make sure to use relevant context from conversation history as needed.")
	}
	sb.WriteString(" Here are some guidelines to follow:\n\n")

	sb.WriteString("1. Refrain from explicitly mentioning the context provided in your response.\n")
	if len(history) > 0 {
		sb.WriteString("2. Take into consideration the conversation history while answering.\n")
		sb.WriteString("3. The context should silently guide your answers without being directly acknowledged.\n")
		sb.WriteString("4. Do not use phrases such as 'According to the context provided', 'Based on the context, ...' etc.\n\n")
	} else {
		sb.WriteString("2. The context should silently guide your answers without being directly acknowledged.\n")
		sb.WriteString("3. Do not use phrases such as 'According to the context provided', 'Based on the context, ...' etc.\n\n")
	}

	sb.WriteString("Context information:\n")
	sb.WriteString("----------------------\n")
	sb.WriteString(strings.Join(contexts, contextSeparator))
	sb.WriteString("\n----------------------\n\n")

	if len(history) > 0 {
		sb.WriteString("Conversation history:\n")
		sb.WriteString("----------------------\n")
		for _, turn := range history {
			sb.WriteString(fmt.Sprintf("human: %s\nai: %s\n", turn.UserMessage, stripSources(turn.AssistantMessage)))
		}
		sb.WriteString("----------------------\n\n")
	}

	sb.WriteString("Query: ")
	sb.WriteString(query)
	sb.WriteString("\nAnswer:\n")

	return sb.String()
}

// stripSources は履歴の回答から sources ブロックを除きます
func stripSources(answer string) string {
	if _, after, ok := strings.Cut(answer, sourcesEndTag); ok {
		return strings.TrimSpace(after)
	}
	return answer
}
