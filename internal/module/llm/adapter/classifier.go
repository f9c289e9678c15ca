package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jinford/ppx-backend/internal/module/llm/domain"
)

// QuestionThreshold は質問クラスの確率がこの値を超えたら質問とみなす
const QuestionThreshold = 0.5

const classifierPrompt = `Classify whether the following user input is a question (it asks for information) or a statement/command.
Respond with a JSON object of the form {"question_probability": <number between 0 and 1>} and nothing else.

Input:
`

// LLMClassifier はLLMに質問確率を推定させる分類器
type LLMClassifier struct {
	completer domain.Completer
	model     string
	logger    *slog.Logger
}

// NewLLMClassifier は新しいLLMClassifierを作成する
func NewLLMClassifier(completer domain.Completer, model string, logger *slog.Logger) *LLMClassifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LLMClassifier{completer: completer, model: model, logger: logger}
}

type classification struct {
	QuestionProbability *float64 `json:"question_probability"`
}

// IsQuestion は質問確率が QuestionThreshold を超えるかを返す
func (c *LLMClassifier) IsQuestion(ctx context.Context, text string) (bool, error) {
	resp, err := c.completer.GenerateCompletion(ctx, domain.CompletionRequest{
		Prompt:         classifierPrompt + text,
		Temperature:    0,
		MaxTokens:      20,
		ResponseFormat: "json",
		Model:          c.model,
	})
	if err != nil {
		return false, fmt.Errorf("failed to classify query: %w", err)
	}

	var result classification
	if err := json.Unmarshal([]byte(resp.Content), &result); err != nil {
		return false, fmt.Errorf("failed to parse classification: %w", err)
	}
	if result.QuestionProbability == nil {
		return false, fmt.Errorf("classification missing question_probability: %s", resp.Content)
	}

	p := *result.QuestionProbability
	c.logger.Debug("query classified", "probability", p)

	return p > QuestionThreshold, nil
}

// HeuristicClassifier はネットワークを使わない簡易分類器
type HeuristicClassifier struct{}

// NewHeuristicClassifier は新しいHeuristicClassifierを作成する
func NewHeuristicClassifier() *HeuristicClassifier {
	return &HeuristicClassifier{}
}

var questionWords = map[string]struct{}{
	"what": {}, "why": {}, "how": {}, "when": {}, "where": {}, "who": {}, "whom": {}, "whose": {}, "which": {},
	"is": {}, "are": {}, "was": {}, "were": {}, "do": {}, "does": {}, "did": {}, "can": {}, "could": {},
	"should": {}, "would": {}, "will": {}, "shall": {}, "may": {}, "might": {}, "have": {}, "has": {}, "had": {},
}

// IsQuestion は疑問符で終わるか、疑問詞・助動詞で始まる場合に true を返す
func (h *HeuristicClassifier) IsQuestion(_ context.Context, text string) (bool, error) {
	return h.probability(text) > QuestionThreshold, nil
}

func (h *HeuristicClassifier) probability(text string) float64 {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0
	}
	if strings.HasSuffix(text, "?") {
		return 1
	}
	fields := strings.Fields(strings.ToLower(text))
	first := strings.Trim(fields[0], ",.:;!\"'")
	if _, ok := questionWords[first]; ok {
		return 1
	}
	return 0
}

var (
	_ domain.Classifier = (*LLMClassifier)(nil)
	_ domain.Classifier = (*HeuristicClassifier)(nil)
)
