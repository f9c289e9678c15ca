package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	searchdomain "github.com/jinford/ppx-backend/internal/module/search/domain"
	"github.com/jinford/ppx-backend/internal/module/topics/domain"
	"github.com/jinford/ppx-backend/internal/shared/apperr"
)

// Service はコレクションのトピック抽出を提供します
type Service struct {
	reader searchdomain.CollectionReader
	log    *slog.Logger
}

// NewService は新しいServiceを作成します
func NewService(reader searchdomain.CollectionReader, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{reader: reader, log: log}
}

// LDA はリソース単位に結合したドキュメントでLDAを学習し、トピックと分布を返します
func (s *Service) LDA(ctx context.Context, collection string, params LDAParams) (*domain.LDAResult, error) {
	if params.NumTopics < 0 || params.Passes < 0 {
		return nil, apperr.Validation("num_topics and passes must be positive")
	}

	docs, err := s.reader.ListDocuments(ctx, collection)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: %w", apperr.NotFound("No documents found"), domain.ErrNoDocuments)
	}

	var order []string
	combined := make(map[string]*strings.Builder)
	for _, doc := range docs {
		resourceID := metaString(doc.Metadata, "resource_id")
		sb, ok := combined[resourceID]
		if !ok {
			sb = &strings.Builder{}
			combined[resourceID] = sb
			order = append(order, resourceID)
		} else {
			sb.WriteString(" ")
		}
		sb.WriteString(doc.Document)
	}

	tokens := make([][]string, len(order))
	for i, resourceID := range order {
		tokens[i] = Preprocess(combined[resourceID].String())
	}

	model := FitLDA(tokens, params)
	s.log.Info("Fitted LDA topic model",
		"collection", collection,
		"documents", len(order),
		"vocabulary", model.Vocabulary(),
	)

	result := &domain.LDAResult{
		Topics:    model.Topics(topWordsPerTopic),
		Documents: make([]domain.DocumentTopics, len(order)),
	}
	for i, resourceID := range order {
		result.Documents[i] = domain.DocumentTopics{
			ResourceID: resourceID,
			Topics:     model.DocumentTopics(i),
		}
	}
	return result, nil
}

// Clusters はチャンクの埋め込みからトピックを抽出します
func (s *Service) Clusters(ctx context.Context, collection string, params ClusterParams) ([]domain.DocumentTopic, error) {
	if err := validateClusterParams(params); err != nil {
		return nil, err
	}

	docs, err := s.reader.ListEmbeddings(ctx, collection, "")
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: %w", apperr.NotFound("No documents found"), domain.ErrNoDocuments)
	}

	inputs := make([]ClusterInput, len(docs))
	for i, doc := range docs {
		inputs[i] = ClusterInput{
			Text:       doc.Document.Document,
			ResourceID: metaString(doc.Metadata, "resource_id"),
			Embedding:  doc.Embedding,
		}
	}

	topics := ClusterTopics(inputs, params)
	s.log.Info("Clustered collection topics",
		"collection", collection,
		"documents", len(inputs),
		"assigned", len(topics),
	)
	return topics, nil
}

// validateClusterParams はゼロ値（未指定）以外の範囲を検証します
func validateClusterParams(p ClusterParams) error {
	if p.MinTopicSize != 0 && (p.MinTopicSize < 2 || p.MinTopicSize > 100) {
		return apperr.Validation("minimum_topics must be between 2 and 100")
	}
	if p.NrTopics != 0 && p.NrTopics < 2 {
		return apperr.Validation("nr_topics must be at least 2")
	}
	if p.TopNWords != 0 && (p.TopNWords < 1 || p.TopNWords > 20) {
		return apperr.Validation("top_n_words must be between 1 and 20")
	}
	if p.ProbThreshold != 0 && (p.ProbThreshold < 0.1 || p.ProbThreshold > 1) {
		return apperr.Validation("prob_threshold must be between 0.1 and 1.0")
	}
	return nil
}

func metaString(metadata map[string]any, key string) string {
	v, ok := metadata[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
