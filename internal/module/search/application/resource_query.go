package application

import (
	"context"
	"fmt"

	searchdomain "github.com/jinford/ppx-backend/internal/module/search/domain"
)

const (
	// ResourceScoreThreshold はリソースを関連ありとみなす距離の上限
	ResourceScoreThreshold = 300

	// resourceQueryLimit はリソース検索で取得するチャンク数
	resourceQueryLimit = 100
)

// ContextRetriever はチャンク検索のポート
type ContextRetriever interface {
	Retrieve(ctx context.Context, query string, filter searchdomain.Filter, k int) ([]searchdomain.RetrievedContext, error)
}

// ResourceQueryService はクエリに関連するリソースIDを求めます
type ResourceQueryService struct {
	retriever ContextRetriever
	appID     string
}

// NewResourceQueryService は新しいResourceQueryServiceを作成します
func NewResourceQueryService(retriever ContextRetriever, appID string) *ResourceQueryService {
	return &ResourceQueryService{retriever: retriever, appID: appID}
}

// RelevantResources は resourceIDs のうち、距離がしきい値未満のチャンクを持つリソースIDを返します
// 結果は最初に現れた順で重複を含みません
func (s *ResourceQueryService) RelevantResources(ctx context.Context, query string, resourceIDs []string) ([]string, error) {
	filter := searchdomain.Filter{AppID: s.appID, ResourceIDs: resourceIDs}

	contexts, err := s.retriever.Retrieve(ctx, query, filter, resourceQueryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to query resources: %w", err)
	}

	seen := make(map[string]struct{})
	relevant := make([]string, 0)
	for _, c := range contexts {
		if c.Score >= ResourceScoreThreshold {
			continue
		}
		id := c.ResourceID()
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		relevant = append(relevant, id)
	}
	return relevant, nil
}
