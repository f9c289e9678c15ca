package application

import (
	"context"
	"log/slog"

	"github.com/jinford/ppx-backend/internal/module/resource/domain"
	"github.com/jinford/ppx-backend/internal/shared/apperr"
)

// Service はリソースの参照を提供します
type Service struct {
	repo domain.Repository
	log  *slog.Logger
}

// NewService は新しいServiceを作成します
func NewService(repo domain.Repository, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{repo: repo, log: log}
}

// Get はリソースを返します。存在しない場合は NotFound エラーを返します
func (s *Service) Get(ctx context.Context, id string) (*domain.Resource, error) {
	if id == "" {
		return nil, apperr.Validation("resource id is required")
	}

	res, err := s.repo.FindByID(ctx, id)
	if err != nil {
		s.log.Error("Failed to get resource", "resourceID", id, "error", err)
		return nil, err
	}
	if res == nil {
		return nil, apperr.NotFound("Resource not found")
	}
	return res, nil
}
