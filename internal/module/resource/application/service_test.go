package application_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/ppx-backend/internal/module/resource/application"
	"github.com/jinford/ppx-backend/internal/module/resource/domain"
	"github.com/jinford/ppx-backend/internal/shared/apperr"
)

type mockRepository struct {
	FindByIDFunc func(ctx context.Context, id string) (*domain.Resource, error)
}

func (m *mockRepository) FindByID(ctx context.Context, id string) (*domain.Resource, error) {
	return m.FindByIDFunc(ctx, id)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestService_Get(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		find    func(ctx context.Context, id string) (*domain.Resource, error)
		wantErr error
		// wantServerErr はクライアントエラー以外のエラーを期待する場合に true
		wantServerErr bool
	}{
		{
			name: "存在するリソース",
			id:   "r1",
			find: func(ctx context.Context, id string) (*domain.Resource, error) {
				return &domain.Resource{ID: id}, nil
			},
		},
		{
			name: "存在しないリソース",
			id:   "missing",
			find: func(ctx context.Context, id string) (*domain.Resource, error) {
				return nil, nil
			},
			wantErr: apperr.ErrNotFound,
		},
		{
			name:    "IDが空",
			wantErr: apperr.ErrValidation,
		},
		{
			name: "DBエラー",
			id:   "r1",
			find: func(ctx context.Context, id string) (*domain.Resource, error) {
				return nil, errors.New("database is locked")
			},
			wantServerErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := application.NewService(&mockRepository{FindByIDFunc: tt.find}, testLogger())

			res, err := service.Get(context.Background(), tt.id)

			switch {
			case tt.wantErr != nil:
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.wantServerErr:
				require.Error(t, err)
				assert.False(t, apperr.IsClientError(err))
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.id, res.ID)
			}
		})
	}
}
