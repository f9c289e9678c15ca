package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jinford/ppx-backend/internal/interface/httpapi"
	"github.com/jinford/ppx-backend/internal/platform/config"
	"github.com/jinford/ppx-backend/internal/platform/container"
	"github.com/jinford/ppx-backend/internal/platform/logger"
)

// AppContext はコマンド実行に必要な共通コンテキストを保持する
type AppContext struct {
	Config    *config.Config
	Container *container.Container
}

// NewAppContext は設定ファイルを読み込み、各ストアに接続して AppContext を作成する
func NewAppContext(ctx context.Context, envFile string) (*AppContext, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, fmt.Errorf("設定の読み込みに失敗: %w", err)
	}

	appLogger := logger.New(logger.FromStrings(cfg.Log.Level, cfg.Log.Format))

	cont, err := container.New(ctx, cfg, container.WithLogger(appLogger))
	if err != nil {
		return nil, fmt.Errorf("コンテナの初期化に失敗: %w", err)
	}

	return &AppContext{
		Config:    cfg,
		Container: cont,
	}, nil
}

// Close はAppContextが保持するリソースをクリーンアップする
func (ac *AppContext) Close() {
	if ac.Container == nil {
		return
	}
	if err := ac.Container.Close(); err != nil {
		ac.Logger().Warn("リソースの解放に失敗しました", "error", err)
	}
}

// Logger はAppContextのロガーを返す
func (ac *AppContext) Logger() *slog.Logger {
	if ac.Container != nil && ac.Container.Logger != nil {
		return ac.Container.Logger
	}
	return slog.Default()
}

// HTTPDependencies はHTTPルーターに渡すサービス群を組み立てる
func (ac *AppContext) HTTPDependencies() httpapi.Dependencies {
	c := ac.Container
	return httpapi.Dependencies{
		Chat:           c.Orchestrator,
		Embedder:       c.Embedder,
		Resources:      c.ResourceService,
		ResourceQuery:  c.ResourceQuery,
		Similarity:     c.Similarity,
		Transcripts:    c.Transcripts,
		Collections:    c.VectorStore,
		Topics:         c.TopicService,
		History:        c.HistoryService,
		Sources:        c.SourceService,
		AllowedOrigins: ac.Config.HTTP.AllowedOrigins,
		AdminToken:     ac.Config.AdminAPIToken,
		Logger:         ac.Logger(),
	}
}
