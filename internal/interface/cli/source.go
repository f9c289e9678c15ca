package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"

	indexingapp "github.com/jinford/ppx-backend/internal/module/indexing/application"
)

// SourceListAction はデータソース一覧を表示するコマンドのアクション
func SourceListAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	sources, err := appCtx.Container.SourceService.ListSources(ctx)
	if err != nil {
		return fmt.Errorf("データソース一覧の取得に失敗: %w", err)
	}

	if len(sources) == 0 {
		fmt.Println("データソースはありません")
		return nil
	}
	for _, s := range sources {
		fmt.Printf("%s\t%s\t%s\n", s.Hash, s.DataType, s.DataValue)
	}
	return nil
}

// SourceAddAction はデータソースを読み込んでインデックスするコマンドのアクション
func SourceAddAction(ctx context.Context, cmd *cli.Command) error {
	params := indexingapp.AddSourceParams{
		DataType:  cmd.String("type"),
		DataValue: cmd.String("value"),
		Metadata:  cmd.String("metadata"),
	}

	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	slog.Info("データソースの追加を開始", "dataType", params.DataType, "dataValue", params.DataValue)

	result, err := appCtx.Container.SourceService.AddSource(ctx, params)
	if err != nil {
		slog.Error("データソースの追加に失敗しました", "error", err)
		return err
	}

	fmt.Printf("✓ データソースを追加しました: doc_id=%s chunks=%d inserted=%d\n",
		result.DocID, result.Chunks, result.Inserted)
	return nil
}

// SourceDeleteAction はリソースに紐づくチャンクを削除するコマンドのアクション
func SourceDeleteAction(ctx context.Context, cmd *cli.Command) error {
	resourceID := cmd.String("resource-id")

	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	deleted, err := appCtx.Container.SourceService.DeleteSource(ctx, resourceID, cmd.String("collection"))
	if err != nil {
		return fmt.Errorf("データソースの削除に失敗: %w", err)
	}

	fmt.Printf("✓ %d 件のチャンクを削除しました: resource_id=%s\n", deleted, resourceID)
	return nil
}
