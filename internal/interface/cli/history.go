package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

// HistoryShowAction はチャット履歴をJSONで表示するコマンドのアクション
// --session を省略した場合はアプリケーションの全履歴を表示する
func HistoryShowAction(ctx context.Context, cmd *cli.Command) error {
	sessionID := cmd.String("session")

	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	var v any
	if sessionID == "" {
		v, err = appCtx.Container.HistoryService.ListAll(ctx)
	} else {
		v, err = appCtx.Container.HistoryService.SessionHistory(ctx, sessionID)
	}
	if err != nil {
		return fmt.Errorf("チャット履歴の取得に失敗: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
