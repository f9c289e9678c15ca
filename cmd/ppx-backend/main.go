package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	appcli "github.com/jinford/ppx-backend/internal/interface/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 設定読み込み前のログはJSONで出力する
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	app := &cli.Command{
		Name:  "ppx-backend",
		Usage: "動画・ドキュメント向け RAG チャットのバックエンド",
		Commands: []*cli.Command{
			{
				Name:  "server",
				Usage: "HTTPサーバコマンド",
				Commands: []*cli.Command{
					{
						Name:  "start",
						Usage: "HTTPサーバを起動",
						Flags: []cli.Flag{
							envFlag(),
							&cli.IntFlag{
								Name:  "port",
								Usage: "待ち受けポート（未指定時は HTTP_PORT）",
							},
						},
						Action: appcli.ServerStartAction,
					},
				},
			},
			{
				Name:  "source",
				Usage: "データソース管理コマンド",
				Commands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "データソース一覧を表示",
						Flags:  []cli.Flag{envFlag()},
						Action: appcli.SourceListAction,
					},
					{
						Name:  "add",
						Usage: "データソースを読み込んでインデックス化",
						Flags: []cli.Flag{
							envFlag(),
							&cli.StringFlag{
								Name:     "type",
								Usage:    "データ種別 (text/web_page/pdf_file/excel_file/youtube_video)",
								Required: true,
							},
							&cli.StringFlag{
								Name:     "value",
								Usage:    "本文、URLまたはファイルパス",
								Required: true,
							},
							&cli.StringFlag{
								Name:  "metadata",
								Usage: "チャンクに付与するメタデータ（JSONオブジェクト）",
							},
						},
						Action: appcli.SourceAddAction,
					},
					{
						Name:  "delete",
						Usage: "リソースに紐づくチャンクを削除",
						Flags: []cli.Flag{
							envFlag(),
							&cli.StringFlag{
								Name:     "resource-id",
								Usage:    "リソースID",
								Required: true,
							},
							&cli.StringFlag{
								Name:  "collection",
								Usage: "コレクション名（未指定時は VECTOR_COLLECTION）",
							},
						},
						Action: appcli.SourceDeleteAction,
					},
				},
			},
			{
				Name:  "history",
				Usage: "チャット履歴コマンド",
				Commands: []*cli.Command{
					{
						Name:  "show",
						Usage: "チャット履歴を表示",
						Flags: []cli.Flag{
							envFlag(),
							&cli.StringFlag{
								Name:  "session",
								Usage: "セッションID（未指定時は全履歴）",
							},
						},
						Action: appcli.HistoryShowAction,
					},
				},
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func envFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "env",
		Usage: "環境変数ファイルパス",
		Value: ".env",
	}
}
