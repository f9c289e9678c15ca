package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/jinford/ppx-backend/internal/interface/httpapi"
	"github.com/jinford/ppx-backend/internal/platform/telemetry"
)

const readHeaderTimeout = 10 * time.Second

// ServerStartAction はHTTPサーバを起動するコマンドのアクション
// ctx がキャンセルされるとリクエストの完了を待って停止する
func ServerStartAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	cfg := appCtx.Config
	log := appCtx.Logger()

	shutdownTracer, err := telemetry.InitTracer(ctx, telemetry.Config{
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		ServiceName: cfg.Telemetry.ServiceName,
		SampleRatio: cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		return fmt.Errorf("トレーサーの初期化に失敗: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracer(flushCtx); err != nil {
			log.Warn("トレーサーの停止に失敗しました", "error", err)
		}
	}()

	port := int(cmd.Int("port"))
	if port == 0 {
		port = cfg.HTTP.Port
	}

	srv := newServer(fmt.Sprintf(":%d", port), httpapi.NewRouter(appCtx.HTTPDependencies()))
	return runServer(ctx, srv, cfg.HTTP.ShutdownTimeout, log)
}

func newServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

// runServer は ctx がキャンセルされるまでサーバを動かし、その後グレースフルに停止する
func runServer(ctx context.Context, srv *http.Server, shutdownTimeout time.Duration, log *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTPサーバを起動しました", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("HTTPサーバが異常終了しました: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("HTTPサーバを停止します", "timeout", shutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTPサーバの停止に失敗: %w", err)
	}
	return nil
}
