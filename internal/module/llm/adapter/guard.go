package adapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/jinford/ppx-backend/internal/module/llm/domain"
)

// Guard はLLM呼び出しをレート制限・サーキットブレーカー・トレーシングで包む
type Guard struct {
	name    string
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	tracer  trace.Tracer
	logger  *slog.Logger
}

// NewGuard は新しいGuardを作成する
// requestsPerMinute が0以下の場合はレート制限を行わない
func NewGuard(name string, requestsPerMinute int, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if requestsPerMinute > 0 {
		burst := requestsPerMinute / 10
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), burst)
	}

	g := &Guard{
		name:    name,
		limiter: limiter,
		tracer:  otel.Tracer("ppx-backend/llm"),
		logger:  logger,
	}

	g.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		IsSuccessful: func(err error) bool {
			// 呼び出し側のキャンセルは上流の障害として数えない
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			g.logger.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	})

	return g
}

// Do はレート制限の待機後、サーキットブレーカー経由で fn を実行する
func (g *Guard) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, span := g.tracer.Start(ctx, g.name+"."+op)
	defer span.End()

	if err := g.limiter.Wait(ctx); err != nil {
		span.SetAttributes(attribute.Bool("llm.rate_limited", true))
		return fmt.Errorf("%w: %v", domain.ErrRateLimitExceeded, err)
	}

	_, err := g.breaker.Execute(func() (interface{}, error) {
		return nil, fn(ctx)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			span.SetAttributes(attribute.Bool("llm.circuit_breaker_open", true))
			return fmt.Errorf("%w: %s", domain.ErrCircuitOpen, g.name)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}

// State はサーキットブレーカーの現在の状態を返す
func (g *Guard) State() gobreaker.State {
	return g.breaker.State()
}
