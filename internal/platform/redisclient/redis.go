package redisclient

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Params はRedis接続パラメータ
type Params struct {
	URL      string
	Password string
	DB       int
}

// Options は接続パラメータから redis.Options を組み立てます
// redis:// または rediss:// で始まる場合はURLとして解釈し、それ以外は host:port とみなします
func Options(p Params) (*redis.Options, error) {
	if strings.HasPrefix(p.URL, "redis://") || strings.HasPrefix(p.URL, "rediss://") {
		opt, err := redis.ParseURL(p.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
		}
		return opt, nil
	}

	return &redis.Options{
		Addr:     p.URL,
		Password: p.Password,
		DB:       p.DB,
	}, nil
}

// New はRedisクライアントを作成し、疎通確認を行います
func New(ctx context.Context, p Params) (*redis.Client, error) {
	opt, err := Options(p)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return rdb, nil
}
