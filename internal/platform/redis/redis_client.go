// Package redis はRedisクライアントの生成を提供します。
package redis

import (
	"context"
	"errors"
	"net"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrNotConfigured はRedisのホストが設定されていない場合に返されます。
var ErrNotConfigured = errors.New("redis not configured")

// Config はRedis接続設定です。
type Config struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Addr は host:port 形式のアドレスを返します。
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// NewRedisClient はRedisへ接続し、Pingで疎通を確認したクライアントを返します。
func NewRedisClient(ctx context.Context, cfg Config, log *zap.Logger) (*redis.Client, error) {
	if cfg.Host == "" {
		return nil, ErrNotConfigured
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// 接続確認
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Error("redis connection failed", zap.String("address", cfg.Addr()), zap.Error(err))
		_ = rdb.Close()
		return nil, err
	}

	log.Info("redis connection successful", zap.String("address", cfg.Addr()))
	return rdb, nil
}
