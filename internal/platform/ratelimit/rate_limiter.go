// Package ratelimit は固定ウィンドウ方式のリクエスト数制限を提供します。
package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"member_backend/internal/api"
)

// MessageTooManyRequests は制限超過時のレスポンスメッセージです。
const MessageTooManyRequests = "Too many requests, please try again later."

// Limiter はキーごとにリクエストを許可するかどうかを判定します。
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RedisLimiter はRedisのINCRとEXPIRE NXで固定ウィンドウのカウンタを実装します。
// 状態はすべてRedis側に置かれ、プロセス間で共有されます。
type RedisLimiter struct {
	rdb       redis.Cmdable
	namespace string
	limit     int64
	window    time.Duration
}

var _ Limiter = (*RedisLimiter)(nil)

// NewRedisLimiter はRedisLimiterを生成します。
// limit と window が0以下の場合はデフォルト値（20回/15分）を使用します。
func NewRedisLimiter(rdb redis.Cmdable, namespace string, limit int, window time.Duration) *RedisLimiter {
	if namespace == "" {
		namespace = "ratelimit"
	}
	if limit <= 0 {
		limit = 20
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &RedisLimiter{rdb: rdb, namespace: namespace, limit: int64(limit), window: window}
}

// Allow はカウンタを1増やし、ウィンドウ内の上限以下であればtrueを返します。
// INCRとEXPIRE NXを同じトランザクションで毎回送るため、
// 一度EXPIREが失敗しても次のリクエストでキーに有効期限が付きます。
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	k := fmt.Sprintf("%s:%s", l.namespace, key)
	var incr *redis.IntCmd
	_, err := l.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		pipe.ExpireNX(ctx, k, l.window)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("incr %s: %w", k, err)
	}
	return incr.Val() <= l.limit, nil
}

// Disabled はすべてのリクエストを許可するLimiterです。Redis未接続時に使用します。
type Disabled struct{}

// Allow は常にtrueを返します。
func (Disabled) Allow(context.Context, string) (bool, error) { return true, nil }

// Middleware はクライアントIPごとに scope 単位で制限するginミドルウェアを返します。
// Limiterがエラーを返した場合はリクエストを通します。
func Middleware(l Limiter, scope string, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := scope + ":" + c.ClientIP()
		ok, err := l.Allow(c.Request.Context(), key)
		if err != nil {
			log.Warn("rate limiter unavailable, allowing request", zap.String("scope", scope), zap.Error(err))
			c.Next()
			return
		}
		if !ok {
			log.Warn("rate limit exceeded", zap.String("scope", scope), zap.String("client_ip", c.ClientIP()))
			api.Abort(c, http.StatusTooManyRequests, MessageTooManyRequests, nil)
			return
		}
		c.Next()
	}
}
