// Package handler はプラットフォームレベルのエンドポイント用HTTPハンドラーを提供します。
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"member_backend/internal/api"
)

// readyTimeout は依存先への疎通確認に使う最大時間です。
const readyTimeout = 2 * time.Second

// Pinger は疎通確認できる依存先です（*sql.DB や Redis クライアントのラッパー）。
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PingFunc は関数を Pinger として扱うアダプターです。
type PingFunc func(ctx context.Context) error

// PingContext implements Pinger.
func (f PingFunc) PingContext(ctx context.Context) error { return f(ctx) }

// HealthHandler は /healthz と /readyz を処理します。
type HealthHandler struct {
	deps map[string]Pinger
	log  *zap.Logger
}

// NewHealthHandler は名前付きの依存先を確認するHealthHandlerを生成します。
// nil の依存先は無視されます。
func NewHealthHandler(log *zap.Logger, deps map[string]Pinger) *HealthHandler {
	filtered := make(map[string]Pinger, len(deps))
	for name, p := range deps {
		if p != nil {
			filtered[name] = p
		}
	}
	return &HealthHandler{deps: filtered, log: log}
}

// Live はプロセスの生存確認です。依存先は確認しません。
// HTTPメソッドに応じて適切にレスポンスし、キャッシュを防止します。
func (h *HealthHandler) Live(c *gin.Context) {
	// 明示的にキャッシュを防止
	c.Header("Cache-Control", "no-store")

	switch c.Request.Method {
	case http.MethodHead:
		c.Status(http.StatusOK)
	case http.MethodOptions:
		c.Status(http.StatusNoContent)
	default:
		api.OK(c, http.StatusOK, "ok", gin.H{"status": "ok"})
	}
}

// Ready はすべての依存先に疎通できる場合のみ200を返します。
func (h *HealthHandler) Ready(c *gin.Context) {
	c.Header("Cache-Control", "no-store")

	ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
	defer cancel()

	status := make(map[string]string, len(h.deps))
	healthy := true
	for name, p := range h.deps {
		if err := p.PingContext(ctx); err != nil {
			h.log.Warn("readiness check failed", zap.String("dependency", name), zap.Error(err))
			status[name] = "unavailable"
			healthy = false
			continue
		}
		status[name] = "ok"
	}

	if !healthy {
		api.Fail(c, http.StatusServiceUnavailable, "Service Unavailable", status)
		return
	}
	api.OK(c, http.StatusOK, "ready", status)
}
