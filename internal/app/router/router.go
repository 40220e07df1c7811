// Package router はHTTPルーティングとミドルウェアの構成を提供します。
package router

import (
	"fmt"
	"io"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"member_backend/internal/api"
	authhandler "member_backend/internal/feature/auth/transport/handler"
	membershandler "member_backend/internal/feature/members/transport/handler"
	"member_backend/internal/platform/identity"
	platformhandler "member_backend/internal/platform/http/handler"
	jwtmw "member_backend/internal/platform/jwt"
	"member_backend/internal/platform/logger"
	"member_backend/internal/platform/media"
	"member_backend/internal/platform/ratelimit"
)

// Handlers はルーターに登録するハンドラーの集合です。
type Handlers struct {
	Auth    *authhandler.AuthHandler
	Members *membershandler.MembersHandler
	Health  *platformhandler.HealthHandler
}

// Options はミドルウェアの構成です。
type Options struct {
	// AllowOrigins が "*" を含む場合はすべてのオリジンを許可します。
	AllowOrigins []string
	// ExposeErrors が true の場合、500レスポンスに内部エラーの詳細を含めます。
	ExposeErrors bool
	// TrustedProxies はX-Forwarded-Forを信頼するプロキシのIPまたはCIDRです。
	// 空の場合はどのプロキシも信頼せず、接続元アドレスをクライアントIPとします。
	TrustedProxies []string
	Limiter      ratelimit.Limiter
	Verifier     jwtmw.TokenVerifier
	Resolver     identity.Resolver
	Log          *zap.Logger
}

// NewRouter はすべてのルートを登録したginエンジンを返します。
func NewRouter(h Handlers, opts Options) *gin.Engine {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	limiter := opts.Limiter
	if limiter == nil {
		limiter = ratelimit.Disabled{}
	}

	api.UseRequestFieldNames()

	r := gin.New()
	if err := r.SetTrustedProxies(opts.TrustedProxies); err != nil {
		log.Warn("invalid trusted proxies, trusting none", zap.Strings("trusted_proxies", opts.TrustedProxies), zap.Error(err))
		_ = r.SetTrustedProxies(nil)
	}
	r.MaxMultipartMemory = media.MaxImageSize + 1<<20
	r.Use(
		logger.GinLogger(log),
		gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered any) {
			log.Error("panic recovered", zap.Any("panic", recovered), zap.String("path", c.Request.URL.Path))
			api.Internal(c, fmt.Errorf("panic: %v", recovered))
		}),
		securityHeaders(),
		cors.New(corsConfig(opts.AllowOrigins)),
		api.ExposeErrors(opts.ExposeErrors),
	)
	r.NoRoute(api.NoRoute)

	// 認証不要
	// 導通確認用
	r.GET("/healthz", h.Health.Live)
	r.HEAD("/healthz", h.Health.Live)
	r.GET("/readyz", h.Health.Ready)

	gate := jwtmw.AuthRequired(opts.Verifier, opts.Resolver, log)

	apiGroup := r.Group("/api")

	auth := apiGroup.Group("/auth")
	{
		// 新規ユーザー登録とログインはクライアントIPごとに回数制限
		auth.POST("/signup", ratelimit.Middleware(limiter, "signup", log), h.Auth.Signup)
		auth.POST("/login", ratelimit.Middleware(limiter, "login", log), h.Auth.Login)

		// 認証必須
		auth.GET("/profile", gate, h.Auth.Profile)
		auth.POST("/logout", gate, h.Auth.Logout)
	}

	// 認証必須のルート
	members := apiGroup.Group("/members", gate)
	{
		members.POST("", h.Members.Create)
		members.GET("", h.Members.List)
		members.GET("/:id", h.Members.Get)
		members.PUT("/:id", h.Members.Update)
		members.DELETE("/:id", h.Members.Delete)
	}

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

// securityHeaders は一般的なセキュリティ関連のHTTPヘッダーを設定します。
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		// MIMEスニッフィング防止
		h.Set("X-Content-Type-Options", "nosniff")
		// クリックジャッキング対策
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		if c.Request.TLS != nil {
			h.Set("Strict-Transport-Security", "max-age=15552000; includeSubDomains")
		}
		c.Next()
	}
}
