package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gin-gonic/gin"
	redisv9 "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"member_backend/internal/app/config"
	"member_backend/internal/app/di"
	"member_backend/internal/app/router"
	authadapters "member_backend/internal/feature/auth/adapters"
	authhandler "member_backend/internal/feature/auth/transport/handler"
	authusecase "member_backend/internal/feature/auth/usecase"
	membersadapters "member_backend/internal/feature/members/adapters"
	membershandler "member_backend/internal/feature/members/transport/handler"
	membersusecase "member_backend/internal/feature/members/usecase"
	"member_backend/internal/platform/db"
	platformhandler "member_backend/internal/platform/http/handler"
	jwtmw "member_backend/internal/platform/jwt"
	"member_backend/internal/platform/logger"
	infraredis "member_backend/internal/platform/redis"
	"member_backend/internal/platform/tracing"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	zl, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = zl.Sync() }()
	zap.ReplaceGlobals(zl)

	if cfg.Auth.InsecureSecret {
		zl.Warn("JWT_SECRET is not set; using the development fallback secret. Set a strong secret in production.")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			zl.Warn("tracer shutdown failed", zap.Error(err))
		}
	}()

	// db
	if cfg.Database.Driver == db.DriverSQLite {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
			return fmt.Errorf("create sqlite directory: %w", err)
		}
	}
	gdb, err := db.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return fmt.Errorf("get sql.DB: %w", err)
	}
	defer func() { _ = sqlDB.Close() }()
	zl.Info("database connected", zap.String("driver", cfg.Database.Driver))

	// Repository
	userRepo := authadapters.NewUserGorm(gdb)
	memberRepo := membersadapters.NewMemberGorm(gdb)

	// マイグレーション
	if cfg.Database.AutoMigrate {
		if err := db.Migrate(gdb, &authadapters.UserModel{}, &membersadapters.MemberModel{}); err != nil {
			return err
		}
		n, err := memberRepo.BackfillSearchText(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			zl.Info("member search index backfilled", zap.Int64("rows", n))
		}
	}

	// Redis（任意）
	var rdb *redisv9.Client
	if tmp, err := infraredis.NewRedisClient(ctx, cfg.Redis, zl); err != nil {
		if !errors.Is(err, infraredis.ErrNotConfigured) {
			zl.Warn("Redis unavailable. Running without rate limiting.", zap.Error(err))
		}
	} else {
		rdb = tmp
		defer func() {
			if err := rdb.Close(); err != nil {
				zl.Error("failed to close Redis client", zap.Error(err))
			}
		}()
	}

	mediaStore, err := di.NewMediaStore(ctx, cfg.Storage, zl)
	if err != nil {
		return fmt.Errorf("setup media store: %w", err)
	}

	// Usecase
	tokens := jwtmw.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	authUC := authusecase.NewAuthUsecase(userRepo, tokens, mediaStore, zl, authusecase.WithBcryptCost(cfg.Auth.BcryptCost))
	membersUC := membersusecase.NewMembersUsecase(memberRepo)

	// Handler
	deps := map[string]platformhandler.Pinger{"database": sqlDB}
	if rdb != nil {
		deps["redis"] = platformhandler.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	}
	handlers := router.Handlers{
		Auth:    authhandler.NewAuthHandler(authUC, zl),
		Members: membershandler.NewMembersHandler(membersUC, zl),
		Health:  platformhandler.NewHealthHandler(zl, deps),
	}

	// ルータ生成
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := router.NewRouter(handlers, router.Options{
		AllowOrigins:   cfg.CORS.AllowOrigins,
		ExposeErrors:   cfg.IsDevelopment(),
		TrustedProxies: cfg.Server.TrustedProxies,
		Limiter:        di.NewRateLimiter(rdb, cfg.RateLimit, zl),
		Verifier:       tokens,
		Resolver:       authUC,
		Log:            zl,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           engine,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		zl.Info("listening", zap.String("addr", cfg.Server.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}
	zl.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Warn("http shutdown", zap.Error(err))
	}
	return nil
}
