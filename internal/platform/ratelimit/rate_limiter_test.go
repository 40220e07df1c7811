package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// TestNewRedisLimiter_Defaults はゼロ値の引数にデフォルト値が適用されることを検証します。
func TestNewRedisLimiter_Defaults(t *testing.T) {
	t.Parallel()

	l := NewRedisLimiter(nil, "", 0, 0)

	assert.Equal(t, "ratelimit", l.namespace)
	assert.EqualValues(t, 20, l.limit)
	assert.Equal(t, 15*time.Minute, l.window)
}

// TestRedisLimiter_Allow_Commands はINCRとEXPIRE NXが毎回トランザクションで送られることをredismockで検証します。
func TestRedisLimiter_Allow_Commands(t *testing.T) {
	t.Parallel()

	db, mock := redismock.NewClientMock()
	l := NewRedisLimiter(db, "rl", 2, time.Minute)
	ctx := context.Background()

	for _, n := range []int64{1, 2, 3} {
		mock.ExpectTxPipeline()
		mock.ExpectIncr("rl:login:1.2.3.4").SetVal(n)
		mock.ExpectExpireNX("rl:login:1.2.3.4", time.Minute).SetVal(n == 1)
		mock.ExpectTxPipelineExec()
	}

	ok, err := l.Allow(ctx, "login:1.2.3.4")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.Allow(ctx, "login:1.2.3.4")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.Allow(ctx, "login:1.2.3.4")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestRedisLimiter_Allow_ExpireFailureRetried はEXPIREが失敗した次のリクエストで再び有効期限を設定することを検証します。
func TestRedisLimiter_Allow_ExpireFailureRetried(t *testing.T) {
	t.Parallel()

	db, mock := redismock.NewClientMock()
	l := NewRedisLimiter(db, "rl", 2, time.Minute)
	ctx := context.Background()

	mock.ExpectTxPipeline()
	mock.ExpectIncr("rl:k").SetVal(1)
	mock.ExpectExpireNX("rl:k", time.Minute).SetErr(errors.New("i/o timeout"))

	mock.ExpectTxPipeline()
	mock.ExpectIncr("rl:k").SetVal(2)
	mock.ExpectExpireNX("rl:k", time.Minute).SetVal(true)
	mock.ExpectTxPipelineExec()

	_, err := l.Allow(ctx, "k")
	require.Error(t, err)

	ok, err := l.Allow(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestRedisLimiter_Allow_RedisError はRedisエラーがそのまま返されることを検証します。
func TestRedisLimiter_Allow_RedisError(t *testing.T) {
	t.Parallel()

	db, mock := redismock.NewClientMock()
	l := NewRedisLimiter(db, "rl", 2, time.Minute)

	mock.ExpectTxPipeline()
	mock.ExpectIncr("rl:k").SetErr(errors.New("connection refused"))

	ok, err := l.Allow(context.Background(), "k")
	assert.Error(t, err)
	assert.False(t, ok)
}

// TestRedisLimiter_KeyAlwaysHasTTL は既存のキーに有効期限がない場合でも次のリクエストで設定されることをminiredisで検証します。
func TestRedisLimiter_KeyAlwaysHasTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	// 有効期限のないカウンタが残っている状態
	require.NoError(t, mr.Set("rl:k", "5"))

	l := NewRedisLimiter(rdb, "rl", 3, time.Minute)
	ok, err := l.Allow(context.Background(), "k")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, time.Minute, mr.TTL("rl:k"))

	mr.FastForward(time.Minute + time.Second)

	ok, err = l.Allow(context.Background(), "k")
	require.NoError(t, err)
	assert.True(t, ok)
}

// TestRedisLimiter_WindowResets はウィンドウ経過後にカウンタがリセットされることをminiredisで検証します。
func TestRedisLimiter_WindowResets(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	l := NewRedisLimiter(rdb, "rl", 1, time.Minute)
	ctx := context.Background()

	ok, err := l.Allow(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.Allow(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	mr.FastForward(time.Minute + time.Second)

	ok, err = l.Allow(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
}

type stubLimiter struct {
	allow bool
	err   error
}

func (s stubLimiter) Allow(context.Context, string) (bool, error) { return s.allow, s.err }

func TestMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		limiter    Limiter
		wantStatus int
	}{
		{name: "allowed", limiter: stubLimiter{allow: true}, wantStatus: http.StatusOK},
		{name: "rejected", limiter: stubLimiter{allow: false}, wantStatus: http.StatusTooManyRequests},
		{name: "limiter error fails open", limiter: stubLimiter{err: errors.New("down")}, wantStatus: http.StatusOK},
		{name: "disabled", limiter: Disabled{}, wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.POST("/login", Middleware(tt.limiter, "login", zap.NewNop()), func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusTooManyRequests {
				assert.JSONEq(t, `{"success":false,"message":"`+MessageTooManyRequests+`"}`, w.Body.String())
			}
		})
	}
}
