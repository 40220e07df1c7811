package di

import (
	"context"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"member_backend/internal/app/config"
	"member_backend/internal/platform/media"
	"member_backend/internal/platform/ratelimit"
)

func TestNewMediaStore_DisabledWithoutBucket(t *testing.T) {
	store, err := NewMediaStore(context.Background(), media.Config{}, zap.NewNop())

	require.NoError(t, err)
	assert.IsType(t, media.Disabled{}, store)
}

func s3Config() media.Config {
	return media.Config{
		Bucket:    "avatars",
		Region:    "us-east-1",
		Endpoint:  "http://127.0.0.1:9000",
		AccessKey: "key",
		SecretKey: "secret",
		Timeout:   time.Second,
	}
}

func TestNewMediaStore_S3(t *testing.T) {
	t.Setenv("AWS_CA_BUNDLE", "")

	store, err := NewMediaStore(context.Background(), s3Config(), zap.NewNop())

	require.NoError(t, err)
	assert.IsType(t, &media.S3Store{}, store)
}

// TestNewMediaStore_S3_CustomCABundle はプライベートCAのS3互換エンドポイント向けに
// AWS_CA_BUNDLE が設定されていても起動できることを検証します。
func TestNewMediaStore_S3_CustomCABundle(t *testing.T) {
	srv := httptest.NewTLSServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)

	bundle := filepath.Join(t.TempDir(), "ca.pem")
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: srv.Certificate().Raw})
	require.NoError(t, os.WriteFile(bundle, certPEM, 0o600))
	t.Setenv("AWS_CA_BUNDLE", bundle)

	store, err := NewMediaStore(context.Background(), s3Config(), zap.NewNop())

	require.NoError(t, err)
	assert.IsType(t, &media.S3Store{}, store)
}

func TestNewRateLimiter(t *testing.T) {
	cfg := config.RateLimitConfig{Requests: 2, Window: time.Minute}

	t.Run("no redis", func(t *testing.T) {
		assert.IsType(t, ratelimit.Disabled{}, NewRateLimiter(nil, cfg, zap.NewNop()))
	})

	t.Run("redis backed", func(t *testing.T) {
		mr := miniredis.RunT(t)
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = rdb.Close() })

		l := NewRateLimiter(rdb, cfg, zap.NewNop())
		require.IsType(t, &ratelimit.RedisLimiter{}, l)

		ctx := context.Background()
		for i := 0; i < 2; i++ {
			ok, err := l.Allow(ctx, "login:1.2.3.4")
			require.NoError(t, err)
			assert.True(t, ok)
		}
		ok, err := l.Allow(ctx, "login:1.2.3.4")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
