// Package di provides dependency injection factories for creating application components.
package di

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	infrahttp "member_backend/internal/platform/http"
	"member_backend/internal/platform/media"
)

// NewMediaStore creates the profile picture store.
// Without a configured bucket it returns media.Disabled, which rejects every upload.
func NewMediaStore(ctx context.Context, cfg media.Config, log *zap.Logger) (media.Store, error) {
	if !cfg.Enabled() {
		log.Warn("S3_BUCKET is not set; profile picture uploads are disabled")
		return media.Disabled{}, nil
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithHTTPClient(infrahttp.NewHTTPClient(cfg.Timeout)),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// S3互換ストレージ（MinIOなど）はパス形式のアドレスを使う
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	log.Info("media store configured", zap.String("bucket", cfg.Bucket), zap.String("region", cfg.Region))
	return media.NewS3Store(client, cfg.Bucket, cfg.PublicBaseURL), nil
}
