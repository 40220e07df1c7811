// Package media stores uploaded images in S3-compatible object storage.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/segmentio/ksuid"
)

// ErrDisabled is returned by uploads when no bucket is configured.
var ErrDisabled = errors.New("media storage is not configured")

// Config holds the object storage settings.
type Config struct {
	Bucket        string
	Region        string
	Endpoint      string
	AccessKey     string
	SecretKey     string
	PublicBaseURL string
	Timeout       time.Duration
}

// Enabled reports whether a bucket is configured.
func (c Config) Enabled() bool { return c.Bucket != "" }

// Object identifies a stored file.
type Object struct {
	URL      string
	PublicID string
}

// Store uploads and removes media objects.
type Store interface {
	Upload(ctx context.Context, data []byte, folder, contentType string) (Object, error)
	Delete(ctx context.Context, publicID string) error
}

// API is the subset of the S3 client used by S3Store.
type API interface {
	manager.UploadAPIClient
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Store implements Store on an S3 bucket.
type S3Store struct {
	client   API
	uploader *manager.Uploader
	bucket   string
	baseURL  string
}

var _ Store = (*S3Store)(nil)

// NewS3Store creates an S3Store. publicBaseURL, when set, prefixes object keys
// to build public URLs.
func NewS3Store(client API, bucket, publicBaseURL string) *S3Store {
	return &S3Store{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   bucket,
		baseURL:  strings.TrimSuffix(publicBaseURL, "/"),
	}
}

// Upload stores data under folder/<ksuid> and returns its URL and key.
func (s *S3Store) Upload(ctx context.Context, data []byte, folder, contentType string) (Object, error) {
	key := path.Join(strings.Trim(folder, "/"), ksuid.New().String())

	out, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return Object{}, fmt.Errorf("upload %s: %w", key, err)
	}

	url := key
	switch {
	case s.baseURL != "":
		url = s.baseURL + "/" + key
	case out != nil && out.Location != "":
		url = out.Location
	}
	return Object{URL: url, PublicID: key}, nil
}

// Delete removes the object with the given key.
func (s *S3Store) Delete(ctx context.Context, publicID string) error {
	if publicID == "" {
		return nil
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(publicID),
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", publicID, err)
	}
	return nil
}

// Disabled is the Store used when object storage is not configured.
type Disabled struct{}

var _ Store = Disabled{}

// Upload always fails with ErrDisabled.
func (Disabled) Upload(context.Context, []byte, string, string) (Object, error) {
	return Object{}, ErrDisabled
}

// Delete is a no-op.
func (Disabled) Delete(context.Context, string) error { return nil }
