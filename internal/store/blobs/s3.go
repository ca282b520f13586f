// internal/store/blobs/s3.go
package blobs

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"student-portal/internal/common/config"
)

// S3API is the slice of the S3 client used by the blob store.
type S3API interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput) (*s3.DeleteObjectOutput, error)
}

// S3Store implements Store on an S3 bucket. Object URLs are
// virtual-hosted style unless a base URL override is configured.
type S3Store struct {
	client  S3API
	bucket  string
	baseURL string
}

// NewS3Store creates a blob store over the given S3 client.
func NewS3Store(client S3API, cfg config.S3Config) *S3Store {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}
	return &S3Store{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (s *S3Store) Upload(ctx context.Context, path, contentType string, data []byte) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(path),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", path, err)
	}
	return s.baseURL + "/" + path, nil
}

func (s *S3Store) Delete(ctx context.Context, path string) error {
	// S3 DeleteObject succeeds on missing keys, which matches the
	// tolerate-missing contract without extra handling.
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}
