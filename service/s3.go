package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// S3Service is the media-storage collaborator. It stores cover images and
// book files and hands back publicly fetchable URLs; the core never
// inspects file bytes.
type S3Service struct {
	client *s3.Client
	bucket string
	region string
}

func NewS3Service(ctx context.Context, bucket, region, accessKeyID, secretAccessKey string) (*S3Service, error) {
	if bucket == "" {
		return nil, fmt.Errorf("AWS_S3_BUCKET is required")
	}
	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if accessKeyID != "" && secretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, ""),
		))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &S3Service{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
		region: region,
	}, nil
}

// Upload stores the file under folder (e.g. "covers/" or "books/") with a
// random key that keeps the original extension. Returns the object key
// and its public URL.
func (s *S3Service) Upload(ctx context.Context, folder, originalFilename string, body io.Reader, contentType string) (key, url string, err error) {
	ext := filepath.Ext(originalFilename)
	key = folder + uuid.New().String() + ext
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", "", err
	}
	return key, s.ObjectURL(key), nil
}

// Delete removes the object from S3.
func (s *S3Service) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err
}

// PresignedGetURL returns a temporary URL to download the object. If
// responseFilename is non-empty, the presigned URL sets
// ResponseContentDisposition so the browser uses that name instead of
// the S3 key when saving the file.
func (s *S3Service) PresignedGetURL(ctx context.Context, key string, expiry time.Duration, responseFilename string) (string, error) {
	input := &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}
	if responseFilename != "" {
		input.ResponseContentDisposition = aws.String(attachmentDisposition(responseFilename))
	}
	presigner := s3.NewPresignClient(s.client)
	req, err := presigner.PresignGetObject(ctx, input, func(opts *s3.PresignOptions) {
		opts.Expires = expiry
	})
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

// attachmentDisposition quotes the filename for Content-Disposition,
// escaping \ and " first.
func attachmentDisposition(filename string) string {
	safe := strings.ReplaceAll(filename, "\\", "\\\\")
	safe = strings.ReplaceAll(safe, "\"", "\\\"")
	return `attachment; filename="` + safe + `"`
}

// ObjectURL is the public URL for an object key.
func (s *S3Service) ObjectURL(key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}
