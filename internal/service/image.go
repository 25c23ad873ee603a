package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/foodgram-dev/foodgram/backend/config"
	"github.com/foodgram-dev/foodgram/backend/internal/apperr"
)

// maxImageBytes bounds a decoded upload
const maxImageBytes = 5 << 20

var imageExtensions = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/gif":  "gif",
	"image/webp": "webp",
}

// S3API is the subset of the S3 client used for image storage
type S3API interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3ImageStore stores images in S3 under a key derived from their content,
// so identical uploads share one object.
type S3ImageStore struct {
	client        S3API
	bucket        string
	publicBaseURL string
}

// NewImageStore creates an S3-backed image store from the loaded S3 config
func NewImageStore(cfg *config.S3Config) *S3ImageStore {
	return NewS3ImageStore(cfg.Client, cfg.BucketName, cfg.PublicBaseURL)
}

// NewS3ImageStore creates an image store over any S3-compatible client
func NewS3ImageStore(client S3API, bucket, publicBaseURL string) *S3ImageStore {
	if publicBaseURL == "" {
		publicBaseURL = fmt.Sprintf("https://%s.s3.amazonaws.com", bucket)
	}
	return &S3ImageStore{
		client:        client,
		bucket:        bucket,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

// Save decodes a data URL of the form data:image/png;base64,... and uploads
// it under prefix unless an object with the same content already exists.
func (s *S3ImageStore) Save(ctx context.Context, prefix, dataURL string) (string, error) {
	contentType, data, err := DecodeDataURL(dataURL)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(data)
	key := fmt.Sprintf("%s/%s.%s", prefix, hex.EncodeToString(sum[:]), imageExtensions[contentType])
	url := s.publicBaseURL + "/" + key

	_, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return url, nil
	}
	var notFound *s3types.NotFound
	if !errors.As(err, &notFound) {
		slog.WarnContext(ctx, "image head check failed, uploading anyway", "key", key, "error", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", apperr.Storage("failed to upload image", err)
	}

	slog.InfoContext(ctx, "image uploaded", "key", key, "bytes", len(data))
	return url, nil
}

// DecodeDataURL splits a base64 image data URL into its content type and
// decoded bytes.
func DecodeDataURL(dataURL string) (string, []byte, error) {
	header, payload, ok := strings.Cut(dataURL, ",")
	if !ok || !strings.HasPrefix(header, "data:") || !strings.HasSuffix(header, ";base64") {
		return "", nil, apperr.Validation("image", "must be a base64 data URL")
	}
	contentType := strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
	if _, ok := imageExtensions[contentType]; !ok {
		return "", nil, apperr.Validation("image", "unsupported image type %q", contentType)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, apperr.Validation("image", "invalid base64 payload")
	}
	if len(data) == 0 {
		return "", nil, apperr.Validation("image", "image is empty")
	}
	if len(data) > maxImageBytes {
		return "", nil, apperr.Validation("image", "image exceeds %d bytes", maxImageBytes)
	}
	return contentType, data, nil
}
