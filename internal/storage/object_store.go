package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
)

// ObjectStore uploads lesson media and export files to the platform's
// S3-compatible storage gateway over its REST API.
type ObjectStore interface {
	Upload(ctx context.Context, bucket, key string, data []byte, contentType string) (string, error)
	PublicURL(bucket, key string) string
	SignedURL(ctx context.Context, bucket, key string, expiresIn time.Duration) (string, error)
	Delete(ctx context.Context, bucket, key string) error
}

type Config struct {
	BaseURL    string
	ServiceKey string
	Timeout    time.Duration
}

type restObjectStore struct {
	client  *resty.Client
	baseURL string
	logger  *slog.Logger
}

func NewObjectStore(config Config, logger *slog.Logger) ObjectStore {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	client := resty.New().
		SetBaseURL(config.BaseURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetAuthToken(config.ServiceKey)

	return &restObjectStore{
		client:  client,
		baseURL: config.BaseURL,
		logger:  logger,
	}
}

// Upload stores data under bucket/key and returns the public URL.
// Existing objects at the same key are overwritten.
func (s *restObjectStore) Upload(ctx context.Context, bucket, key string, data []byte, contentType string) (string, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentType).
		SetHeader("x-upsert", "true").
		SetBody(data).
		Post(fmt.Sprintf("/object/%s/%s", bucket, key))
	if err != nil {
		return "", fmt.Errorf("failed to upload object: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("object upload failed with status %d: %s", resp.StatusCode(), resp.String())
	}

	s.logger.DebugContext(ctx, "object uploaded",
		"bucket", bucket,
		"key", key,
		"size", len(data))
	return s.PublicURL(bucket, key), nil
}

func (s *restObjectStore) PublicURL(bucket, key string) string {
	return fmt.Sprintf("%s/object/public/%s/%s", s.baseURL, bucket, key)
}

type signedURLResponse struct {
	SignedURL string `json:"signedURL"`
}

// SignedURL issues a time-limited download URL for a private object.
func (s *restObjectStore) SignedURL(ctx context.Context, bucket, key string, expiresIn time.Duration) (string, error) {
	var result signedURLResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(map[string]int{"expiresIn": int(expiresIn.Seconds())}).
		SetResult(&result).
		Post(fmt.Sprintf("/object/sign/%s/%s", bucket, key))
	if err != nil {
		return "", fmt.Errorf("failed to sign object url: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("object sign failed with status %d: %s", resp.StatusCode(), resp.String())
	}

	return s.baseURL + result.SignedURL, nil
}

func (s *restObjectStore) Delete(ctx context.Context, bucket, key string) error {
	resp, err := s.client.R().
		SetContext(ctx).
		Delete(fmt.Sprintf("/object/%s/%s", bucket, key))
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("object delete failed with status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}
