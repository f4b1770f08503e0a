package client

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
)

// Storage returns a storage client for a bucket.
func (c *Client) Storage(bucket string) *StorageClient {
	return &StorageClient{client: c, bucket: bucket}
}

// StorageClient uploads objects to a storage bucket and resolves
// their public URLs.
type StorageClient struct {
	client *Client
	bucket string
}

// Upload stores data at path in the bucket, overwriting any existing
// object. accessToken may be empty to upload as the service.
func (s *StorageClient) Upload(ctx context.Context, path, contentType string, data []byte, accessToken string) error {
	uploadURL := fmt.Sprintf("%s/storage/v1/object/%s/%s", s.client.baseURL, s.bucket, path)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	s.client.setHeaders(req, accessToken)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("x-upsert", "true")

	resp, err := s.client.do(req, "upload "+s.bucket)
	if err != nil {
		return err
	}
	return resp.Error()
}

// GetPublicURL returns the public URL for an object. No remote call is
// made; the bucket must be public for the URL to resolve.
func (s *StorageClient) GetPublicURL(path string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.client.baseURL, s.bucket, path)
}
