package blob

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/push-hr/helpdesk/internal/config"
)

// httpStore talks to an object-store HTTP API (upload by POST, public URL by
// convention), the way hosted storage services expose buckets.
type httpStore struct {
	endpoint  string
	bucket    string
	token     string
	publicURL string
	client    *http.Client
}

// NewHTTPStore builds a store from configuration.
func NewHTTPStore(cfg config.BlobConfig) Store {
	return &httpStore{
		endpoint:  strings.TrimRight(cfg.Endpoint, "/"),
		bucket:    cfg.Bucket,
		token:     cfg.Token,
		publicURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *httpStore) Upload(ctx context.Context, path string, r io.Reader, size int64, contentType string) error {
	url := fmt.Sprintf("%s/object/%s/%s", s.endpoint, s.bucket, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, r)
	if err != nil {
		return err
	}
	if size > 0 {
		req.ContentLength = size
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("blob upload: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("blob upload: unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (s *httpStore) PublicURL(path string) string {
	base := s.publicURL
	if base == "" {
		base = fmt.Sprintf("%s/object/public/%s", s.endpoint, s.bucket)
	}
	return base + "/" + path
}
