package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/anime-shed/brand-inspector-go/internal/logger"
	"github.com/anime-shed/brand-inspector-go/internal/repository"

	"github.com/sirupsen/logrus"
)

const maxFetchAttempts = 3

// HTTPStore reads images from a remote origin that serves them as
// <baseURL>/<name>. It cannot store images.
type HTTPStore struct {
	baseURL string
	client  *http.Client
	backoff time.Duration
}

// NewHTTPStore creates an HTTP-backed store with a tuned transport.
func NewHTTPStore(baseURL string, timeout time.Duration) (*HTTPStore, error) {
	u, err := url.Parse(baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid storage base URL %q", baseURL)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     30 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		MaxResponseHeaderBytes: 4096,
	}

	return &HTTPStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		backoff: time.Second,
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("too many redirects (limit: 3)")
				}
				return nil
			},
		},
	}, nil
}

func (s *HTTPStore) objectURL(name string) string {
	return s.baseURL + "/" + url.PathEscape(name)
}

// Fetch downloads an image, retrying network failures and 5xx responses
// with a linear backoff. 4xx responses are not retried; 404 is reported as
// repository.ErrImageNotFound.
func (s *HTTPStore) Fetch(ctx context.Context, name string) ([]byte, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.objectURL(name), nil)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	req.Header.Set("Accept", "image/jpeg, image/png, image/webp, image/gif, */*")
	req.Header.Set("User-Agent", "Brand-Inspector/1.0")

	var lastErr error
	for attempt := 0; attempt < maxFetchAttempts; attempt++ {
		if attempt > 0 {
			logger.WithFields(logrus.Fields{
				"filename": name,
				"attempt":  attempt + 1,
				"error":    lastErr.Error(),
			}).Warn("Retrying image fetch")

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * s.backoff):
			}
		}

		data, retryable, err := s.fetchOnce(req, name)
		if err == nil {
			return data, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
	}

	return nil, fmt.Errorf("failed to fetch image after %d attempts: %w", maxFetchAttempts, lastErr)
}

func (s *HTTPStore) fetchOnce(req *http.Request, name string) ([]byte, bool, error) {
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, req.Context().Err() == nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, true, fmt.Errorf("read response body: %w", err)
		}
		return data, false, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, false, fmt.Errorf("%w: %s", repository.ErrImageNotFound, name)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, false, fmt.Errorf("client error: status code %d", resp.StatusCode)
	default:
		return nil, true, fmt.Errorf("server error: status code %d", resp.StatusCode)
	}
}

// Save always fails: the remote origin is read-only.
func (s *HTTPStore) Save(ctx context.Context, name string, data []byte) error {
	return ErrReadOnly
}

// Delete always fails: the remote origin is read-only.
func (s *HTTPStore) Delete(ctx context.Context, name string) error {
	return ErrReadOnly
}

// Exists issues a HEAD request for the object.
func (s *HTTPStore) Exists(ctx context.Context, name string) (bool, error) {
	if err := ValidateName(name); err != nil {
		return false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, s.objectURL(name), nil)
	if err != nil {
		return false, fmt.Errorf("invalid URL: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return false, err
	}
	resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		return true, nil
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}
}
