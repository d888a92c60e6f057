package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dgallion1/docaudit/internal/retry"
)

// FetchConfig controls regulatory source downloads.
type FetchConfig struct {
	Retry    retry.Policy
	MaxBytes int64
	Timeout  time.Duration
}

// Fetcher downloads source documents over HTTP.
type Fetcher struct {
	http *http.Client
	cfg  FetchConfig
}

func NewFetcher(cfg FetchConfig) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	return &Fetcher{
		http: &http.Client{Timeout: cfg.Timeout},
		cfg:  cfg,
	}
}

// StatusError is a non-2xx fetch response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d", e.URL, e.StatusCode)
}

// Retryable reports whether the status is worth another attempt.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// IsRetryable checks if a fetch error is worth retrying. Transport errors
// are; 4xx responses other than 429 and oversized bodies are not.
func IsRetryable(err error) bool {
	if errors.Is(err, errTooLarge) || errors.Is(err, context.Canceled) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Retryable()
	}
	return true
}

var errTooLarge = errors.New("response exceeds max size")

// Fetch GETs url, retrying transient failures with backoff.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	var data []byte
	err := retry.Do(ctx, f.cfg.Retry, IsRetryable, func(ctx context.Context) error {
		b, err := f.get(ctx, url)
		if err != nil {
			return err
		}
		data = b
		return nil
	})
	return data, err
}

func (f *Fetcher) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "docaudit/1")

	resp, err := f.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	body := io.Reader(resp.Body)
	if f.cfg.MaxBytes > 0 {
		body = io.LimitReader(resp.Body, f.cfg.MaxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if f.cfg.MaxBytes > 0 && int64(len(data)) > f.cfg.MaxBytes {
		return nil, fmt.Errorf("%w (%d bytes)", errTooLarge, f.cfg.MaxBytes)
	}
	return data, nil
}
