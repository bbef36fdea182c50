package images

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// DefaultFetchTimeout bounds how long Fetch waits for a download.
const DefaultFetchTimeout = 10 * time.Second

// ErrorKind classifies why a fetch failed.
type ErrorKind string

const (
	FetchTimeout   ErrorKind = "timeout"
	FetchTransport ErrorKind = "transport"
	FetchStatus    ErrorKind = "status"
	EmptyBuffer    ErrorKind = "empty_buffer"
)

// FetchError is returned for every failed download.
type FetchError struct {
	Kind       ErrorKind
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case FetchStatus:
		return fmt.Sprintf("fetch %s: source returned status %d", e.URL, e.StatusCode)
	case EmptyBuffer:
		return fmt.Sprintf("fetch %s: source returned an empty body", e.URL)
	}
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Kind)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsTimeout reports whether err is a fetch that ran out of time.
func IsTimeout(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Kind == FetchTimeout
}

// Resource is a downloaded image held in memory.
type Resource struct {
	URL         string
	ContentType string
	Data        []byte
}

// Extension guesses a file extension from the declared content type.
func (r *Resource) Extension() string {
	ct := strings.ToLower(r.ContentType)
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	switch ct {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "image/svg+xml":
		return ".svg"
	default:
		return ".jpg"
	}
}

// Fetcher retrieves remote images into memory
type Fetcher struct {
	HTTPClient *http.Client
	Timeout    time.Duration
	logger     *slog.Logger
}

// NewFetcher creates a new image fetcher. A non-positive timeout falls back to
// DefaultFetchTimeout.
func NewFetcher(timeout time.Duration, logger *slog.Logger) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		HTTPClient: &http.Client{},
		Timeout:    timeout,
		logger:     logger,
	}
}

type fetchResult struct {
	res *Resource
	err error
}

// Fetch downloads url and returns its body. The download races a timer; when
// the timer wins the wait is abandoned and the request context is cancelled,
// but the transfer itself is not guaranteed to stop immediately.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Resource, error) {
	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan fetchResult, 1)
	go func() {
		res, err := f.download(reqCtx, url)
		done <- fetchResult{res: res, err: err}
	}()

	timer := time.NewTimer(f.Timeout)
	defer timer.Stop()

	select {
	case r := <-done:
		if r.err != nil {
			return nil, r.err
		}
		if len(r.res.Data) == 0 {
			return nil, &FetchError{Kind: EmptyBuffer, URL: url}
		}
		f.logger.Debug("Fetched image", "url", url, "bytes", len(r.res.Data), "content_type", r.res.ContentType)
		return r.res, nil
	case <-timer.C:
		return nil, &FetchError{Kind: FetchTimeout, URL: url, Err: fmt.Errorf("no response within %s", f.Timeout)}
	case <-ctx.Done():
		return nil, &FetchError{Kind: FetchTransport, URL: url, Err: ctx.Err()}
	}
}

func (f *Fetcher) download(ctx context.Context, url string) (*Resource, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{Kind: FetchTransport, URL: url, Err: err}
	}

	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return nil, &FetchError{Kind: FetchTransport, URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &FetchError{Kind: FetchStatus, URL: url, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{Kind: FetchTransport, URL: url, Err: fmt.Errorf("failed to read image data: %w", err)}
	}

	return &Resource{
		URL:         url,
		ContentType: resp.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
