package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"github.com/estatehub/seeder/internal/images"
	"github.com/google/uuid"
)

// DefaultRequestTimeout bounds a single multipart POST.
const DefaultRequestTimeout = 30 * time.Second

// ErrUnknownUpload means the retry loop ended without recording a cause.
// Seeing it is a bug.
var ErrUnknownUpload = errors.New("upload failed without a recorded cause")

// UploadError is the final failure of an upload after all attempts.
type UploadError struct {
	Endpoint string
	Attempts int
	Err      error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload to %s failed after %d attempt(s): %v", e.Endpoint, e.Attempts, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// StatusError is a non-2xx answer from the upload endpoint.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upload endpoint returned status %d: %s", e.StatusCode, e.Body)
}

// Fetcher downloads the image that gets uploaded.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*images.Resource, error)
}

// Client uploads remote images to backend endpoints as multipart form data.
type Client struct {
	fetcher    Fetcher
	httpClient *http.Client
	policy     RetryPolicy
	timeout    time.Duration
	logger     *slog.Logger
	sleep      func(ctx context.Context, d time.Duration) error
}

type Option func(*Client)

func WithPolicy(p RetryPolicy) Option {
	return func(c *Client) { c.policy = p }
}

// WithRequestTimeout overrides the per-POST timeout.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates an upload client using the default retry policy.
func NewClient(fetcher Fetcher, opts ...Option) *Client {
	c := &Client{
		fetcher:    fetcher,
		httpClient: &http.Client{},
		policy:     DefaultRetryPolicy(""),
		timeout:    DefaultRequestTimeout,
		logger:     slog.Default(),
		sleep:      sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Upload fetches sourceURL and posts it to endpoint under the given form
// field, retrying according to the client's policy. It returns the last
// error once every attempt has failed.
func (c *Client) Upload(ctx context.Context, sourceURL, endpoint, field string) error {
	attempts := c.policy.Attempts()
	made := 0
	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		src := c.policy.URLForAttempt(attempt, sourceURL)
		made++
		c.logger.Info("Uploading image", "endpoint", endpoint, "source", src, "attempt", attempt+1, "max_attempts", attempts)

		err := c.uploadOnce(ctx, src, endpoint, field)
		if err == nil {
			if attempt > 0 {
				c.logger.Info("Upload succeeded after retry", "endpoint", endpoint, "attempt", attempt+1)
			}
			return nil
		}

		lastErr = err
		c.logger.Warn("Upload attempt failed", "endpoint", endpoint, "source", src, "attempt", attempt+1, "max_attempts", attempts, "error", err)

		if attempt == attempts-1 {
			break
		}
		wait := c.policy.Backoff(attempt)
		if err := c.sleep(ctx, wait); err != nil {
			lastErr = fmt.Errorf("waiting to retry: %w", err)
			break
		}
	}

	if lastErr == nil {
		return ErrUnknownUpload
	}
	return &UploadError{Endpoint: endpoint, Attempts: made, Err: lastErr}
}

func (c *Client) uploadOnce(ctx context.Context, sourceURL, endpoint, field string) error {
	res, err := c.fetcher.Fetch(ctx, sourceURL)
	if err != nil {
		return err
	}

	body, contentType, err := buildMultipart(field, uuid.NewString()+res.Extension(), res)
	if err != nil {
		return err
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create upload request: %w", err)
	}
	req.ContentLength = int64(len(body))
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &StatusError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(msg))}
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	return nil
}

func buildMultipart(field, filename string, res *images.Resource) ([]byte, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	contentType := res.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
	h.Set("Content-Type", contentType)

	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create multipart part: %w", err)
	}
	if _, err := part.Write(res.Data); err != nil {
		return nil, "", fmt.Errorf("failed to write multipart part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finish multipart body: %w", err)
	}

	return buf.Bytes(), mw.FormDataContentType(), nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
