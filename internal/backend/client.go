package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ID is a backend identifier. The backend may send it as a JSON number or a
// JSON string; both decode to the same textual form.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id must be a string or a number, got %s", string(b))
	}
	*id = ID(n.String())
	return nil
}

// MarshalJSON writes integer-looking ids as numbers so they round-trip to
// backends with numeric keys.
func (id ID) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// OwnerInput is the body of POST /owners.
type OwnerInput struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// PropertyInput is the body of POST /properties.
type PropertyInput struct {
	Name         string  `json:"name"`
	Address      string  `json:"address"`
	Price        float64 `json:"price"`
	CodeInternal string  `json:"codeInternal"`
	Year         int     `json:"year"`
	IDOwner      ID      `json:"idOwner"`
}

type createdResponse struct {
	ID ID `json:"id"`
}

// EntityCreationError is a non-2xx answer from a creation endpoint.
type EntityCreationError struct {
	Entity     string
	StatusCode int
	Body       string
}

func (e *EntityCreationError) Error() string {
	return fmt.Sprintf("create %s: backend returned status %d: %s", e.Entity, e.StatusCode, e.Body)
}

// Client talks to the real-estate REST backend.
type Client struct {
	BaseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new backend client
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// CreateOwner posts a new owner and returns its identifier.
func (c *Client) CreateOwner(ctx context.Context, in OwnerInput) (ID, error) {
	return c.create(ctx, "owner", "/owners", in)
}

// CreateProperty posts a new property tied to in.IDOwner.
func (c *Client) CreateProperty(ctx context.Context, in PropertyInput) (ID, error) {
	return c.create(ctx, "property", "/properties", in)
}

// OwnerPhotoURL is the multipart endpoint for an owner's profile photo.
func (c *Client) OwnerPhotoURL(id ID) string {
	return fmt.Sprintf("%s/owners/%s/photo", c.BaseURL, url.PathEscape(string(id)))
}

// PropertyImagesURL is the multipart endpoint for a property's gallery.
func (c *Client) PropertyImagesURL(id ID) string {
	return fmt.Sprintf("%s/properties/%s/images", c.BaseURL, url.PathEscape(string(id)))
}

func (c *Client) create(ctx context.Context, entity, path string, payload any) (ID, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode %s payload: %w", entity, err)
	}

	c.logger.Debug("Sending request to backend", "entity", entity, "url", c.BaseURL+path)

	resp, err := c.doRequest(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", entity, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &EntityCreationError{
			Entity:     entity,
			StatusCode: resp.StatusCode,
			Body:       string(bytes.TrimSpace(msg)),
		}
	}

	var created createdResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("failed to decode %s response: %w", entity, err)
	}
	if created.ID == "" {
		return "", fmt.Errorf("%s response did not include an id", entity)
	}

	return created.ID, nil
}

func (c *Client) doRequest(ctx context.Context, method, url string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	return c.httpClient.Do(req)
}
