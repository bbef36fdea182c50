package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedPost struct {
	tag  string
	data map[string]any
}

type fakePoster struct {
	mu    sync.Mutex
	posts []recordedPost
	err   error
}

func (p *fakePoster) Post(tag string, message any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.posts = append(p.posts, recordedPost{tag: tag, data: message.(map[string]any)})
	return p.err
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in       string
		expected slog.Level
		wantErr  bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, closeFn, err := New(Options{Level: slog.LevelInfo, Format: FormatJSON, Writer: &buf})
	require.NoError(t, err)
	defer closeFn()

	logger.Debug("hidden")
	logger.Info("Created owner", "owner_id", "7")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "Created owner", line["msg"])
	assert.Equal(t, "7", line["owner_id"])
}

func TestNewText(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := New(Options{Level: slog.LevelDebug, Writer: &buf, NoColor: true})
	require.NoError(t, err)

	logger.Debug("Uploaded owner photo", "owner_id", 3)
	assert.Contains(t, buf.String(), "Uploaded owner photo")
	assert.Contains(t, buf.String(), "owner_id=3")
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	_, _, err := New(Options{Format: "xml"})
	assert.Error(t, err)
}

func TestFluentHandler(t *testing.T) {
	p := &fakePoster{err: errors.New("collector down")}
	logger := slog.New(NewFluentHandler(p, slog.LevelInfo)).With("component", "seeder")

	logger.Debug("skipped")
	logger.WithGroup("upload").Warn("Retrying",
		"attempt", 2,
		"backoff", 2*time.Second,
		"error", errors.New("status 503"))

	require.Len(t, p.posts, 1)
	got := p.posts[0]
	assert.Equal(t, "warn", got.tag)
	assert.Equal(t, "Retrying", got.data["message"])
	assert.Equal(t, "seeder", got.data["component"])
	assert.Equal(t, int64(2), got.data["upload.attempt"])
	assert.Equal(t, "2s", got.data["upload.backoff"])
	assert.Equal(t, "status 503", got.data["upload.error"])
	assert.NotEmpty(t, got.data["timestamp"])
}

func TestMultiHandlerFansOut(t *testing.T) {
	var buf bytes.Buffer
	p := &fakePoster{}
	console := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(newMultiHandler(console, NewFluentHandler(p, slog.LevelError)))

	logger.Info("console only")
	logger.Error("both")

	assert.Equal(t, 2, bytes.Count(buf.Bytes(), []byte("\n")))
	require.Len(t, p.posts, 1)
	assert.Equal(t, "both", p.posts[0].data["message"])
}
