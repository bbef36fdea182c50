// Package logging builds the process logger: tint or JSON on the console and
// an optional Fluent Bit fan-out.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/fluent/fluent-logger-golang/fluent"
	"github.com/lmittmann/tint"
)

const (
	FormatText = "text"
	FormatJSON = "json"

	DefaultFluentPort = 24224
	DefaultTagPrefix  = "seeder"
)

// Options configures New.
type Options struct {
	Level  slog.Level
	Format string
	Writer io.Writer
	// NoColor disables ANSI colors in the text format.
	NoColor bool

	// FluentHost enables shipping to Fluent Bit when set.
	FluentHost string
	FluentPort int
	TagPrefix  string
}

// ParseLevel maps a level name to a slog.Level. An empty name is info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// New returns the logger and a close func that flushes any remote sink.
func New(opts Options) (*slog.Logger, func() error, error) {
	if opts.Writer == nil {
		opts.Writer = os.Stderr
	}

	var console slog.Handler
	switch strings.ToLower(opts.Format) {
	case FormatJSON:
		console = slog.NewJSONHandler(opts.Writer, &slog.HandlerOptions{Level: opts.Level})
	case "", FormatText:
		console = tint.NewHandler(opts.Writer, &tint.Options{
			Level:      opts.Level,
			TimeFormat: time.DateTime,
			NoColor:    opts.NoColor,
		})
	default:
		return nil, nil, fmt.Errorf("unknown log format %q", opts.Format)
	}

	if opts.FluentHost == "" {
		return slog.New(console), func() error { return nil }, nil
	}

	if opts.FluentPort == 0 {
		opts.FluentPort = DefaultFluentPort
	}
	if opts.TagPrefix == "" {
		opts.TagPrefix = DefaultTagPrefix
	}
	client, err := fluent.New(fluent.Config{
		FluentHost: opts.FluentHost,
		FluentPort: opts.FluentPort,
		TagPrefix:  opts.TagPrefix,
		Async:      true,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create fluentd logger: %w", err)
	}

	h := newMultiHandler(console, NewFluentHandler(client, opts.Level))
	return slog.New(h), client.Close, nil
}
