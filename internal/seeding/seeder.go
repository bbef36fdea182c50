// Package seeding creates owners, properties and images against the backend
// with bounded concurrency.
package seeding

import (
	"context"
	"log/slog"

	"github.com/estatehub/seeder/internal/backend"
)

// DefaultConcurrency is the ceiling on owner tasks running at once.
const DefaultConcurrency = 3

// Backend is the subset of the REST client the seeder needs.
type Backend interface {
	CreateOwner(ctx context.Context, in backend.OwnerInput) (backend.ID, error)
	CreateProperty(ctx context.Context, in backend.PropertyInput) (backend.ID, error)
	OwnerPhotoURL(id backend.ID) string
	PropertyImagesURL(id backend.ID) string
}

// Uploader posts a remote image to an endpoint as multipart form data.
type Uploader interface {
	Upload(ctx context.Context, sourceURL, endpoint, field string) error
}

// Fixtures supplies generated payloads and counts.
type Fixtures interface {
	Owner() backend.OwnerInput
	Property(owner backend.ID) backend.PropertyInput
	PhotoURL() string
	ImageURL() string
	PropertyCount() int
	ImageCount() int
}

// Config tunes the seeder.
type Config struct {
	// Concurrency caps owner tasks in flight. Values below 1 mean DefaultConcurrency.
	Concurrency int
	// PropertyConcurrency caps property tasks per owner. Zero means unbounded.
	PropertyConcurrency int
	// UploadField is the multipart field name, "file" when empty.
	UploadField string
}

type Seeder struct {
	backend  Backend
	uploader Uploader
	fixtures Fixtures
	cfg      Config
	logger   *slog.Logger

	// process runs one owner task; replaced in tests.
	process func(ctx context.Context, index int) Result
}

func New(b Backend, u Uploader, f Fixtures, cfg Config, logger *slog.Logger) *Seeder {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.PropertyConcurrency < 0 {
		cfg.PropertyConcurrency = 0
	}
	if cfg.UploadField == "" {
		cfg.UploadField = "file"
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Seeder{
		backend:  b,
		uploader: u,
		fixtures: f,
		cfg:      cfg,
		logger:   logger,
	}
	s.process = s.ProcessOwner
	return s
}
