// Package store keeps the records accepted by the stub backend.
package store

import (
	"context"
	"errors"

	"github.com/estatehub/seeder/internal/models"
)

// ErrNotFound is returned when an owner or property does not exist.
var ErrNotFound = errors.New("not found")

// Counts summarises what a store holds.
type Counts struct {
	Owners      int `json:"owners"`
	OwnerPhotos int `json:"owner_photos"`
	Properties  int `json:"properties"`
	Images      int `json:"images"`
}

type Store interface {
	CreateOwner(ctx context.Context, o models.Owner) (models.Owner, error)
	GetOwner(ctx context.Context, id int64) (models.Owner, error)
	ListOwners(ctx context.Context) ([]models.Owner, error)
	SetOwnerPhoto(ctx context.Context, ownerID int64, img models.Image) error

	// CreateProperty returns ErrNotFound when p.IDOwner does not exist.
	CreateProperty(ctx context.Context, p models.Property) (models.Property, error)
	// ListProperties lists every property, or only ownerID's when it is non-zero.
	ListProperties(ctx context.Context, ownerID int64) ([]models.Property, error)
	AddPropertyImage(ctx context.Context, propertyID int64, img models.Image) error

	Counts(ctx context.Context) (Counts, error)
	Close() error
}
