package seeding

import (
	"context"
	"fmt"

	"github.com/estatehub/seeder/internal/backend"
)

// CreatedOwner is an owner the backend accepted.
type CreatedOwner struct {
	ID            backend.ID
	PhotoUploaded bool
}

// CreateOwner posts an owner (generated when in is nil) and then uploads a
// profile photo. A failed photo is logged and never fails the owner.
func (s *Seeder) CreateOwner(ctx context.Context, in *backend.OwnerInput) (*CreatedOwner, error) {
	payload := s.fixtures.Owner()
	if in != nil {
		payload = *in
	}

	id, err := s.backend.CreateOwner(ctx, payload)
	if err != nil {
		return nil, fmt.Errorf("create owner %q: %w", payload.Name, err)
	}
	s.logger.Info("Created owner", "owner_id", id, "name", payload.Name)

	owner := &CreatedOwner{ID: id}
	photo := s.fixtures.PhotoURL()
	if err := s.uploader.Upload(ctx, photo, s.backend.OwnerPhotoURL(id), s.cfg.UploadField); err != nil {
		s.logger.Warn("Failed to upload owner photo", "owner_id", id, "source", photo, "error", err)
		return owner, nil
	}
	owner.PhotoUploaded = true
	s.logger.Debug("Uploaded owner photo", "owner_id", id)

	return owner, nil
}

// CreateProperty posts a property for owner (generated when in is nil).
// Errors are returned to the caller.
func (s *Seeder) CreateProperty(ctx context.Context, owner backend.ID, in *backend.PropertyInput) (backend.ID, error) {
	payload := s.fixtures.Property(owner)
	if in != nil {
		payload = *in
		payload.IDOwner = owner
	}

	id, err := s.backend.CreateProperty(ctx, payload)
	if err != nil {
		return "", fmt.Errorf("create property %s for owner %s: %w", payload.CodeInternal, owner, err)
	}
	s.logger.Info("Created property", "property_id", id, "owner_id", owner, "code", payload.CodeInternal)

	return id, nil
}

// AddPropertyImages uploads count gallery images one after another. Each
// failure is logged and skipped.
func (s *Seeder) AddPropertyImages(ctx context.Context, property backend.ID, count int) (uploaded, failed int) {
	endpoint := s.backend.PropertyImagesURL(property)
	for i := 0; i < count; i++ {
		src := s.fixtures.ImageURL()
		if err := s.uploader.Upload(ctx, src, endpoint, s.cfg.UploadField); err != nil {
			failed++
			s.logger.Warn("Failed to upload property image", "property_id", property, "image", i+1, "total", count, "error", err)
			continue
		}
		uploaded++
	}
	s.logger.Debug("Finished property images", "property_id", property, "uploaded", uploaded, "failed", failed)
	return uploaded, failed
}
