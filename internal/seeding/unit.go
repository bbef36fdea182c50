package seeding

import (
	"context"
	"sync"

	"github.com/estatehub/seeder/internal/backend"
	"golang.org/x/sync/errgroup"
)

// Outcome classifies a finished owner task.
type Outcome string

const (
	Success        Outcome = "success"
	PartialSuccess Outcome = "partial"
	Failed         Outcome = "failed"
)

// Result is produced once per owner task.
type Result struct {
	Index             int
	Outcome           Outcome
	OwnerID           backend.ID
	PhotoUploaded     bool
	PropertiesCreated int
	PropertiesFailed  int
	ImagesUploaded    int
	ImagesFailed      int
	Err               error
}

// ProcessOwner creates one owner, then its properties concurrently, then each
// property's images. Only the owner creation can fail the task; property
// failures make it a PartialSuccess.
func (s *Seeder) ProcessOwner(ctx context.Context, index int) Result {
	res := Result{Index: index}

	owner, err := s.CreateOwner(ctx, nil)
	if err != nil {
		s.logger.Error("Failed to create owner", "owner_index", index, "error", err)
		res.Outcome = Failed
		res.Err = err
		return res
	}
	res.OwnerID = owner.ID
	res.PhotoUploaded = owner.PhotoUploaded

	count := s.fixtures.PropertyCount()
	s.logger.Info("Creating properties", "owner_id", owner.ID, "count", count)

	var mu sync.Mutex
	g := new(errgroup.Group)
	if s.cfg.PropertyConcurrency > 0 {
		g.SetLimit(s.cfg.PropertyConcurrency)
	}
	for i := 0; i < count; i++ {
		g.Go(func() error {
			// errgroup does not recover panics.
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error("Property task panicked", "owner_id", owner.ID, "property", i+1, "total", count, "panic", r)
					mu.Lock()
					res.PropertiesFailed++
					mu.Unlock()
				}
			}()

			id, err := s.CreateProperty(ctx, owner.ID, nil)
			if err != nil {
				s.logger.Error("Failed to create property", "owner_id", owner.ID, "property", i+1, "total", count, "error", err)
				mu.Lock()
				res.PropertiesFailed++
				mu.Unlock()
				return nil
			}

			uploaded, failed := s.AddPropertyImages(ctx, id, s.fixtures.ImageCount())

			mu.Lock()
			res.PropertiesCreated++
			res.ImagesUploaded += uploaded
			res.ImagesFailed += failed
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	res.Outcome = Success
	if res.PropertiesFailed > 0 {
		res.Outcome = PartialSuccess
	}
	s.logger.Info("Finished owner",
		"owner_id", owner.ID,
		"outcome", res.Outcome,
		"properties_created", res.PropertiesCreated,
		"properties_failed", res.PropertiesFailed,
		"images_uploaded", res.ImagesUploaded,
		"images_failed", res.ImagesFailed)

	return res
}
