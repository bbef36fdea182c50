package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/estatehub/seeder/internal/models"
)

// MemoryStore keeps everything in maps guarded by a RWMutex.
type MemoryStore struct {
	mu         sync.RWMutex
	owners     map[int64]*models.Owner
	properties map[int64]*models.Property
	lastOwner  int64
	lastProp   int64
}

func NewMemory() *MemoryStore {
	return &MemoryStore{
		owners:     make(map[int64]*models.Owner),
		properties: make(map[int64]*models.Property),
	}
}

func (s *MemoryStore) CreateOwner(ctx context.Context, o models.Owner) (models.Owner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastOwner++
	o.ID = s.lastOwner
	o.CreatedAt = time.Now().UTC()
	o.Photo = nil
	stored := o
	s.owners[o.ID] = &stored
	return o, nil
}

func (s *MemoryStore) GetOwner(ctx context.Context, id int64) (models.Owner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.owners[id]
	if !ok {
		return models.Owner{}, ErrNotFound
	}
	return copyOwner(o), nil
}

func (s *MemoryStore) ListOwners(ctx context.Context) ([]models.Owner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]models.Owner, 0, len(s.owners))
	for _, o := range s.owners {
		result = append(result, copyOwner(o))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *MemoryStore) SetOwnerPhoto(ctx context.Context, ownerID int64, img models.Image) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.owners[ownerID]
	if !ok {
		return ErrNotFound
	}
	o.Photo = &img
	return nil
}

func (s *MemoryStore) CreateProperty(ctx context.Context, p models.Property) (models.Property, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.owners[p.IDOwner]; !ok {
		return models.Property{}, ErrNotFound
	}
	s.lastProp++
	p.ID = s.lastProp
	p.CreatedAt = time.Now().UTC()
	p.Images = []models.Image{}
	stored := p
	s.properties[p.ID] = &stored
	return p, nil
}

func (s *MemoryStore) ListProperties(ctx context.Context, ownerID int64) ([]models.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]models.Property, 0, len(s.properties))
	for _, p := range s.properties {
		if ownerID != 0 && p.IDOwner != ownerID {
			continue
		}
		cp := *p
		cp.Images = append([]models.Image{}, p.Images...)
		result = append(result, cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *MemoryStore) AddPropertyImage(ctx context.Context, propertyID int64, img models.Image) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.properties[propertyID]
	if !ok {
		return ErrNotFound
	}
	p.Images = append(p.Images, img)
	return nil
}

func (s *MemoryStore) Counts(ctx context.Context) (Counts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := Counts{Owners: len(s.owners), Properties: len(s.properties)}
	for _, o := range s.owners {
		if o.Photo != nil {
			c.OwnerPhotos++
		}
	}
	for _, p := range s.properties {
		c.Images += len(p.Images)
	}
	return c, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

func copyOwner(o *models.Owner) models.Owner {
	cp := *o
	if o.Photo != nil {
		photo := *o.Photo
		cp.Photo = &photo
	}
	return cp
}
