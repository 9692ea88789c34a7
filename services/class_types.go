package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/anjiri1684/class_portal/models"
	"github.com/google/uuid"
)

type ClassTypeSource interface {
	ClassTypes(ctx context.Context) ([]models.ClassType, error)
}

// ClassTypeCatalog resolves class types against a periodically refreshed
// copy of the backend catalog.
type ClassTypeCatalog struct {
	source ClassTypeSource
	ttl    time.Duration

	mu        sync.RWMutex
	byID      map[uuid.UUID]models.ClassType
	fetchedAt time.Time
}

func NewClassTypeCatalog(source ClassTypeSource, ttl time.Duration) *ClassTypeCatalog {
	return &ClassTypeCatalog{source: source, ttl: ttl}
}

// ClassType returns nil when the id is not in the catalog.
func (c *ClassTypeCatalog) ClassType(ctx context.Context, id uuid.UUID) (*models.ClassType, error) {
	c.mu.RLock()
	if c.byID != nil && time.Since(c.fetchedAt) < c.ttl {
		ct, ok := c.byID[id]
		c.mu.RUnlock()
		if !ok {
			return nil, nil
		}
		return &ct, nil
	}
	c.mu.RUnlock()

	log.Println("Fetching class type catalog...")
	types, err := c.source.ClassTypes(ctx)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]models.ClassType, len(types))
	for _, ct := range types {
		byID[ct.ID] = ct
	}
	c.mu.Lock()
	c.byID = byID
	c.fetchedAt = time.Now()
	c.mu.Unlock()

	ct, ok := byID[id]
	if !ok {
		return nil, nil
	}
	return &ct, nil
}
