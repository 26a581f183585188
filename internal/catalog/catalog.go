// Package catalog fetches and retains the crop/soil taxonomy that
// validates and populates the advisory form. The taxonomy is fetched at
// most once concurrently; callers arriving during a fetch share its
// result. A failed load is non-fatal and may be retried later.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/cropsathi/sathi/internal/api"
)

// ErrUnavailable is returned by Get before a successful load.
var ErrUnavailable = errors.New("catalog: not loaded")

// configAPI abstracts the backend call, enabling test mocks.
type configAPI interface {
	AppConfig(ctx context.Context) (*api.AppConfig, error)
}

// Catalog is the immutable crop/soil taxonomy.
type Catalog struct {
	Crops     map[string]api.CropInfo
	SoilTypes []string
}

// CropNames returns the crop identifiers in sorted order.
func (c *Catalog) CropNames() []string {
	names := make([]string, 0, len(c.Crops))
	for name := range c.Crops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Stages returns the ordered growth stages for crop, or nil when the crop
// is unknown.
func (c *Catalog) Stages(crop string) []string {
	info, ok := c.Crops[crop]
	if !ok {
		return nil
	}
	return info.Stages
}

// StageLabel resolves a stage index for crop. It fails when the crop is
// unknown or the index is outside the crop's stage list.
func (c *Catalog) StageLabel(crop string, index int) (string, error) {
	stages := c.Stages(crop)
	if stages == nil {
		return "", fmt.Errorf("catalog: unknown crop %q", crop)
	}
	if index < 0 || index >= len(stages) {
		return "", fmt.Errorf("catalog: stage index %d out of range for %q (%d stages)", index, crop, len(stages))
	}
	return stages[index], nil
}

// ValidSoil reports whether s is a known soil type.
func (c *Catalog) ValidSoil(s string) bool {
	for _, soil := range c.SoilTypes {
		if soil == s {
			return true
		}
	}
	return false
}

// Cache holds the taxonomy for the lifetime of the process.
type Cache struct {
	api configAPI

	mu      sync.Mutex
	loaded  *Catalog
	pending chan struct{} // non-nil while a fetch is in flight
	lastErr error
}

// NewCache creates a Cache backed by the given API.
func NewCache(a configAPI) (*Cache, error) {
	if a == nil {
		return nil, fmt.Errorf("catalog: api is required")
	}
	return &Cache{api: a}, nil
}

// Load fetches the taxonomy. Concurrent callers share a single in-flight
// fetch; once loaded, Load returns the cached catalog without touching the
// network. After a failed load, the next Load retries.
func (c *Cache) Load(ctx context.Context) (*Catalog, error) {
	c.mu.Lock()
	if c.loaded != nil {
		cat := c.loaded
		c.mu.Unlock()
		return cat, nil
	}
	if c.pending != nil {
		// Another caller is fetching; wait for it.
		done := c.pending
		c.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			return nil, fmt.Errorf("catalog: load: %w", ctx.Err())
		}
		return c.Get()
	}
	done := make(chan struct{})
	c.pending = done
	c.mu.Unlock()

	cfg, err := c.api.AppConfig(ctx)

	c.mu.Lock()
	c.pending = nil
	if err != nil {
		c.lastErr = fmt.Errorf("catalog: load: %w", err)
		err = c.lastErr
	} else {
		c.loaded = &Catalog{Crops: cfg.Crops, SoilTypes: cfg.SoilTypes}
		c.lastErr = nil
	}
	cat := c.loaded
	c.mu.Unlock()
	close(done)

	return cat, err
}

// Get returns the cached catalog, or ErrUnavailable when the taxonomy has
// not been loaded (or the last load failed).
func (c *Cache) Get() (*Catalog, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded == nil {
		if c.lastErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, c.lastErr)
		}
		return nil, ErrUnavailable
	}
	return c.loaded, nil
}
