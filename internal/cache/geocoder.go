package cache

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/mappoint/geocsv/pkg/nominatim"
)

// Client resolves one free-text address; pkg/nominatim's Client and the
// pipeline's Geocoder share this shape.
type Client interface {
	Geocode(ctx context.Context, address string) (*nominatim.Result, error)
}

// Geocoder wraps a Client with the cache: hits (including cached non-matches)
// skip the provider entirely, so no rate-limit wait is incurred for them.
type Geocoder struct {
	inner Client
	store *Store
}

// NewGeocoder creates a caching Geocoder around inner.
func NewGeocoder(inner Client, store *Store) *Geocoder {
	return &Geocoder{inner: inner, store: store}
}

// Geocode implements the geocoder contract. Cache failures are logged and
// treated as misses; they never fail the lookup.
func (g *Geocoder) Geocode(ctx context.Context, address string) (*nominatim.Result, error) {
	if strings.TrimSpace(address) == "" {
		return g.inner.Geocode(ctx, address)
	}

	if result, found, err := g.store.Get(ctx, address); err != nil {
		zap.L().Warn("cache: lookup failed", zap.Error(err))
	} else if found {
		return result, nil
	}

	result, err := g.inner.Geocode(ctx, address)
	if err != nil {
		return nil, err
	}

	if err := g.store.Put(ctx, address, result); err != nil {
		zap.L().Warn("cache: store failed", zap.Error(err))
	}
	return result, nil
}
