package cache

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mappoint/geocsv/pkg/nominatim"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStoreRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	want := &nominatim.Result{
		Latitude:    52.52,
		Longitude:   13.40,
		DisplayName: "Berlin, Deutschland",
		Address:     nominatim.Address{City: "Berlin", Postcode: "10115", Country: "Deutschland"},
	}
	require.NoError(t, s.Put(ctx, "Hauptstraße 5, 10115, Berlin", want))

	got, found, err := s.Get(ctx, "Hauptstraße 5, 10115, Berlin")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, want, got)
}

func TestStoreMiss(t *testing.T) {
	s := openTestStore(t)

	result, found, err := s.Get(context.Background(), "never seen")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, result)
}

func TestStoreNegativeCache(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "xyzzy nowhere", nil))

	result, found, err := s.Get(ctx, "xyzzy nowhere")
	require.NoError(t, err)
	assert.True(t, found, "non-matches are cached too")
	assert.Nil(t, result)
}

func TestStoreUpsert(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "Main St 1", nil))
	require.NoError(t, s.Put(ctx, "Main St 1", &nominatim.Result{Latitude: 1, Longitude: 2}))

	result, found, err := s.Get(ctx, "Main St 1")
	require.NoError(t, err)
	require.True(t, found)
	require.NotNil(t, result)
	assert.Equal(t, 1.0, result.Latitude)
}

func TestKeyNormalization(t *testing.T) {
	assert.Equal(t, Key("Main St 1"), Key("  main st 1  "))
	assert.NotEqual(t, Key("Main St 1"), Key("Main St 2"))
}

// countingClient records calls and serves a fixed result.
type countingClient struct {
	result *nominatim.Result
	calls  int
}

func (c *countingClient) Geocode(context.Context, string) (*nominatim.Result, error) {
	c.calls++
	return c.result, nil
}

func TestGeocoderCacheHitSkipsProvider(t *testing.T) {
	s := openTestStore(t)
	inner := &countingClient{result: &nominatim.Result{Latitude: 1, Longitude: 2}}
	g := NewGeocoder(inner, s)
	ctx := context.Background()

	first, err := g.Geocode(ctx, "Main St 1")
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, 1, inner.calls)

	second, err := g.Geocode(ctx, "Main St 1")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.calls, "second lookup served from cache")
}

func TestGeocoderCachesNonMatch(t *testing.T) {
	s := openTestStore(t)
	inner := &countingClient{} // always "not found"
	g := NewGeocoder(inner, s)
	ctx := context.Background()

	result, err := g.Geocode(ctx, "xyzzy nowhere")
	require.NoError(t, err)
	assert.Nil(t, result)

	result, err = g.Geocode(ctx, "xyzzy nowhere")
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.Equal(t, 1, inner.calls, "cached non-match also skips the provider")
}

func TestGeocoderEmptyAddressPassesThrough(t *testing.T) {
	s := openTestStore(t)
	inner := &countingClient{}
	g := NewGeocoder(inner, s)

	result, err := g.Geocode(context.Background(), "   ")
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.Equal(t, 1, inner.calls)
}
