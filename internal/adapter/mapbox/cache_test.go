package mapbox

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/couchcryptid/tree-request-service/internal/domain"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mock for cache tests ---

type countingGeocoder struct {
	calls  int
	result domain.GeocodingResult
	err    error
}

func (m *countingGeocoder) ForwardGeocode(_ context.Context, _, _ string) (domain.GeocodingResult, error) {
	m.calls++
	return m.result, m.err
}

var westernAve = domain.GeocodingResult{Lat: 41.9063, Lon: -87.6866, PlaceName: "North Western Avenue", FormattedAddress: "1234 North Western Avenue, Chicago"}

// --- CachedGeocoder tests ---

func TestCachedGeocoder_CacheHit(t *testing.T) {
	inner := &countingGeocoder{result: westernAve}
	metrics := testMetrics()
	cached := NewCachedGeocoder(inner, 10, metrics)

	r1, err := cached.ForwardGeocode(context.Background(), testAddress, testCity)
	require.NoError(t, err)
	assert.Equal(t, westernAve, r1)

	r2, err := cached.ForwardGeocode(context.Background(), testAddress, testCity)
	require.NoError(t, err)
	assert.Equal(t, westernAve, r2)

	assert.Equal(t, 1, inner.calls, "should only call inner once")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.GeocodeCache.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.GeocodeCache.WithLabelValues("miss")))
}

func TestCachedGeocoder_KeyIgnoresCase(t *testing.T) {
	inner := &countingGeocoder{result: westernAve}
	cached := NewCachedGeocoder(inner, 10, testMetrics())

	_, _ = cached.ForwardGeocode(context.Background(), "1234 N Western Ave", testCity)
	_, _ = cached.ForwardGeocode(context.Background(), "1234 n western ave", "chicago, il")

	assert.Equal(t, 1, inner.calls)
}

func TestCachedGeocoder_DifferentKeysMiss(t *testing.T) {
	inner := &countingGeocoder{result: westernAve}
	cached := NewCachedGeocoder(inner, 10, testMetrics())

	_, _ = cached.ForwardGeocode(context.Background(), "1234 N Western Ave", testCity)
	_, _ = cached.ForwardGeocode(context.Background(), "1 S State St", testCity)

	assert.Equal(t, 2, inner.calls)
}

func TestCachedGeocoder_EmptyResultNotCached(t *testing.T) {
	inner := &countingGeocoder{}
	cached := NewCachedGeocoder(inner, 10, testMetrics())

	_, _ = cached.ForwardGeocode(context.Background(), testAddress, testCity)
	_, _ = cached.ForwardGeocode(context.Background(), testAddress, testCity)

	assert.Equal(t, 2, inner.calls)
	assert.Equal(t, 0, cached.cache.size())
}

func TestCachedGeocoder_ErrorNotCached(t *testing.T) {
	inner := &countingGeocoder{err: errors.New("mapbox down")}
	cached := NewCachedGeocoder(inner, 10, testMetrics())

	_, err := cached.ForwardGeocode(context.Background(), testAddress, testCity)
	require.Error(t, err)
	_, err = cached.ForwardGeocode(context.Background(), testAddress, testCity)
	require.Error(t, err)

	assert.Equal(t, 2, inner.calls)
}

// --- LRU cache unit tests ---

func place(name string) domain.GeocodingResult {
	return domain.GeocodingResult{PlaceName: name, Lat: 41.8, Lon: -87.6}
}

func TestLRUCache_BasicGetPut(t *testing.T) {
	c := newLRUCache(3)

	c.put("a", place("A"))
	c.put("b", place("B"))

	result, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, "A", result.PlaceName)

	_, ok = c.get("missing")
	assert.False(t, ok)
}

func TestLRUCache_Eviction(t *testing.T) {
	c := newLRUCache(2)

	c.put("a", place("A"))
	c.put("b", place("B"))
	c.put("c", place("C")) // evicts "a"

	_, ok := c.get("a")
	assert.False(t, ok, "a should have been evicted")

	result, ok := c.get("b")
	assert.True(t, ok)
	assert.Equal(t, "B", result.PlaceName)

	result, ok = c.get("c")
	assert.True(t, ok)
	assert.Equal(t, "C", result.PlaceName)
	assert.Equal(t, 2, c.size())
}

func TestLRUCache_AccessPromotesEntry(t *testing.T) {
	c := newLRUCache(2)

	c.put("a", place("A"))
	c.put("b", place("B"))

	c.get("a")

	// "b" is now least recently used.
	c.put("c", place("C"))

	_, ok := c.get("a")
	assert.True(t, ok, "a was accessed recently, should not be evicted")

	_, ok = c.get("b")
	assert.False(t, ok, "b should have been evicted")
}

func TestLRUCache_UpdateExisting(t *testing.T) {
	c := newLRUCache(2)

	c.put("a", place("A1"))
	c.put("a", place("A2"))

	result, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, "A2", result.PlaceName)
	assert.Equal(t, 1, c.size())
}

func TestLRUCache_BoundedUnderChurn(t *testing.T) {
	c := newLRUCache(5)
	for i := range 100 {
		c.put(fmt.Sprintf("k%d", i), place("P"))
	}
	assert.Equal(t, 5, c.size())
	_, ok := c.get("k99")
	assert.True(t, ok)
	_, ok = c.get("k94")
	assert.False(t, ok)
}
