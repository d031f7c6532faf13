package nominatim

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := NewClient(Config{
		BaseURL:   srv.URL,
		UserAgent: "geocsv-test",
		Language:  "de",
		Interval:  time.Millisecond,
	})
	return client, srv
}

func TestGeocodeSuccess(t *testing.T) {
	var gotQuery, gotUA string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotUA = r.Header.Get("User-Agent")
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "jsonv2", r.URL.Query().Get("format"))
		assert.Equal(t, "1", r.URL.Query().Get("addressdetails"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		assert.Equal(t, "de", r.URL.Query().Get("accept-language"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{
			"lat": "52.5170365",
			"lon": "13.3888599",
			"display_name": "Berlin, Deutschland",
			"address": {"city": "Berlin", "postcode": "10117", "country": "Deutschland"}
		}]`))
	})

	result, err := client.Geocode(context.Background(), "Unter den Linden 1, 10117 Berlin")
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, "Unter den Linden 1, 10117 Berlin", gotQuery)
	assert.Equal(t, "geocsv-test", gotUA)
	assert.InDelta(t, 52.5170365, result.Latitude, 1e-9)
	assert.InDelta(t, 13.3888599, result.Longitude, 1e-9)
	assert.Equal(t, "Berlin, Deutschland", result.DisplayName)
	assert.Equal(t, "Berlin", result.Address.City)
	assert.Equal(t, "10117", result.Address.Postcode)
}

func TestGeocodeEmptyAddressSkipsRequest(t *testing.T) {
	var calls atomic.Int64
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`[]`))
	})

	for _, address := range []string{"", "   ", "\t\n"} {
		result, err := client.Geocode(context.Background(), address)
		require.NoError(t, err)
		assert.Nil(t, result)
	}
	assert.Equal(t, int64(0), calls.Load())
}

func TestGeocodeNoMatch(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})

	result, err := client.Geocode(context.Background(), "xyzzy nowhere")
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestGeocodeServerErrorCollapsesToNotFound(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "over capacity", http.StatusServiceUnavailable)
	})

	result, err := client.Geocode(context.Background(), "Main St 1")
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestGeocodeMalformedResponseCollapsesToNotFound(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"unexpected": "object"}`))
	})

	result, err := client.Geocode(context.Background(), "Main St 1")
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestGeocodeUnparseableCoordinates(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"lat": "not-a-number", "lon": "13.4", "display_name": "x"}]`))
	})

	result, err := client.Geocode(context.Background(), "Main St 1")
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestGeocodeCancelledDuringRateWait(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})
	client.limiter.SetLimit(0.001) // second call would wait ~minutes

	_, err := client.Geocode(context.Background(), "first") // consumes the burst token
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = client.Geocode(ctx, "second")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGeocodeCancelledDuringRequest(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		cancel()
		<-r.Context().Done()
	})

	_, err := client.Geocode(ctx, "Main St 1")
	require.Error(t, err, "an aborted request is a cancellation, not a not-found")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient(Config{})
	assert.Equal(t, DefaultBaseURL, c.cfg.BaseURL)
	assert.Equal(t, time.Second, c.cfg.Interval)
	assert.Equal(t, "en", c.cfg.Language)
	assert.NotEmpty(t, c.cfg.UserAgent)
}
