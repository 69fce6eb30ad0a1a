package geo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"route-run-service/internal/domain"
	"route-run-service/internal/ports"
)

func bridgeServer(t *testing.T, handler http.HandlerFunc) *HTTPGeolocator {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPGeolocator(srv.URL)
}

func TestHTTPGeolocatorReturnsFix(t *testing.T) {
	var gotHighAccuracy string
	g := bridgeServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotHighAccuracy = r.URL.Query().Get("highAccuracy")
		json.NewEncoder(w).Encode(map[string]float64{"lat": 40.71, "lng": -74.0, "accuracy": 8.5})
	})

	fix, err := g.GetCurrentPosition(context.Background(), ports.FixOptions{HighAccuracy: true})
	require.NoError(t, err)
	assert.Equal(t, 40.71, fix.Lat)
	assert.Equal(t, -74.0, fix.Lng)
	assert.Equal(t, 8.5, fix.Accuracy)
	assert.False(t, fix.CapturedAt.IsZero())
	assert.Equal(t, "true", gotHighAccuracy)
}

func TestHTTPGeolocatorServesRecentFixFromCache(t *testing.T) {
	calls := 0
	g := bridgeServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		json.NewEncoder(w).Encode(map[string]float64{"lat": 40.71, "lng": -74.0})
	})

	_, err := g.GetCurrentPosition(context.Background(), ports.FixOptions{MaxAge: time.Minute})
	require.NoError(t, err)
	_, err = g.GetCurrentPosition(context.Background(), ports.FixOptions{MaxAge: time.Minute})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	// MaxAge zero always hits the device.
	_, err = g.GetCurrentPosition(context.Background(), ports.FixOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestHTTPGeolocatorPermissionDenied(t *testing.T) {
	g := bridgeServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := g.GetCurrentPosition(context.Background(), ports.FixOptions{})
	require.Error(t, err)
	assert.True(t, domain.IsSensorUnavailable(err))
}

func TestHTTPGeolocatorUnreachable(t *testing.T) {
	g := NewHTTPGeolocator("http://127.0.0.1:1")

	_, err := g.GetCurrentPosition(context.Background(), ports.FixOptions{Timeout: time.Second})
	require.Error(t, err)
	assert.True(t, domain.IsSensorUnavailable(err))
}

func TestHTTPGeolocatorRejectsOutOfRange(t *testing.T) {
	g := bridgeServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]float64{"lat": 120.0, "lng": 0})
	})

	_, err := g.GetCurrentPosition(context.Background(), ports.FixOptions{})
	require.Error(t, err)
	assert.True(t, domain.IsSensorUnavailable(err))
}

func TestHTTPGeolocatorGarbageBody(t *testing.T) {
	g := bridgeServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	})

	_, err := g.GetCurrentPosition(context.Background(), ports.FixOptions{})
	require.Error(t, err)
	assert.True(t, domain.IsSensorUnavailable(err))
}

func TestDisabledGeolocator(t *testing.T) {
	_, err := Disabled{}.GetCurrentPosition(context.Background(), ports.FixOptions{})
	require.Error(t, err)
	assert.True(t, domain.IsSensorUnavailable(err))
}
