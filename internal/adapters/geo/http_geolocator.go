package geo

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"route-run-service/internal/domain"
	"route-run-service/internal/ports"
)

type fixResponse struct {
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Accuracy float64 `json:"accuracy"`
}

// HTTPGeolocator implements the Geolocator port against a GPS bridge: a
// small local service (phone companion app, serial GPS daemon) exposing the
// device position over HTTP. A fix younger than the request's MaxAge is
// served from the last response without touching the bridge.
//
// Every failure mode maps to a SensorUnavailable error with a reason fit to
// show the operator; callers never retry on our behalf.
type HTTPGeolocator struct {
	baseURL string
	session *http.Client

	mu      sync.Mutex
	lastFix *domain.GeoFix
}

func NewHTTPGeolocator(baseURL string) *HTTPGeolocator {
	return &HTTPGeolocator{
		baseURL: baseURL,
		session: &http.Client{},
	}
}

func (g *HTTPGeolocator) GetCurrentPosition(ctx context.Context, opts ports.FixOptions) (domain.GeoFix, error) {
	if cached := g.cachedFix(opts.MaxAge); cached != nil {
		return *cached, nil
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/fix", nil)
	if err != nil {
		return domain.GeoFix{}, domain.NewSensorUnavailable("position request could not be created")
	}
	q := req.URL.Query()
	q.Set("highAccuracy", strconv.FormatBool(opts.HighAccuracy))
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Accept", "application/json")

	resp, err := g.session.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return domain.GeoFix{}, domain.NewSensorUnavailable("position request timed out")
		}
		return domain.GeoFix{}, domain.NewSensorUnavailable("positioning device unreachable")
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusForbidden:
		return domain.GeoFix{}, domain.NewSensorUnavailable("location permission denied")
	default:
		return domain.GeoFix{}, domain.NewSensorUnavailable("position unavailable (bridge status %d)", resp.StatusCode)
	}

	var decoded fixResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return domain.GeoFix{}, domain.NewSensorUnavailable("position response unreadable")
	}
	if decoded.Lat < -90 || decoded.Lat > 90 || decoded.Lng < -180 || decoded.Lng > 180 {
		return domain.GeoFix{}, domain.NewSensorUnavailable("position response out of range")
	}

	fix := domain.GeoFix{
		Lat:        decoded.Lat,
		Lng:        decoded.Lng,
		Accuracy:   decoded.Accuracy,
		CapturedAt: time.Now().UTC(),
	}

	g.mu.Lock()
	g.lastFix = &fix
	g.mu.Unlock()

	return fix, nil
}

func (g *HTTPGeolocator) cachedFix(maxAge time.Duration) *domain.GeoFix {
	if maxAge <= 0 {
		return nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.lastFix == nil || time.Since(g.lastFix.CapturedAt) > maxAge {
		return nil
	}
	fix := *g.lastFix
	return &fix
}

var _ ports.Geolocator = (*HTTPGeolocator)(nil)

// Disabled is the Geolocator used when no bridge is configured: every
// request fails with a stable, human-readable reason.
type Disabled struct{}

func (Disabled) GetCurrentPosition(ctx context.Context, opts ports.FixOptions) (domain.GeoFix, error) {
	return domain.GeoFix{}, domain.NewSensorUnavailable("no positioning device configured")
}
