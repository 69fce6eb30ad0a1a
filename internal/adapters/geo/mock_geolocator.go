package geo

import (
	"context"

	"route-run-service/internal/domain"
	"route-run-service/internal/ports"
)

// MockGeolocator returns a scripted fix or error, for tests and demos.
type MockGeolocator struct {
	Fix   domain.GeoFix
	Err   error
	Calls int

	// Delay, when set, is invoked before returning so tests can
	// interleave a stop change with an in-flight request.
	Delay func()
}

func (m *MockGeolocator) GetCurrentPosition(ctx context.Context, opts ports.FixOptions) (domain.GeoFix, error) {
	m.Calls++
	if m.Delay != nil {
		m.Delay()
	}
	if m.Err != nil {
		return domain.GeoFix{}, m.Err
	}
	return m.Fix, nil
}

var _ ports.Geolocator = (*MockGeolocator)(nil)
