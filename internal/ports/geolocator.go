package ports

import (
	"context"
	"time"

	"route-run-service/internal/domain"
)

// Options for a single-shot position request.
type FixOptions struct {
	HighAccuracy bool
	Timeout      time.Duration
	MaxAge       time.Duration
}

// Port: the device positioning source. Failures are reported as
// SensorUnavailable errors carrying a human-readable reason; they degrade
// the capture flow but never block it.
type Geolocator interface {
	// Request one position fix. A fix younger than opts.MaxAge may be
	// served from cache instead of the device.
	GetCurrentPosition(ctx context.Context, opts FixOptions) (domain.GeoFix, error)
}
