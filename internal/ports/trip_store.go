package ports

import (
	"context"

	"route-run-service/internal/domain"
)

// Port: durable storage for finalized trips.
type TripStore interface {
	// Persist a trip and its stop results. Persisting the same trip ID twice
	// overwrites, so a retried finalize never duplicates.
	PersistTrip(ctx context.Context, trip *domain.Trip) error
}
