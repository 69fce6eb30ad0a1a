package ports

import (
	"context"

	"route-run-service/internal/domain"
)

// Port: read-only access to catalog locations and the machines placed at them.
type LocationCatalog interface {
	// Retrieve one location. Returns (nil, nil) when the ID is unknown.
	GetLocationByID(ctx context.Context, id int64) (*domain.Location, error)

	// List the machines currently placed at a location.
	ListMachinesForLocation(ctx context.Context, locationID int64) ([]domain.Machine, error)

	// Resolve display names for many locations at once. IDs absent from the
	// result are unknown to the catalog.
	ResolveNames(ctx context.Context, ids []int64) (map[int64]string, error)
}
