package ports

import (
	"context"

	"route-run-service/internal/domain"
)

// Port: read-only access to the catalog of saved routes.
type RouteCatalog interface {
	// Retrieve one route with its ordered stops.
	GetRouteByID(ctx context.Context, id int64) (*domain.Route, error)
}
