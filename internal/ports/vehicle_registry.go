package ports

import (
	"context"

	"route-run-service/internal/domain"
)

// Port: the registry of collection vehicles.
type VehicleRegistry interface {
	// Retrieve one vehicle. Returns (nil, nil) when the ID is unknown.
	GetVehicleByID(ctx context.Context, id int64) (*domain.Vehicle, error)

	// Record the vehicle's last-known odometer reading.
	UpdateLastOdometer(ctx context.Context, vehicleID int64, value float64) error
}
