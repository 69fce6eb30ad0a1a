package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"route-run-service/internal/domain"
)

// SQLite-backed implementation of the VehicleRegistry port.
type SqliteVehicleRegistry struct{ DB *sql.DB }

func NewSqliteVehicleRegistry(db *sql.DB) *SqliteVehicleRegistry {
	return &SqliteVehicleRegistry{DB: db}
}

func (s *SqliteVehicleRegistry) GetVehicleByID(ctx context.Context, id int64) (*domain.Vehicle, error) {
	if s.DB == nil {
		return nil, errors.New("sqlite vehicle registry: DB is nil")
	}

	v := &domain.Vehicle{ID: id}
	err := s.DB.QueryRowContext(ctx, `
	SELECT name, last_odometer
	FROM vehicles
	WHERE vehicle_id = ?;
	`, id).Scan(&v.Name, &v.LastOdometer)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get vehicle: query vehicles table: %w", err)
	}

	return v, nil
}

func (s *SqliteVehicleRegistry) UpdateLastOdometer(ctx context.Context, vehicleID int64, value float64) error {
	if s.DB == nil {
		return errors.New("sqlite vehicle registry: DB is nil")
	}

	res, err := s.DB.ExecContext(ctx, `
	UPDATE vehicles SET last_odometer = ? WHERE vehicle_id = ?;
	`, value, vehicleID)
	if err != nil {
		return fmt.Errorf("update last odometer: update vehicles table: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update last odometer: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("update last odometer: vehicle %d not found", vehicleID)
	}

	return nil
}
