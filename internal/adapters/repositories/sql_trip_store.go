package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"route-run-service/internal/domain"
)

// SQLTripStore is the Postgres implementation of the TripStore port.
type SQLTripStore struct{ DB *sql.DB }

func NewSQLTripStore(db *sql.DB) *SQLTripStore {
	return &SQLTripStore{DB: db}
}

func (s *SQLTripStore) PersistTrip(ctx context.Context, trip *domain.Trip) error {
	if s.DB == nil {
		return errors.New("trip store: db is nil")
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("persist trip: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
	INSERT INTO trips
		(trip_id, route_id, vehicle_id, operator_id, tracking_mode,
		 odometer_start, odometer_end, distance_miles, gps_distance_meters,
		 total_coins, total_prizes, stops_completed, commissions_handled,
		 started_at, ended_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	ON CONFLICT (trip_id) DO UPDATE
	SET odometer_end = EXCLUDED.odometer_end,
		distance_miles = EXCLUDED.distance_miles,
		gps_distance_meters = EXCLUDED.gps_distance_meters,
		total_coins = EXCLUDED.total_coins,
		total_prizes = EXCLUDED.total_prizes,
		stops_completed = EXCLUDED.stops_completed,
		commissions_handled = EXCLUDED.commissions_handled,
		ended_at = EXCLUDED.ended_at;
	`,
		trip.ID, trip.RouteID, trip.VehicleID, trip.OperatorID, string(trip.TrackingMode),
		nullableFloat(trip.OdometerStart), nullableFloat(trip.OdometerEnd),
		nullableFloat(trip.DistanceMiles), nullableFloat(trip.GPSDistanceMeters),
		trip.TotalCoins, trip.TotalPrizes, trip.StopsCompleted, trip.CommissionsHandled,
		trip.StartedAt, trip.EndedAt,
	); err != nil {
		return fmt.Errorf("persist trip: insert trips row: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM trip_stops WHERE trip_id = $1;`, trip.ID); err != nil {
		return fmt.Errorf("persist trip: clear previous stops: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO trip_stops (trip_id, stop_index, payload)
	VALUES ($1, $2, $3);
	`)
	if err != nil {
		return fmt.Errorf("persist trip: prepare stop insert: %w", err)
	}
	defer stmt.Close()

	for _, sr := range trip.Stops {
		payload, err := json.Marshal(toStoredResult(sr))
		if err != nil {
			return fmt.Errorf("persist trip: marshal stop %d: %w", sr.StopIndex, err)
		}
		if _, err := stmt.ExecContext(ctx, trip.ID, sr.StopIndex, payload); err != nil {
			return fmt.Errorf("persist trip: insert stop %d: %w", sr.StopIndex, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("persist trip: commit tx: %w", err)
	}

	return nil
}
