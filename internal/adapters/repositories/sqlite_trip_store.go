package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"route-run-service/internal/domain"
)

// SQLite-backed implementation of the TripStore port. Persisting the same
// trip ID twice replaces the previous rows, which makes a retried finalize
// idempotent.
type SqliteTripStore struct{ DB *sql.DB }

func NewSqliteTripStore(db *sql.DB) *SqliteTripStore {
	return &SqliteTripStore{DB: db}
}

func (s *SqliteTripStore) PersistTrip(ctx context.Context, trip *domain.Trip) error {
	if s.DB == nil {
		return errors.New("sqlite trip store: DB is nil")
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("persist trip: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
	INSERT OR REPLACE INTO trips
		(trip_id, route_id, vehicle_id, operator_id, tracking_mode,
		 odometer_start, odometer_end, distance_miles, gps_distance_meters,
		 total_coins, total_prizes, stops_completed, commissions_handled,
		 started_at, ended_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
	`,
		trip.ID, trip.RouteID, trip.VehicleID, trip.OperatorID, string(trip.TrackingMode),
		nullableFloat(trip.OdometerStart), nullableFloat(trip.OdometerEnd),
		nullableFloat(trip.DistanceMiles), nullableFloat(trip.GPSDistanceMeters),
		trip.TotalCoins, trip.TotalPrizes, trip.StopsCompleted, trip.CommissionsHandled,
		trip.StartedAt.Format(time.RFC3339Nano), trip.EndedAt.Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("persist trip: insert trips row: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM trip_stops WHERE trip_id = ?;`, trip.ID); err != nil {
		return fmt.Errorf("persist trip: clear previous stops: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO trip_stops (trip_id, stop_index, payload)
	VALUES (?, ?, ?);
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
		if _, err := stmt.ExecContext(ctx, trip.ID, sr.StopIndex, string(payload)); err != nil {
			return fmt.Errorf("persist trip: insert stop %d: %w", sr.StopIndex, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("persist trip: commit tx: %w", err)
	}

	return nil
}

// GetTripByID rehydrates one persisted trip with its stop results.
func (s *SqliteTripStore) GetTripByID(ctx context.Context, id string) (*domain.Trip, error) {
	if s.DB == nil {
		return nil, errors.New("sqlite trip store: DB is nil")
	}

	trip := &domain.Trip{ID: id}
	var mode, startedAt, endedAt string
	var odoStart, odoEnd, miles, meters sql.NullFloat64
	err := s.DB.QueryRowContext(ctx, `
	SELECT route_id, vehicle_id, operator_id, tracking_mode,
		odometer_start, odometer_end, distance_miles, gps_distance_meters,
		total_coins, total_prizes, stops_completed, commissions_handled,
		started_at, ended_at
	FROM trips
	WHERE trip_id = ?;
	`, id).Scan(
		&trip.RouteID, &trip.VehicleID, &trip.OperatorID, &mode,
		&odoStart, &odoEnd, &miles, &meters,
		&trip.TotalCoins, &trip.TotalPrizes, &trip.StopsCompleted, &trip.CommissionsHandled,
		&startedAt, &endedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get trip: query trips table: %w", err)
	}

	trip.TrackingMode = domain.TrackingMode(mode)
	trip.OdometerStart = floatPtr(odoStart)
	trip.OdometerEnd = floatPtr(odoEnd)
	trip.DistanceMiles = floatPtr(miles)
	trip.GPSDistanceMeters = floatPtr(meters)
	if trip.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
		return nil, fmt.Errorf("get trip: parse started_at: %w", err)
	}
	if trip.EndedAt, err = time.Parse(time.RFC3339Nano, endedAt); err != nil {
		return nil, fmt.Errorf("get trip: parse ended_at: %w", err)
	}

	rows, err := s.DB.QueryContext(ctx, `
	SELECT payload FROM trip_stops WHERE trip_id = ? ORDER BY stop_index;
	`, id)
	if err != nil {
		return nil, fmt.Errorf("get trip: query trip_stops table: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("get trip: scan stop row: %w", err)
		}
		var sr storedStopResult
		if err := json.Unmarshal([]byte(payload), &sr); err != nil {
			return nil, fmt.Errorf("get trip: parse stop payload: %w", err)
		}
		trip.Stops = append(trip.Stops, fromStoredResult(sr))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get trip: row iteration: %w", err)
	}

	return trip, nil
}

func nullableFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
