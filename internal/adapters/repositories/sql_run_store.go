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

// SQLRunStore is the Postgres implementation of the RunStore port.
type SQLRunStore struct{ DB *sql.DB }

func NewSQLRunStore(db *sql.DB) *SQLRunStore {
	return &SQLRunStore{DB: db}
}

func (s *SQLRunStore) GetActiveRun(ctx context.Context, operatorID string) (*domain.RouteRun, error) {
	if s.DB == nil {
		return nil, errors.New("run store: db is nil")
	}

	run := &domain.RouteRun{OperatorID: operatorID}
	var odometerStart sql.NullFloat64
	var stopsJSON []byte
	var mode string
	var startedAt time.Time
	err := s.DB.QueryRowContext(ctx, `
	SELECT run_id, route_id, vehicle_id, tracking_mode, odometer_start,
		effective_stops, current_stop_index, started_at
	FROM active_runs
	WHERE operator_id = $1;
	`, operatorID).Scan(
		&run.ID, &run.RouteID, &run.VehicleID, &mode, &odometerStart,
		&stopsJSON, &run.CurrentStopIndex, &startedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get active run: query active_runs table: %w", err)
	}

	run.TrackingMode = domain.TrackingMode(mode)
	run.StartedAt = startedAt.UTC()
	if odometerStart.Valid {
		v := odometerStart.Float64
		run.OdometerStart = &v
	}

	var stops []storedEffectiveStop
	if err := json.Unmarshal(stopsJSON, &stops); err != nil {
		return nil, fmt.Errorf("get active run: parse effective stops: %w", err)
	}
	run.EffectiveStops = fromStoredStops(stops)

	rows, err := s.DB.QueryContext(ctx, `
	SELECT payload
	FROM run_stop_results
	WHERE run_id = $1
	ORDER BY stop_index;
	`, run.ID)
	if err != nil {
		return nil, fmt.Errorf("get active run: query run_stop_results table: %w", err)
	}
	defer rows.Close()

	run.StopData = make([]domain.StopResult, 0, run.CurrentStopIndex)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("get active run: scan result row: %w", err)
		}
		var sr storedStopResult
		if err := json.Unmarshal(payload, &sr); err != nil {
			return nil, fmt.Errorf("get active run: parse result payload: %w", err)
		}
		run.StopData = append(run.StopData, fromStoredResult(sr))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get active run: row iteration: %w", err)
	}

	if err := run.ConsistencyErr(); err != nil {
		return nil, fmt.Errorf("get active run: %w", err)
	}

	return run, nil
}

func (s *SQLRunStore) CreateRun(ctx context.Context, run *domain.RouteRun) error {
	if s.DB == nil {
		return errors.New("run store: db is nil")
	}

	stopsJSON, err := json.Marshal(toStoredStops(run.EffectiveStops))
	if err != nil {
		return fmt.Errorf("create run: marshal effective stops: %w", err)
	}

	if _, err := s.DB.ExecContext(ctx, `
	INSERT INTO active_runs
		(run_id, operator_id, route_id, vehicle_id, tracking_mode,
		 odometer_start, effective_stops, current_stop_index, started_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
	`,
		run.ID, run.OperatorID, run.RouteID, run.VehicleID, string(run.TrackingMode),
		nullableFloat(run.OdometerStart), stopsJSON, run.CurrentStopIndex, run.StartedAt,
	); err != nil {
		return fmt.Errorf("create run: insert active_runs row: %w", err)
	}

	return nil
}

func (s *SQLRunStore) AppendStopResult(ctx context.Context, runID string, expectedIndex int, result domain.StopResult) error {
	if s.DB == nil {
		return errors.New("run store: db is nil")
	}

	payload, err := json.Marshal(toStoredResult(result))
	if err != nil {
		return fmt.Errorf("append stop result: marshal payload: %w", err)
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("append stop result: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
	UPDATE active_runs
	SET current_stop_index = current_stop_index + 1
	WHERE run_id = $1 AND current_stop_index = $2;
	`, runID, expectedIndex)
	if err != nil {
		return fmt.Errorf("append stop result: advance index: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("append stop result: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("append stop result: run %s is not at stop %d", runID, expectedIndex)
	}

	if _, err := tx.ExecContext(ctx, `
	INSERT INTO run_stop_results (run_id, stop_index, payload)
	VALUES ($1, $2, $3);
	`, runID, expectedIndex, payload); err != nil {
		return fmt.Errorf("append stop result: insert result row: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("append stop result: commit tx: %w", err)
	}

	return nil
}

func (s *SQLRunStore) ClearRun(ctx context.Context, runID string) error {
	if s.DB == nil {
		return errors.New("run store: db is nil")
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("clear run: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM run_stop_results WHERE run_id = $1;`, runID); err != nil {
		return fmt.Errorf("clear run: delete results: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM active_runs WHERE run_id = $1;`, runID); err != nil {
		return fmt.Errorf("clear run: delete run: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("clear run: commit tx: %w", err)
	}

	return nil
}
