package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"route-run-service/internal/domain"
)

// SQLite-backed implementation of the RouteCatalog port.
type SqliteRouteCatalog struct{ DB *sql.DB }

func NewSqliteRouteCatalog(db *sql.DB) *SqliteRouteCatalog {
	return &SqliteRouteCatalog{DB: db}
}

// Return one route with its stops in catalog order.
func (s *SqliteRouteCatalog) GetRouteByID(ctx context.Context, id int64) (*domain.Route, error) {
	if s.DB == nil {
		return nil, errors.New("sqlite route catalog: DB is nil")
	}

	route := &domain.Route{ID: id}
	err := s.DB.QueryRowContext(ctx, `
	SELECT name, is_round_trip, total_miles
	FROM routes
	WHERE route_id = ?;
	`, id).Scan(&route.Name, &route.IsRoundTrip, &route.TotalMiles)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get route: route %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get route: query routes table: %w", err)
	}

	rows, err := s.DB.QueryContext(ctx, `
	SELECT stop_id, stop_order, location_id, custom_location_name, miles_from_previous
	FROM route_stops
	WHERE route_id = ?
	ORDER BY stop_order;
	`, id)
	if err != nil {
		return nil, fmt.Errorf("get route: query route_stops table: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var stop domain.Stop
		var locationID sql.NullInt64
		if err := rows.Scan(&stop.ID, &stop.StopOrder, &locationID, &stop.CustomLocationName, &stop.MilesFromPrevious); err != nil {
			return nil, fmt.Errorf("get route: scan stop row: %w", err)
		}
		if locationID.Valid {
			v := locationID.Int64
			stop.LocationID = &v
		}
		route.Stops = append(route.Stops, stop)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get route: row iteration: %w", err)
	}

	return route, nil
}
