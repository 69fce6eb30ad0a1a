package repositories

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Initialize the SQLite database schema.
func InitSchema(db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	statements := []string{
		`CREATE TABLE IF NOT EXISTS locations (
			location_id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			address TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE TABLE IF NOT EXISTS machines (
			machine_id INTEGER PRIMARY KEY,
			location_id INTEGER NOT NULL REFERENCES locations(location_id),
			type TEXT NOT NULL,
			label TEXT NOT NULL,
			cost_per_play REAL NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS commissions (
			commission_id INTEGER PRIMARY KEY,
			location_id INTEGER NOT NULL REFERENCES locations(location_id),
			amount REAL NOT NULL,
			period_start TEXT NOT NULL,
			period_end TEXT NOT NULL,
			paid INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS vehicles (
			vehicle_id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			last_odometer REAL NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS routes (
			route_id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			is_round_trip INTEGER NOT NULL DEFAULT 0,
			total_miles REAL NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS route_stops (
			stop_id INTEGER PRIMARY KEY,
			route_id INTEGER NOT NULL REFERENCES routes(route_id),
			stop_order INTEGER NOT NULL,
			location_id INTEGER REFERENCES locations(location_id),
			custom_location_name TEXT NOT NULL DEFAULT '',
			miles_from_previous REAL NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS active_runs (
			run_id TEXT PRIMARY KEY,
			operator_id TEXT NOT NULL UNIQUE,
			route_id INTEGER NOT NULL,
			vehicle_id INTEGER NOT NULL,
			tracking_mode TEXT NOT NULL,
			odometer_start REAL,
			effective_stops TEXT NOT NULL,
			current_stop_index INTEGER NOT NULL DEFAULT 0,
			started_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS run_stop_results (
			run_id TEXT NOT NULL REFERENCES active_runs(run_id),
			stop_index INTEGER NOT NULL,
			payload TEXT NOT NULL,
			PRIMARY KEY (run_id, stop_index)
		);`,
		`CREATE TABLE IF NOT EXISTS trips (
			trip_id TEXT PRIMARY KEY,
			route_id INTEGER NOT NULL,
			vehicle_id INTEGER NOT NULL,
			operator_id TEXT NOT NULL,
			tracking_mode TEXT NOT NULL,
			odometer_start REAL,
			odometer_end REAL,
			distance_miles REAL,
			gps_distance_meters REAL,
			total_coins INTEGER NOT NULL,
			total_prizes INTEGER NOT NULL,
			stops_completed INTEGER NOT NULL,
			commissions_handled INTEGER NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS trip_stops (
			trip_id TEXT NOT NULL REFERENCES trips(trip_id),
			stop_index INTEGER NOT NULL,
			payload TEXT NOT NULL,
			PRIMARY KEY (trip_id, stop_index)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_route_stops_route_order
			ON route_stops(route_id, stop_order);`,
		`CREATE INDEX IF NOT EXISTS idx_machines_location
			ON machines(location_id);`,
		`CREATE INDEX IF NOT EXISTS idx_commissions_location_pending
			ON commissions(location_id, paid, period_end);`,
	}

	for i, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

type MachineSeed struct {
	MachineID   int64   `json:"machine_id"`
	Type        string  `json:"type"`
	Label       string  `json:"label"`
	CostPerPlay float64 `json:"cost_per_play"`
}

type LocationSeed struct {
	LocationID int64         `json:"location_id"`
	Name       string        `json:"name"`
	Address    string        `json:"address"`
	Machines   []MachineSeed `json:"machines"`
}

type StopSeed struct {
	StopID             int64   `json:"stop_id"`
	StopOrder          int     `json:"stop_order"`
	LocationID         *int64  `json:"location_id"`
	CustomLocationName string  `json:"custom_location_name"`
	MilesFromPrevious  float64 `json:"miles_from_previous"`
}

type RouteSeed struct {
	RouteID     int64      `json:"route_id"`
	Name        string     `json:"name"`
	IsRoundTrip bool       `json:"is_round_trip"`
	TotalMiles  float64    `json:"total_miles"`
	Stops       []StopSeed `json:"stops"`
}

type VehicleSeed struct {
	VehicleID    int64   `json:"vehicle_id"`
	Name         string  `json:"name"`
	LastOdometer float64 `json:"last_odometer"`
}

type CommissionSeed struct {
	CommissionID int64   `json:"commission_id"`
	LocationID   int64   `json:"location_id"`
	Amount       float64 `json:"amount"`
	PeriodStart  string  `json:"period_start"`
	PeriodEnd    string  `json:"period_end"`
	Paid         bool    `json:"paid"`
}

type CatalogSeed struct {
	Locations   []LocationSeed   `json:"locations"`
	Routes      []RouteSeed      `json:"routes"`
	Vehicles    []VehicleSeed    `json:"vehicles"`
	Commissions []CommissionSeed `json:"commissions"`
}

// Populate the catalog tables from a JSON file.
func SeedFromJSON(db *sql.DB, jsonPath string) error {
	raw, err := os.ReadFile(jsonPath)
	if err != nil {
		return fmt.Errorf("seed catalog: read %q: %w", jsonPath, err)
	}

	var seed CatalogSeed
	if err := json.Unmarshal(raw, &seed); err != nil {
		return fmt.Errorf("seed catalog: parse json: %w", err)
	}

	for _, r := range seed.Routes {
		for i, s := range r.Stops {
			if s.LocationID == nil && strings.TrimSpace(s.CustomLocationName) == "" {
				return fmt.Errorf(
					"seed catalog: route %d stop at index %d: needs a location_id or a custom_location_name",
					r.RouteID, i,
				)
			}
		}
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("seed catalog: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, l := range seed.Locations {
		if _, err := tx.Exec(
			`INSERT OR REPLACE INTO locations (location_id, name, address) VALUES (?, ?, ?);`,
			l.LocationID, l.Name, l.Address,
		); err != nil {
			return fmt.Errorf("seed catalog: insert location_id=%d: %w", l.LocationID, err)
		}
		for _, m := range l.Machines {
			if _, err := tx.Exec(
				`INSERT OR REPLACE INTO machines (machine_id, location_id, type, label, cost_per_play)
				 VALUES (?, ?, ?, ?, ?);`,
				m.MachineID, l.LocationID, m.Type, m.Label, m.CostPerPlay,
			); err != nil {
				return fmt.Errorf("seed catalog: insert machine_id=%d: %w", m.MachineID, err)
			}
		}
	}

	for _, r := range seed.Routes {
		if _, err := tx.Exec(
			`INSERT OR REPLACE INTO routes (route_id, name, is_round_trip, total_miles) VALUES (?, ?, ?, ?);`,
			r.RouteID, r.Name, r.IsRoundTrip, r.TotalMiles,
		); err != nil {
			return fmt.Errorf("seed catalog: insert route_id=%d: %w", r.RouteID, err)
		}
		for _, s := range r.Stops {
			if _, err := tx.Exec(
				`INSERT OR REPLACE INTO route_stops
				 (stop_id, route_id, stop_order, location_id, custom_location_name, miles_from_previous)
				 VALUES (?, ?, ?, ?, ?, ?);`,
				s.StopID, r.RouteID, s.StopOrder, s.LocationID, s.CustomLocationName, s.MilesFromPrevious,
			); err != nil {
				return fmt.Errorf("seed catalog: insert stop_id=%d: %w", s.StopID, err)
			}
		}
	}

	for _, v := range seed.Vehicles {
		if _, err := tx.Exec(
			`INSERT OR REPLACE INTO vehicles (vehicle_id, name, last_odometer) VALUES (?, ?, ?);`,
			v.VehicleID, v.Name, v.LastOdometer,
		); err != nil {
			return fmt.Errorf("seed catalog: insert vehicle_id=%d: %w", v.VehicleID, err)
		}
	}

	for _, c := range seed.Commissions {
		if _, err := tx.Exec(
			`INSERT OR REPLACE INTO commissions
			 (commission_id, location_id, amount, period_start, period_end, paid)
			 VALUES (?, ?, ?, ?, ?, ?);`,
			c.CommissionID, c.LocationID, c.Amount, c.PeriodStart, c.PeriodEnd, c.Paid,
		); err != nil {
			return fmt.Errorf("seed catalog: insert commission_id=%d: %w", c.CommissionID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed catalog: commit tx: %w", err)
	}

	return nil
}
