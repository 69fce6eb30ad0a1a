package domain

import "time"

// A catalog location a stop can reference.
type Location struct {
	ID      int64
	Name    string
	Address string
}

// A coin-operated machine placed at a location.
type Machine struct {
	ID          int64
	LocationID  int64
	Type        string
	Label       string
	CostPerPlay float64
}

// One commission period owed to a location's owner.
type Commission struct {
	ID          int64
	LocationID  int64
	Amount      float64
	PeriodStart time.Time
	PeriodEnd   time.Time
	Paid        bool
}

// A registered collection vehicle. LastOdometer is updated when an
// odometer-mode run is finalized.
type Vehicle struct {
	ID           int64
	Name         string
	LastOdometer float64
}
