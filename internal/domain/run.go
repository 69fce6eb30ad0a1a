package domain

import "time"

// How trip distance is collected for a run.
type TrackingMode string

const (
	TrackingGPS      TrackingMode = "gps"
	TrackingOdometer TrackingMode = "odometer"
)

// Workflow phase, always derived from run state and never stored.
type Phase string

const (
	PhaseSetup   Phase = "setup"
	PhaseRunning Phase = "running"
	PhaseSummary Phase = "summary"
)

// Coin and prize counts collected from one machine at one stop.
type StopCollectionData struct {
	MachineID     int64
	CoinsInserted int
	PrizesWon     int
}

// The immutable record of one completed stop. LocationName is resolved at
// capture time and never recomputed later.
type StopResult struct {
	StopIndex      int
	LocationID     *int64
	LocationName   string
	Collections    []StopCollectionData
	Notes          string
	CommissionPaid bool
	CommissionID   *int64
	CompletedAt    time.Time
	GPSLat         *float64
	GPSLng         *float64
	GPSAccuracy    *float64
}

// The single active execution of a Route.
//
// A RouteRun is created by start, mutated only by appending one StopResult
// per advance (append-only), and destroyed by finalize or discard. The core
// invariant is len(StopData) == CurrentStopIndex at all times: the progress
// pointer is exactly the count of completed stops.
type RouteRun struct {
	ID               string
	OperatorID       string
	RouteID          int64
	VehicleID        int64
	TrackingMode     TrackingMode
	OdometerStart    *float64
	EffectiveStops   []EffectiveStop
	CurrentStopIndex int
	StopData         []StopResult
	StartedAt        time.Time
}

// Phase derives the workflow phase from the run's progress. A nil run means
// no run is active (Setup). Deriving instead of storing an enum keeps the
// phase from ever disagreeing with actual progress after a crash.
func (r *RouteRun) Phase() Phase {
	if r == nil {
		return PhaseSetup
	}
	if r.CurrentStopIndex < len(r.EffectiveStops) {
		return PhaseRunning
	}
	return PhaseSummary
}

// ConsistencyErr reports a violation of the progress invariant. Stores call
// this after rehydrating a run from durable state.
func (r *RouteRun) ConsistencyErr() error {
	if r == nil {
		return nil
	}
	if len(r.StopData) != r.CurrentStopIndex {
		return NewInvalidTransition(
			"run %s: %d stop results recorded but current stop index is %d",
			r.ID, len(r.StopData), r.CurrentStopIndex,
		)
	}
	return nil
}
