package domain

import "time"

// The durable record produced when a RouteRun is finalized.
//
// A Trip shares its ID with the run that produced it, so re-persisting after
// a partial finalize failure overwrites rather than duplicates.
type Trip struct {
	ID                 string
	RouteID            int64
	VehicleID          int64
	OperatorID         string
	TrackingMode       TrackingMode
	OdometerStart      *float64
	OdometerEnd        *float64
	DistanceMiles      *float64
	GPSDistanceMeters  *float64
	TotalCoins         int
	TotalPrizes        int
	StopsCompleted     int
	CommissionsHandled int
	StartedAt          time.Time
	EndedAt            time.Time
	Stops              []StopResult
}
