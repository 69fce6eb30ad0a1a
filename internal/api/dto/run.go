package dto

import "time"

type CustomStopRequest struct {
	StopID  int64 `json:"stop_id"`
	Enabled bool  `json:"enabled"`
}

type StartRunRequest struct {
	RouteID       int64    `json:"route_id"`
	VehicleID     int64    `json:"vehicle_id"`
	TrackingMode  string   `json:"tracking_mode"`
	OdometerStart *float64 `json:"odometer_start"`
	// CustomStops, when present, is the operator's skip/reorder decision:
	// the stops to run, in the order to run them. Absent means the route
	// as authored.
	CustomStops []CustomStopRequest `json:"custom_stops"`
}

type FinalizeRunRequest struct {
	OdometerEnd       *float64 `json:"odometer_end"`
	GPSDistanceMeters *float64 `json:"gps_distance_meters"`
}

type EffectiveStopResponse struct {
	StopOrder         int     `json:"stop_order"`
	LocationID        *int64  `json:"location_id,omitempty"`
	DisplayName       string  `json:"display_name"`
	MilesFromPrevious float64 `json:"miles_from_previous"`
}

type CollectionResponse struct {
	MachineID     int64 `json:"machine_id"`
	CoinsInserted int   `json:"coins_inserted"`
	PrizesWon     int   `json:"prizes_won"`
}

type StopResultResponse struct {
	StopIndex      int                  `json:"stop_index"`
	LocationID     *int64               `json:"location_id,omitempty"`
	LocationName   string               `json:"location_name"`
	Collections    []CollectionResponse `json:"collections"`
	Notes          string               `json:"notes,omitempty"`
	CommissionPaid bool                 `json:"commission_paid"`
	CommissionID   *int64               `json:"commission_id,omitempty"`
	CompletedAt    time.Time            `json:"completed_at"`
	GPSLat         *float64             `json:"gps_lat,omitempty"`
	GPSLng         *float64             `json:"gps_lng,omitempty"`
	GPSAccuracy    *float64             `json:"gps_accuracy,omitempty"`
}

type RunResponse struct {
	RunID            string                  `json:"run_id"`
	RouteID          int64                   `json:"route_id"`
	VehicleID        int64                   `json:"vehicle_id"`
	TrackingMode     string                  `json:"tracking_mode"`
	OdometerStart    *float64                `json:"odometer_start,omitempty"`
	CurrentStopIndex int                     `json:"current_stop_index"`
	StartedAt        time.Time               `json:"started_at"`
	EffectiveStops   []EffectiveStopResponse `json:"effective_stops"`
	StopResults      []StopResultResponse    `json:"stop_results"`
}

type ActiveRunResponse struct {
	Phase string       `json:"phase"`
	Run   *RunResponse `json:"run,omitempty"`
}

type TripResponse struct {
	TripID             string   `json:"trip_id"`
	RouteID            int64    `json:"route_id"`
	VehicleID          int64    `json:"vehicle_id"`
	TrackingMode       string   `json:"tracking_mode"`
	DistanceMiles      *float64 `json:"distance_miles,omitempty"`
	GPSDistanceMeters  *float64 `json:"gps_distance_meters,omitempty"`
	TotalCoins         int      `json:"total_coins"`
	TotalPrizes        int      `json:"total_prizes"`
	StopsCompleted     int      `json:"stops_completed"`
	CommissionsHandled int      `json:"commissions_handled"`
}
