package services

import (
	"time"

	"route-run-service/internal/domain"
)

// Aggregate totals for the summary view, computed purely from the recorded
// stop results.
type RunTotals struct {
	TotalCoins         int
	TotalPrizes        int
	StopsCompleted     int
	CommissionsHandled int
}

// Aggregate sums coin and prize counts across all stops and machines. Stops
// with no machines contribute zero.
func Aggregate(stopData []domain.StopResult) RunTotals {
	totals := RunTotals{StopsCompleted: len(stopData)}
	for _, sr := range stopData {
		for _, c := range sr.Collections {
			totals.TotalCoins += c.CoinsInserted
			totals.TotalPrizes += c.PrizesWon
		}
	}
	for _, sr := range stopData {
		if sr.CommissionPaid {
			totals.CommissionsHandled++
		}
	}
	return totals
}

// BuildTrip assembles the durable trip record for a run that has reached the
// summary phase. Distance depends on the tracking mode: odometer mode
// computes end minus start and requires the ending reading; gps mode carries
// the externally supplied meters through untouched.
func BuildTrip(run *domain.RouteRun, params FinalizeParams, endedAt time.Time) (*domain.Trip, error) {
	totals := Aggregate(run.StopData)

	trip := &domain.Trip{
		ID:                 run.ID,
		RouteID:            run.RouteID,
		VehicleID:          run.VehicleID,
		OperatorID:         run.OperatorID,
		TrackingMode:       run.TrackingMode,
		OdometerStart:      run.OdometerStart,
		TotalCoins:         totals.TotalCoins,
		TotalPrizes:        totals.TotalPrizes,
		StopsCompleted:     totals.StopsCompleted,
		CommissionsHandled: totals.CommissionsHandled,
		StartedAt:          run.StartedAt,
		EndedAt:            endedAt,
		Stops:              run.StopData,
	}

	switch run.TrackingMode {
	case domain.TrackingOdometer:
		if params.OdometerEnd == nil {
			return nil, domain.NewValidation("ending odometer reading is required to finalize")
		}
		if run.OdometerStart != nil && *params.OdometerEnd < *run.OdometerStart {
			return nil, domain.NewValidation(
				"ending odometer %.1f is below the starting reading %.1f",
				*params.OdometerEnd, *run.OdometerStart,
			)
		}
		trip.OdometerEnd = params.OdometerEnd
		if run.OdometerStart != nil {
			miles := *params.OdometerEnd - *run.OdometerStart
			trip.DistanceMiles = &miles
		}
	case domain.TrackingGPS:
		trip.GPSDistanceMeters = params.GPSDistanceMeters
	}

	return trip, nil
}
