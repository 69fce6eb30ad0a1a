package repositories

import (
	"time"

	"route-run-service/internal/domain"
)

// JSON payload shapes for the frozen effective stop list and the append-only
// stop result log. Domain structs carry no tags (matching the rest of the
// domain package), so the stores own their serialized form.

type storedEffectiveStop struct {
	StopOrder          int     `json:"stop_order"`
	LocationID         *int64  `json:"location_id,omitempty"`
	CustomLocationName string  `json:"custom_location_name"`
	MilesFromPrevious  float64 `json:"miles_from_previous"`
}

type storedCollection struct {
	MachineID     int64 `json:"machine_id"`
	CoinsInserted int   `json:"coins_inserted"`
	PrizesWon     int   `json:"prizes_won"`
}

type storedStopResult struct {
	StopIndex      int                `json:"stop_index"`
	LocationID     *int64             `json:"location_id,omitempty"`
	LocationName   string             `json:"location_name"`
	Collections    []storedCollection `json:"collections"`
	Notes          string             `json:"notes"`
	CommissionPaid bool               `json:"commission_paid"`
	CommissionID   *int64             `json:"commission_id,omitempty"`
	CompletedAt    time.Time          `json:"completed_at"`
	GPSLat         *float64           `json:"gps_lat,omitempty"`
	GPSLng         *float64           `json:"gps_lng,omitempty"`
	GPSAccuracy    *float64           `json:"gps_accuracy,omitempty"`
}

func toStoredStops(stops []domain.EffectiveStop) []storedEffectiveStop {
	out := make([]storedEffectiveStop, 0, len(stops))
	for _, s := range stops {
		out = append(out, storedEffectiveStop(s))
	}
	return out
}

func fromStoredStops(stops []storedEffectiveStop) []domain.EffectiveStop {
	out := make([]domain.EffectiveStop, 0, len(stops))
	for _, s := range stops {
		out = append(out, domain.EffectiveStop(s))
	}
	return out
}

func toStoredResult(sr domain.StopResult) storedStopResult {
	collections := make([]storedCollection, 0, len(sr.Collections))
	for _, c := range sr.Collections {
		collections = append(collections, storedCollection(c))
	}
	return storedStopResult{
		StopIndex:      sr.StopIndex,
		LocationID:     sr.LocationID,
		LocationName:   sr.LocationName,
		Collections:    collections,
		Notes:          sr.Notes,
		CommissionPaid: sr.CommissionPaid,
		CommissionID:   sr.CommissionID,
		CompletedAt:    sr.CompletedAt,
		GPSLat:         sr.GPSLat,
		GPSLng:         sr.GPSLng,
		GPSAccuracy:    sr.GPSAccuracy,
	}
}

func fromStoredResult(sr storedStopResult) domain.StopResult {
	collections := make([]domain.StopCollectionData, 0, len(sr.Collections))
	for _, c := range sr.Collections {
		collections = append(collections, domain.StopCollectionData(c))
	}
	return domain.StopResult{
		StopIndex:      sr.StopIndex,
		LocationID:     sr.LocationID,
		LocationName:   sr.LocationName,
		Collections:    collections,
		Notes:          sr.Notes,
		CommissionPaid: sr.CommissionPaid,
		CommissionID:   sr.CommissionID,
		CompletedAt:    sr.CompletedAt,
		GPSLat:         sr.GPSLat,
		GPSLng:         sr.GPSLng,
		GPSAccuracy:    sr.GPSAccuracy,
	}
}
