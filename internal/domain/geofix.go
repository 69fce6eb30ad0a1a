package domain

import "time"

// A single device position fix. Accuracy is the estimated radius in meters.
type GeoFix struct {
	Lat        float64
	Lng        float64
	Accuracy   float64
	CapturedAt time.Time
}
