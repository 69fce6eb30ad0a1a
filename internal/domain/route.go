package domain

// Represents a single stop within a saved Route.
// A Stop either references a catalog Location or carries a free-text
// customLocationName; the catalog guarantees never both are empty.
type Stop struct {
	ID                 int64
	StopOrder          int
	LocationID         *int64
	CustomLocationName string
	MilesFromPrevious  float64
}

// Represents a saved collection route: an ordered sequence of stops with
// authored one-way distances. Routes are authored elsewhere and are
// immutable input to a run.
type Route struct {
	ID          int64
	Name        string
	Stops       []Stop
	IsRoundTrip bool
	TotalMiles  float64
}

// One entry of the frozen effective stop list built at run start.
// StopOrder is renumbered 0..N-1 after the operator's skip/reorder
// decisions, independent of the catalog stop order, and the resolved
// display name is baked into CustomLocationName.
type EffectiveStop struct {
	StopOrder          int
	LocationID         *int64
	CustomLocationName string
	MilesFromPrevious  float64
}
