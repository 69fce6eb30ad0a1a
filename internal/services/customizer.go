package services

import (
	"fmt"

	"route-run-service/internal/domain"
)

// One row of the operator's pre-run working list.
type WorkingStop struct {
	Stop        domain.Stop
	Enabled     bool
	DisplayName string
}

// WorkingList is the operator's mutable skip/reorder view over a route's
// stops. It lives only between opening the setup screen and Start; Freeze
// produces the effective stop list that the run then keeps for life.
type WorkingList []WorkingStop

// NewWorkingList seeds a working list from a route, every stop enabled, with
// display names resolved from the location catalog names. A nil or partial
// names map is fine: unresolved stops fall back to their custom name, then
// to a positional label.
func NewWorkingList(route *domain.Route, names map[int64]string) WorkingList {
	list := make(WorkingList, 0, len(route.Stops))
	for i, stop := range route.Stops {
		list = append(list, WorkingStop{
			Stop:        stop,
			Enabled:     true,
			DisplayName: displayName(stop, names, i),
		})
	}
	return list
}

func displayName(stop domain.Stop, names map[int64]string, position int) string {
	if stop.LocationID != nil {
		if name, ok := names[*stop.LocationID]; ok && name != "" {
			return name
		}
	}
	if stop.CustomLocationName != "" {
		return stop.CustomLocationName
	}
	return fmt.Sprintf("Stop %d", position+1)
}

// Toggle flips whether the stop at index i is part of the run. Out-of-range
// indices are ignored.
func (l WorkingList) Toggle(i int) {
	if i < 0 || i >= len(l) {
		return
	}
	l[i].Enabled = !l[i].Enabled
}

// Move swaps the stop at index i with its neighbor (direction -1 moves it
// earlier, +1 later). A move past either end of the list is a no-op.
func (l WorkingList) Move(i, direction int) {
	j := i + direction
	if i < 0 || i >= len(l) || j < 0 || j >= len(l) {
		return
	}
	l[i], l[j] = l[j], l[i]
}

// RefreshNames recomputes display names in place after the location catalog
// resolves. Enabled flags and ordering chosen by the operator are preserved.
func (l WorkingList) RefreshNames(names map[int64]string) {
	for i := range l {
		l[i].DisplayName = displayName(l[i].Stop, names, i)
	}
}

// Freeze filters the list to enabled stops, renumbers them 0..N-1 by
// position, and bakes each display name into the frozen stop. The result
// never changes again for the life of the run, even if the underlying route
// or catalog changes later.
func (l WorkingList) Freeze() ([]domain.EffectiveStop, error) {
	frozen := make([]domain.EffectiveStop, 0, len(l))
	for _, ws := range l {
		if !ws.Enabled {
			continue
		}
		frozen = append(frozen, domain.EffectiveStop{
			StopOrder:          len(frozen),
			LocationID:         ws.Stop.LocationID,
			CustomLocationName: ws.DisplayName,
			MilesFromPrevious:  ws.Stop.MilesFromPrevious,
		})
	}
	if len(frozen) == 0 {
		return nil, domain.NewValidation("at least one stop must be enabled to start a run")
	}
	return frozen, nil
}
