package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"route-run-service/internal/domain"
	"route-run-service/internal/ports"
)

// GPS fix parameters for the stop capture flow: single-shot, high accuracy,
// generous timeout, short position cache.
const (
	FixTimeout = 10 * time.Second
	FixMaxAge  = 5 * time.Second
)

// Everything the capture view needs for the stop at the current index.
type StopContext struct {
	StopIndex         int
	DisplayName       string
	Machines          []domain.Machine
	PendingCommission *domain.Commission
}

// One machine's raw collection inputs as entered by the operator. Blank
// counts mean no entry and default to zero.
type CollectionEntry struct {
	MachineID int64
	Coins     string
	Prizes    string
}

// Capture resolves per-stop context (location name, machine slots, pending
// commission), requests GPS fixes, and packages stop results. Context fetch
// failures degrade to an empty view rather than blocking the stop.
type Capture struct {
	Locations ports.LocationCatalog
	Ledger    ports.CommissionLedger
	Geo       ports.Geolocator
	Log       zerolog.Logger

	now func() time.Time
}

func NewCapture(locations ports.LocationCatalog, ledger ports.CommissionLedger, geo ports.Geolocator, log zerolog.Logger) *Capture {
	return &Capture{
		Locations: locations,
		Ledger:    ledger,
		Geo:       geo,
		Log:       log,
		now:       time.Now,
	}
}

// LoadContext resolves the capture context for the stop at index. The
// display name prefers a freshly fetched location name, falling back to the
// frozen custom name, falling back to a positional label. Machine and
// commission lookups that fail are absorbed: the view degrades to an empty
// machine list and no pending commission.
func (c *Capture) LoadContext(ctx context.Context, run *domain.RouteRun, index int) (*StopContext, error) {
	if run == nil || index < 0 || index >= len(run.EffectiveStops) {
		return nil, domain.NewInvalidTransition("no stop at index %d", index)
	}
	stop := run.EffectiveStops[index]

	sc := &StopContext{
		StopIndex:   index,
		DisplayName: fmt.Sprintf("Stop %d", index+1),
		Machines:    []domain.Machine{},
	}
	if stop.CustomLocationName != "" {
		sc.DisplayName = stop.CustomLocationName
	}

	if stop.LocationID == nil {
		return sc, nil
	}
	locID := *stop.LocationID

	loc, err := c.Locations.GetLocationByID(ctx, locID)
	if err != nil {
		c.Log.Warn().Err(err).Int64("location_id", locID).Msg("location fetch failed, using frozen name")
	} else if loc != nil && loc.Name != "" {
		sc.DisplayName = loc.Name
	}

	machines, err := c.Locations.ListMachinesForLocation(ctx, locID)
	if err != nil {
		c.Log.Warn().Err(err).Int64("location_id", locID).Msg("machine list fetch failed, degrading to empty")
	} else {
		sc.Machines = machines
	}

	pending, err := c.Ledger.FindPendingCommission(ctx, locID)
	if err != nil {
		c.Log.Warn().Err(err).Int64("location_id", locID).Msg("pending commission fetch failed, degrading to none")
	} else {
		sc.PendingCommission = pending
	}

	return sc, nil
}

// FixSession tracks which stop index GPS requests belong to. The index is
// updated synchronously the instant the current stop changes, so a fix that
// arrives for a previous stop is discarded instead of attaching to the new
// one.
type FixSession struct {
	mu      sync.Mutex
	current int
}

func NewFixSession() *FixSession { return &FixSession{} }

// SetStop invalidates any outstanding request issued for a different stop.
func (s *FixSession) SetStop(index int) {
	s.mu.Lock()
	s.current = index
	s.mu.Unlock()
}

func (s *FixSession) stop() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// CaptureFix requests a single high-accuracy position fix tagged with the
// stop index it was issued for. If the session has moved to a different stop
// by the time the fix arrives, the fix is dropped. All failures surface as
// SensorUnavailable with a human-readable reason and never block the stop.
func (c *Capture) CaptureFix(ctx context.Context, session *FixSession, stopIndex int) (*domain.GeoFix, error) {
	fix, err := c.Geo.GetCurrentPosition(ctx, ports.FixOptions{
		HighAccuracy: true,
		Timeout:      FixTimeout,
		MaxAge:       FixMaxAge,
	})
	if err != nil {
		if domain.IsSensorUnavailable(err) {
			return nil, err
		}
		return nil, domain.NewSensorUnavailable("position unavailable: %v", err)
	}

	if session.stop() != stopIndex {
		c.Log.Debug().
			Int("issued_for", stopIndex).
			Int("current", session.stop()).
			Msg("discarding stale position fix")
		return nil, domain.NewSensorUnavailable("position arrived after the stop changed")
	}

	return &fix, nil
}

// BuildResult packages the entered data for the stop at index into an
// immutable StopResult. Missing coin/prize inputs default to zero, notes
// are trimmed, and GPS and commission linkage attach only when captured or
// opted into.
func (c *Capture) BuildResult(
	run *domain.RouteRun,
	index int,
	displayName string,
	entries []CollectionEntry,
	notes string,
	fix *domain.GeoFix,
	commissionID *int64,
	payCommission bool,
) (domain.StopResult, error) {
	if run == nil || index < 0 || index >= len(run.EffectiveStops) {
		return domain.StopResult{}, domain.NewInvalidTransition("no stop at index %d", index)
	}
	stop := run.EffectiveStops[index]

	collections := make([]domain.StopCollectionData, 0, len(entries))
	for _, e := range entries {
		coins, err := ParseCount(e.Coins)
		if err != nil {
			return domain.StopResult{}, domain.NewValidation("machine %d coins: %v", e.MachineID, err)
		}
		prizes, err := ParseCount(e.Prizes)
		if err != nil {
			return domain.StopResult{}, domain.NewValidation("machine %d prizes: %v", e.MachineID, err)
		}
		collections = append(collections, domain.StopCollectionData{
			MachineID:     e.MachineID,
			CoinsInserted: coins,
			PrizesWon:     prizes,
		})
	}

	result := domain.StopResult{
		StopIndex:    index,
		LocationID:   stop.LocationID,
		LocationName: displayName,
		Collections:  collections,
		Notes:        strings.TrimSpace(notes),
		CompletedAt:  c.now().UTC(),
	}
	if result.LocationName == "" {
		result.LocationName = fmt.Sprintf("Stop %d", index+1)
	}

	if fix != nil {
		lat, lng, acc := fix.Lat, fix.Lng, fix.Accuracy
		result.GPSLat = &lat
		result.GPSLng = &lng
		result.GPSAccuracy = &acc
	}

	if payCommission && commissionID != nil {
		id := *commissionID
		result.CommissionPaid = true
		result.CommissionID = &id
	}

	return result, nil
}

// ParseCount parses a coin/prize input field. Blank means no entry and
// yields zero; negatives and non-numeric text are rejected.
func ParseCount(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%q is not a whole number", s)
	}
	if n < 0 {
		return 0, fmt.Errorf("count must not be negative")
	}
	return n, nil
}
