package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"route-run-service/internal/domain"
	"route-run-service/internal/ports"
)

// Runner owns the run state machine: it derives the phase of the single
// active run per operator and exposes the mutating operations Start,
// Advance, Finalize and Discard. All state lives in the run store; the
// Runner itself is stateless, which is what makes reloading the workflow
// reconstruct the exact same phase with no separate resume operation.
type Runner struct {
	Runs     ports.RunStore
	Routes   ports.RouteCatalog
	Vehicles ports.VehicleRegistry
	Trips    ports.TripStore
	Ledger   ports.CommissionLedger
	Log      zerolog.Logger

	now func() time.Time
}

func NewRunner(
	runs ports.RunStore,
	routes ports.RouteCatalog,
	vehicles ports.VehicleRegistry,
	trips ports.TripStore,
	ledger ports.CommissionLedger,
	log zerolog.Logger,
) *Runner {
	return &Runner{
		Runs:     runs,
		Routes:   routes,
		Vehicles: vehicles,
		Trips:    trips,
		Ledger:   ledger,
		Log:      log,
		now:      time.Now,
	}
}

type StartRequest struct {
	RouteID       int64
	VehicleID     int64
	TrackingMode  domain.TrackingMode
	OdometerStart *float64
	// CustomStops is the frozen output of the stop customizer. Nil means
	// run the route as authored, every stop enabled in catalog order.
	CustomStops []domain.EffectiveStop
}

type FinalizeParams struct {
	OdometerEnd       *float64
	GPSDistanceMeters *float64
}

// Active returns the operator's current run (nil when none) and its derived
// phase.
func (r *Runner) Active(ctx context.Context, operatorID string) (*domain.RouteRun, domain.Phase, error) {
	run, err := r.Runs.GetActiveRun(ctx, operatorID)
	if err != nil {
		return nil, domain.PhaseSetup, domain.NewTransientIO("load active run", err)
	}
	return run, run.Phase(), nil
}

// Start creates the active run for an operator. It fails with a validation
// error if a run is already active, if odometer mode is missing a starting
// reading, or if the effective stop list is empty.
func (r *Runner) Start(ctx context.Context, operatorID string, req StartRequest) (*domain.RouteRun, error) {
	existing, err := r.Runs.GetActiveRun(ctx, operatorID)
	if err != nil {
		return nil, domain.NewTransientIO("check active run", err)
	}
	if existing != nil {
		return nil, domain.NewValidation("a run is already active; finalize or discard it first")
	}

	switch req.TrackingMode {
	case domain.TrackingGPS:
	case domain.TrackingOdometer:
		if req.OdometerStart == nil {
			return nil, domain.NewValidation("starting odometer reading is required in odometer mode")
		}
	default:
		return nil, domain.NewValidation("unknown tracking mode %q", req.TrackingMode)
	}

	stops := req.CustomStops
	if stops == nil {
		route, err := r.Routes.GetRouteByID(ctx, req.RouteID)
		if err != nil {
			return nil, domain.NewTransientIO(fmt.Sprintf("load route %d", req.RouteID), err)
		}
		stops, err = NewWorkingList(route, nil).Freeze()
		if err != nil {
			return nil, err
		}
	}
	if len(stops) == 0 {
		return nil, domain.NewValidation("at least one stop must be enabled to start a run")
	}

	run := &domain.RouteRun{
		ID:               uuid.NewString(),
		OperatorID:       operatorID,
		RouteID:          req.RouteID,
		VehicleID:        req.VehicleID,
		TrackingMode:     req.TrackingMode,
		OdometerStart:    req.OdometerStart,
		EffectiveStops:   stops,
		CurrentStopIndex: 0,
		StopData:         []domain.StopResult{},
		StartedAt:        r.now().UTC(),
	}

	if err := r.Runs.CreateRun(ctx, run); err != nil {
		return nil, domain.NewTransientIO("persist new run", err)
	}

	r.Log.Info().
		Str("run_id", run.ID).
		Str("operator_id", operatorID).
		Int64("route_id", req.RouteID).
		Int("stops", len(stops)).
		Str("tracking_mode", string(req.TrackingMode)).
		Msg("run started")

	return run, nil
}

// Advance records one completed stop: it appends the result and moves the
// progress index forward by exactly one, atomically. Legal only while the
// run is in the Running phase, and only for the current stop.
func (r *Runner) Advance(ctx context.Context, operatorID string, result domain.StopResult) (*domain.RouteRun, error) {
	run, err := r.Runs.GetActiveRun(ctx, operatorID)
	if err != nil {
		return nil, domain.NewTransientIO("load active run", err)
	}
	if run.Phase() != domain.PhaseRunning {
		return nil, domain.NewInvalidTransition("advance is only legal in the running phase (phase=%s)", run.Phase())
	}
	if result.StopIndex != run.CurrentStopIndex {
		return nil, domain.NewInvalidTransition(
			"stop result is for index %d but the current stop is %d",
			result.StopIndex, run.CurrentStopIndex,
		)
	}
	if result.CompletedAt.IsZero() {
		result.CompletedAt = r.now().UTC()
	}

	if err := r.Runs.AppendStopResult(ctx, run.ID, run.CurrentStopIndex, result); err != nil {
		// The store guarantees no partial append: index and list are unchanged.
		return nil, domain.NewTransientIO("persist stop result", err)
	}

	run.StopData = append(run.StopData, result)
	run.CurrentStopIndex++

	// Mark the commission paid only after the stop result is durable. If the
	// ledger write fails the result still records the linkage, so the mark
	// can be re-driven during reconciliation.
	if result.CommissionPaid && result.CommissionID != nil {
		if err := r.Ledger.MarkCommissionPaid(ctx, *result.CommissionID); err != nil {
			r.Log.Warn().
				Err(err).
				Str("run_id", run.ID).
				Int64("commission_id", *result.CommissionID).
				Msg("commission recorded on stop but ledger mark failed")
		}
	}

	return run, nil
}

// Finalize converts the active run into a persisted trip, updates the
// vehicle's last-known odometer in odometer mode, and clears the run. Legal
// only in the Summary phase. Any persistence failure leaves the active run
// untouched so the operator can retry; the trip shares the run's ID, so a
// retry overwrites instead of duplicating.
func (r *Runner) Finalize(ctx context.Context, operatorID string, params FinalizeParams) (*domain.Trip, error) {
	run, err := r.Runs.GetActiveRun(ctx, operatorID)
	if err != nil {
		return nil, domain.NewTransientIO("load active run", err)
	}
	if run == nil {
		return nil, domain.NewInvalidTransition("finalize called with no active run")
	}
	if run.Phase() != domain.PhaseSummary {
		return nil, domain.NewInvalidTransition("finalize is only legal in the summary phase (phase=%s)", run.Phase())
	}

	trip, err := BuildTrip(run, params, r.now().UTC())
	if err != nil {
		return nil, err
	}

	if err := r.Trips.PersistTrip(ctx, trip); err != nil {
		return nil, domain.NewTransientIO("persist trip", err)
	}

	if run.TrackingMode == domain.TrackingOdometer {
		if err := r.Vehicles.UpdateLastOdometer(ctx, run.VehicleID, *params.OdometerEnd); err != nil {
			return nil, domain.NewTransientIO("update vehicle odometer", err)
		}
	}

	if err := r.Runs.ClearRun(ctx, run.ID); err != nil {
		return nil, domain.NewTransientIO("clear finalized run", err)
	}

	r.Log.Info().
		Str("run_id", run.ID).
		Str("trip_id", trip.ID).
		Int("stops_completed", trip.StopsCompleted).
		Int("total_coins", trip.TotalCoins).
		Msg("run finalized")

	return trip, nil
}

// Discard clears the active run without producing a trip. Legal in Running
// or Summary; irreversible.
func (r *Runner) Discard(ctx context.Context, operatorID string) error {
	run, err := r.Runs.GetActiveRun(ctx, operatorID)
	if err != nil {
		return domain.NewTransientIO("load active run", err)
	}
	if run == nil {
		return domain.NewInvalidTransition("discard called with no active run")
	}

	if err := r.Runs.ClearRun(ctx, run.ID); err != nil {
		return domain.NewTransientIO("clear discarded run", err)
	}

	r.Log.Info().
		Str("run_id", run.ID).
		Int("stops_completed", len(run.StopData)).
		Msg("run discarded")

	return nil
}
