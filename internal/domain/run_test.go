package domain

import (
	"errors"
	"testing"
	"time"
)

func TestRunPhaseDerivation(t *testing.T) {
	locID := int64(7)
	stops := []EffectiveStop{
		{StopOrder: 0, LocationID: &locID, CustomLocationName: "Sunrise Diner"},
		{StopOrder: 1, CustomLocationName: "Storage unit"},
	}

	cases := []struct {
		name string
		run  *RouteRun
		want Phase
	}{
		{name: "no active run", run: nil, want: PhaseSetup},
		{
			name: "progress below stop count",
			run:  &RouteRun{EffectiveStops: stops, CurrentStopIndex: 0},
			want: PhaseRunning,
		},
		{
			name: "progress mid-list",
			run:  &RouteRun{EffectiveStops: stops, CurrentStopIndex: 1},
			want: PhaseRunning,
		},
		{
			name: "progress at stop count",
			run:  &RouteRun{EffectiveStops: stops, CurrentStopIndex: 2},
			want: PhaseSummary,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			// derivation must be pure: repeated calls agree
			for i := 0; i < 3; i++ {
				if got := tc.run.Phase(); got != tc.want {
					t.Fatalf("Phase() = %q, want %q", got, tc.want)
				}
			}
		})
	}
}

func TestRunConsistencyErr(t *testing.T) {
	run := &RouteRun{
		ID:               "run-1",
		EffectiveStops:   []EffectiveStop{{StopOrder: 0}},
		CurrentStopIndex: 1,
		StopData:         []StopResult{{StopIndex: 0, CompletedAt: time.Now()}},
	}
	if err := run.ConsistencyErr(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	run.CurrentStopIndex = 2
	err := run.ConsistencyErr()
	if err == nil {
		t.Fatal("expected error when index disagrees with recorded results")
	}
	if !IsInvalidTransition(err) {
		t.Fatalf("expected invalid transition error, got %v", err)
	}
}

func TestErrorTaxonomy(t *testing.T) {
	if !IsValidation(NewValidation("no stops enabled")) {
		t.Error("validation error not recognized")
	}
	if !IsSensorUnavailable(NewSensorUnavailable("position request timed out")) {
		t.Error("sensor error not recognized")
	}
	if !IsTransientIO(NewTransientIO("persist stop result", errors.New("disk full"))) {
		t.Error("transient io error not recognized")
	}
	if IsValidation(NewInvalidTransition("advance outside running")) {
		t.Error("codes must not overlap")
	}

	// The wrapped cause stays reachable for logging.
	cause := errors.New("disk full")
	if !errors.Is(NewTransientIO("persist stop result", cause), cause) {
		t.Error("wrapped cause lost")
	}
}
