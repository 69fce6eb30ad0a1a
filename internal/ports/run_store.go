package ports

import (
	"context"

	"route-run-service/internal/domain"
)

// Port: storage for the single active run per operator.
//
// AppendStopResult must append the result and increment the progress index
// atomically: a reader must never observe len(StopData) != CurrentStopIndex,
// and a failed append must leave both unchanged.
type RunStore interface {
	// Return the operator's active run, or (nil, nil) when none exists.
	GetActiveRun(ctx context.Context, operatorID string) (*domain.RouteRun, error)

	// Create a new active run. Fails if the operator already has one.
	CreateRun(ctx context.Context, run *domain.RouteRun) error

	// Atomically append one stop result and advance the progress index.
	// expectedIndex is the index the caller observed; the append fails if
	// the stored index has moved.
	AppendStopResult(ctx context.Context, runID string, expectedIndex int, result domain.StopResult) error

	// Remove the active run and its stop results.
	ClearRun(ctx context.Context, runID string) error
}
