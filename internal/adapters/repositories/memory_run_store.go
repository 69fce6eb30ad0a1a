package repositories

import (
	"context"
	"fmt"
	"sync"

	"route-run-service/internal/domain"
)

// MemoryRunStore keeps active runs in process memory. It backs tests and
// single-process deployments that do not need runs to survive a restart.
// Reads hand out copies so callers can never mutate stored state in place.
type MemoryRunStore struct {
	mu   sync.Mutex
	runs map[string]*domain.RouteRun // keyed by operator ID
}

func NewMemoryRunStore() *MemoryRunStore {
	return &MemoryRunStore{runs: make(map[string]*domain.RouteRun)}
}

func (s *MemoryRunStore) GetActiveRun(ctx context.Context, operatorID string) (*domain.RouteRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[operatorID]
	if !ok {
		return nil, nil
	}
	return copyRun(run), nil
}

func (s *MemoryRunStore) CreateRun(ctx context.Context, run *domain.RouteRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[run.OperatorID]; ok {
		return fmt.Errorf("create run: operator %s already has an active run", run.OperatorID)
	}
	s.runs[run.OperatorID] = copyRun(run)
	return nil
}

func (s *MemoryRunStore) AppendStopResult(ctx context.Context, runID string, expectedIndex int, result domain.StopResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	run := s.findLocked(runID)
	if run == nil {
		return fmt.Errorf("append stop result: run %s not found", runID)
	}
	if run.CurrentStopIndex != expectedIndex {
		return fmt.Errorf("append stop result: run %s is not at stop %d", runID, expectedIndex)
	}
	run.StopData = append(run.StopData, result)
	run.CurrentStopIndex++
	return nil
}

func (s *MemoryRunStore) ClearRun(ctx context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for operatorID, run := range s.runs {
		if run.ID == runID {
			delete(s.runs, operatorID)
			return nil
		}
	}
	return nil
}

func (s *MemoryRunStore) findLocked(runID string) *domain.RouteRun {
	for _, run := range s.runs {
		if run.ID == runID {
			return run
		}
	}
	return nil
}

func copyRun(run *domain.RouteRun) *domain.RouteRun {
	c := *run
	c.EffectiveStops = append([]domain.EffectiveStop(nil), run.EffectiveStops...)
	c.StopData = append([]domain.StopResult(nil), run.StopData...)
	return &c
}
