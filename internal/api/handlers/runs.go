package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"sync"

	"route-run-service/internal/api/dto"
	"route-run-service/internal/domain"
	"route-run-service/internal/ports"
	"route-run-service/internal/services"
)

// RunHandler exposes the run state machine and the stop capture flow to the
// enclosing client. All state lives in the run store; the only thing kept
// here is one GPS fix session per operator, so stale fixes can be dropped.
type RunHandler struct {
	Runner    *services.Runner
	Capture   *services.Capture
	Routes    ports.RouteCatalog
	Locations ports.LocationCatalog

	mu       sync.Mutex
	sessions map[string]*services.FixSession
}

func NewRunHandler(runner *services.Runner, capture *services.Capture, routes ports.RouteCatalog, locations ports.LocationCatalog) *RunHandler {
	return &RunHandler{
		Runner:    runner,
		Capture:   capture,
		Routes:    routes,
		Locations: locations,
		sessions:  make(map[string]*services.FixSession),
	}
}

func (h *RunHandler) session(operator string) *services.FixSession {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.sessions[operator]
	if !ok {
		s = services.NewFixSession()
		h.sessions[operator] = s
	}
	return s
}

// Active reports the operator's current run and its derived phase. Reloading
// this endpoint after a restart reconstructs the exact same phase: there is
// no separate resume operation.
func (h *RunHandler) Active(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	operator := operatorID(r)
	if operator == "" {
		writeError(w, r, http.StatusBadRequest, "X-Operator-ID header is required")
		return
	}

	run, phase, err := h.Runner.Active(r.Context(), operator)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.ActiveRunResponse{
		Phase: string(phase),
		Run:   runResponse(run),
	})
}

func (h *RunHandler) Start(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	operator := operatorID(r)
	if operator == "" {
		writeError(w, r, http.StatusBadRequest, "X-Operator-ID header is required")
		return
	}

	var req dto.StartRunRequest
	if !decodeBody(w, r, &req) {
		return
	}

	startReq := services.StartRequest{
		RouteID:       req.RouteID,
		VehicleID:     req.VehicleID,
		TrackingMode:  domain.TrackingMode(req.TrackingMode),
		OdometerStart: req.OdometerStart,
	}

	if len(req.CustomStops) > 0 {
		frozen, err := h.freezeCustomStops(r, req.RouteID, req.CustomStops)
		if err != nil {
			writeEngineError(w, r, err)
			return
		}
		startReq.CustomStops = frozen
	}

	run, err := h.Runner.Start(r.Context(), operator, startReq)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}

	h.session(operator).SetStop(0)

	writeJSON(w, r, http.StatusCreated, dto.ActiveRunResponse{
		Phase: string(run.Phase()),
		Run:   runResponse(run),
	})
}

// freezeCustomStops turns the operator's skip/reorder decisions into the
// frozen effective stop list, resolving display names from the catalog
// (best-effort: an unresolved catalog still freezes with fallback names).
func (h *RunHandler) freezeCustomStops(r *http.Request, routeID int64, custom []dto.CustomStopRequest) ([]domain.EffectiveStop, error) {
	route, err := h.Routes.GetRouteByID(r.Context(), routeID)
	if err != nil {
		return nil, domain.NewTransientIO("load route", err)
	}

	ids := make([]int64, 0, len(route.Stops))
	for _, s := range route.Stops {
		if s.LocationID != nil {
			ids = append(ids, *s.LocationID)
		}
	}
	names, err := h.Locations.ResolveNames(r.Context(), ids)
	if err != nil {
		names = nil
	}

	list := services.NewWorkingList(route, names)
	byID := make(map[int64]services.WorkingStop, len(list))
	for _, ws := range list {
		byID[ws.Stop.ID] = ws
	}

	ordered := make(services.WorkingList, 0, len(custom))
	for _, cs := range custom {
		ws, ok := byID[cs.StopID]
		if !ok {
			return nil, domain.NewValidation("stop %d is not part of route %d", cs.StopID, routeID)
		}
		ws.Enabled = cs.Enabled
		ordered = append(ordered, ws)
	}

	return ordered.Freeze()
}

func (h *RunHandler) Advance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	operator := operatorID(r)
	if operator == "" {
		writeError(w, r, http.StatusBadRequest, "X-Operator-ID header is required")
		return
	}

	var req dto.AdvanceRunRequest
	if !decodeBody(w, r, &req) {
		return
	}

	run, _, err := h.Runner.Active(r.Context(), operator)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}

	entries := make([]services.CollectionEntry, 0, len(req.Collections))
	for _, c := range req.Collections {
		entries = append(entries, services.CollectionEntry{
			MachineID: c.MachineID,
			Coins:     c.Coins,
			Prizes:    c.Prizes,
		})
	}

	var fix *domain.GeoFix
	if req.GPS != nil {
		fix = &domain.GeoFix{Lat: req.GPS.Lat, Lng: req.GPS.Lng, Accuracy: req.GPS.Accuracy}
	}

	result, err := h.Capture.BuildResult(
		run, req.StopIndex, req.DisplayName, entries, req.Notes,
		fix, req.CommissionID, req.PayCommission,
	)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}

	run, err = h.Runner.Advance(r.Context(), operator, result)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}

	// Invalidate any in-flight GPS request issued for the stop just
	// completed, synchronously with the index moving.
	h.session(operator).SetStop(run.CurrentStopIndex)

	writeJSON(w, r, http.StatusOK, dto.ActiveRunResponse{
		Phase: string(run.Phase()),
		Run:   runResponse(run),
	})
}

func (h *RunHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	operator := operatorID(r)
	if operator == "" {
		writeError(w, r, http.StatusBadRequest, "X-Operator-ID header is required")
		return
	}

	var req dto.FinalizeRunRequest
	if !decodeBody(w, r, &req) {
		return
	}

	trip, err := h.Runner.Finalize(r.Context(), operator, services.FinalizeParams{
		OdometerEnd:       req.OdometerEnd,
		GPSDistanceMeters: req.GPSDistanceMeters,
	})
	if err != nil {
		writeEngineError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.TripResponse{
		TripID:             trip.ID,
		RouteID:            trip.RouteID,
		VehicleID:          trip.VehicleID,
		TrackingMode:       string(trip.TrackingMode),
		DistanceMiles:      trip.DistanceMiles,
		GPSDistanceMeters:  trip.GPSDistanceMeters,
		TotalCoins:         trip.TotalCoins,
		TotalPrizes:        trip.TotalPrizes,
		StopsCompleted:     trip.StopsCompleted,
		CommissionsHandled: trip.CommissionsHandled,
	})
}

func (h *RunHandler) Discard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	operator := operatorID(r)
	if operator == "" {
		writeError(w, r, http.StatusBadRequest, "X-Operator-ID header is required")
		return
	}

	if err := h.Runner.Discard(r.Context(), operator); err != nil {
		writeEngineError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.ActiveRunResponse{Phase: string(domain.PhaseSetup)})
}

// StopContext returns everything the capture view needs for the current
// stop, and re-tags the operator's GPS session with that stop index.
func (h *RunHandler) StopContext(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	operator := operatorID(r)
	if operator == "" {
		writeError(w, r, http.StatusBadRequest, "X-Operator-ID header is required")
		return
	}

	run, phase, err := h.Runner.Active(r.Context(), operator)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	if phase != domain.PhaseRunning {
		writeError(w, r, http.StatusConflict, "no stop to capture: run is not in the running phase")
		return
	}

	sc, err := h.Capture.LoadContext(r.Context(), run, run.CurrentStopIndex)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}

	h.session(operator).SetStop(run.CurrentStopIndex)

	res := dto.StopContextResponse{
		StopIndex:   sc.StopIndex,
		DisplayName: sc.DisplayName,
		Machines:    make([]dto.MachineResponse, 0, len(sc.Machines)),
	}
	for _, m := range sc.Machines {
		res.Machines = append(res.Machines, dto.MachineResponse{
			MachineID:   m.ID,
			Type:        m.Type,
			Label:       m.Label,
			CostPerPlay: m.CostPerPlay,
		})
	}
	if sc.PendingCommission != nil {
		res.PendingCommission = &dto.PendingCommissionResponse{
			CommissionID: sc.PendingCommission.ID,
			Amount:       sc.PendingCommission.Amount,
			PeriodStart:  sc.PendingCommission.PeriodStart,
			PeriodEnd:    sc.PendingCommission.PeriodEnd,
		}
	}

	writeJSON(w, r, http.StatusOK, res)
}

// GPSFix requests a device fix for the current stop. Sensor failures are a
// degraded-but-successful response: the stop can always be completed
// without a fix.
func (h *RunHandler) GPSFix(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	operator := operatorID(r)
	if operator == "" {
		writeError(w, r, http.StatusBadRequest, "X-Operator-ID header is required")
		return
	}

	run, phase, err := h.Runner.Active(r.Context(), operator)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	if phase != domain.PhaseRunning {
		writeError(w, r, http.StatusConflict, "no stop to capture: run is not in the running phase")
		return
	}

	fix, err := h.Capture.CaptureFix(r.Context(), h.session(operator), run.CurrentStopIndex)
	if err != nil {
		if domain.IsSensorUnavailable(err) {
			writeJSON(w, r, http.StatusOK, dto.GPSFixResponse{Captured: false, Reason: messageOf(err)})
			return
		}
		writeEngineError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.GPSFixResponse{
		Captured: true,
		Lat:      &fix.Lat,
		Lng:      &fix.Lng,
		Accuracy: &fix.Accuracy,
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	defer r.Body.Close()
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json body")
		return false
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeError(w, r, http.StatusBadRequest, "body must contain only one JSON object")
		return false
	}
	return true
}

func runResponse(run *domain.RouteRun) *dto.RunResponse {
	if run == nil {
		return nil
	}

	res := &dto.RunResponse{
		RunID:            run.ID,
		RouteID:          run.RouteID,
		VehicleID:        run.VehicleID,
		TrackingMode:     string(run.TrackingMode),
		OdometerStart:    run.OdometerStart,
		CurrentStopIndex: run.CurrentStopIndex,
		StartedAt:        run.StartedAt,
		EffectiveStops:   make([]dto.EffectiveStopResponse, 0, len(run.EffectiveStops)),
		StopResults:      make([]dto.StopResultResponse, 0, len(run.StopData)),
	}

	for _, es := range run.EffectiveStops {
		res.EffectiveStops = append(res.EffectiveStops, dto.EffectiveStopResponse{
			StopOrder:         es.StopOrder,
			LocationID:        es.LocationID,
			DisplayName:       es.CustomLocationName,
			MilesFromPrevious: es.MilesFromPrevious,
		})
	}

	for _, sr := range run.StopData {
		collections := make([]dto.CollectionResponse, 0, len(sr.Collections))
		for _, c := range sr.Collections {
			collections = append(collections, dto.CollectionResponse{
				MachineID:     c.MachineID,
				CoinsInserted: c.CoinsInserted,
				PrizesWon:     c.PrizesWon,
			})
		}
		res.StopResults = append(res.StopResults, dto.StopResultResponse{
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
		})
	}

	return res
}
