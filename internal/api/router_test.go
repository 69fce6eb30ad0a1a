package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"route-run-service/internal/adapters/geo"
	"route-run-service/internal/adapters/repositories"
	"route-run-service/internal/api/dto"
	"route-run-service/internal/domain"
	"route-run-service/internal/platform/db"
	"route-run-service/internal/services"
)

const apiTestSeed = `{
  "locations": [
    {
      "location_id": 10,
      "name": "Quickie Mart",
      "address": "101 Main St",
      "machines": [
        {"machine_id": 100, "type": "claw", "label": "Front claw", "cost_per_play": 0.5}
      ]
    },
    {"location_id": 20, "name": "Laundromat 24", "address": "8 Pine Ave", "machines": []}
  ],
  "routes": [
    {
      "route_id": 7,
      "name": "East Side Loop",
      "is_round_trip": true,
      "total_miles": 11.1,
      "stops": [
        {"stop_id": 1, "stop_order": 0, "location_id": 10, "miles_from_previous": 0},
        {"stop_id": 2, "stop_order": 1, "location_id": 20, "miles_from_previous": 4.5},
        {"stop_id": 3, "stop_order": 2, "custom_location_name": "Back lot drop", "miles_from_previous": 2.1}
      ]
    }
  ],
  "vehicles": [
    {"vehicle_id": 3, "name": "Van 1", "last_odometer": 12000}
  ],
  "commissions": [
    {"commission_id": 55, "location_id": 10, "amount": 120, "period_start": "2025-04-01", "period_end": "2025-04-30", "paid": false}
  ]
}`

func newTestAPI(t *testing.T) (*httptest.Server, *geo.MockGeolocator) {
	t.Helper()

	conn, err := db.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, repositories.InitSchema(conn))

	seedPath := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(seedPath, []byte(apiTestSeed), 0o644))
	require.NoError(t, repositories.SeedFromJSON(conn, seedPath))

	routes := repositories.NewSqliteRouteCatalog(conn)
	locations := repositories.NewSqliteLocationCatalog(conn)
	ledger := repositories.NewSqliteCommissionLedger(conn)
	vehicles := repositories.NewSqliteVehicleRegistry(conn)
	runs := repositories.NewSqliteRunStore(conn)
	trips := repositories.NewSqliteTripStore(conn)

	mockGeo := &geo.MockGeolocator{Fix: domain.GeoFix{Lat: 40.71, Lng: -74.0, Accuracy: 8.5}}

	runner := services.NewRunner(runs, routes, vehicles, trips, ledger, zerolog.Nop())
	capture := services.NewCapture(locations, ledger, mockGeo, zerolog.Nop())

	srv := httptest.NewServer(NewRouter(runner, capture, routes, locations, zerolog.Nop()))
	t.Cleanup(srv.Close)
	return srv, mockGeo
}

func do(t *testing.T, srv *httptest.Server, method, path, operator string, body any) *http.Response {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, srv.URL+path, rdr)
	require.NoError(t, err)
	if operator != "" {
		req.Header.Set("X-Operator-ID", operator)
	}
	res, err := srv.Client().Do(req)
	require.NoError(t, err)
	return res
}

func decode[T any](t *testing.T, res *http.Response) T {
	t.Helper()
	defer res.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(res.Body).Decode(&v))
	return v
}

func fptr(v float64) *float64 { return &v }

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestAPI(t)

	res := do(t, srv, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	body := decode[map[string]string](t, res)
	assert.Equal(t, "ok", body["status"])
}

func TestOperatorHeaderRequired(t *testing.T) {
	srv, _ := newTestAPI(t)

	res := do(t, srv, http.MethodGet, "/runs/active", "", nil)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	res.Body.Close()
}

func TestFullOdometerRunWorkflow(t *testing.T) {
	srv, _ := newTestAPI(t)

	// No run yet: the workflow opens in setup.
	res := do(t, srv, http.MethodGet, "/runs/active", "op-1", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	active := decode[dto.ActiveRunResponse](t, res)
	assert.Equal(t, "setup", active.Phase)
	assert.Nil(t, active.Run)

	res = do(t, srv, http.MethodPost, "/runs", "op-1", dto.StartRunRequest{
		RouteID:       7,
		VehicleID:     3,
		TrackingMode:  "odometer",
		OdometerStart: fptr(12000),
	})
	require.Equal(t, http.StatusCreated, res.StatusCode)
	active = decode[dto.ActiveRunResponse](t, res)
	assert.Equal(t, "running", active.Phase)
	require.NotNil(t, active.Run)
	require.Len(t, active.Run.EffectiveStops, 3)
	assert.Equal(t, 0, active.Run.CurrentStopIndex)

	// Capture context for the first stop: catalog name, machines, and the
	// pending commission for that location.
	res = do(t, srv, http.MethodGet, "/runs/stop-context", "op-1", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	sc := decode[dto.StopContextResponse](t, res)
	assert.Equal(t, 0, sc.StopIndex)
	assert.Equal(t, "Quickie Mart", sc.DisplayName)
	require.Len(t, sc.Machines, 1)
	require.NotNil(t, sc.PendingCommission)
	assert.Equal(t, int64(55), sc.PendingCommission.CommissionID)

	res = do(t, srv, http.MethodPost, "/runs/gps-fix", "op-1", struct{}{})
	require.Equal(t, http.StatusOK, res.StatusCode)
	fix := decode[dto.GPSFixResponse](t, res)
	require.True(t, fix.Captured)
	assert.Equal(t, 40.71, *fix.Lat)

	commissionID := sc.PendingCommission.CommissionID
	res = do(t, srv, http.MethodPost, "/runs/advance", "op-1", dto.AdvanceRunRequest{
		StopIndex:   0,
		DisplayName: sc.DisplayName,
		Collections: []dto.CollectionEntryRequest{
			{MachineID: 100, Coins: "42", Prizes: ""},
		},
		Notes:         "door code 4417",
		GPS:           &dto.GPSFixRequest{Lat: *fix.Lat, Lng: *fix.Lng, Accuracy: *fix.Accuracy},
		CommissionID:  &commissionID,
		PayCommission: true,
	})
	require.Equal(t, http.StatusOK, res.StatusCode)
	active = decode[dto.ActiveRunResponse](t, res)
	assert.Equal(t, "running", active.Phase)
	assert.Equal(t, 1, active.Run.CurrentStopIndex)
	require.Len(t, active.Run.StopResults, 1)
	assert.True(t, active.Run.StopResults[0].CommissionPaid)
	assert.Equal(t, 42, active.Run.StopResults[0].Collections[0].CoinsInserted)

	for i := 1; i < 3; i++ {
		res = do(t, srv, http.MethodPost, "/runs/advance", "op-1", dto.AdvanceRunRequest{StopIndex: i})
		require.Equal(t, http.StatusOK, res.StatusCode)
		active = decode[dto.ActiveRunResponse](t, res)
	}
	assert.Equal(t, "summary", active.Phase)

	res = do(t, srv, http.MethodPost, "/runs/finalize", "op-1", dto.FinalizeRunRequest{
		OdometerEnd: fptr(12010),
	})
	require.Equal(t, http.StatusOK, res.StatusCode)
	trip := decode[dto.TripResponse](t, res)
	assert.Equal(t, active.Run.RunID, trip.TripID)
	assert.Equal(t, 10.0, *trip.DistanceMiles)
	assert.Equal(t, 42, trip.TotalCoins)
	assert.Equal(t, 3, trip.StopsCompleted)
	assert.Equal(t, 1, trip.CommissionsHandled)

	// Finalizing dropped the active run; the workflow is back in setup.
	res = do(t, srv, http.MethodGet, "/runs/active", "op-1", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	active = decode[dto.ActiveRunResponse](t, res)
	assert.Equal(t, "setup", active.Phase)

	// The commission was marked paid, so a new run sees nothing pending.
	res = do(t, srv, http.MethodPost, "/runs", "op-1", dto.StartRunRequest{
		RouteID:      7,
		VehicleID:    3,
		TrackingMode: "gps",
	})
	require.Equal(t, http.StatusCreated, res.StatusCode)
	res.Body.Close()
	res = do(t, srv, http.MethodGet, "/runs/stop-context", "op-1", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	sc = decode[dto.StopContextResponse](t, res)
	assert.Nil(t, sc.PendingCommission)
}

func TestStartWithCustomStops(t *testing.T) {
	srv, _ := newTestAPI(t)

	// Skip the first stop and run the custom-named one before the laundromat.
	res := do(t, srv, http.MethodPost, "/runs", "op-1", dto.StartRunRequest{
		RouteID:      7,
		VehicleID:    3,
		TrackingMode: "gps",
		CustomStops: []dto.CustomStopRequest{
			{StopID: 1, Enabled: false},
			{StopID: 3, Enabled: true},
			{StopID: 2, Enabled: true},
		},
	})
	require.Equal(t, http.StatusCreated, res.StatusCode)
	active := decode[dto.ActiveRunResponse](t, res)

	require.Len(t, active.Run.EffectiveStops, 2)
	assert.Equal(t, "Back lot drop", active.Run.EffectiveStops[0].DisplayName)
	assert.Equal(t, "Laundromat 24", active.Run.EffectiveStops[1].DisplayName)
	assert.Equal(t, 0, active.Run.EffectiveStops[0].StopOrder)
	assert.Equal(t, 1, active.Run.EffectiveStops[1].StopOrder)
}

func TestStartRejectsForeignStop(t *testing.T) {
	srv, _ := newTestAPI(t)

	res := do(t, srv, http.MethodPost, "/runs", "op-1", dto.StartRunRequest{
		RouteID:      7,
		VehicleID:    3,
		TrackingMode: "gps",
		CustomStops:  []dto.CustomStopRequest{{StopID: 99, Enabled: true}},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, res.StatusCode)
	res.Body.Close()
}

func TestAdvanceWrongIndexConflicts(t *testing.T) {
	srv, _ := newTestAPI(t)

	res := do(t, srv, http.MethodPost, "/runs", "op-1", dto.StartRunRequest{
		RouteID:      7,
		VehicleID:    3,
		TrackingMode: "gps",
	})
	require.Equal(t, http.StatusCreated, res.StatusCode)
	res.Body.Close()

	res = do(t, srv, http.MethodPost, "/runs/advance", "op-1", dto.AdvanceRunRequest{StopIndex: 2})
	assert.Equal(t, http.StatusConflict, res.StatusCode)
	res.Body.Close()

	// The failed call changed nothing.
	res = do(t, srv, http.MethodGet, "/runs/active", "op-1", nil)
	active := decode[dto.ActiveRunResponse](t, res)
	assert.Equal(t, 0, active.Run.CurrentStopIndex)
	assert.Empty(t, active.Run.StopResults)
}

func TestGPSFixDegradesWhenSensorFails(t *testing.T) {
	srv, mockGeo := newTestAPI(t)
	mockGeo.Err = domain.NewSensorUnavailable("position timed out after 10s")

	res := do(t, srv, http.MethodPost, "/runs", "op-1", dto.StartRunRequest{
		RouteID:      7,
		VehicleID:    3,
		TrackingMode: "gps",
	})
	require.Equal(t, http.StatusCreated, res.StatusCode)
	res.Body.Close()

	res = do(t, srv, http.MethodPost, "/runs/gps-fix", "op-1", struct{}{})
	require.Equal(t, http.StatusOK, res.StatusCode)
	fix := decode[dto.GPSFixResponse](t, res)
	assert.False(t, fix.Captured)
	assert.Equal(t, "position timed out after 10s", fix.Reason)

	// The stop completes without coordinates.
	res = do(t, srv, http.MethodPost, "/runs/advance", "op-1", dto.AdvanceRunRequest{StopIndex: 0})
	assert.Equal(t, http.StatusOK, res.StatusCode)
	res.Body.Close()
}

func TestGPSFixOutsideRunningPhaseConflicts(t *testing.T) {
	srv, _ := newTestAPI(t)

	res := do(t, srv, http.MethodPost, "/runs/gps-fix", "op-1", struct{}{})
	assert.Equal(t, http.StatusConflict, res.StatusCode)
	res.Body.Close()
}

func TestMalformedBodyRejected(t *testing.T) {
	srv, _ := newTestAPI(t)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/runs", bytes.NewReader([]byte(`{"route_id": 7, "bogus": 1}`)))
	require.NoError(t, err)
	req.Header.Set("X-Operator-ID", "op-1")
	res, err := srv.Client().Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	res.Body.Close()
}

func TestOperatorsAreIsolated(t *testing.T) {
	srv, _ := newTestAPI(t)

	res := do(t, srv, http.MethodPost, "/runs", "op-1", dto.StartRunRequest{
		RouteID:      7,
		VehicleID:    3,
		TrackingMode: "gps",
	})
	require.Equal(t, http.StatusCreated, res.StatusCode)
	res.Body.Close()

	res = do(t, srv, http.MethodGet, "/runs/active", "op-2", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	active := decode[dto.ActiveRunResponse](t, res)
	assert.Equal(t, "setup", active.Phase)
	assert.Nil(t, active.Run)
}
