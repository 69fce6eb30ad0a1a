package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"route-run-service/internal/domain"
)

func sampleTrip() *domain.Trip {
	return &domain.Trip{
		ID:                 "trip-1",
		RouteID:            7,
		VehicleID:          3,
		OperatorID:         "op-1",
		TrackingMode:       domain.TrackingOdometer,
		OdometerStart:      f64(12000),
		OdometerEnd:        f64(12034.5),
		DistanceMiles:      f64(34.5),
		TotalCoins:         67,
		TotalPrizes:        7,
		StopsCompleted:     2,
		CommissionsHandled: 1,
		StartedAt:          time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC),
		EndedAt:            time.Date(2025, 6, 2, 12, 15, 0, 0, time.UTC),
		Stops: []domain.StopResult{
			sampleResult(0),
			{StopIndex: 1, LocationName: "Back lot drop", CompletedAt: time.Date(2025, 6, 2, 11, 0, 0, 0, time.UTC)},
		},
	}
}

func TestSqliteTripStoreRoundTrip(t *testing.T) {
	store := NewSqliteTripStore(openTestDB(t))
	ctx := context.Background()

	require.NoError(t, store.PersistTrip(ctx, sampleTrip()))

	got, err := store.GetTripByID(ctx, "trip-1")
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, "op-1", got.OperatorID)
	assert.Equal(t, domain.TrackingOdometer, got.TrackingMode)
	assert.Equal(t, 34.5, *got.DistanceMiles)
	assert.Nil(t, got.GPSDistanceMeters)
	assert.Equal(t, 67, got.TotalCoins)
	assert.Equal(t, 1, got.CommissionsHandled)
	assert.True(t, got.StartedAt.Equal(sampleTrip().StartedAt))
	assert.True(t, got.EndedAt.Equal(sampleTrip().EndedAt))

	require.Len(t, got.Stops, 2)
	assert.Equal(t, "Quickie Mart", got.Stops[0].LocationName)
	assert.Equal(t, "Back lot drop", got.Stops[1].LocationName)
	require.Len(t, got.Stops[0].Collections, 1)
	assert.Equal(t, 42, got.Stops[0].Collections[0].CoinsInserted)
}

func TestSqliteTripStoreRePersistOverwrites(t *testing.T) {
	store := NewSqliteTripStore(openTestDB(t))
	ctx := context.Background()

	require.NoError(t, store.PersistTrip(ctx, sampleTrip()))

	// A retried finalize writes the same trip ID again; the second write
	// replaces the first completely, stop rows included.
	updated := sampleTrip()
	updated.TotalCoins = 99
	updated.Stops = updated.Stops[:1]
	require.NoError(t, store.PersistTrip(ctx, updated))

	got, err := store.GetTripByID(ctx, "trip-1")
	require.NoError(t, err)
	assert.Equal(t, 99, got.TotalCoins)
	assert.Len(t, got.Stops, 1)
}

func TestSqliteTripStoreUnknownID(t *testing.T) {
	store := NewSqliteTripStore(openTestDB(t))

	got, err := store.GetTripByID(context.Background(), "never-finalized")
	require.NoError(t, err)
	assert.Nil(t, got)
}
