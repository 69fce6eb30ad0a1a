package main

import (
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"route-run-service/internal/adapters/cache"
	"route-run-service/internal/adapters/geo"
	"route-run-service/internal/adapters/repositories"
	"route-run-service/internal/api"
	"route-run-service/internal/config"
	"route-run-service/internal/platform/db"
	"route-run-service/internal/ports"
	"route-run-service/internal/services"
)

// main is the application composition root.
// It wires concrete adapters (SQLite/Postgres, Redis, GPS bridge) behind
// ports and starts the HTTP server.
func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	if err := godotenv.Load(); err != nil {
		log.Info().Msg("no .env file found (using environment variables)")
	}

	dbPath := config.Get("DB_PATH", "data/app.db")
	seedPath := config.Get("SEED_PATH", "data/seeds/catalog.json")
	port := config.Get("PORT", "8080")

	sqliteDB, err := db.OpenSQLite(dbPath)
	if err != nil {
		log.Fatal().Err(err).Msg("open sqlite")
	}
	defer sqliteDB.Close()

	// Initialize schema and seed demo catalog data on startup for local runs.
	if err := repositories.InitSchema(sqliteDB); err != nil {
		log.Fatal().Err(err).Msg("init schema")
	}
	if _, err := os.Stat(seedPath); err == nil {
		if err := repositories.SeedFromJSON(sqliteDB, seedPath); err != nil {
			log.Fatal().Err(err).Msg("seed catalog")
		}
	}

	routes := repositories.NewSqliteRouteCatalog(sqliteDB)
	vehicles := repositories.NewSqliteVehicleRegistry(sqliteDB)
	ledger := repositories.NewSqliteCommissionLedger(sqliteDB)

	var locations ports.LocationCatalog = repositories.NewSqliteLocationCatalog(sqliteDB)

	// A Redis in front of the location catalog is optional; per-stop context
	// reads are the hot path during a run.
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       config.GetInt("REDIS_DB", 0),
		})
		locations = cache.NewRedisLocationCache(
			locations, client, config.GetDuration("CACHE_TTL", 10*time.Minute), log,
		)
		log.Info().Str("addr", addr).Msg("location context cache enabled")
	}

	// Runs and trips can live in a central Postgres instead of the local
	// file; the catalog snapshot stays local either way.
	var runs ports.RunStore = repositories.NewSqliteRunStore(sqliteDB)
	var trips ports.TripStore = repositories.NewSqliteTripStore(sqliteDB)
	if databaseURL := os.Getenv("DATABASE_URL"); databaseURL != "" {
		pg, err := db.Open(databaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("open postgres")
		}
		defer pg.Close()
		runs = repositories.NewSQLRunStore(pg)
		trips = repositories.NewSQLTripStore(pg)
		log.Info().Msg("run and trip storage on postgres")
	}

	var locator ports.Geolocator = geo.Disabled{}
	if bridgeURL := os.Getenv("GPS_BRIDGE_URL"); bridgeURL != "" {
		locator = geo.NewHTTPGeolocator(bridgeURL)
		log.Info().Str("url", bridgeURL).Msg("gps bridge enabled")
	}

	runner := services.NewRunner(runs, routes, vehicles, trips, ledger, log)
	capture := services.NewCapture(locations, ledger, locator, log)
	router := api.NewRouter(runner, capture, routes, locations, log)

	log.Info().Str("addr", ":"+port).Msg("server listening")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	log.Fatal().Err(srv.ListenAndServe()).Msg("server stopped")
}
