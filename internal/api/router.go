package api

import (
	"net/http"

	"github.com/rs/zerolog"

	"route-run-service/internal/api/handlers"
	"route-run-service/internal/ports"
	"route-run-service/internal/services"
)

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(
	runner *services.Runner,
	capture *services.Capture,
	routes ports.RouteCatalog,
	locations ports.LocationCatalog,
	log zerolog.Logger,
) http.Handler {
	mux := http.NewServeMux()

	runHandler := handlers.NewRunHandler(runner, capture, routes, locations)

	mux.HandleFunc("/health", handlers.Health)
	mux.HandleFunc("/runs/active", runHandler.Active)
	mux.HandleFunc("/runs", runHandler.Start)
	mux.HandleFunc("/runs/advance", runHandler.Advance)
	mux.HandleFunc("/runs/finalize", runHandler.Finalize)
	mux.HandleFunc("/runs/discard", runHandler.Discard)
	mux.HandleFunc("/runs/stop-context", runHandler.StopContext)
	mux.HandleFunc("/runs/gps-fix", runHandler.GPSFix)

	return loggingMiddleware(log, mux)
}
