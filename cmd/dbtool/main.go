package main

import (
	"database/sql"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"route-run-service/internal/adapters/repositories"
	"route-run-service/internal/config"
	"route-run-service/internal/platform/db"
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	if err := godotenv.Load(); err != nil {
		log.Info().Msg("no .env file found (using environment variables)")
	}

	dbPath := config.Get("DB_PATH", "data/app.db")
	conn, err := db.OpenSQLite(dbPath)
	if err != nil {
		log.Fatal().Err(err).Msg("open sqlite")
	}
	defer conn.Close()

	seedPath := config.Get("SEED_PATH", "data/seeds/catalog.json")
	if err := initAndSeed(log, conn, seedPath); err != nil {
		log.Fatal().Err(err).Msg("init and seed")
	}
}

func initAndSeed(log zerolog.Logger, conn *sql.DB, seedPath string) error {
	log.Info().Msg("initializing database schema")
	if err := repositories.InitSchema(conn); err != nil {
		return err
	}
	log.Info().Msg("schema ready")

	log.Info().Str("path", seedPath).Msg("seeding catalog")
	if err := repositories.SeedFromJSON(conn, seedPath); err != nil {
		return err
	}
	log.Info().Msg("seeding complete")

	return nil
}
