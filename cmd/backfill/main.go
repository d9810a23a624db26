// Command backfill performs a historical import of tournament results across
// a range of tournament ids. It is safe to re-run: the dedup store only
// persists matches not already recorded.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"sumo_tracker/ingestion/internal/backfill"
	"sumo_tracker/ingestion/internal/cache"
	"sumo_tracker/ingestion/internal/client"
	"sumo_tracker/ingestion/internal/config"
	"sumo_tracker/ingestion/internal/repository"
	"sumo_tracker/ingestion/internal/scraper"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	if os.Getenv("APP_ENV") == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}

	cfg := config.MustLoad()

	startID := flag.Int("start", cfg.BackfillStartID, "first tournament id to import")
	endID := flag.Int("end", cfg.BackfillEndID, "last tournament id to import (inclusive)")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info().Msg("Received shutdown signal, aborting import...")
		cancel()
	}()

	var store cache.Store
	if cfg.CacheMode != "disabled" {
		s, err := cache.NewStore(cfg.CacheBackend, cfg.CacheDir, cache.RedisConfig{
			Addr:     cfg.RedisAddr(),
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize cache backend")
		}
		store = s
	}

	mode, err := client.ParseMode(cfg.CacheMode)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid cache mode")
	}

	sumoClient := client.New(cfg.BaseURL, client.Options{
		Timeout: cfg.RequestTimeout,
		Delay:   cfg.RequestDelay,
		Store:   store,
		Mode:    mode,
	})

	db, err := repository.NewDatabase(ctx, repository.Config{
		Host:     cfg.DatabaseHost,
		Port:     strconv.Itoa(cfg.DatabasePort),
		User:     cfg.DatabaseUser,
		Password: cfg.DatabasePassword,
		Database: cfg.DatabaseName,
		SSLMode:  cfg.DatabaseSSLMode,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := db.Health(ctx); err != nil {
		log.Fatal().Err(err).Msg("Database health check failed")
	}

	overrides, err := cfg.DateOverrideMap()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid tournament date overrides")
	}

	resolver := scraper.NewDateResolver(sumoClient, overrides, store)
	sc := scraper.New(sumoClient, resolver, scraper.SystemClock())

	orchestrator := backfill.New(sc, db.Matches, cfg.BackfillPause)

	log.Info().
		Int("start_id", *startID).
		Int("end_id", *endID).
		Msg("Starting historical import")

	stats, err := orchestrator.ImportRange(ctx, *startID, *endID)
	if err != nil {
		log.Error().Err(err).Msg("Import aborted")
	}

	failed := 0
	for _, st := range stats {
		if st.Err != nil {
			failed++
		}
	}
	log.Info().
		Int("tournaments", len(stats)).
		Int("failed", failed).
		Msg("Historical import finished")
}
