package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"sumo_tracker/ingestion/internal/cache"
	"sumo_tracker/ingestion/internal/client"
	"sumo_tracker/ingestion/internal/config"
	"sumo_tracker/ingestion/internal/metrics"
	"sumo_tracker/ingestion/internal/repository"
	"sumo_tracker/ingestion/internal/scheduler"
	"sumo_tracker/ingestion/internal/scraper"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	setupLogger()

	log.Info().Msg("Starting sumo tracker ingestion worker")

	cfg := config.MustLoad()
	log.Info().
		Str("env", cfg.AppEnv).
		Str("log_level", cfg.LogLevel).
		Str("cache_mode", cfg.CacheMode).
		Msg("Configuration loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("Received shutdown signal, gracefully shutting down...")
		cancel()
	}()

	store := newCacheStore(cfg)

	mode, err := client.ParseMode(cfg.CacheMode)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid cache mode")
	}
	if mode == client.ModeOnly && store == nil {
		log.Fatal().Msg("Cache-only mode requires a working cache backend")
	}

	sumoClient := client.New(cfg.BaseURL, client.Options{
		Timeout: cfg.RequestTimeout,
		Delay:   cfg.RequestDelay,
		Store:   store,
		Mode:    mode,
	})
	log.Info().Str("base_url", cfg.BaseURL).Msg("Source site client initialized")

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

	overrides, err := cfg.DateOverrideMap()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid tournament date overrides")
	}

	resolver := scraper.NewDateResolver(sumoClient, overrides, store)
	sc := scraper.New(sumoClient, resolver, scraper.SystemClock())

	if cfg.EnableMetrics {
		go startMetricsServer(strconv.Itoa(cfg.MetricsPort))

		startTime := time.Now()
		go func() {
			ticker := time.NewTicker(10 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					metrics.SystemUptime.Set(time.Since(startTime).Seconds())
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	sched := scheduler.NewScheduler(cfg, sc, db.Matches, scraper.SystemClock())

	if cfg.EnableScheduler {
		if err := sched.Start(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to start scheduler")
		}
	}

	if cfg.RunUpdateOnBoot {
		log.Info().Msg("Running daily update on boot...")
		if err := sched.RunDailyUpdate(ctx); err != nil {
			log.Error().Err(err).Msg("Boot-time update failed, continuing anyway...")
		}
	}

	<-ctx.Done()

	log.Info().Msg("Shutting down scheduler...")
	sched.Stop()

	log.Info().Msg("Worker shutdown complete")
}

// setupLogger configures the zerolog logger
func setupLogger() {
	// Pretty console logging in development
	if os.Getenv("APP_ENV") == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	}

	level := zerolog.InfoLevel
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		parsedLevel, err := zerolog.ParseLevel(lvl)
		if err == nil {
			level = parsedLevel
		}
	}
	zerolog.SetGlobalLevel(level)

	log.Info().
		Str("level", level.String()).
		Msg("Logger initialized")
}

// newCacheStore builds the configured cache backend. A cache failure is never
// fatal for the worker; it falls back to uncached operation.
func newCacheStore(cfg *config.Config) cache.Store {
	if cfg.CacheMode == "disabled" {
		return nil
	}

	store, err := cache.NewStore(cfg.CacheBackend, cfg.CacheDir, cache.RedisConfig{
		Addr:     cfg.RedisAddr(),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize cache backend - continuing without cache")
		return nil
	}
	log.Info().Str("backend", cfg.CacheBackend).Msg("Response cache enabled")
	return store
}

// startMetricsServer starts the Prometheus metrics HTTP server
func startMetricsServer(port string) {
	http.Handle("/metrics", promhttp.Handler())

	// Health check endpoint
	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	addr := fmt.Sprintf(":%s", port)
	log.Info().Str("port", port).Msg("Starting metrics server")

	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Error().Err(err).Msg("Metrics server failed")
	}
}
