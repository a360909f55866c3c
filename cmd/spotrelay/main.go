// Spot Relay - price-driven relay switching
//
// This is the main entry point for the spotrelay daemon. It drives an
// MQTT-connected relay from day-ahead electricity prices: when the current
// quarter-hour price is below the configured limit the relay is switched on,
// otherwise off, with every command confirmed by a live status echo before
// it counts.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/starymuz/spotrelay/migrations"

	"github.com/starymuz/spotrelay/internal/cycle"
	"github.com/starymuz/spotrelay/internal/history"
	"github.com/starymuz/spotrelay/internal/infrastructure/config"
	"github.com/starymuz/spotrelay/internal/infrastructure/database"
	"github.com/starymuz/spotrelay/internal/infrastructure/influxdb"
	"github.com/starymuz/spotrelay/internal/infrastructure/logging"
	"github.com/starymuz/spotrelay/internal/notify"
	"github.com/starymuz/spotrelay/internal/prices"
	"github.com/starymuz/spotrelay/internal/schedule"
	"github.com/starymuz/spotrelay/internal/statestore"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	once := flag.Bool("once", false, "run a single actuation cycle and exit")
	nightGuard := flag.Bool("night-guard", false, "run the night guard sweep and exit")
	fetchPrices := flag.Bool("fetch-prices", false, "download the day-ahead prices and exit")
	flag.Parse()

	if err := run(ctx, *once, *nightGuard, *fetchPrices); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - once: Run a single cycle instead of the scheduled session loop
//   - nightGuard: Run the night guard sweep instead of cycles
//   - fetchPrices: Download and cache the price table instead of cycles
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context, once, nightGuard, fetchPrices bool) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting spotrelay",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)

	notifier := notify.NewTelegram(
		cfg.Telegram.BotToken,
		cfg.Telegram.ChatID,
		cfg.Telegram.TimeoutDuration(),
		log,
	)

	// The price fetch mode needs no relay machinery.
	if fetchPrices {
		return runFetchPrices(ctx, cfg, notifier, log)
	}

	store := statestore.New(cfg.State.Path, log)
	gate := notify.NewGate(store, notifier, cfg.Site.ID, log)

	// Open database and run migrations
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database ready", "path", cfg.Database.Path)

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	} else {
		log.Info("InfluxDB disabled")
	}

	skew := time.Duration(cfg.Prices.SkewMinutes) * time.Minute
	engineCfg := cycle.EngineConfig{
		Sessions: cycle.NewMQTTSessions(cfg.MQTT, cfg.Relay, log),
		Prices:   cycle.NewCachePrices(cfg.Prices.CachePath, cfg.Prices.LimitEUR, skew),
		Gate:     gate,
		History:  history.NewRepository(db.DB),
		Skew:     skew,
		Logger:   log,
	}
	if influxClient != nil {
		engineCfg.Telemetry = influxClient
	}
	engine := cycle.NewEngine(engineCfg)

	switch {
	case nightGuard:
		return engine.RunNightGuard(ctx)
	case once:
		return engine.RunCycle(ctx, history.TriggerManual)
	default:
		return runSessions(ctx, cfg, engine, log)
	}
}

// runSessions is the scheduled daemon loop: wait for the minute mark, then
// run the configured number of cycles one run-interval apart, repeat.
//
// A cycle error is logged and the loop continues; the relay must keep
// following the prices even if a single invocation failed (and alerted).
func runSessions(ctx context.Context, cfg *config.Config, engine *cycle.Engine, log *logging.Logger) error {
	loc := cfg.Location()

	for {
		next := schedule.NextMark(time.Now().In(loc), cfg.Schedule.MinuteMark)
		log.Info("waiting for next session", "at", next.Format(time.RFC3339))

		if err := schedule.Wait(ctx, next); err != nil {
			log.Info("shutdown signal received")
			return nil
		}

		for i := 0; i < cfg.Schedule.RunsPerSession; i++ {
			if i > 0 {
				pause := time.Now().Add(cfg.Schedule.RunIntervalDuration())
				if err := schedule.Wait(ctx, pause); err != nil {
					log.Info("shutdown signal received")
					return nil
				}
			}

			if err := engine.RunCycle(ctx, history.TriggerSchedule); err != nil {
				if ctx.Err() != nil {
					log.Info("shutdown signal received")
					return nil
				}
				log.Error("cycle failed", "run", i+1, "error", err)
			}
		}
	}
}

// runFetchPrices downloads the price table, refreshes the CSV cache, and
// sends the daily below-limit report.
func runFetchPrices(ctx context.Context, cfg *config.Config, notifier notify.Notifier, log *logging.Logger) error {
	fetcher := prices.NewFetcher(prices.FetcherConfig{
		SourceURL:   cfg.Prices.SourceURL,
		MaxAttempts: cfg.Prices.Fetch.MaxAttempts,
		RetryDelay:  cfg.Prices.Fetch.RetryDelayDuration(),
		Timeout:     cfg.Prices.Fetch.TimeoutDuration(),
	}, log)

	day := time.Now().In(cfg.Location())
	table, err := fetcher.Fetch(ctx, day)
	if err != nil {
		// The operator should know the relay will run on yesterday's table.
		if sendErr := notifier.Send(ctx, fmt.Sprintf(
			"⚠️ %s: price download failed, reusing cached table", cfg.Site.ID)); sendErr != nil {
			log.Error("sending fetch failure alert", "error", sendErr)
		}
		return err
	}

	if err := table.SaveCSV(cfg.Prices.CachePath); err != nil {
		return fmt.Errorf("writing price cache: %w", err)
	}
	log.Info("price cache refreshed", "path", cfg.Prices.CachePath, "periods", table.Len())

	report := buildPriceReport(cfg.Site.ID, table, cfg.Prices.LimitEUR, day)
	if err := notifier.Send(ctx, report); err != nil {
		log.Error("sending daily price report", "error", err)
	}
	return nil
}

// buildPriceReport renders the daily summary of below-limit intervals.
func buildPriceReport(site string, table *prices.Table, limit float64, day time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "💶 %s: prices below %.1f EUR/MWh on %s:\n",
		site, limit, day.Format("2006-01-02"))

	intervals := table.BelowLimitIntervals(limit)
	if len(intervals) == 0 {
		b.WriteString("none - relay stays off")
		return b.String()
	}

	for _, iv := range intervals {
		from, to := iv.Times(day)
		fmt.Fprintf(&b, "%s - %s\n", from.Format("15:04"), to.Format("15:04"))
	}
	return strings.TrimRight(b.String(), "\n")
}

// getConfigPath returns the configuration file path.
// Uses SPOTRELAY_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("SPOTRELAY_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
