// Gray Logic MHT item provider.
//
// Loads the MHT item file, keeps it current while the file changes, and
// serves the parsed item model to the UI and bus layers over HTTP,
// WebSocket and MQTT.
package main

import (
	"context"
	"fmt"
	"maps"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/nerrad567/gray-logic-mht/internal/api"
	"github.com/nerrad567/gray-logic-mht/internal/history"
	"github.com/nerrad567/gray-logic-mht/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-mht/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-mht/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-mht/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-mht/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-mht/internal/mht"
	"github.com/nerrad567/gray-logic-mht/internal/provider"
	"github.com/nerrad567/gray-logic-mht/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error { //nolint:gocognit,gocyclo // linear startup sequence
	log := logging.Default()
	log.Info("starting Gray Logic MHT provider",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded", "path", configPath, "level", cfg.Logging.Level)

	parser, err := mht.NewParser(cfg.Items.ParserOptions())
	if err != nil {
		return fmt.Errorf("creating item parser: %w", err)
	}
	prov := provider.New(parser)
	prov.SetLogger(log)

	// Subsystems probed at startup and by GET /api/v1/health.
	checks := map[string]api.HealthChecker{}

	// Reload history (optional)
	var historyRepo history.Repository
	if cfg.Database.Enabled {
		db, openErr := database.Open(database.Config{
			Path:        cfg.Database.Path,
			WALMode:     cfg.Database.WALMode,
			BusyTimeout: cfg.Database.BusyTimeout,
		})
		if openErr != nil {
			return fmt.Errorf("opening database: %w", openErr)
		}
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()

		applied, migrateErr := db.Migrate(ctx, migrations.FS)
		if migrateErr != nil {
			return fmt.Errorf("running migrations: %w", migrateErr)
		}
		log.Info("database ready", "path", cfg.Database.Path, "migrations_applied", applied)

		repo := history.NewSQLiteRepository(db.DB)
		recorder := history.NewRecorder(repo)
		recorder.SetLogger(log)
		prov.AddReloadObserver(recorder)
		historyRepo = repo
		checks["database"] = db
	} else {
		log.Info("reload history disabled")
	}

	// Reload metrics (optional)
	if cfg.InfluxDB.Enabled {
		influxClient, connErr := influxdb.Connect(cfg.InfluxDB)
		if connErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", connErr)
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
		prov.AddReloadObserver(reloadMetrics{client: influxClient})
		checks["influxdb"] = influxClient
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	} else {
		log.Info("InfluxDB disabled")
	}

	// MQTT announcements and reload commands (optional)
	if cfg.MQTT.Enabled {
		mqttClient, connErr := mqtt.Connect(cfg.MQTT)
		if connErr != nil {
			return fmt.Errorf("connecting to MQTT: %w", connErr)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)

		announcer := newBusAnnouncer(mqttClient, log)
		prov.AddItemChangeListener(announcer)
		prov.AddReloadObserver(announcer)
		mqttClient.SetOnConnect(func() { announcer.AllItemsChanged(prov) })

		commands := newReloadCommands(prov, log)
		go commands.run(ctx)
		if subErr := mqttClient.Subscribe(mqtt.Topics{}.ReloadCommand(), 1, commands.handle); subErr != nil {
			return fmt.Errorf("subscribing to reload commands: %w", subErr)
		}
		checks["mqtt"] = mqttClient
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT disabled")
	}

	if err := healthCheck(ctx, checks); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed", "subsystems", len(checks))

	// A missing or broken item file at startup is not fatal: the provider
	// publishes nothing until the watcher sees a good version.
	if loadErr := prov.SourceChanged(ctx, cfg.Items.File); loadErr != nil {
		log.Warn("initial item load failed, waiting for a valid file", "error", loadErr)
	}

	if interval := cfg.Items.GetPollInterval(); interval > 0 {
		go func() {
			if watchErr := prov.Watch(ctx, interval); watchErr != nil {
				log.Error("item file watcher stopped", "error", watchErr)
			}
		}()
		log.Info("watching item file", "path", cfg.Items.File, "interval", interval)
	}

	if cfg.API.Enabled {
		server, apiErr := api.New(api.Deps{
			Config:   cfg.API,
			WS:       cfg.WebSocket,
			Logger:   log,
			Provider: prov,
			History:  historyRepo,
			Version:  version,
			Checks:   checks,
		})
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if startErr := server.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := server.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	}

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	return nil
}

// healthCheck verifies every enabled subsystem answers, in name order.
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, checks map[string]api.HealthChecker) error {
	for _, name := range slices.Sorted(maps.Keys(checks)) {
		if err := checks[name].HealthCheck(ctx); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// getConfigPath returns the configuration file path.
// Uses GRAYLOGIC_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("GRAYLOGIC_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
