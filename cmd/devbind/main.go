// DevBind - device file bindings for a live document
//
// DevBind keeps elements of a document in step with line-oriented device
// files and serial ports: input devices dispatch pressed/released events,
// output devices receive colour vectors, lock bits and text whenever the
// bound attributes or styles change.
//
// Usage:
//
//	devbind              run the service (config from DEVBIND_CONFIG)
//	devbind token <sub>  print an API bearer token signed with the JWT secret
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/nerrad567/gray-logic-devbind/migrations"

	"github.com/nerrad567/gray-logic-devbind/internal/api"
	"github.com/nerrad567/gray-logic-devbind/internal/bridges/devfile"
	"github.com/nerrad567/gray-logic-devbind/internal/devchan"
	"github.com/nerrad567/gray-logic-devbind/internal/document"
	"github.com/nerrad567/gray-logic-devbind/internal/history"
	"github.com/nerrad567/gray-logic-devbind/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-devbind/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-devbind/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-devbind/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-devbind/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-devbind/internal/relay"
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

// tokenTTL is the lifetime of tokens printed by the token command.
const tokenTTL = 24 * time.Hour

func main() {
	if len(os.Args) > 1 && os.Args[1] == "token" {
		if err := printToken(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// It returns nil on clean shutdown.
func run(ctx context.Context) error { //nolint:gocognit,gocyclo // linear start-up sequence
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting DevBind",
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
	log.Info("configuration loaded",
		"path", configPath,
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(ctx, database.ConfigFrom(cfg.Database))
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	applied, err := db.Migrate(ctx)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	log.Info("database migrations complete", "applied", applied)

	// I/O journal
	historyRepo := history.NewSQLiteRepository(db.DB)
	historyRec := history.NewRecorder(historyRepo, history.RecorderOptions{
		Retention: time.Duration(cfg.Database.HistoryRetention) * 24 * time.Hour,
		Logger:    log.Component("history"),
	})
	defer func() {
		log.Info("flushing binding history", "stats", historyRec.Stats())
		//nolint:errcheck // Close always returns nil
		historyRec.Close()
	}()

	// Layout and document
	layout, err := document.LoadLayout(cfg.Document.LayoutFile)
	if err != nil {
		return fmt.Errorf("loading layout: %w", err)
	}
	doc, err := layout.Build()
	if err != nil {
		return fmt.Errorf("building document: %w", err)
	}
	doc.SetLogger(log.Component("document"))
	log.Info("layout loaded",
		"path", cfg.Document.LayoutFile,
		"bindings", len(layout.Bindings),
		"elements", len(layout.Elements),
	)

	// Every device exchange fans out to these. Appended before the engine
	// starts, never after.
	recorders := devfile.MultiRecorder{historyRec}

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log.Component("mqtt"))
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT disabled")
	}

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

		metrics := channelMetrics{influx: influxClient}
		doc.OnEvent(metrics.elementEvent)
		recorders = append(recorders, metrics)
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// MQTT relay
	if mqttClient != nil {
		rel, relErr := relay.New(relay.Options{
			MQTT:      mqttClient,
			Document:  doc,
			Logger:    log.Component("relay"),
			QoS:       byte(cfg.MQTT.QoS), // #nosec G115 -- validated 0-2
			PublishIO: true,
		})
		if relErr != nil {
			return fmt.Errorf("creating relay: %w", relErr)
		}
		if startErr := rel.Start(ctx); startErr != nil {
			return fmt.Errorf("starting relay: %w", startErr)
		}
		defer func() {
			log.Info("stopping relay", "stats", rel.Stats())
			rel.Stop()
		}()
		recorders = append(recorders, rel)
	}

	// Binding engine
	engine := devfile.NewEngine(devfile.EngineOptions{
		Opener: devfile.PortOpener{Opener: &devchan.Opener{
			DefaultBaud:    cfg.Devices.DefaultBaud,
			WriteQueueSize: cfg.Devices.WriteQueueSize,
			Logger:         log.Component("devchan"),
		}},
		Logger:   log.Component("devfile"),
		Recorder: &recorders,
	})
	for _, decl := range layout.Bindings {
		b, addErr := engine.Add(decl.Tag, devfile.Declaration(decl.Attributes))
		if addErr != nil {
			log.Warn("binding not created", "tag", decl.Tag, "binding_id", decl.ID(), "error", addErr)
			continue
		}
		if b.ID() != "" {
			doc.Attach(b.ID(), b)
		}
	}
	defer func() {
		log.Info("closing device bindings")
		engine.Wait()
		if closeErr := engine.Close(); closeErr != nil {
			log.Error("error closing bindings", "error", closeErr)
		}
	}()

	// API server (optional)
	if cfg.API.Enabled {
		apiServer, apiErr := api.New(api.Deps{
			Config:   cfg.API,
			WS:       cfg.WebSocket,
			Security: cfg.Security,
			Logger:   log.Component("api"),
			Engine:   engine,
			Document: doc,
			History:  historyRepo,
			Version:  version,
		})
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if startErr := apiServer.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := apiServer.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
		recorders = append(recorders, apiServer)
	} else {
		log.Info("API disabled")
	}

	// Ready every binding. Failures are contained per binding.
	for _, startErr := range engine.Start(ctx, doc) {
		log.Warn("binding not ready", "error", startErr)
	}
	stats := engine.Stats()
	log.Info("bindings started",
		"total", stats.Bindings,
		"ready", stats.Ready,
		"inert", stats.Inert,
		"failed", stats.Failed,
	)

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse order:
	// API, bindings, relay, InfluxDB, MQTT, history, database.

	log.Info("DevBind stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses DEVBIND_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("DEVBIND_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
// mqttClient and influxClient may be nil when disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}

// printToken implements the token command.
func printToken(args []string) error {
	if len(args) != 1 || args[0] == "" {
		return errors.New("usage: devbind token <subject>")
	}

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	token, err := api.IssueToken(cfg.Security.JWT.Secret, cfg.Security.JWT.Issuer, args[0], tokenTTL)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
