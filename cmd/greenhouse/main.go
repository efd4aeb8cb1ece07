// Greenhouse Core - Automation Decision & Device-State Synchronization Engine
//
// This is the main entry point for the Greenhouse Core application.
// Greenhouse Core turns environmental sensor readings into actuator
// commands and keeps one authoritative copy of every device's state:
//   - MQTT ingestion of temperature, humidity, soil, light, rain and
//     water-level readings
//   - Threshold automation with hysteresis, cooldowns and manual override
//   - Compare-and-set device state with an append-only audit history
//   - REST + WebSocket API for dashboards
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/verdantio/greenhouse-core/migrations"

	"github.com/verdantio/greenhouse-core/internal/alert"
	"github.com/verdantio/greenhouse-core/internal/api"
	"github.com/verdantio/greenhouse-core/internal/automation"
	"github.com/verdantio/greenhouse-core/internal/device"
	"github.com/verdantio/greenhouse-core/internal/infrastructure/config"
	"github.com/verdantio/greenhouse-core/internal/infrastructure/database"
	"github.com/verdantio/greenhouse-core/internal/infrastructure/influxdb"
	"github.com/verdantio/greenhouse-core/internal/infrastructure/logging"
	"github.com/verdantio/greenhouse-core/internal/infrastructure/mqtt"
	"github.com/verdantio/greenhouse-core/internal/sensor"
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

// sweepInterval drives the background maintenance pass: expired manual
// overrides are removed and due alert batches flushed.
const sweepInterval = time.Minute

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error { //nolint:gocognit,gocyclo // Linear wiring of every subsystem
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Greenhouse Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
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
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Repositories
	historyRepo := device.NewSQLiteHistoryRepository(db.DB)
	stateRepo := device.NewSQLiteStateRepository(db.DB)
	settingsRepo := automation.NewSQLiteSettingsRepository(db.DB)

	// Rebuild the in-memory state store from the last persisted snapshot;
	// devices never seen before start inactive.
	store := device.NewStore()
	if seedErr := seedStore(ctx, store, stateRepo); seedErr != nil {
		return fmt.Errorf("seeding device store: %w", seedErr)
	}
	log.Info("device store seeded", "devices", store.Len())

	// Connect to MQTT broker
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log)
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

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
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled, telemetry writes skipped")
	}

	// Device synchronizer: the only writer of device state.
	actuator := &mqttActuator{client: mqttClient, qos: byte(cfg.MQTT.QoS)}
	synchronizer := device.NewSynchronizer(store, actuator, historyRepo, stateRepo)
	synchronizer.SetLogger(log)
	if influxClient != nil {
		synchronizer.SetTelemetryRecorder(influxClient)
	}

	// Automation settings: the persisted row wins over config defaults.
	settings, err := settingsRepo.Load(ctx)
	switch {
	case errors.Is(err, automation.ErrSettingsNotFound):
		settings = automation.SettingsFromConfig(cfg.Automation)
		settings.UpdatedAt = time.Now().UTC()
		if saveErr := settingsRepo.Save(ctx, settings); saveErr != nil {
			return fmt.Errorf("saving initial automation settings: %w", saveErr)
		}
		log.Info("automation settings seeded from config")
	case err != nil:
		return fmt.Errorf("loading automation settings: %w", err)
	default:
		log.Info("automation settings loaded", "updated_at", settings.UpdatedAt)
	}

	engine := automation.NewEngine(settings, store, synchronizer)
	engine.SetLogger(log)
	engine.SetRepository(settingsRepo)

	// Alerting: dispatcher cooldowns ride the same gate type the engine
	// uses for actuation cooldowns.
	notifier := alert.NewLogNotifier(cfg.Alerts.Recipients, log)
	dispatcher := alert.NewDispatcher(alertConfig(cfg.Alerts), automation.NewGate(), notifier)
	dispatcher.SetLogger(log)
	monitor := alert.NewMonitor(alert.DefaultRules(), dispatcher)

	// Infrastructure failures raise system-error alerts: a failed actuator
	// publish and a dropped broker connection both reach the dispatcher.
	synchronizer.SetFailureReporter(monitor)
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
		monitor.SystemError(ctx, fmt.Sprintf("MQTT broker connection lost: %v", err))
	})

	// Sensor ingestion pipeline: validation, telemetry, then fan-out to
	// the automation engine and the alert monitor.
	ingestor := sensor.NewIngestor()
	ingestor.SetLogger(log)
	if influxClient != nil {
		ingestor.SetRecorder(influxClient)
	}
	ingestor.AddSink(engine)
	ingestor.AddSink(monitor)

	// WebSocket hub: shared by the synchronizer, engine and dispatcher.
	hub := api.NewHub(cfg.WebSocket, log)
	go hub.Run(ctx)
	synchronizer.SetBroadcaster(hub)
	engine.OnSettingsChanged(hub.BroadcastAutomationUpdate)
	dispatcher.OnAlert(func(n alert.Notification) { hub.BroadcastAlert(n, false) })
	dispatcher.OnPriority(func(n alert.Notification) { hub.BroadcastAlert(n, true) })

	// Subscribe to sensor readings.
	topics := mqtt.Topics{}
	subErr := mqttClient.Subscribe(topics.AllSensorReadings(), byte(cfg.MQTT.QoS), func(topic string, payload []byte) error {
		sensorType := mqtt.SensorTypeFromTopic(topic)
		if sensorType == "" {
			log.Warn("reading on unrecognised topic", "topic", topic)
			return nil
		}
		// Rejected readings are logged by the ingestor; the broker must
		// not see an error for a malformed payload.
		//nolint:errcheck // Validation failures are terminal for the message
		ingestor.IngestRaw(ctx, sensorType, payload)
		return nil
	})
	if subErr != nil {
		return fmt.Errorf("subscribing to sensor readings: %w", subErr)
	}
	log.Info("subscribed to sensor readings", "topic", topics.AllSensorReadings())

	// Start the API server
	apiServer, err := api.New(api.Deps{
		Config:       cfg.API,
		WS:           cfg.WebSocket,
		Logger:       log,
		Store:        store,
		Synchronizer: synchronizer,
		Engine:       engine,
		History:      historyRepo,
		Ingestor:     ingestor,
		ExternalHub:  hub,
		Version:      version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := apiServer.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "address", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port))

	// Background maintenance: expired overrides and due alert batches.
	go sweepLoop(ctx, engine, dispatcher)

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient, apiServer); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Flush any batched alerts before the notifier goes away.
	flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if sent := dispatcher.Flush(flushCtx); sent > 0 {
		log.Info("flushed pending alerts on shutdown", "count", sent)
	}
	flushCancel()

	// Deferred Close() calls will run in reverse order:
	// 1. API server
	// 2. InfluxDB (if enabled)
	// 3. MQTT
	// 4. Database

	log.Info("Greenhouse Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses GREENHOUSE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("GREENHOUSE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// seedStore rebuilds the in-memory device store.
//
// Persisted snapshots win; any controlled device type without a snapshot
// starts inactive in automatic mode. Device IDs are the type names: the
// greenhouse has exactly one actuator of each kind.
func seedStore(ctx context.Context, store *device.Store, stateRepo device.StateRepository) error {
	persisted, err := stateRepo.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("loading persisted states: %w", err)
	}

	seen := make(map[device.Type]bool, len(persisted))
	for _, state := range persisted {
		store.Seed(state)
		seen[state.DeviceType] = true
	}

	now := time.Now().UTC()
	for _, dt := range device.AllTypes() {
		if seen[dt] {
			continue
		}
		store.Seed(device.State{
			DeviceID:    string(dt),
			DeviceType:  dt,
			Status:      false,
			LastCommand: dt.ActionForStatus(false),
			ControlMode: device.ControlModeAuto,
			UpdatedAt:   now,
		})
	}
	return nil
}

// alertConfig converts YAML alert settings to the dispatcher's config.
func alertConfig(cfg config.AlertConfig) alert.Config {
	return alert.Config{
		Batch:     cfg.Batch,
		Frequency: time.Duration(cfg.FrequencyMinutes) * time.Minute,
		Cooldowns: map[alert.Category]time.Duration{
			alert.CategoryTemperature: time.Duration(cfg.Cooldowns.Temperature) * time.Minute,
			alert.CategoryHumidity:    time.Duration(cfg.Cooldowns.Humidity) * time.Minute,
			alert.CategorySoil:        time.Duration(cfg.Cooldowns.Soil) * time.Minute,
			alert.CategoryWaterLevel:  time.Duration(cfg.Cooldowns.WaterLevel) * time.Minute,
			alert.CategorySystemError: time.Duration(cfg.Cooldowns.SystemError) * time.Minute,
		},
	}
}

// sweepLoop runs the once-a-minute maintenance pass until the context is
// cancelled.
func sweepLoop(ctx context.Context, engine *automation.Engine, dispatcher *alert.Dispatcher) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			engine.SweepOverrides()
			dispatcher.MaybeFlush(ctx)
		}
	}
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//   - apiServer: API server to check
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client, apiServer *api.Server) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	if err := apiServer.HealthCheck(ctx); err != nil {
		return fmt.Errorf("api: %w", err)
	}

	return nil
}

// mqttActuator publishes actuation commands over MQTT.
//
// The payload is a single character, "1" to energise and "0" to
// de-energise; delivery is fire-and-forget with no hardware
// acknowledgement. Failures surface only via later sensor readings.
type mqttActuator struct {
	client *mqtt.Client
	qos    byte
}

// SendCommand implements device.Actuator.
func (a *mqttActuator) SendCommand(deviceType device.Type, activate bool) error {
	payload := "0"
	if activate {
		payload = "1"
	}
	topics := mqtt.Topics{}
	return a.client.PublishString(topics.DeviceControl(string(deviceType)), payload, a.qos, false)
}
