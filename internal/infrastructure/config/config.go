package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Greenhouse Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site       SiteConfig       `yaml:"site"`
	Database   DatabaseConfig   `yaml:"database"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	API        APIConfig        `yaml:"api"`
	WebSocket  WebSocketConfig  `yaml:"websocket"`
	InfluxDB   InfluxDBConfig   `yaml:"influxdb"`
	Logging    LoggingConfig    `yaml:"logging"`
	Automation AutomationConfig `yaml:"automation"`
	Alerts     AlertConfig      `yaml:"alerts"`
}

// SiteConfig contains greenhouse-specific information.
type SiteConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Timezone string `yaml:"timezone"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings (seconds).
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB telemetry settings.
// Telemetry is optional; when disabled, sensor readings are not written
// to the time-series store and only the SQLite history log is kept.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// AutomationConfig contains the boot-time automation defaults.
//
// These seed the persisted automation settings on first run; afterwards
// the settings row in SQLite is authoritative and updated via the API.
type AutomationConfig struct {
	Enabled bool `yaml:"enabled"`

	// Temperature hysteresis band for window control (degrees Celsius).
	// OpenTemp must be strictly greater than CloseTemp.
	Temperature TemperatureThresholds `yaml:"temperature"`

	// Binary sensor trigger values (0 or 1).
	Light LightThresholds `yaml:"light"`
	Soil  SoilThresholds  `yaml:"soil"`
	Rain  RainThresholds  `yaml:"rain"`

	// OverrideMinutes is how long a manual command suppresses automation
	// for that device. Default 5.
	OverrideMinutes int `yaml:"override_minutes"`
}

// TemperatureThresholds defines the window hysteresis band.
type TemperatureThresholds struct {
	OpenTemp        float64 `yaml:"open_temp"`
	CloseTemp       float64 `yaml:"close_temp"`
	CooldownMinutes int     `yaml:"cooldown_minutes"`
}

// LightThresholds defines the light sensor trigger.
type LightThresholds struct {
	// TriggerValue is the sensor value (0 or 1) that turns the grow light on.
	TriggerValue    float64 `yaml:"trigger_value"`
	CooldownMinutes int     `yaml:"cooldown_minutes"`
}

// SoilThresholds defines the soil moisture trigger.
type SoilThresholds struct {
	// TriggerValue is the sensor value (0 = dry) that turns the pump on.
	TriggerValue    float64 `yaml:"trigger_value"`
	CooldownMinutes int     `yaml:"cooldown_minutes"`
}

// RainThresholds defines the rain sensor trigger.
type RainThresholds struct {
	// TriggerValue is the sensor value (1 = raining) that closes the window.
	TriggerValue    float64 `yaml:"trigger_value"`
	CooldownMinutes int     `yaml:"cooldown_minutes"`
}

// AlertConfig contains alert dispatch settings.
type AlertConfig struct {
	// Batch enables rolling batches instead of one notification per alert.
	Batch bool `yaml:"batch"`

	// FrequencyMinutes is the batch flush interval.
	FrequencyMinutes int `yaml:"frequency_minutes"`

	// Cooldowns holds the per-category minimum minutes between alerts.
	Cooldowns AlertCooldowns `yaml:"cooldowns"`

	// Recipients receive finished notifications.
	Recipients []string `yaml:"recipients"`
}

// AlertCooldowns holds per-category alert cooldown windows (minutes).
type AlertCooldowns struct {
	Temperature int `yaml:"temperature"`
	Humidity    int `yaml:"humidity"`
	Soil        int `yaml:"soil"`
	WaterLevel  int `yaml:"water_level"`
	SystemError int `yaml:"system_error"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: GREENHOUSE_SECTION_KEY
// For example: GREENHOUSE_DATABASE_PATH, GREENHOUSE_MQTT_HOST
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:       "greenhouse-001",
			Name:     "Greenhouse",
			Timezone: "UTC",
		},
		Database: DatabaseConfig{
			Path:        "./data/greenhouse.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "greenhouse-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Automation: AutomationConfig{
			Enabled: true,
			Temperature: TemperatureThresholds{
				OpenTemp:        30,
				CloseTemp:       25,
				CooldownMinutes: 10,
			},
			Light: LightThresholds{
				TriggerValue:    0,
				CooldownMinutes: 10,
			},
			Soil: SoilThresholds{
				TriggerValue:    0,
				CooldownMinutes: 15,
			},
			Rain: RainThresholds{
				TriggerValue:    1,
				CooldownMinutes: 10,
			},
			OverrideMinutes: 5,
		},
		Alerts: AlertConfig{
			Batch:            true,
			FrequencyMinutes: 5,
			Cooldowns: AlertCooldowns{
				Temperature: 10,
				Humidity:    10,
				Soil:        15,
				WaterLevel:  5,
				SystemError: 30,
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: GREENHOUSE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("GREENHOUSE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("GREENHOUSE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("GREENHOUSE_MQTT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.MQTT.Broker.Port = port
		}
	}
	if v := os.Getenv("GREENHOUSE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("GREENHOUSE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("GREENHOUSE_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("GREENHOUSE_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	// InfluxDB
	if v := os.Getenv("GREENHOUSE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Threshold misconfiguration is rejected here so an inverted hysteresis
// band never reaches the evaluator.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Site validation
	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}

	// Database validation
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// API validation
	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	// Automation validation: the hysteresis dead-band must exist.
	if c.Automation.Temperature.OpenTemp <= c.Automation.Temperature.CloseTemp {
		errs = append(errs, "automation.temperature.open_temp must be greater than close_temp")
	}
	if c.Automation.OverrideMinutes < 0 {
		errs = append(errs, "automation.override_minutes must not be negative")
	}

	// Alert validation
	if c.Alerts.FrequencyMinutes <= 0 {
		errs = append(errs, "alerts.frequency_minutes must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
