package automation

import (
	"fmt"
	"time"

	"github.com/verdantio/greenhouse-core/internal/infrastructure/config"
)

// Settings are the runtime automation thresholds.
//
// Seeded from config.yaml on first run, then owned by the persisted
// settings row and updated through the API. A settings update replaces the
// whole value atomically; partial updates are resolved by the API layer.
type Settings struct {
	Enabled bool `json:"enabled"`

	// Temperature hysteresis band for window control (degrees Celsius).
	// OpenTemp must be strictly greater than CloseTemp; the dead-band
	// between them is what prevents oscillation.
	Temperature TemperatureRule `json:"temperature"`

	// Binary sensor rules (trigger values 0 or 1).
	Light LightRule `json:"light"`
	Soil  SoilRule  `json:"soil"`
	Rain  RainRule  `json:"rain"`

	// OverrideMinutes is how long a manual command suppresses automation
	// for that device.
	OverrideMinutes int `json:"override_minutes"`

	// UpdatedAt records the last settings change (UTC).
	UpdatedAt time.Time `json:"updated_at"`
}

// TemperatureRule drives the window from the temperature sensor.
type TemperatureRule struct {
	OpenTemp        float64 `json:"open_temp"`
	CloseTemp       float64 `json:"close_temp"`
	CooldownMinutes int     `json:"cooldown_minutes"`
}

// LightRule drives the grow light from the light sensor.
type LightRule struct {
	TriggerValue    float64 `json:"trigger_value"`
	CooldownMinutes int     `json:"cooldown_minutes"`
}

// SoilRule drives the irrigation pump from the soil moisture sensor.
type SoilRule struct {
	TriggerValue    float64 `json:"trigger_value"`
	CooldownMinutes int     `json:"cooldown_minutes"`
}

// RainRule closes the window when the rain sensor trips.
type RainRule struct {
	TriggerValue    float64 `json:"trigger_value"`
	CooldownMinutes int     `json:"cooldown_minutes"`
}

// Validate checks the settings for threshold misconfiguration.
//
// Returns:
//   - error: ErrInvalidConfig describing the first problem found, nil if valid
func (s Settings) Validate() error {
	if s.Temperature.OpenTemp <= s.Temperature.CloseTemp {
		return fmt.Errorf("%w: open_temp (%.1f) must be greater than close_temp (%.1f)",
			ErrInvalidConfig, s.Temperature.OpenTemp, s.Temperature.CloseTemp)
	}
	for _, rule := range []struct {
		name    string
		trigger float64
	}{
		{"light", s.Light.TriggerValue},
		{"soil", s.Soil.TriggerValue},
		{"rain", s.Rain.TriggerValue},
	} {
		if rule.trigger != 0 && rule.trigger != 1 {
			return fmt.Errorf("%w: %s trigger_value must be 0 or 1, got %v",
				ErrInvalidConfig, rule.name, rule.trigger)
		}
	}
	for _, cooldown := range []struct {
		name    string
		minutes int
	}{
		{"temperature", s.Temperature.CooldownMinutes},
		{"light", s.Light.CooldownMinutes},
		{"soil", s.Soil.CooldownMinutes},
		{"rain", s.Rain.CooldownMinutes},
	} {
		if cooldown.minutes < 0 {
			return fmt.Errorf("%w: %s cooldown_minutes must not be negative",
				ErrInvalidConfig, cooldown.name)
		}
	}
	if s.OverrideMinutes < 0 {
		return fmt.Errorf("%w: override_minutes must not be negative", ErrInvalidConfig)
	}
	return nil
}

// SettingsFromConfig converts the static config section into runtime
// settings. Used to seed the persisted row on first start.
func SettingsFromConfig(cfg config.AutomationConfig) Settings {
	return Settings{
		Enabled: cfg.Enabled,
		Temperature: TemperatureRule{
			OpenTemp:        cfg.Temperature.OpenTemp,
			CloseTemp:       cfg.Temperature.CloseTemp,
			CooldownMinutes: cfg.Temperature.CooldownMinutes,
		},
		Light: LightRule{
			TriggerValue:    cfg.Light.TriggerValue,
			CooldownMinutes: cfg.Light.CooldownMinutes,
		},
		Soil: SoilRule{
			TriggerValue:    cfg.Soil.TriggerValue,
			CooldownMinutes: cfg.Soil.CooldownMinutes,
		},
		Rain: RainRule{
			TriggerValue:    cfg.Rain.TriggerValue,
			CooldownMinutes: cfg.Rain.CooldownMinutes,
		},
		OverrideMinutes: cfg.OverrideMinutes,
		UpdatedAt:       time.Now().UTC(),
	}
}
