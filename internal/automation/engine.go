package automation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/verdantio/greenhouse-core/internal/device"
	"github.com/verdantio/greenhouse-core/internal/sensor"
)

// Logger defines the logging interface used by the Engine.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// IntentApplier consumes command intents. Implemented by device.Synchronizer.
type IntentApplier interface {
	Apply(ctx context.Context, intent device.CommandIntent) (device.State, error)
}

// Outcome describes what the engine did with one reading.
type Outcome string

// Outcome constants.
const (
	// OutcomeDisabled: the global automation toggle is off.
	OutcomeDisabled Outcome = "disabled"

	// OutcomeNoAction: the evaluator wanted no change (dead-band, unmapped
	// sensor, rain clear).
	OutcomeNoAction Outcome = "no_action"

	// OutcomeOverridden: a manual override flag suppressed the action.
	OutcomeOverridden Outcome = "overridden"

	// OutcomeCoolingDown: the cooldown gate suppressed the action.
	OutcomeCoolingDown Outcome = "cooling_down"

	// OutcomeRedundant: the device is already in the desired state.
	OutcomeRedundant Outcome = "redundant"

	// OutcomeCommanded: a command intent was issued and applied.
	OutcomeCommanded Outcome = "commanded"

	// OutcomeConflict: a concurrent writer won the race; treated as benign.
	OutcomeConflict Outcome = "conflict"
)

// CheckResult is one row of a forced evaluation pass.
type CheckResult struct {
	SensorType sensor.Type `json:"sensor_type"`
	Value      float64     `json:"value"`
	Outcome    Outcome     `json:"outcome"`
}

// Engine turns sensor readings into cooldown-gated device commands.
//
// Each reading for a mapped sensor runs through: global enable check →
// threshold evaluation → manual-override check → redundancy check against
// the device store → cooldown gate → command intent. The first gate that
// trips short-circuits the rest; suppression is logged at debug level and
// is never an error.
//
// Disabling automation leaves cooldown state untouched, so re-enabling
// resumes with whatever windows were already running rather than
// re-triggering everything at once.
//
// All public methods are thread-safe.
type Engine struct {
	mu       sync.RWMutex
	settings Settings
	latest   map[sensor.Type]sensor.Reading

	store     *device.Store
	applier   IntentApplier
	gate      *Gate
	overrides *OverrideStore
	repo      SettingsRepository
	logger    Logger

	// onSettingsChanged is invoked after a successful settings update,
	// used to broadcast automation:update to WebSocket clients.
	onSettingsChanged func(Settings)

	// now is injected for tests.
	now func() time.Time
}

// NewEngine creates an automation engine.
//
// Parameters:
//   - settings: Initial thresholds (validated by the caller)
//   - store: Authoritative device state store, read for redundancy checks
//   - applier: Consumer of command intents (the device synchronizer)
//
// Returns:
//   - *Engine: Ready for use; attach optional collaborators with setters
func NewEngine(settings Settings, store *device.Store, applier IntentApplier) *Engine {
	return &Engine{
		settings:  settings,
		latest:    make(map[sensor.Type]sensor.Reading),
		store:     store,
		applier:   applier,
		gate:      NewGate(),
		overrides: NewOverrideStore(),
		logger:    noopLogger{},
		now:       time.Now,
	}
}

// SetLogger sets the logger for the engine.
func (e *Engine) SetLogger(logger Logger) {
	e.logger = logger
}

// SetRepository attaches the settings persistence. Optional; without it
// settings updates are memory-only.
func (e *Engine) SetRepository(repo SettingsRepository) {
	e.repo = repo
}

// OnSettingsChanged registers a callback fired after each settings update.
func (e *Engine) OnSettingsChanged(fn func(Settings)) {
	e.onSettingsChanged = fn
}

// HandleReading implements sensor.Sink.
func (e *Engine) HandleReading(ctx context.Context, reading sensor.Reading) {
	e.Process(ctx, reading)
}

// Process evaluates one reading and issues a command when every gate passes.
//
// Returns:
//   - Outcome: What happened to the reading; suppressions are outcomes,
//     not errors
func (e *Engine) Process(ctx context.Context, reading sensor.Reading) Outcome {
	e.mu.Lock()
	e.latest[reading.SensorType] = reading
	settings := e.settings
	e.mu.Unlock()

	if !settings.Enabled {
		return OutcomeDisabled
	}

	decision, err := Evaluate(reading.SensorType, reading.Value, settings)
	if err != nil {
		if errors.Is(err, ErrUnknownSensor) {
			return OutcomeNoAction
		}
		// Validation at update time should make this unreachable.
		e.logger.Error("threshold evaluation failed",
			"sensor_type", string(reading.SensorType),
			"error", err)
		return OutcomeNoAction
	}
	if !decision.WantsAction() {
		e.logger.Debug("no action wanted",
			"sensor_type", string(reading.SensorType),
			"reason", decision.Reason)
		return OutcomeNoAction
	}

	now := e.now()

	if e.overrides.Active(decision.DeviceID, now) {
		e.logger.Debug("suppressed by manual override",
			"device_id", decision.DeviceID,
			"sensor_type", string(reading.SensorType))
		return OutcomeOverridden
	}

	// Redundancy check before touching the cooldown gate: a reading that
	// confirms the current state must not burn the window for the next
	// genuine transition.
	current, err := e.store.Get(decision.DeviceID)
	if err != nil {
		e.logger.Warn("decision targets unknown device",
			"device_id", decision.DeviceID)
		return OutcomeNoAction
	}
	if current.Status == decision.Action.Activates() {
		return OutcomeRedundant
	}

	window := time.Duration(settings.CooldownWindow(reading.SensorType)) * time.Minute
	key := decision.DeviceID + ":" + string(reading.SensorType)
	if !e.gate.TryAcquire(key, window, now) {
		e.logger.Debug("suppressed by cooldown",
			"key", key,
			"remaining", e.gate.Remaining(key, now).String())
		return OutcomeCoolingDown
	}

	value := reading.Value
	intent := device.CommandIntent{
		DeviceID:     decision.DeviceID,
		Action:       *decision.Action,
		TriggeredBy:  device.ControlModeAuto,
		SourceSensor: string(reading.SensorType),
		SensorValue:  &value,
		RequestID:    uuid.NewString(),
	}

	if _, err := e.applier.Apply(ctx, intent); err != nil {
		if errors.Is(err, device.ErrConflict) {
			e.logger.Debug("command lost concurrent race",
				"device_id", decision.DeviceID)
			return OutcomeConflict
		}
		e.logger.Error("command apply failed",
			"device_id", decision.DeviceID,
			"action", string(*decision.Action),
			"error", err)
		return OutcomeConflict
	}

	e.logger.Info("automation command issued",
		"device_id", decision.DeviceID,
		"action", string(*decision.Action),
		"sensor_type", string(reading.SensorType),
		"value", reading.Value,
		"reason", decision.Reason)
	return OutcomeCommanded
}

// RunCheck forces one evaluation pass over the latest reading of every
// sensor. Used by the run-check API endpoint.
//
// Returns:
//   - []CheckResult: One row per sensor with a cached reading
func (e *Engine) RunCheck(ctx context.Context) []CheckResult {
	e.mu.RLock()
	readings := make([]sensor.Reading, 0, len(e.latest))
	for _, reading := range e.latest {
		readings = append(readings, reading)
	}
	e.mu.RUnlock()

	results := make([]CheckResult, 0, len(readings))
	for _, reading := range readings {
		outcome := e.Process(ctx, reading)
		results = append(results, CheckResult{
			SensorType: reading.SensorType,
			Value:      reading.Value,
			Outcome:    outcome,
		})
	}
	return results
}

// Settings returns a copy of the current settings.
func (e *Engine) Settings() Settings {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.settings
}

// UpdateSettings validates, persists and installs new settings.
//
// Cooldown and override state are deliberately left untouched: toggling
// the global enable flag never resets running windows.
//
// Parameters:
//   - ctx: Context for the persistence call
//   - settings: Full replacement settings
//
// Returns:
//   - Settings: The installed settings with UpdatedAt stamped
//   - error: ErrInvalidConfig on validation failure, or the persistence error
func (e *Engine) UpdateSettings(ctx context.Context, settings Settings) (Settings, error) {
	if err := settings.Validate(); err != nil {
		return Settings{}, err
	}
	settings.UpdatedAt = e.now().UTC()

	if e.repo != nil {
		if err := e.repo.Save(ctx, settings); err != nil {
			return Settings{}, fmt.Errorf("persisting settings: %w", err)
		}
	}

	e.mu.Lock()
	e.settings = settings
	e.mu.Unlock()

	e.logger.Info("automation settings updated",
		"enabled", settings.Enabled,
		"open_temp", settings.Temperature.OpenTemp,
		"close_temp", settings.Temperature.CloseTemp)

	if e.onSettingsChanged != nil {
		e.onSettingsChanged(settings)
	}
	return settings, nil
}

// NotifyManualCommand flags a device as manually overridden for the
// configured window. Called by the manual device-control path.
func (e *Engine) NotifyManualCommand(deviceID string) {
	e.mu.RLock()
	minutes := e.settings.OverrideMinutes
	e.mu.RUnlock()

	duration := time.Duration(minutes) * time.Minute
	e.overrides.Set(deviceID, duration, e.now())
	e.logger.Debug("manual override set",
		"device_id", deviceID,
		"duration", duration.String())
}

// ClearOverride resumes automation for a device immediately.
func (e *Engine) ClearOverride(deviceID string) {
	e.overrides.Clear(deviceID)
}

// OverrideActive reports whether a device is currently overridden.
func (e *Engine) OverrideActive(deviceID string) bool {
	return e.overrides.Active(deviceID, e.now())
}

// SweepOverrides removes expired override flags. Called once a minute by
// the background sweep.
func (e *Engine) SweepOverrides() {
	if removed := e.overrides.Sweep(e.now()); removed > 0 {
		e.logger.Debug("expired manual overrides swept", "count", removed)
	}
}
