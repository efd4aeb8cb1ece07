package device

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Logger defines the logging interface used by the Synchronizer.
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

// Actuator publishes outbound hardware commands.
//
// Implementations are fire-and-forget: no acknowledgement is expected from
// the hardware, and failures surface only via subsequent sensor readings.
type Actuator interface {
	SendCommand(deviceType Type, activate bool) error
}

// Broadcaster fans a state change out to all connected WebSocket sessions.
// Implementations must not block the caller on slow clients.
type Broadcaster interface {
	BroadcastStateUpdate(state State)
}

// TelemetryRecorder writes device actuation events to a time-series store.
// The write is expected to be non-blocking (batched internally).
type TelemetryRecorder interface {
	WriteDeviceEvent(deviceID string, state string, triggeredBy string, success bool)
}

// FailureReporter receives infrastructure failure notices for alerting.
// Implemented by alert.Monitor.
type FailureReporter interface {
	SystemError(ctx context.Context, message string)
}

// Synchronizer applies command intents and propagates the resulting state
// change to the actuator, the persistence layer, and all WebSocket clients.
//
// Per-device serialisation: Apply holds a per-device mutex for the
// duration of the compare-and-set, so at most one intent is in flight per
// device at a time. Different devices never contend.
//
// Side effects (publish, persist, broadcast) run after the state swap and
// never roll it back: a failed audit write or MQTT publish degrades to
// "state may be briefly inconsistent until the next reconciliation".
type Synchronizer struct {
	store     *Store
	actuator  Actuator
	history   HistoryRepository
	latest    StateRepository
	broadcast Broadcaster
	telemetry TelemetryRecorder
	failures  FailureReporter
	logger    Logger

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewSynchronizer creates a synchronizer around the given store.
//
// Parameters:
//   - store: The authoritative device state store
//   - actuator: Outbound hardware command publisher
//   - history: Append-only command audit repository
//   - latest: Latest-state upsert repository
//
// Returns:
//   - *Synchronizer: Ready for use; attach optional collaborators with setters
func NewSynchronizer(store *Store, actuator Actuator, history HistoryRepository, latest StateRepository) *Synchronizer {
	return &Synchronizer{
		store:    store,
		actuator: actuator,
		history:  history,
		latest:   latest,
		logger:   noopLogger{},
		locks:    make(map[string]*sync.Mutex),
	}
}

// SetLogger sets the logger for the synchronizer.
func (s *Synchronizer) SetLogger(logger Logger) {
	s.logger = logger
}

// SetBroadcaster attaches the WebSocket fan-out. Optional; nil disables
// broadcasting (used before the hub is started).
func (s *Synchronizer) SetBroadcaster(broadcast Broadcaster) {
	s.broadcast = broadcast
}

// SetTelemetryRecorder attaches an optional time-series recorder.
func (s *Synchronizer) SetTelemetryRecorder(telemetry TelemetryRecorder) {
	s.telemetry = telemetry
}

// SetFailureReporter attaches an optional alerting hook for actuator
// publish failures.
func (s *Synchronizer) SetFailureReporter(failures FailureReporter) {
	s.failures = failures
}

// deviceLock returns the mutex serialising intents for one device.
func (s *Synchronizer) deviceLock(deviceID string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	lock, ok := s.locks[deviceID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[deviceID] = lock
	}
	return lock
}

// Apply consumes a command intent and returns the resulting device state.
//
// Sequence: read current state → compute expected next state → compare-and-
// set → on success publish the actuator command, append an audit record,
// upsert the latest-state snapshot, and broadcast to all sockets.
//
// An intent whose action already matches the current state is a benign
// no-op and returns the current state unchanged. A compare-and-set that
// loses twice returns ErrConflict; the losing attempt is still audited
// with Success=false.
//
// Parameters:
//   - ctx: Context for persistence calls
//   - intent: The command to apply, consumed exactly once
//
// Returns:
//   - State: The state after the apply (new or unchanged)
//   - error: ErrInvalidIntent, ErrDeviceNotFound, ErrIllegalAction or ErrConflict
func (s *Synchronizer) Apply(ctx context.Context, intent CommandIntent) (State, error) {
	if err := intent.Validate(); err != nil {
		return State{}, err
	}

	lock := s.deviceLock(intent.DeviceID)
	lock.Lock()

	const maxAttempts = 2
	var next State
	applied := false

	for attempt := 0; attempt < maxAttempts; attempt++ {
		current, err := s.store.Get(intent.DeviceID)
		if err != nil {
			lock.Unlock()
			return State{}, err
		}
		if err := current.DeviceType.ValidateAction(intent.Action); err != nil {
			lock.Unlock()
			return State{}, err
		}

		desired := intent.Action.Activates()
		if current.Status == desired && current.LastCommand == intent.Action {
			// Another writer already moved the device here. Not an error.
			lock.Unlock()
			s.logger.Debug("redundant command ignored",
				"device_id", intent.DeviceID,
				"action", string(intent.Action))
			return current, nil
		}

		next = State{
			DeviceID:    current.DeviceID,
			DeviceType:  current.DeviceType,
			Status:      desired,
			LastCommand: intent.Action,
			ControlMode: intent.TriggeredBy,
			UpdatedAt:   time.Now().UTC(),
		}

		if s.store.CompareAndSet(intent.DeviceID, current, next) {
			applied = true
			break
		}
	}

	lock.Unlock()

	if !applied {
		s.recordHistory(ctx, intent, false)
		return State{}, fmt.Errorf("%w: device %s", ErrConflict, intent.DeviceID)
	}

	// Side effects run outside the device lock so a slow publish or write
	// cannot stall the next incoming intent for this device.
	published := s.publishCommand(ctx, next, intent)
	s.recordHistory(ctx, intent, published)
	s.persistLatest(ctx, next)
	if s.broadcast != nil {
		s.broadcast.BroadcastStateUpdate(next)
	}
	if s.telemetry != nil {
		s.telemetry.WriteDeviceEvent(next.DeviceID, string(next.LastCommand),
			string(intent.TriggeredBy), published)
	}

	s.logger.Info("device state changed",
		"device_id", next.DeviceID,
		"action", string(intent.Action),
		"triggered_by", string(intent.TriggeredBy),
		"published", published)

	return next, nil
}

// publishCommand sends the outbound actuator command.
// Returns whether the publish succeeded; failures are logged and reported
// for alerting, not retried.
func (s *Synchronizer) publishCommand(ctx context.Context, next State, intent CommandIntent) bool {
	if s.actuator == nil {
		return false
	}
	if err := s.actuator.SendCommand(next.DeviceType, next.Status); err != nil {
		s.logger.Error("actuator publish failed",
			"device_id", intent.DeviceID,
			"action", string(intent.Action),
			"error", err)
		if s.failures != nil {
			s.failures.SystemError(ctx, fmt.Sprintf(
				"actuator command %s for device %s failed: %v",
				intent.Action, intent.DeviceID, err))
		}
		return false
	}
	return true
}

// recordHistory appends the audit record for a consumed intent.
// Persistence failure is logged and does not roll back the state change.
func (s *Synchronizer) recordHistory(ctx context.Context, intent CommandIntent, success bool) {
	if s.history == nil {
		return
	}

	triggeredBy := "user"
	if intent.TriggeredBy == ControlModeAuto {
		triggeredBy = intent.SourceSensor
	}

	entry := HistoryEntry{
		DeviceID:    intent.DeviceID,
		Action:      intent.Action,
		ControlType: intent.TriggeredBy,
		TriggeredBy: triggeredBy,
		SensorValue: intent.SensorValue,
		Success:     success,
	}
	if err := s.history.Record(ctx, entry); err != nil {
		s.logger.Error("device history write failed",
			"device_id", intent.DeviceID,
			"error", err)
	}
}

// persistLatest upserts the latest-state snapshot.
// Failure is logged; the in-memory store stays authoritative.
func (s *Synchronizer) persistLatest(ctx context.Context, state State) {
	if s.latest == nil {
		return
	}
	if err := s.latest.Upsert(ctx, state); err != nil {
		s.logger.Error("device state upsert failed",
			"device_id", state.DeviceID,
			"error", err)
	}
}
