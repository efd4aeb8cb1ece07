// Package automation turns the sensor reading stream into debounced,
// cooldown-gated device commands.
//
// # Architecture
//
//	sensor.Reading ──> Engine ──> Evaluate (pure thresholds)
//	                     │ ──────> OverrideStore (manual suppression)
//	                     │ ──────> device.Store  (redundancy check)
//	                     │ ──────> Gate          (cooldown check-and-set)
//	                     └───────> IntentApplier (device synchronizer)
//
// Evaluate is a pure function from (sensor type, value, settings) to a
// desired action; everything stateful — cooldowns, overrides, the global
// enable flag — lives in the Engine so the threshold logic stays trivially
// testable.
//
// # Oscillation Defence
//
// Temperature uses a hysteresis band: the window opens at OpenTemp, closes
// at CloseTemp, and readings inside the dead-band do nothing. On top of
// that, the cooldown Gate allows at most one command per device+sensor
// pair per window, and suppressed commands are skipped, never queued: the
// next reading after expiry corrects any missed action.
//
// # Manual Override
//
// A human command suppresses automation for that device for a configured
// window (5 minutes by default). Flags expire lazily plus a once-a-minute
// sweep; the engine never fights a human for control.
package automation
