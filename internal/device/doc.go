// Package device owns the authoritative device state and the apply path
// that mutates it.
//
// # Architecture
//
//	CommandIntent ──> Synchronizer ──> Store (compare-and-set)
//	                       │
//	                       ├──> Actuator   (MQTT "1"/"0", fire-and-forget)
//	                       ├──> History    (append-only audit, SQLite)
//	                       ├──> Latest     (per-device upsert, SQLite)
//	                       └──> Broadcaster (WebSocket fan-out)
//
// The Store is the single source of truth for current device state; every
// reader and writer goes through it. Writers never read-modify-write: the
// compare-and-set primitive forces each writer to declare the state it
// believes is current, so concurrent intents resolve to exactly one winner.
//
// # Device Model
//
// Four actuator types exist: light and pump (on/off) plus door and window
// (open/close). An action outside the type's legal pair is rejected with
// ErrIllegalAction before any state is touched.
//
// # Consistency Tradeoff
//
// Side effects never roll back a state change. A failed audit write or
// MQTT publish leaves the in-memory state authoritative and is corrected
// by the next reconciliation (sensor tick or client reconnect snapshot).
// This deliberately prefers availability over strict consistency.
package device
