// Package alert deduplicates, batches and delivers greenhouse alerts.
//
// # Architecture
//
//	sensor.Reading ──> Monitor ──> Dispatcher ──> Notifier
//	                                  │ ─────────> alert:new (WebSocket)
//	                                  └─────────> alert:priority (critical)
//
// The Monitor turns out-of-range readings into Candidates; the Dispatcher
// applies a per-category cooldown (shared gate with the automation engine)
// and an optional rolling batch window before handing finished
// notifications to the Notifier.
//
// # Storm Defence
//
// Two layers keep a sustained breach from flooding anyone. First, each
// category cools down after its first alert — later candidates in the same
// window are dropped, not queued. Second, batching collapses everything
// that survives the cooldowns into one digest per flush interval, with
// counts per severity instead of one message per reading. Critical
// candidates skip the batch (never the cooldown) so urgent conditions are
// not delayed.
package alert
