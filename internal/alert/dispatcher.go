package alert

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Logger defines the logging interface used by the Dispatcher.
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

// Notifier delivers finished notifications to the outside world
// (email, webhook, or just the log).
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// CooldownGate is the per-key atomic check-and-set shared with the
// automation engine. Implemented by automation.Gate.
type CooldownGate interface {
	TryAcquire(key string, window time.Duration, now time.Time) bool
}

// Outcome describes what the dispatcher did with one candidate.
type Outcome string

// Outcome constants.
const (
	// OutcomeSent: delivered immediately to the notifier.
	OutcomeSent Outcome = "sent"

	// OutcomeQueued: buffered into the current batch window.
	OutcomeQueued Outcome = "queued"

	// OutcomeDropped: the category is cooling; the candidate is discarded,
	// not queued.
	OutcomeDropped Outcome = "dropped"

	// OutcomeRejected: the candidate failed validation.
	OutcomeRejected Outcome = "rejected"
)

// Dispatcher deduplicates and batches alerts before handing them to the
// notifier.
//
// Per category the state machine is Armed → Cooling → Armed: the first
// candidate in an armed category starts that category's cooldown window
// and is sent or queued; further candidates in the same category are
// dropped until the window lapses. On top of the cooldown, batching
// collapses a window's worth of candidates into one notification with
// per-severity counts — the defence against alert storms during a
// sustained breach.
//
// Critical candidates bypass the batch (but not the cooldown) so a
// genuinely urgent condition is never delayed by the batch window.
//
// All public methods are thread-safe.
type Dispatcher struct {
	mu        sync.Mutex
	pending   []Candidate
	batch     bool
	frequency time.Duration

	// batchStart is when the oldest pending candidate was queued; the
	// batch window is measured from here, not from the last flush, so a
	// candidate always waits a full window before delivery.
	batchStart time.Time

	cooldowns map[Category]time.Duration
	gate      CooldownGate
	notifier  Notifier
	logger    Logger

	// onAlert fires for every delivered notification (alert:new).
	onAlert func(Notification)

	// onPriority fires for critical immediate deliveries (alert:priority).
	onPriority func(Notification)

	// now is injected for tests.
	now func() time.Time
}

// Config bundles dispatcher construction parameters.
type Config struct {
	// Batch enables the rolling batch window; false sends every candidate
	// immediately.
	Batch bool

	// Frequency is the batch flush interval.
	Frequency time.Duration

	// Cooldowns holds the per-category suppression window.
	Cooldowns map[Category]time.Duration
}

// NewDispatcher creates an alert dispatcher.
//
// Parameters:
//   - cfg: Batching and cooldown configuration
//   - gate: Shared cooldown gate (one per process, shared with actuation)
//   - notifier: Delivery backend
//
// Returns:
//   - *Dispatcher: Ready for use; attach optional callbacks with setters
func NewDispatcher(cfg Config, gate CooldownGate, notifier Notifier) *Dispatcher {
	return &Dispatcher{
		batch:     cfg.Batch,
		frequency: cfg.Frequency,
		cooldowns: cfg.Cooldowns,
		gate:      gate,
		notifier:  notifier,
		logger:    noopLogger{},
		now:       time.Now,
	}
}

// SetLogger sets the logger for the dispatcher.
func (d *Dispatcher) SetLogger(logger Logger) {
	d.logger = logger
}

// OnAlert registers a callback fired for every delivered notification.
func (d *Dispatcher) OnAlert(fn func(Notification)) {
	d.onAlert = fn
}

// OnPriority registers a callback fired for critical immediate deliveries.
func (d *Dispatcher) OnPriority(fn func(Notification)) {
	d.onPriority = fn
}

// Submit offers a candidate to the pipeline.
//
// Parameters:
//   - ctx: Context for an immediate delivery
//   - candidate: The alert-worthy observation
//
// Returns:
//   - Outcome: sent, queued, dropped (cooling) or rejected (invalid)
func (d *Dispatcher) Submit(ctx context.Context, candidate Candidate) Outcome {
	if err := candidate.Validate(); err != nil {
		d.logger.Warn("rejected alert candidate", "error", err)
		return OutcomeRejected
	}
	if candidate.OccurredAt.IsZero() {
		candidate.OccurredAt = d.now().UTC()
	}

	window := d.cooldowns[candidate.Category]
	key := "alert:" + string(candidate.Category)
	if !d.gate.TryAcquire(key, window, d.now()) {
		d.logger.Debug("alert dropped while cooling",
			"category", string(candidate.Category),
			"severity", string(candidate.Severity))
		return OutcomeDropped
	}

	d.mu.Lock()
	batching := d.batch
	d.mu.Unlock()

	// Critical conditions skip the batch so they are never delayed.
	if batching && candidate.Severity != SeverityCritical {
		d.mu.Lock()
		if len(d.pending) == 0 {
			d.batchStart = d.now()
		}
		d.pending = append(d.pending, candidate)
		queued := len(d.pending)
		d.mu.Unlock()

		d.logger.Debug("alert queued for batch",
			"category", string(candidate.Category),
			"queued", queued)
		return OutcomeQueued
	}

	notification := d.single(candidate)
	d.deliver(ctx, notification, candidate.Severity == SeverityCritical)
	return OutcomeSent
}

// Flush merges all pending candidates into one notification and sends it.
//
// Returns:
//   - int: How many candidates were flushed (0 when the batch was empty)
func (d *Dispatcher) Flush(ctx context.Context) int {
	d.mu.Lock()
	pending := d.pending
	d.pending = nil
	d.batchStart = time.Time{}
	d.mu.Unlock()

	if len(pending) == 0 {
		return 0
	}

	notification := d.merge(pending)
	d.deliver(ctx, notification, false)
	return len(pending)
}

// MaybeFlush flushes the batch when the oldest pending candidate has
// waited a full frequency window. Called by the once-a-minute background
// sweep.
func (d *Dispatcher) MaybeFlush(ctx context.Context) {
	d.mu.Lock()
	due := d.batch && len(d.pending) > 0 && d.now().Sub(d.batchStart) >= d.frequency
	d.mu.Unlock()

	if due {
		d.Flush(ctx)
	}
}

// SetBatching toggles batch mode at runtime.
//
// Switching from batched to immediate flushes the pending batch first so
// queued candidates are not stranded.
func (d *Dispatcher) SetBatching(ctx context.Context, enabled bool) {
	d.mu.Lock()
	wasBatching := d.batch
	d.batch = enabled
	d.mu.Unlock()

	if wasBatching && !enabled {
		d.Flush(ctx)
	}
}

// Pending returns the current batch depth.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// single builds a notification from one candidate.
func (d *Dispatcher) single(candidate Candidate) Notification {
	return Notification{
		ID:       uuid.NewString(),
		Subject:  fmt.Sprintf("Greenhouse alert: %s", candidate.Category),
		Message:  candidate.Message,
		Severity: candidate.Severity,
		Count:    1,
		SeverityCounts: map[Severity]int{
			candidate.Severity: 1,
		},
		Categories: []Category{candidate.Category},
		CreatedAt:  d.now().UTC(),
	}
}

// merge collapses a batch into one notification with per-severity counts.
func (d *Dispatcher) merge(candidates []Candidate) Notification {
	counts := make(map[Severity]int)
	categorySeen := make(map[Category]bool)
	var categories []Category
	highest := SeverityLow

	for _, candidate := range candidates {
		counts[candidate.Severity]++
		if !categorySeen[candidate.Category] {
			categorySeen[candidate.Category] = true
			categories = append(categories, candidate.Category)
		}
		if candidate.Severity.MoreUrgent(highest) {
			highest = candidate.Severity
		}
	}

	var parts []string
	for _, severity := range AllSeverities() {
		if counts[severity] > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", counts[severity], severity))
		}
	}

	return Notification{
		ID:             uuid.NewString(),
		Subject:        fmt.Sprintf("Greenhouse alert digest: %d alerts", len(candidates)),
		Message:        fmt.Sprintf("%d alerts in the last batch window (%s)", len(candidates), strings.Join(parts, ", ")),
		Severity:       highest,
		Count:          len(candidates),
		SeverityCounts: counts,
		Categories:     categories,
		CreatedAt:      d.now().UTC(),
	}
}

// deliver hands a notification to the notifier and fires callbacks.
// Delivery failure is logged, never propagated.
func (d *Dispatcher) deliver(ctx context.Context, notification Notification, priority bool) {
	if err := d.notifier.Notify(ctx, notification); err != nil {
		d.logger.Error("notification delivery failed",
			"id", notification.ID,
			"severity", string(notification.Severity),
			"error", err)
	} else {
		d.logger.Info("notification delivered",
			"id", notification.ID,
			"severity", string(notification.Severity),
			"count", notification.Count)
	}

	if d.onAlert != nil {
		d.onAlert(notification)
	}
	if priority && d.onPriority != nil {
		d.onPriority(notification)
	}
}
