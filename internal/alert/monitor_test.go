package alert

import (
	"context"
	"testing"
	"time"

	"github.com/verdantio/greenhouse-core/internal/sensor"
)

func setupMonitor(t *testing.T) (*Monitor, *mockNotifier) {
	t.Helper()
	dispatcher, notifier, _ := setupDispatcher(t, immediateConfig())
	return NewMonitor(DefaultRules(), dispatcher), notifier
}

// =============================================================================
// Monitor Tests
// =============================================================================

func TestMonitor_TemperatureBounds(t *testing.T) {
	tests := []struct {
		name         string
		value        float64
		wantAlert    bool
		wantSeverity Severity
	}{
		{"critically high", 41, true, SeverityCritical},
		{"high", 36, true, SeverityHigh},
		{"normal", 24, false, ""},
		{"low", 4, true, SeverityHigh},
		{"critically low", 1, true, SeverityCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			monitor, notifier := setupMonitor(t)
			monitor.HandleReading(context.Background(), sensor.Reading{
				SensorType: sensor.TypeTemperature,
				Value:      tt.value,
				ObservedAt: time.Now().UTC(),
			})

			if !tt.wantAlert {
				if notifier.count() != 0 {
					t.Errorf("in-range reading produced %d alerts", notifier.count())
				}
				return
			}
			if notifier.count() != 1 {
				t.Fatalf("notifications = %d, want 1", notifier.count())
			}
			if got := notifier.last(); got.Severity != tt.wantSeverity {
				t.Errorf("severity = %q, want %q", got.Severity, tt.wantSeverity)
			}
		})
	}
}

func TestMonitor_HumidityBounds(t *testing.T) {
	monitor, notifier := setupMonitor(t)
	ctx := context.Background()

	monitor.HandleReading(ctx, sensor.Reading{SensorType: sensor.TypeHumidity, Value: 95})
	if notifier.count() != 1 {
		t.Fatalf("high humidity notifications = %d, want 1", notifier.count())
	}

	monitor.HandleReading(ctx, sensor.Reading{SensorType: sensor.TypeHumidity, Value: 55})
	if notifier.count() != 1 {
		t.Errorf("normal humidity raised an alert")
	}
}

func TestMonitor_WaterLevelEmpty(t *testing.T) {
	monitor, notifier := setupMonitor(t)

	monitor.HandleReading(context.Background(), sensor.Reading{SensorType: sensor.TypeWaterLevel, Value: 0})
	if notifier.count() != 1 {
		t.Fatalf("notifications = %d, want 1", notifier.count())
	}
	got := notifier.last()
	if got.Severity != SeverityHigh || got.Categories[0] != CategoryWaterLevel {
		t.Errorf("notification = %+v, want high water_level", got)
	}
}

func TestMonitor_RainNeverAlerts(t *testing.T) {
	monitor, notifier := setupMonitor(t)
	ctx := context.Background()

	monitor.HandleReading(ctx, sensor.Reading{SensorType: sensor.TypeRain, Value: 1})
	monitor.HandleReading(ctx, sensor.Reading{SensorType: sensor.TypeRain, Value: 0})
	if notifier.count() != 0 {
		t.Errorf("rain readings produced %d alerts", notifier.count())
	}
}

func TestMonitor_SystemError(t *testing.T) {
	monitor, notifier := setupMonitor(t)

	monitor.SystemError(context.Background(), "mqtt broker connection lost")
	if notifier.count() != 1 {
		t.Fatalf("notifications = %d, want 1", notifier.count())
	}
	got := notifier.last()
	if got.Categories[0] != CategorySystemError || got.Severity != SeverityHigh {
		t.Errorf("notification = %+v, want high system_error", got)
	}
}
