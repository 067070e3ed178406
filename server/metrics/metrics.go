package metrics

import (
	"sync"

	"github.com/Daskott/enablex/server/alert"
	"github.com/Daskott/enablex/server/medication"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	AlertsDispatched = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "enablex",
		Subsystem: "alert",
		Name:      "dispatched_total",
		Help:      "Total number of alerts fanned out to caregivers, labeled by reason.",
	}, []string{"reason"})

	HandoffsAttempted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "enablex",
		Subsystem: "alert",
		Name:      "handoffs_total",
		Help:      "Total number of per-contact alert handoffs attempted.",
	})

	HandoffFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "enablex",
		Subsystem: "alert",
		Name:      "handoff_failures_total",
		Help:      "Total number of per-contact alert handoffs that failed.",
	})

	AlertsWithoutLocation = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "enablex",
		Subsystem: "alert",
		Name:      "without_location_total",
		Help:      "Total number of alerts sent with the location unavailable.",
	})

	EmergencyEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "enablex",
		Subsystem: "alert",
		Name:      "events_total",
		Help:      "Total number of emergency events logged, labeled by kind.",
	}, []string{"kind"})

	FallPending = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "enablex",
		Subsystem: "alert",
		Name:      "fall_pending",
		Help:      "1 while a fall countdown is running.",
	})

	RemindersRaised = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "enablex",
		Subsystem: "medication",
		Name:      "reminders_total",
		Help:      "Total number of medication reminders raised.",
	})
)

// Register registers the metrics with the default Prometheus registry.
// Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			AlertsDispatched,
			HandoffsAttempted,
			HandoffFailures,
			AlertsWithoutLocation,
			EmergencyEvents,
			FallPending,
			RemindersRaised,
		)
	})
}

// Recorder turns workflow & reminder notifications into metrics
type Recorder struct{}

func (Recorder) Notify(update alert.Update) {
	if update.State == alert.FALL_PENDING {
		FallPending.Set(1)
	} else {
		FallPending.Set(0)
	}

	if update.Event != nil {
		EmergencyEvents.WithLabelValues(update.Event.Kind).Inc()
	}

	if result := update.Result; result != nil {
		AlertsDispatched.WithLabelValues(result.Reason).Inc()
		HandoffsAttempted.Add(float64(result.Attempted))
		HandoffFailures.Add(float64(result.Failed))
		if result.Location == nil {
			AlertsWithoutLocation.Inc()
		}
	}
}

func (Recorder) Remind(reminder *medication.Reminder) {
	if reminder != nil {
		RemindersRaised.Inc()
	}
}
