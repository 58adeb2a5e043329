package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	recordPersistGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "attendance_service",
		Subsystem: "persistence",
		Name:      "last_record_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent attendance record persisted to Postgres.",
	})

	clockEventCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "attendance_service",
		Subsystem: "engine",
		Name:      "clock_events_total",
		Help:      "Number of accepted clock events by kind.",
	}, []string{"kind"})

	rejectedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "attendance_service",
		Subsystem: "engine",
		Name:      "rejected_commands_total",
		Help:      "Number of commands rejected by the engine, labeled by reason.",
	}, []string{"reason"})
)

func init() {
	prometheus.MustRegister(recordPersistGauge, clockEventCounter, rejectedCounter)
}

// RecordAttendancePersisted updates the persistence watermark gauge.
func RecordAttendancePersisted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	recordPersistGauge.Set(float64(ts.Unix()))
}

// RecordClockEvent counts an accepted clock-in or clock-out.
func RecordClockEvent(kind string) {
	clockEventCounter.WithLabelValues(kind).Inc()
}

// RecordRejection counts a command the engine refused.
func RecordRejection(reason string) {
	rejectedCounter.WithLabelValues(reason).Inc()
}
