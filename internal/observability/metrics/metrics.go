package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"lavaforge.ai/internal/sim/station"
)

const (
	metricPrefix = "lavaforge_"

	resultSuccess = "success"
	resultError   = "error"
)

// Metrics bundles the station collectors. It implements station.Auditor so it can sit next to
// the audit log in the same fan-out.
type Metrics struct {
	StationsLive   prometheus.Gauge
	RunsStarted    prometheus.Counter
	RunsCompleted  prometheus.Counter
	RunsOrphaned   prometheus.Counter
	StartRejected  prometheus.Counter
	BackupsTotal   *prometheus.CounterVec
	BackupDuration prometheus.Histogram
	BackupRecords  prometheus.Counter
}

// New constructs the collectors and registers them with reg (prometheus.DefaultRegisterer when nil).
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		StationsLive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "stations_live",
			Help: "Stations currently loaded in the registry",
		}),
		RunsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "runs_started_total",
			Help: "Total runs started",
		}),
		RunsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "runs_completed_total",
			Help: "Total runs completed",
		}),
		RunsOrphaned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "runs_orphaned_total",
			Help: "Total runs whose station was broken before completion",
		}),
		StartRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "start_rejected_total",
			Help: "Total start presses refused by validation",
		}),
		BackupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "backups_total",
				Help: "Total backup sweeps by result",
			},
			[]string{"result"},
		),
		BackupDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    metricPrefix + "backup_seconds",
			Help:    "Backup sweep duration in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		BackupRecords: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "backup_records_total",
			Help: "Total station records written by backup sweeps",
		}),
	}
	reg.MustRegister(
		m.StationsLive,
		m.RunsStarted,
		m.RunsCompleted,
		m.RunsOrphaned,
		m.StartRejected,
		m.BackupsTotal,
		m.BackupDuration,
		m.BackupRecords,
	)
	return m
}

func (m *Metrics) Audit(e station.AuditEntry) {
	switch e.Kind {
	case station.AuditRunStarted:
		m.RunsStarted.Inc()
	case station.AuditRunCompleted:
		m.RunsCompleted.Inc()
	case station.AuditRunOrphaned:
		m.RunsOrphaned.Inc()
	case station.AuditRejected:
		m.StartRejected.Inc()
	}
}

// ObserveBackup matches stationstore.Config.OnBackup.
func (m *Metrics) ObserveBackup(d time.Duration, written int, err error) {
	result := resultSuccess
	if err != nil {
		result = resultError
	}
	m.BackupsTotal.WithLabelValues(result).Inc()
	m.BackupDuration.Observe(d.Seconds())
	m.BackupRecords.Add(float64(written))
}

func (m *Metrics) SetStationsLive(n int) { m.StationsLive.Set(float64(n)) }
