package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"lavaforge.ai/internal/sim/station"
)

func TestAuditCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())
	a := station.Auditors(m)
	for _, k := range []string{
		station.AuditRunStarted, station.AuditRunStarted, station.AuditRunCompleted,
		station.AuditRejected, station.AuditRunOrphaned, station.AuditCreated,
	} {
		a.Audit(station.AuditEntry{Kind: k})
	}
	cases := []struct {
		name string
		c    prometheus.Collector
		want float64
	}{
		{"started", m.RunsStarted, 2},
		{"completed", m.RunsCompleted, 1},
		{"rejected", m.StartRejected, 1},
		{"orphaned", m.RunsOrphaned, 1},
	}
	for _, tc := range cases {
		if got := testutil.ToFloat64(tc.c); got != tc.want {
			t.Fatalf("%s=%v want %v", tc.name, got, tc.want)
		}
	}
}

func TestObserveBackup(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.ObserveBackup(20*time.Millisecond, 3, nil)
	m.ObserveBackup(5*time.Millisecond, 0, errors.New("disk full"))
	m.SetStationsLive(7)

	if got := testutil.ToFloat64(m.BackupsTotal.WithLabelValues(resultSuccess)); got != 1 {
		t.Fatalf("success=%v", got)
	}
	if got := testutil.ToFloat64(m.BackupsTotal.WithLabelValues(resultError)); got != 1 {
		t.Fatalf("error=%v", got)
	}
	if got := testutil.ToFloat64(m.BackupRecords); got != 3 {
		t.Fatalf("records=%v", got)
	}
	if got := testutil.ToFloat64(m.StationsLive); got != 7 {
		t.Fatalf("live=%v", got)
	}
	if n := testutil.CollectAndCount(m.BackupDuration); n != 1 {
		t.Fatalf("histogram series=%d", n)
	}
}
