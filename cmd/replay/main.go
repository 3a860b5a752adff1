package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	persistlog "lavaforge.ai/internal/persistence/log"
	"lavaforge.ai/internal/sim/station"
)

// replay walks a world's audit trail, prints it and checks that runs pair up: a station never
// starts a second run while one is open, and every completion or orphan closes a started run.
func main() {
	var (
		dataDir    = flag.String("data", "./data", "runtime data directory")
		worldID    = flag.String("world", "world", "world id")
		stationKey = flag.String("station", "", "only show entries for this station (optional)")
		fromTick   = flag.Uint64("from_tick", 0, "start at tick (inclusive, optional)")
		toTick     = flag.Uint64("to_tick", 0, "stop at tick (inclusive, optional)")
		quiet      = flag.Bool("quiet", false, "only print the summary")
	)
	flag.Parse()

	worldDir := filepath.Join(*dataDir, "worlds", *worldID)
	files, err := persistlog.ListAuditFiles(worldDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list audit files:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no audit files found in", filepath.Join(worldDir, "audit"))
		os.Exit(1)
	}

	out := io.Writer(os.Stdout)
	if *quiet {
		out = io.Discard
	}
	r := newReplayer(filter{Station: *stationKey, From: *fromTick, To: *toTick}, out)
	for _, path := range files {
		if err := persistlog.ReadAuditFile(path, r.apply); err != nil {
			fmt.Fprintln(os.Stderr, "replay:", err)
			os.Exit(1)
		}
	}
	s := r.summary()
	fmt.Printf("replay ok: entries=%d started=%d completed=%d orphaned=%d rejected=%d backups=%d failed_backups=%d open=%d\n",
		s.Entries, s.Started, s.Completed, s.Orphaned, s.Rejected, s.Backups, s.FailedBackups, len(s.Open))
	for _, k := range s.Open {
		fmt.Printf("  open run at %s\n", k)
	}
}

type filter struct {
	Station  string
	From, To uint64
}

func (f filter) match(e station.AuditEntry) bool {
	if e.Tick < f.From || (f.To != 0 && e.Tick > f.To) {
		return false
	}
	// Backup entries are world-wide and always pass the station filter.
	if f.Station != "" && e.Station != "" && e.Station != f.Station {
		return false
	}
	return true
}

type summary struct {
	Entries       int
	Started       int
	Completed     int
	Orphaned      int
	Rejected      int
	Backups       int
	FailedBackups int
	Open          []string
}

type replayer struct {
	f    filter
	out  io.Writer
	open map[string]string // station -> open run id
	s    summary
}

func newReplayer(f filter, out io.Writer) *replayer {
	return &replayer{f: f, out: out, open: map[string]string{}}
}

func (r *replayer) apply(e station.AuditEntry) error {
	if !r.f.match(e) {
		return nil
	}
	r.s.Entries++
	fmt.Fprintf(r.out, "%10d %-18s %s %s %s\n", e.Tick, e.Kind, e.Station, e.RunID, detail(e))

	switch e.Kind {
	case station.AuditRunStarted:
		if prev, ok := r.open[e.Station]; ok {
			return fmt.Errorf("tick %d: %s started run %s while %s is open", e.Tick, e.Station, e.RunID, prev)
		}
		r.open[e.Station] = e.RunID
		r.s.Started++
	case station.AuditRunCompleted, station.AuditRunOrphaned:
		if id, ok := r.open[e.Station]; ok && id != e.RunID {
			return fmt.Errorf("tick %d: %s closed run %s but %s is open", e.Tick, e.Station, e.RunID, id)
		}
		delete(r.open, e.Station)
		if e.Kind == station.AuditRunCompleted {
			r.s.Completed++
		} else {
			r.s.Orphaned++
		}
	case station.AuditRejected:
		r.s.Rejected++
	case station.AuditBackup:
		r.s.Backups++
	case station.AuditBackupFailed:
		r.s.FailedBackups++
	}
	return nil
}

func (r *replayer) summary() summary {
	s := r.s
	s.Open = s.Open[:0]
	for k := range r.open {
		s.Open = append(s.Open, k)
	}
	sort.Strings(s.Open)
	return s
}

func detail(e station.AuditEntry) string {
	switch {
	case e.Reason != "":
		return e.Reason
	case e.Count != 0:
		return fmt.Sprintf("count=%d", e.Count)
	}
	return ""
}
