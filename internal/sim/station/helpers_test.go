package station

import (
	"path/filepath"
	"testing"

	"lavaforge.ai/internal/sim/catalogs"
	"lavaforge.ai/internal/sim/sched"
	"lavaforge.ai/internal/sim/tuning"
)

func testLayout(t *testing.T) *Layout {
	t.Helper()
	cat, err := catalogs.Load(filepath.Join("..", "..", "..", "configs"))
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	return NewLayout(cat, tuning.Defaults())
}

type sound struct {
	At   Point
	Kind string
}

type fakeWorld struct {
	anchors map[Location]bool
	burning map[Location]bool
	dropped []Stack
	effects map[string]int
	sounds  []sound
	opened  []string
}

func newFakeWorld(anchors ...Location) *fakeWorld {
	w := &fakeWorld{
		anchors: map[Location]bool{},
		burning: map[Location]bool{},
		effects: map[string]int{},
	}
	for _, a := range anchors {
		w.anchors[a] = true
	}
	return w
}

func (w *fakeWorld) IsAnchor(loc Location) bool { return w.anchors[loc] }
func (w *fakeWorld) OpenContainer(viewer string, st *Station) {
	w.opened = append(w.opened, viewer)
}
func (w *fakeWorld) DropItem(loc Location, s Stack) { w.dropped = append(w.dropped, s) }
func (w *fakeWorld) SetAnchorBurning(loc Location, burning bool) {
	w.burning[loc] = burning
}
func (w *fakeWorld) SpawnEffect(p Point, kind string, count int) { w.effects[kind] += count }
func (w *fakeWorld) PlaySound(p Point, kind string, volume, pitch float64) {
	w.sounds = append(w.sounds, sound{At: p, Kind: kind})
}

func (w *fakeWorld) lastSound() string {
	if len(w.sounds) == 0 {
		return ""
	}
	return w.sounds[len(w.sounds)-1].Kind
}

type fakeStore struct {
	records map[Location]*Station
	deleted []Location
	err     error
}

func (s *fakeStore) Restore(loc Location) (*Station, bool, error) {
	if s.err != nil {
		return nil, false, s.err
	}
	st, ok := s.records[loc]
	return st, ok, nil
}

func (s *fakeStore) Delete(loc Location) error {
	s.deleted = append(s.deleted, loc)
	delete(s.records, loc)
	return nil
}

type auditLog []AuditEntry

func (a *auditLog) Audit(e AuditEntry) { *a = append(*a, e) }

func (a auditLog) kinds() []string {
	out := make([]string, 0, len(a))
	for _, e := range a {
		out = append(out, e.Kind)
	}
	return out
}

// stocked returns a station loaded for one run: 10 fuel, 200+50 stone, one bucket.
func stocked(l *Layout, loc Location) *Station {
	st := l.NewStation(loc)
	st.SetSlot(SlotFuel, Of("COAL_BLOCK", 10))
	st.SetSlot(MaterialSlots[0], Of("COBBLESTONE", 200))
	st.SetSlot(MaterialSlots[1], Of("GRANITE", 50))
	st.SetSlot(SlotOutput, Of("BUCKET", 1))
	return st
}

func advance(s *sched.Scheduler, ticks int) {
	for i := 0; i < ticks; i++ {
		s.Advance()
	}
}

func checkInvariant(t *testing.T, st *Station) {
	t.Helper()
	locked := st.Slot(SlotLock).Equal(LockMarker())
	if (st.Status() == Running) != locked {
		t.Fatalf("status=%s but lock slot=%+v", st.Status(), st.Slot(SlotLock))
	}
}
