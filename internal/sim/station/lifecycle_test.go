package station

import (
	"errors"
	"testing"

	"lavaforge.ai/internal/sim/sched"
)

type lifecycleFixture struct {
	lc    *Lifecycle
	world *fakeWorld
	sched *sched.Scheduler
	store *fakeStore
	audit *auditLog
}

func newLifecycle(t *testing.T, anchors ...Location) *lifecycleFixture {
	t.Helper()
	f := &lifecycleFixture{
		world: newFakeWorld(anchors...),
		sched: sched.New(0),
		store: &fakeStore{records: map[Location]*Station{}},
		audit: &auditLog{},
	}
	f.lc = NewLifecycle(LifecycleConfig{
		Layout:    testLayout(t),
		Registry:  NewRegistry(),
		World:     f.world,
		Scheduler: f.sched,
		Store:     f.store,
		Audit:     f.audit,
	})
	return f
}

func (f *lifecycleFixture) open(loc Location) Result {
	return f.lc.Dispatch(Event{Kind: EventOpen, Loc: loc, Viewer: "p1"})
}

func (f *lifecycleFixture) click(loc Location, slot int) Result {
	return f.lc.Dispatch(Event{Kind: EventClick, Loc: loc, Slot: slot, Clicker: loc.Point()})
}

func TestOpenCreatesFreshStation(t *testing.T) {
	f := newLifecycle(t, here)

	res := f.open(here)
	if !res.Handled || !res.Cancel || res.Station == nil {
		t.Fatalf("res=%+v", res)
	}
	st := res.Station
	if f.lc.Registry().Get(here) != st {
		t.Fatalf("station not registered")
	}
	if st.Dirty() || st.Running() {
		t.Fatalf("fresh station dirty=%v running=%v", st.Dirty(), st.Running())
	}
	for _, i := range GUISlots {
		if !st.Slot(i).Empty() {
			t.Fatalf("GUI slot %d not empty", i)
		}
	}
	if !st.Slot(SlotButton).Is("BLAZE_POWDER") {
		t.Fatalf("button slot=%+v", st.Slot(SlotButton))
	}
	if len(f.world.opened) != 1 {
		t.Fatalf("container not shown")
	}

	// Second open returns the same live instance without touching the store.
	f.store.records[here] = stocked(f.lc.Layout(), here)
	if again := f.open(here); again.Station != st {
		t.Fatalf("second open built a new station")
	}
	if got := f.audit.kinds(); len(got) != 1 || got[0] != AuditCreated {
		t.Fatalf("audit=%v", got)
	}
}

func TestOpenRestoresPersisted(t *testing.T) {
	f := newLifecycle(t, here)
	saved := stocked(f.lc.Layout(), here)
	saved.MarkDirty()
	f.store.records[here] = saved

	res := f.open(here)
	if res.Station != saved {
		t.Fatalf("restored station not used")
	}
	if res.Station.Dirty() {
		t.Fatalf("restored station must start clean")
	}
	if got := f.audit.kinds(); got[0] != AuditRestored {
		t.Fatalf("audit=%v", got)
	}
}

func TestOpenStoreErrorFallsBackToFresh(t *testing.T) {
	f := newLifecycle(t, here)
	f.store.err = errors.New("disk gone")

	res := f.open(here)
	if res.Station == nil || !res.Station.Slot(SlotFuel).Empty() {
		t.Fatalf("expected a fresh station, got %+v", res)
	}
}

func TestOpenIgnoresNonAnchor(t *testing.T) {
	f := newLifecycle(t)
	if res := f.open(here); res.Handled || res.Cancel {
		t.Fatalf("res=%+v", res)
	}
	if f.lc.Registry().Len() != 0 {
		t.Fatalf("station created on a non-anchor block")
	}
}

func TestClickRouting(t *testing.T) {
	f := newLifecycle(t, here)
	st := f.open(here).Station

	res := f.click(here, 0)
	if !res.Cancel || st.Dirty() {
		t.Fatalf("decorative click: cancel=%v dirty=%v", res.Cancel, st.Dirty())
	}

	res = f.click(here, SlotFuel)
	if res.Cancel || !st.Dirty() {
		t.Fatalf("fuel click: cancel=%v dirty=%v", res.Cancel, st.Dirty())
	}

	st.ClearDirty()
	res = f.click(here, ContainerSize+5) // player inventory
	if res.Cancel || !st.Dirty() {
		t.Fatalf("inventory click: cancel=%v dirty=%v", res.Cancel, st.Dirty())
	}

	if res := f.click(Location{World: "world"}, SlotFuel); res.Handled {
		t.Fatalf("click on unknown station handled")
	}
}

func TestStartButtonRejectedWhenIneligible(t *testing.T) {
	f := newLifecycle(t, here)
	st := f.open(here).Station

	res := f.click(here, SlotButton)
	if !res.Cancel {
		t.Fatalf("button click must be cancelled")
	}
	if !st.Dirty() {
		t.Fatalf("button click counts as a modification")
	}
	if st.Running() || f.sched.Pending() != 0 {
		t.Fatalf("ineligible start changed state")
	}
	if f.world.lastSound() != SoundBurnout {
		t.Fatalf("sound=%s want burnout", f.world.lastSound())
	}
	if got := f.audit.kinds(); got[len(got)-1] != AuditRejected {
		t.Fatalf("audit=%v", got)
	}
}

func TestStartButtonDebitsFuelAndLocks(t *testing.T) {
	f := newLifecycle(t, here)
	st := f.open(here).Station
	for _, i := range GUISlots {
		st.SetSlot(i, stocked(f.lc.Layout(), here).Slot(i))
	}

	f.click(here, SlotButton)
	checkInvariant(t, st)
	if !st.Running() || !st.Slot(SlotFuel).Empty() {
		t.Fatalf("running=%v fuel=%+v", st.Running(), st.Slot(SlotFuel))
	}
	if f.world.lastSound() != SoundCrackle {
		t.Fatalf("sound=%s", f.world.lastSound())
	}

	// Every click is refused while running, including GUI slots and the button.
	for _, slot := range []int{SlotFuel, SlotOutput, MaterialSlots[0], SlotButton, ContainerSize + 1} {
		if res := f.click(here, slot); !res.Cancel {
			t.Fatalf("click on %d accepted while running", slot)
		}
	}
	checkInvariant(t, st)

	advance(f.sched, int(f.lc.Layout().CompletionDelay)+1)
	checkInvariant(t, st)
	if st.Running() || !st.Slot(SlotOutput).Is("LAVA_BUCKET") {
		t.Fatalf("run did not complete: running=%v output=%+v", st.Running(), st.Slot(SlotOutput))
	}
}

func TestSpreadSuppressedBelowStation(t *testing.T) {
	f := newLifecycle(t, here)
	f.open(here)

	if res := f.lc.Dispatch(Event{Kind: EventSpread, Loc: here.Down()}); !res.Cancel {
		t.Fatalf("spread from heat source not suppressed")
	}
	other := Location{World: "world", X: 9, Y: 63, Z: 9}
	if res := f.lc.Dispatch(Event{Kind: EventSpread, Loc: other}); res.Cancel {
		t.Fatalf("unrelated spread suppressed")
	}
}

func TestBreakWhileRunningDropsGUISlots(t *testing.T) {
	f := newLifecycle(t, here)
	st := f.open(here).Station
	src := stocked(f.lc.Layout(), here)
	src.SetSlot(SlotFuel, Of("COAL_BLOCK", 30))
	for _, i := range GUISlots {
		st.SetSlot(i, src.Slot(i))
	}
	f.click(here, SlotButton)
	if !st.Running() {
		t.Fatalf("not running")
	}
	f.store.records[here] = st

	res := f.lc.Dispatch(Event{Kind: EventBreak, Loc: here})
	if !res.Handled {
		t.Fatalf("break not handled")
	}
	if f.lc.Registry().Contains(here) {
		t.Fatalf("registry entry survived break")
	}
	if f.world.burning[here] {
		t.Fatalf("anchor still burning after break")
	}
	if len(f.store.deleted) != 1 || f.store.deleted[0] != here {
		t.Fatalf("persisted record not deleted: %v", f.store.deleted)
	}
	want := []Stack{Of("COBBLESTONE", 200), Of("GRANITE", 50), Of("COAL_BLOCK", 20), Of("BUCKET", 1)}
	if len(f.world.dropped) != len(want) {
		t.Fatalf("dropped=%+v", f.world.dropped)
	}
	for i := range want {
		if !f.world.dropped[i].Equal(want[i]) {
			t.Fatalf("drop %d=%+v want %+v", i, f.world.dropped[i], want[i])
		}
	}

	// The pending completion fires against a station that no longer exists.
	f.world.dropped = nil
	advance(f.sched, int(f.lc.Layout().CompletionDelay)+1)
	if len(f.world.dropped) != 0 {
		t.Fatalf("orphaned completion dropped items")
	}

	// A new station at the same spot starts from scratch.
	if again := f.open(here); again.Station == st || again.Station.Running() {
		t.Fatalf("reopen after break reused the broken station")
	}
}

func TestUnknownEventKind(t *testing.T) {
	f := newLifecycle(t, here)
	if res := f.lc.Dispatch(Event{Kind: EventKind(99)}); res.Handled {
		t.Fatalf("unknown kind handled")
	}
}
