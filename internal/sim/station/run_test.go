package station

import (
	"testing"

	"lavaforge.ai/internal/sim/sched"
)

func newTestRuns(t *testing.T, st *Station) (*RunScheduler, *fakeWorld, *sched.Scheduler, *Registry, *auditLog) {
	t.Helper()
	l := testLayout(t)
	w := newFakeWorld(st.Loc())
	s := sched.New(1000)
	reg := NewRegistry()
	reg.Put(st)
	var audit auditLog
	return NewRunScheduler(l, reg, w, s, &audit, nil), w, s, reg, &audit
}

func TestRunFullCycle(t *testing.T) {
	l := testLayout(t)
	st := stocked(l, here)
	runs, w, s, _, audit := newTestRuns(t, st)

	if !runs.Start(st, here.Point()) {
		t.Fatalf("Start refused a stocked station")
	}
	checkInvariant(t, st)
	if st.Status() != Running {
		t.Fatalf("status=%s want RUNNING", st.Status())
	}
	if !st.Slot(SlotFuel).Empty() {
		t.Fatalf("fuel not debited: %+v", st.Slot(SlotFuel))
	}
	if !st.Dirty() {
		t.Fatalf("start must mark the station dirty")
	}
	if !w.burning[here] {
		t.Fatalf("anchor not burning")
	}
	if st.Run() == nil || st.Run().CompletesTick != 1000+1201 {
		t.Fatalf("run=%+v", st.Run())
	}

	// Everything up to and including tick 1000+1200 is effects only.
	advance(s, 1201)
	checkInvariant(t, st)
	if st.Status() != Running {
		t.Fatalf("completed early")
	}
	if got := w.effects[EffectFlame]; got != 121*20 {
		t.Fatalf("flame particles=%d want %d", got, 121*20)
	}
	if got := w.effects[EffectLava]; got != 121 {
		t.Fatalf("lava particles=%d want 121", got)
	}
	if l.MaterialCount(st) != 250 {
		t.Fatalf("material consumed before completion")
	}

	st.ClearDirty()
	advance(s, 1)
	checkInvariant(t, st)
	if st.Status() != Idle {
		t.Fatalf("status=%s want IDLE after completion", st.Status())
	}
	if l.MaterialCount(st) != 0 {
		t.Fatalf("material left: %d", l.MaterialCount(st))
	}
	if !st.Slot(SlotOutput).Equal(Of("LAVA_BUCKET", 1)) {
		t.Fatalf("output=%+v", st.Slot(SlotOutput))
	}
	if !st.Slot(SlotLock).Equal(IdleLock()) {
		t.Fatalf("lock slot=%+v", st.Slot(SlotLock))
	}
	if w.burning[here] {
		t.Fatalf("anchor still burning")
	}
	if !st.Dirty() || st.Run() != nil {
		t.Fatalf("dirty=%v run=%+v", st.Dirty(), st.Run())
	}
	if w.lastSound() != SoundBurn {
		t.Fatalf("last sound=%s", w.lastSound())
	}
	if s.Pending() != 0 {
		t.Fatalf("pending tasks=%d", s.Pending())
	}
	kinds := audit.kinds()
	if len(kinds) != 2 || kinds[0] != AuditRunStarted || kinds[1] != AuditRunCompleted {
		t.Fatalf("audit=%v", kinds)
	}
}

func TestRunCannotRelock(t *testing.T) {
	l := testLayout(t)
	st := stocked(l, here)
	st.SetSlot(SlotFuel, Of("COAL_BLOCK", 64))
	runs, _, s, _, _ := newTestRuns(t, st)

	if !runs.Start(st, here.Point()) {
		t.Fatalf("first start refused")
	}
	pending := s.Pending()
	if runs.Start(st, here.Point()) {
		t.Fatalf("second start accepted while running")
	}
	if got := st.Slot(SlotFuel).Count; got != 54 {
		t.Fatalf("fuel=%d want 54 (debited once)", got)
	}
	if s.Pending() != pending {
		t.Fatalf("second start scheduled tasks")
	}
}

func TestRunRefusesIneligible(t *testing.T) {
	l := testLayout(t)
	st := stocked(l, here)
	st.SetSlot(SlotOutput, Stack{})
	runs, w, s, _, _ := newTestRuns(t, st)

	if runs.Start(st, here.Point()) {
		t.Fatalf("start accepted without a container")
	}
	if st.Running() || s.Pending() != 0 || w.burning[here] || st.Dirty() {
		t.Fatalf("refused start had side effects")
	}
	if !st.Slot(SlotFuel).Equal(Of("COAL_BLOCK", 10)) {
		t.Fatalf("fuel touched: %+v", st.Slot(SlotFuel))
	}
}

func TestCompletionAfterBreakIsNoop(t *testing.T) {
	l := testLayout(t)
	st := stocked(l, here)
	runs, w, s, reg, audit := newTestRuns(t, st)

	if !runs.Start(st, here.Point()) {
		t.Fatalf("start refused")
	}
	reg.Remove(here)
	w.dropped = nil

	advance(s, int(l.CompletionDelay)+1)

	if l.MaterialCount(st) != 250 {
		t.Fatalf("orphaned completion consumed material")
	}
	if len(w.dropped) != 0 {
		t.Fatalf("orphaned completion dropped items: %+v", w.dropped)
	}
	if st.Slot(SlotOutput).Is("LAVA_BUCKET") {
		t.Fatalf("orphaned completion produced output")
	}
	kinds := audit.kinds()
	if kinds[len(kinds)-1] != AuditRunOrphaned {
		t.Fatalf("audit=%v", kinds)
	}
}

func TestCompletionAgainstReplacedStationIsNoop(t *testing.T) {
	l := testLayout(t)
	st := stocked(l, here)
	runs, _, s, reg, _ := newTestRuns(t, st)

	if !runs.Start(st, here.Point()) {
		t.Fatalf("start refused")
	}
	replacement := stocked(l, here)
	reg.Put(replacement)

	advance(s, int(l.CompletionDelay)+1)
	if l.MaterialCount(replacement) != 250 || replacement.Slot(SlotOutput).Is("LAVA_BUCKET") {
		t.Fatalf("completion applied to a different station instance")
	}
}

func TestCompletionAppliesToMutatedSlots(t *testing.T) {
	l := testLayout(t)
	st := stocked(l, here)
	runs, w, s, _, _ := newTestRuns(t, st)

	if !runs.Start(st, here.Point()) {
		t.Fatalf("start refused")
	}
	// External mutation while locked: more buckets, less stone.
	st.SetSlot(SlotOutput, Of("BUCKET", 4))
	st.SetSlot(MaterialSlots[0], Of("COBBLESTONE", 100))

	advance(s, int(l.CompletionDelay)+1)
	checkInvariant(t, st)
	if l.MaterialCount(st) != 0 {
		t.Fatalf("material left: %d", l.MaterialCount(st))
	}
	if len(w.dropped) != 1 || !w.dropped[0].Equal(Of("BUCKET", 3)) {
		t.Fatalf("dropped=%+v", w.dropped)
	}
}
