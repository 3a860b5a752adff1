package station

import "slices"

type Status int

const (
	Idle Status = iota
	Running
)

func (s Status) String() string {
	if s == Running {
		return "RUNNING"
	}
	return "IDLE"
}

// Run describes the active run of a station. It is informational: the lock slot is what decides
// whether a station is running.
type Run struct {
	ID            string
	StartedTick   uint64
	CompletesTick uint64
}

// Station is the live state of one forge. All methods must be called from the world loop.
type Station struct {
	loc   Location
	slots []Stack
	dirty bool
	run   *Run
}

func New(loc Location, slots []Stack) *Station {
	s := &Station{loc: loc, slots: make([]Stack, ContainerSize)}
	copy(s.slots, slots)
	return s
}

func (s *Station) Loc() Location { return s.loc }

func (s *Station) Slot(i int) Stack {
	if i < 0 || i >= len(s.slots) {
		return Stack{}
	}
	return s.slots[i]
}

// SetSlot replaces a slot. Out of range indices are ignored.
func (s *Station) SetSlot(i int, st Stack) {
	if i < 0 || i >= len(s.slots) {
		return
	}
	if st.Empty() {
		st = Stack{}
	}
	s.slots[i] = st
}

func (s *Station) Slots() []Stack { return slices.Clone(s.slots) }

// Status is Running iff the lock slot holds the in-progress marker.
func (s *Station) Status() Status {
	if s.Slot(SlotLock).Equal(LockMarker()) {
		return Running
	}
	return Idle
}

func (s *Station) Running() bool { return s.Status() == Running }

func (s *Station) Dirty() bool { return s.dirty }
func (s *Station) MarkDirty()  { s.dirty = true }
func (s *Station) ClearDirty() { s.dirty = false }

func (s *Station) Run() *Run { return s.run }
