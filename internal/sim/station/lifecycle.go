package station

import (
	"go.uber.org/zap"

	"lavaforge.ai/internal/sim/sched"
)

type EventKind int

const (
	EventOpen EventKind = iota + 1
	EventBreak
	EventSpread
	EventClick
)

func (k EventKind) String() string {
	switch k {
	case EventOpen:
		return "OPEN"
	case EventBreak:
		return "BREAK"
	case EventSpread:
		return "SPREAD"
	case EventClick:
		return "CLICK"
	}
	return "UNKNOWN"
}

// Event is a host event routed into the engine. Fields beyond Kind and Loc depend on the kind:
// Viewer for OPEN, Slot and Clicker for CLICK. For SPREAD, Loc is the spreading source block.
type Event struct {
	Kind    EventKind
	Loc     Location
	Viewer  string
	Slot    int
	Clicker Point
}

// Result tells the host what to do with the event. Cancel means the host must suppress its own
// default handling (its furnace UI, the spread, or the item move of a click).
type Result struct {
	Handled bool
	Cancel  bool
	Station *Station
}

type LifecycleConfig struct {
	Layout    *Layout
	Registry  *Registry
	World     World
	Scheduler *sched.Scheduler
	Store     Restorer
	Audit     Auditor
	Logger    *zap.Logger
}

// Lifecycle routes host events to the registry, validator, run scheduler and store.
type Lifecycle struct {
	layout *Layout
	reg    *Registry
	world  World
	sched  *sched.Scheduler
	store  Restorer
	audit  Auditor
	log    *zap.Logger
	runs   *RunScheduler

	handlers map[EventKind]func(Event) Result
}

func NewLifecycle(cfg LifecycleConfig) *Lifecycle {
	if cfg.Audit == nil {
		cfg.Audit = nopAuditor{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	l := &Lifecycle{
		layout: cfg.Layout,
		reg:    cfg.Registry,
		world:  cfg.World,
		sched:  cfg.Scheduler,
		store:  cfg.Store,
		audit:  cfg.Audit,
		log:    cfg.Logger,
	}
	l.runs = NewRunScheduler(cfg.Layout, cfg.Registry, cfg.World, cfg.Scheduler, cfg.Audit, cfg.Logger)
	l.handlers = map[EventKind]func(Event) Result{
		EventOpen:   l.onOpen,
		EventBreak:  l.onBreak,
		EventSpread: l.onSpread,
		EventClick:  l.onClick,
	}
	return l
}

func (l *Lifecycle) Registry() *Registry { return l.reg }

func (l *Lifecycle) Layout() *Layout { return l.layout }

func (l *Lifecycle) Dispatch(ev Event) Result {
	h, ok := l.handlers[ev.Kind]
	if !ok {
		return Result{}
	}
	return h(ev)
}

func (l *Lifecycle) onOpen(ev Event) Result {
	if !l.world.IsAnchor(ev.Loc) {
		return Result{}
	}
	st := l.reg.Get(ev.Loc)
	if st == nil {
		st = l.materialize(ev.Loc)
		l.reg.Put(st)
	}
	l.world.OpenContainer(ev.Viewer, st)
	return Result{Handled: true, Cancel: true, Station: st}
}

// materialize rehydrates a station from the store, or builds a fresh one on a miss. A failing
// store is treated like a miss so the player still gets a working station.
func (l *Lifecycle) materialize(loc Location) *Station {
	key := loc.String()
	if l.store != nil {
		st, found, err := l.store.Restore(loc)
		switch {
		case err != nil:
			l.log.Warn("restore station", zap.String("station", key), zap.Error(err))
		case found:
			st.ClearDirty()
			l.audit.Audit(AuditEntry{Tick: l.sched.Now(), Kind: AuditRestored, Station: key})
			return st
		}
	}
	st := l.layout.NewStation(loc)
	l.audit.Audit(AuditEntry{Tick: l.sched.Now(), Kind: AuditCreated, Station: key})
	return st
}

func (l *Lifecycle) onBreak(ev Event) Result {
	st := l.reg.Get(ev.Loc)
	if st == nil {
		return Result{}
	}
	for _, i := range GUISlots {
		if s := st.Slot(i); !s.Empty() {
			l.world.DropItem(ev.Loc, s)
		}
	}
	l.reg.Remove(ev.Loc)
	if st.Running() {
		l.world.SetAnchorBurning(ev.Loc, false)
	}
	if l.store != nil {
		if err := l.store.Delete(ev.Loc); err != nil {
			l.log.Warn("delete station record", zap.String("station", ev.Loc.String()), zap.Error(err))
		}
	}
	l.audit.Audit(AuditEntry{Tick: l.sched.Now(), Kind: AuditBroken, Station: ev.Loc.String(), Reason: st.Status().String()})
	return Result{Handled: true, Station: st}
}

// onSpread keeps fire from spreading out of (or burning away) the heat source under a station.
func (l *Lifecycle) onSpread(ev Event) Result {
	if l.reg.Contains(ev.Loc.Up()) {
		return Result{Handled: true, Cancel: true}
	}
	return Result{}
}

func (l *Lifecycle) onClick(ev Event) Result {
	st := l.reg.Get(ev.Loc)
	if st == nil {
		return Result{}
	}

	cancel := false
	if ev.Slot >= 0 && ev.Slot < ContainerSize && !IsGUISlot(ev.Slot) {
		cancel = true
	}
	if st.Running() {
		cancel = true
	}

	// The start button never moves items, but pressing it consumes fuel.
	modifies := !cancel || ev.Slot == SlotButton
	if modifies {
		st.MarkDirty()
	}

	if ev.Slot == SlotButton {
		if !l.runs.Start(st, ev.Clicker) {
			l.world.PlaySound(ev.Clicker, SoundBurnout, 1, 1)
			l.audit.Audit(AuditEntry{Tick: l.sched.Now(), Kind: AuditRejected, Station: ev.Loc.String(), Reason: st.Status().String()})
		}
	}
	return Result{Handled: true, Cancel: cancel, Station: st}
}
