package station

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"lavaforge.ai/internal/sim/sched"
)

// RunScheduler drives a run: Idle -> Running on Start, Running -> Idle when the completion task
// fires run_ticks+epsilon later. Runs cannot be cancelled.
type RunScheduler struct {
	layout *Layout
	reg    *Registry
	world  World
	sched  *sched.Scheduler
	audit  Auditor
	log    *zap.Logger
}

func NewRunScheduler(layout *Layout, reg *Registry, w World, s *sched.Scheduler, audit Auditor, log *zap.Logger) *RunScheduler {
	if audit == nil {
		audit = nopAuditor{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RunScheduler{layout: layout, reg: reg, world: w, sched: s, audit: audit, log: log}
}

// Start locks st and schedules its effects and completion. It refuses stations that are already
// running or that do not pass CanStart.
func (r *RunScheduler) Start(st *Station, clicker Point) bool {
	if st.Running() || !r.layout.CanStart(st) {
		return false
	}
	now := r.sched.Now()
	run := &Run{
		ID:            uuid.NewString(),
		StartedTick:   now,
		CompletesTick: now + r.layout.CompletionDelay,
	}

	r.layout.ReduceFuel(st)
	st.SetSlot(SlotLock, LockMarker())
	st.run = run
	st.MarkDirty()

	loc := st.Loc()
	anchor := loc.Center()
	r.world.SetAnchorBurning(loc, true)
	r.world.PlaySound(clicker, SoundCrackle, 10, 10)

	r.sched.Repeat("effects "+loc.String(), r.layout.EffectInterval, r.layout.EffectTicks, func(int) {
		if r.reg.Get(loc) != st {
			return
		}
		r.world.SpawnEffect(anchor, EffectFlame, 20)
		r.world.SpawnEffect(anchor, EffectLava, 1)
		r.world.PlaySound(anchor, SoundCrackle, 3, 10)
	})
	r.sched.After("complete "+loc.String(), r.layout.CompletionDelay, func() {
		r.complete(st, run)
	})

	r.log.Debug("run started",
		zap.String("station", loc.String()),
		zap.String("run", run.ID),
		zap.Uint64("completes_tick", run.CompletesTick))
	r.audit.Audit(AuditEntry{Tick: now, Kind: AuditRunStarted, Station: loc.String(), RunID: run.ID})
	return true
}

// complete is a no-op when the station was broken (or replaced) after the run started.
func (r *RunScheduler) complete(st *Station, run *Run) {
	loc := st.Loc()
	if r.reg.Get(loc) != st {
		r.log.Debug("run orphaned", zap.String("station", loc.String()), zap.String("run", run.ID))
		r.audit.Audit(AuditEntry{Tick: r.sched.Now(), Kind: AuditRunOrphaned, Station: loc.String(), RunID: run.ID})
		return
	}

	consumed := r.layout.ConsumeMaterial(st)
	r.layout.FillOutput(st, r.world)
	r.world.PlaySound(loc.Point(), SoundBurn, 1, 1)
	st.SetSlot(SlotLock, IdleLock())
	r.world.SetAnchorBurning(loc, false)
	if st.run == run {
		st.run = nil
	}
	st.MarkDirty()

	r.audit.Audit(AuditEntry{Tick: r.sched.Now(), Kind: AuditRunCompleted, Station: loc.String(), RunID: run.ID, Count: consumed})
}
