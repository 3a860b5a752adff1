package world

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"lavaforge.ai/internal/persistence/stationstore"
	"lavaforge.ai/internal/protocol"
	"lavaforge.ai/internal/sim/catalogs"
	"lavaforge.ai/internal/sim/sched"
	"lavaforge.ai/internal/sim/station"
	"lavaforge.ai/internal/sim/tuning"
)

// Deps are the collaborators a world needs besides its config.
type Deps struct {
	Catalog *catalogs.Catalog
	Tuning  tuning.Tuning

	// Bridge persists stations. When nil stations live only in memory.
	Bridge *stationstore.Bridge

	Audit  station.Auditor
	Logger *zap.Logger

	// OnTick, if set, is called on the loop goroutine after every step.
	OnTick func(tick uint64, stations int)
}

// World owns every block, player and station of one world. All state is confined to the loop
// goroutine; other goroutines talk to it through the channels below.
type World struct {
	cfg  WorldConfig
	cat  *catalogs.Catalog
	tune tuning.Tuning
	log  *zap.Logger

	tick atomic.Uint64

	sched  *sched.Scheduler
	reg    *station.Registry
	layout *station.Layout
	lc     *station.Lifecycle
	bridge *stationstore.Bridge
	onTick func(uint64, int)

	blocks  map[station.Location]string
	burning map[station.Location]bool
	items   map[string]*ItemEntity
	itemsAt map[station.Location][]string

	players map[string]*Player
	clients map[string]*clientState

	// Events broadcast to every player at the end of the tick.
	worldEvents []protocol.Event

	inbox  chan ActionEnvelope
	join   chan JoinRequest
	leave  chan string
	admin  chan adminReq
	stop   chan struct{}
	closed atomic.Bool

	nextPlayerNum atomic.Uint64
	nextItemNum   atomic.Uint64
}

type clientState struct {
	Out       chan []byte
	SessionID string
	// Last container view pushed, to skip unchanged resends.
	LastView []station.Stack
	LastKey  string
}

func New(cfg WorldConfig, deps Deps) (*World, error) {
	if deps.Catalog == nil {
		return nil, errors.New("world: nil catalog")
	}
	if err := deps.Tuning.Validate(); err != nil {
		return nil, fmt.Errorf("world: %w", err)
	}
	cfg.applyDefaults()
	if strings.Contains(cfg.ID, "#") {
		return nil, fmt.Errorf("world: id %q must not contain '#'", cfg.ID)
	}
	if deps.Tuning.TickRateHz > 0 {
		cfg.TickRateHz = deps.Tuning.TickRateHz
	}
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	w := &World{
		cfg:     cfg,
		cat:     deps.Catalog,
		tune:    deps.Tuning,
		log:     log.With(zap.String("world", cfg.ID)),
		sched:   sched.New(0),
		reg:     station.NewRegistry(),
		layout:  station.NewLayout(deps.Catalog, deps.Tuning),
		bridge:  deps.Bridge,
		onTick:  deps.OnTick,
		blocks:  map[station.Location]string{},
		burning: map[station.Location]bool{},
		items:   map[string]*ItemEntity{},
		itemsAt: map[station.Location][]string{},
		players: map[string]*Player{},
		clients: map[string]*clientState{},
		inbox:   make(chan ActionEnvelope, 1024),
		join:    make(chan JoinRequest, 64),
		leave:   make(chan string, 64),
		admin:   make(chan adminReq, 16),
		stop:    make(chan struct{}),
	}
	w.sched.OnPanic = func(name string, v any) {
		w.log.Error("scheduled task panicked", zap.String("task", name), zap.Any("panic", v))
	}

	cfgLC := station.LifecycleConfig{
		Layout:    w.layout,
		Registry:  w.reg,
		World:     w,
		Scheduler: w.sched,
		Audit:     deps.Audit,
		Logger:    w.log,
	}
	if w.bridge != nil {
		cfgLC.Store = w.bridge
		w.bridge.Schedule(w.sched, w.reg)
	}
	w.lc = station.NewLifecycle(cfgLC)
	return w, nil
}

func (w *World) Inbox() chan<- ActionEnvelope { return w.inbox }
func (w *World) Join() chan<- JoinRequest     { return w.join }
func (w *World) Leave() chan<- string         { return w.leave }

func (w *World) CurrentTick() uint64 { return w.tick.Load() }

func (w *World) ID() string { return w.cfg.ID }

func (w *World) TickRateHz() int { return w.cfg.TickRateHz }

// MaxQueue caps the outbound queue a session may request.
func (w *World) MaxQueue() int { return w.cfg.MaxQueue }

// Close writes every live station one last time. It must not race with Run: call it after Run
// has returned.
func (w *World) Close() error {
	if !w.closed.CompareAndSwap(false, true) {
		return nil
	}
	if w.bridge == nil {
		return nil
	}
	stations := w.reg.All()
	if err := w.bridge.Shutdown(stations); err != nil {
		return fmt.Errorf("final backup: %w", err)
	}
	w.log.Info("final backup written", zap.Int("stations", len(stations)))
	return nil
}

func (w *World) loc(pos [3]int) station.Location {
	return station.Location{World: w.cfg.ID, X: pos[0], Y: pos[1], Z: pos[2]}
}
