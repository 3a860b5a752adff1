package stationstore

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"lavaforge.ai/internal/sim/catalogs"
	"lavaforge.ai/internal/sim/sched"
	"lavaforge.ai/internal/sim/station"
)

type Config struct {
	Layout  *station.Layout
	Catalog *catalogs.Catalog
	Store   Store

	// Scheduler supplies audit ticks; Schedule also registers the backup cadence on it.
	Scheduler *sched.Scheduler

	BackupDelayTicks uint64
	BackupEveryTicks uint64

	Audit  station.Auditor
	Logger *zap.Logger

	// OnBackup observes every sweep (duration, records written, error).
	OnBackup func(d time.Duration, written int, err error)
}

// Bridge converts between live stations and store records and runs the backup sweep.
type Bridge struct {
	layout *station.Layout
	cat    *catalogs.Catalog
	store  Store
	sched  *sched.Scheduler
	audit  station.Auditor
	log    *zap.Logger

	delay, every uint64
	onBackup     func(time.Duration, int, error)
}

func NewBridge(cfg Config) *Bridge {
	b := &Bridge{
		layout:   cfg.Layout,
		cat:      cfg.Catalog,
		store:    cfg.Store,
		sched:    cfg.Scheduler,
		audit:    cfg.Audit,
		log:      cfg.Logger,
		delay:    cfg.BackupDelayTicks,
		every:    cfg.BackupEveryTicks,
		onBackup: cfg.OnBackup,
	}
	if b.audit == nil {
		b.audit = station.Auditors()
	}
	if b.log == nil {
		b.log = zap.NewNop()
	}
	return b
}

func (b *Bridge) Store() Store { return b.store }

func (b *Bridge) now() uint64 {
	if b.sched == nil {
		return 0
	}
	return b.sched.Now()
}

// RecordOf builds the persisted form of st. A running station is saved as if its run had
// finished: the record's output slot holds one product. The live station is not touched.
func (b *Bridge) RecordOf(st *station.Station) Record {
	rec := Record{Slots: make(map[int]station.Stack, len(station.GUISlots))}
	for _, i := range station.GUISlots {
		if s := st.Slot(i); !s.Empty() {
			rec.Slots[i] = s
		}
	}
	if st.Running() {
		rec.Slots[station.SlotOutput] = b.layout.Product()
	}
	return rec
}

// Backup writes every dirty station and flushes the store. Dirty flags are cleared only when the
// whole sweep succeeded, so a failed sweep is retried in full next time.
func (b *Bridge) Backup(stations []*station.Station) error {
	return b.sweep(stations, false)
}

// Shutdown writes every station regardless of its dirty flag.
func (b *Bridge) Shutdown(stations []*station.Station) error {
	err := b.sweep(stations, true)
	if cerr := b.store.Close(); cerr != nil {
		err = errors.Join(err, fmt.Errorf("close store: %w", cerr))
	}
	return err
}

func (b *Bridge) sweep(stations []*station.Station, all bool) error {
	start := time.Now()
	written := 0
	err := func() error {
		for _, st := range stations {
			if !all && !st.Dirty() {
				continue
			}
			key := KeyFor(st.Loc())
			if err := b.store.Put(key, b.RecordOf(st)); err != nil {
				return fmt.Errorf("put %s: %w", key, err)
			}
			written++
		}
		if err := b.store.Flush(); err != nil {
			return fmt.Errorf("flush: %w", err)
		}
		return nil
	}()
	if b.onBackup != nil {
		b.onBackup(time.Since(start), written, err)
	}
	if err != nil {
		b.log.Error("station backup failed", zap.Int("written", written), zap.Error(err))
		b.audit.Audit(station.AuditEntry{Tick: b.now(), Kind: station.AuditBackupFailed, Count: written, Reason: err.Error()})
		return err
	}
	for _, st := range stations {
		st.ClearDirty()
	}
	if written > 0 {
		b.log.Debug("station backup", zap.Int("written", written), zap.Duration("took", time.Since(start)))
	}
	b.audit.Audit(station.AuditEntry{Tick: b.now(), Kind: station.AuditBackup, Count: written})
	return nil
}

// Restore rebuilds the station persisted at loc. Entries that are outside the GUI slots, name an
// unknown item or hold a non-positive count are dropped. Kept stacks come back whole, display
// name and lore included. The returned station is not dirty.
func (b *Bridge) Restore(loc station.Location) (*station.Station, bool, error) {
	key := KeyFor(loc)
	rec, err := b.store.Get(key)
	if errors.Is(err, ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}
	st := b.layout.NewStation(loc)
	for i, s := range rec.Slots {
		if !station.IsGUISlot(i) || s.Count <= 0 {
			continue
		}
		if _, err := b.cat.Lookup(s.Item); err != nil {
			b.log.Warn("dropping persisted slot", zap.String("station", key), zap.Int("slot", i), zap.Error(err))
			continue
		}
		st.SetSlot(i, s)
	}
	return st, true, nil
}

func (b *Bridge) Delete(loc station.Location) error {
	if err := b.store.Delete(KeyFor(loc)); err != nil {
		return err
	}
	return b.store.Flush()
}

// Schedule registers the periodic backup sweep over reg.
func (b *Bridge) Schedule(s *sched.Scheduler, reg *station.Registry) {
	if b.sched == nil {
		b.sched = s
	}
	s.Every("station backup", b.delay, b.every, func() {
		_ = b.Backup(reg.All())
	})
}
