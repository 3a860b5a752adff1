// Package archive keeps rolling snapshots of a station store.
package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"lavaforge.ai/internal/persistence/snapshot"
	"lavaforge.ai/internal/persistence/stationstore"
)

const suffix = ".snap.zst"

type Config struct {
	Dir    string
	Store  stationstore.Store
	Digest string

	// Archive after every Every-th successful backup; keep the newest Keep files.
	Every int
	Keep  int

	// Tick stamps the snapshot file name.
	Tick   func() uint64
	Logger *zap.Logger
}

// Archiver exports the store after backups. It is called from the backup hook, on the same
// goroutine as the backup sweep, so the store is quiescent while it reads.
type Archiver struct {
	cfg       Config
	log       *zap.Logger
	successes int
}

func New(cfg Config) *Archiver {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Archiver{cfg: cfg, log: cfg.Logger}
}

// AfterBackup counts successful sweeps and archives on every Every-th one. Failures are logged.
func (a *Archiver) AfterBackup(err error) {
	if err != nil || a.cfg.Every <= 0 {
		return
	}
	a.successes++
	if a.successes%a.cfg.Every != 0 {
		return
	}
	path, err := a.Archive()
	if err != nil {
		a.log.Warn("archive station store", zap.Error(err))
		return
	}
	a.log.Info("archived station store", zap.String("path", path))
}

// Archive writes <Dir>/<tick>.snap.zst and prunes old snapshots.
func (a *Archiver) Archive() (string, error) {
	var tick uint64
	if a.cfg.Tick != nil {
		tick = a.cfg.Tick()
	}
	snap, err := snapshot.Capture(a.cfg.Store, tick, a.cfg.Digest)
	if err != nil {
		return "", fmt.Errorf("capture: %w", err)
	}
	path := filepath.Join(a.cfg.Dir, fmt.Sprintf("%d%s", tick, suffix))
	if err := snapshot.WriteSnapshot(path, snap); err != nil {
		return "", err
	}
	if a.cfg.Keep > 0 {
		if _, err := Prune(a.cfg.Dir, a.cfg.Keep); err != nil {
			return path, fmt.Errorf("prune: %w", err)
		}
	}
	return path, nil
}

type entry struct {
	tick uint64
	path string
}

func list(dir string) ([]entry, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []entry
	for _, e := range ents {
		if e.IsDir() || !strings.HasSuffix(e.Name(), suffix) {
			continue
		}
		tick, err := strconv.ParseUint(strings.TrimSuffix(e.Name(), suffix), 10, 64)
		if err != nil {
			continue
		}
		out = append(out, entry{tick: tick, path: filepath.Join(dir, e.Name())})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].tick < out[j].tick })
	return out, nil
}

// Latest returns the snapshot with the highest tick in dir, or "".
func Latest(dir string) string {
	all, err := list(dir)
	if err != nil || len(all) == 0 {
		return ""
	}
	return all[len(all)-1].path
}

// Prune removes all but the newest keep snapshots and returns the removed paths.
func Prune(dir string, keep int) ([]string, error) {
	all, err := list(dir)
	if err != nil {
		return nil, err
	}
	if len(all) <= keep {
		return nil, nil
	}
	var removed []string
	for _, e := range all[:len(all)-keep] {
		if err := os.Remove(e.path); err != nil {
			return removed, err
		}
		removed = append(removed, e.path)
	}
	return removed, nil
}
