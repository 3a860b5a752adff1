package tuning

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	TickRateHz int `yaml:"tick_rate_hz" json:"tick_rate_hz"`

	FuelCost     int `yaml:"fuel_cost" json:"fuel_cost"`
	MaterialCost int `yaml:"material_cost" json:"material_cost"`

	// A run lasts RunTicks; cosmetic effects fire every EffectIntervalTicks across the whole run and
	// the completion lands CompletionEpsilonTicks after the last effect.
	RunTicks               int `yaml:"run_ticks" json:"run_ticks"`
	EffectIntervalTicks    int `yaml:"effect_interval_ticks" json:"effect_interval_ticks"`
	CompletionEpsilonTicks int `yaml:"completion_epsilon_ticks" json:"completion_epsilon_ticks"`

	BackupEveryTicks int `yaml:"backup_every_ticks" json:"backup_every_ticks"`
	BackupDelayTicks int `yaml:"backup_delay_ticks" json:"backup_delay_ticks"`

	// Every ArchiveEveryBackups successful backups the store is exported to a rolling snapshot;
	// ArchiveKeep snapshots are retained. Zero disables archiving.
	ArchiveEveryBackups int `yaml:"archive_every_backups" json:"archive_every_backups"`
	ArchiveKeep         int `yaml:"archive_keep" json:"archive_keep"`

	Store StoreConfig `yaml:"store" json:"store"`
}

type StoreConfig struct {
	Backend string `yaml:"backend" json:"backend"` // "yaml" | "sqlite"
	Path    string `yaml:"path" json:"path"`
}

const (
	BackendYAML   = "yaml"
	BackendSQLite = "sqlite"
)

// Defaults mirrors configs/tuning.yaml.
func Defaults() Tuning {
	return Tuning{
		TickRateHz:             20,
		FuelCost:               10,
		MaterialCost:           250,
		RunTicks:               1200,
		EffectIntervalTicks:    10,
		CompletionEpsilonTicks: 1,
		BackupEveryTicks:       60 * 20,
		BackupDelayTicks:       60 * 20,
		ArchiveEveryBackups:    60,
		ArchiveKeep:            24,
		Store: StoreConfig{
			Backend: BackendYAML,
			Path:    "stations.yaml",
		},
	}
}

// Load reads a tuning file on top of Defaults, so keys missing from the file keep their default.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	var errs []error
	positive := func(name string, v int) {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be > 0 (got %d)", name, v))
		}
	}
	positive("tick_rate_hz", t.TickRateHz)
	positive("fuel_cost", t.FuelCost)
	positive("material_cost", t.MaterialCost)
	positive("run_ticks", t.RunTicks)
	positive("effect_interval_ticks", t.EffectIntervalTicks)
	positive("backup_every_ticks", t.BackupEveryTicks)
	if t.CompletionEpsilonTicks < 0 {
		errs = append(errs, fmt.Errorf("completion_epsilon_ticks must be >= 0 (got %d)", t.CompletionEpsilonTicks))
	}
	if t.BackupDelayTicks < 0 {
		errs = append(errs, fmt.Errorf("backup_delay_ticks must be >= 0 (got %d)", t.BackupDelayTicks))
	}
	if t.ArchiveEveryBackups < 0 || t.ArchiveKeep < 0 {
		errs = append(errs, fmt.Errorf("archive_every_backups and archive_keep must be >= 0"))
	}
	switch t.Store.Backend {
	case BackendYAML, BackendSQLite:
	default:
		errs = append(errs, fmt.Errorf("store.backend: unknown backend %q", t.Store.Backend))
	}
	return errors.Join(errs...)
}

// EffectTicks is the number of cosmetic effect ticks in one run, covering both ends of the run.
func (t Tuning) EffectTicks() int {
	if t.EffectIntervalTicks <= 0 {
		return 0
	}
	return t.RunTicks/t.EffectIntervalTicks + 1
}
