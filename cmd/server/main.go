package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"lavaforge.ai/internal/observability/metrics"
	"lavaforge.ai/internal/persistence/archive"
	"lavaforge.ai/internal/persistence/indexdb"
	persistlog "lavaforge.ai/internal/persistence/log"
	"lavaforge.ai/internal/persistence/stationstore"
	"lavaforge.ai/internal/sim/catalogs"
	"lavaforge.ai/internal/sim/station"
	"lavaforge.ai/internal/sim/tuning"
	"lavaforge.ai/internal/sim/world"
	"lavaforge.ai/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		worldID    = flag.String("world", "world", "world id")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		backend    = flag.String("store", "", "station store backend override: yaml|sqlite")
		verbose    = flag.Bool("verbose", false, "debug logging")
	)
	flag.Parse()

	logger, err := newLogger(*verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(logger, serverConfig{
		Addr:       *addr,
		WorldID:    *worldID,
		ConfigDir:  *configDir,
		DataDir:    *dataDir,
		TuningPath: *tuningPath,
		Backend:    *backend,
	}); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

type serverConfig struct {
	Addr       string
	WorldID    string
	ConfigDir  string
	DataDir    string
	TuningPath string
	Backend    string
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}

func run(logger *zap.Logger, cfg serverConfig) error {
	cats, err := catalogs.Load(cfg.ConfigDir)
	if err != nil {
		return fmt.Errorf("load catalogs: %w", err)
	}
	tp := strings.TrimSpace(cfg.TuningPath)
	if tp == "" {
		tp = filepath.Join(cfg.ConfigDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		return fmt.Errorf("load tuning: %w", err)
	}
	if b := strings.TrimSpace(cfg.Backend); b != "" {
		tune.Store.Backend = b
	}

	worldDir := filepath.Join(cfg.DataDir, "worlds", cfg.WorldID)
	if err := os.MkdirAll(worldDir, 0o755); err != nil {
		return err
	}

	store, err := openStore(worldDir, cats, tune)
	if err != nil {
		return fmt.Errorf("open station store: %w", err)
	}
	if ys, ok := store.(*stationstore.YAMLStore); ok {
		for _, key := range ys.Skipped() {
			logger.Warn("skipped unreadable station record", zap.String("key", key))
		}
	}

	m := metrics.New(nil)
	auditLog := persistlog.NewAuditLogger(worldDir, logger)
	defer auditLog.Close()
	audit := station.Auditors(auditLog, m)

	var w *world.World
	archiver := archive.New(archive.Config{
		Dir:    filepath.Join(worldDir, "snapshots"),
		Store:  store,
		Digest: cats.Digest,
		Every:  tune.ArchiveEveryBackups,
		Keep:   tune.ArchiveKeep,
		Tick:   func() uint64 { return w.CurrentTick() },
		Logger: logger.Named("archive"),
	})

	bridge := stationstore.NewBridge(stationstore.Config{
		Layout:           station.NewLayout(cats, tune),
		Catalog:          cats,
		Store:            store,
		BackupDelayTicks: uint64(tune.BackupDelayTicks),
		BackupEveryTicks: uint64(tune.BackupEveryTicks),
		Audit:            audit,
		Logger:           logger.Named("store"),
		OnBackup: func(d time.Duration, written int, err error) {
			m.ObserveBackup(d, written, err)
			archiver.AfterBackup(err)
		},
	})

	w, err = world.New(world.WorldConfig{ID: cfg.WorldID}, world.Deps{
		Catalog: cats,
		Tuning:  tune,
		Bridge:  bridge,
		Audit:   audit,
		Logger:  logger.Named("world"),
		OnTick:  func(_ uint64, stations int) { m.SetStationsLive(stations) },
	})
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("world: %w", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())
	if envBool("LF_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP()) {
		registerAdmin(mux, w)
	} else {
		logger.Info("admin endpoints disabled (LF_ENABLE_ADMIN_HTTP=false)")
	}
	if envBool("LF_ENABLE_PPROF_HTTP", false) {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	mux.HandleFunc("/v1/ws", ws.NewServer(w, logger.Named("ws")).Handler())

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("world loop: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.Addr), zap.String("world", cfg.WorldID),
			zap.String("store", tune.Store.Backend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx2)
	})

	runErr := g.Wait()
	// The loop has exited, so the final sweep cannot race with it.
	if err := w.Close(); err != nil {
		logger.Error("final backup", zap.Error(err))
	}
	return runErr
}

// openStore opens the configured station store. A relative store path lives under worldDir.
func openStore(worldDir string, cats *catalogs.Catalog, tune tuning.Tuning) (stationstore.Store, error) {
	path := tune.Store.Path
	if path != "" && !filepath.IsAbs(path) {
		path = filepath.Join(worldDir, path)
	}
	switch tune.Store.Backend {
	case "", tuning.BackendYAML:
		if path == "" {
			path = filepath.Join(worldDir, "stations.yaml")
		}
		return stationstore.OpenYAML(path)
	case tuning.BackendSQLite:
		if path == "" || strings.HasSuffix(path, ".yaml") {
			path = filepath.Join(worldDir, "stations.sqlite")
		}
		s, err := indexdb.OpenSQLite(path)
		if err != nil {
			return nil, err
		}
		if err := s.UpsertCatalog(cats, tune); err != nil {
			_ = s.Close()
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", tune.Store.Backend)
	}
}

func envBool(name string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}
