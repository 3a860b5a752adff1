package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"lavaforge.ai/internal/persistence/indexdb"
	"lavaforge.ai/internal/persistence/stationstore"
	"lavaforge.ai/internal/sim/catalogs"
	"lavaforge.ai/internal/sim/tuning"
)

var (
	storePath string
	backend   string
	configDir string
)

var rootCmd = &cobra.Command{
	Use:   "lavaforge-admin",
	Short: "Inspect and repair the durable station store",
	Long: `Offline tooling for the station store written by the server.

Stop the server before mutating the store: the server keeps its own copy in memory and
overwrites the file on its next backup.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&storePath, "store", "./data/worlds/world/stations.yaml", "station store path")
	rootCmd.PersistentFlags().StringVar(&backend, "backend", "", "store backend: yaml|sqlite (default: from file extension)")
	rootCmd.PersistentFlags().StringVar(&configDir, "configs", "./configs", "config directory (catalog digest for export/import)")

	rootCmd.AddCommand(listCmd, showCmd, deleteCmd, exportCmd, importCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func resolveBackend(path, explicit string) string {
	if b := strings.TrimSpace(explicit); b != "" {
		return b
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".sqlite", ".db", ".sqlite3":
		return tuning.BackendSQLite
	default:
		return tuning.BackendYAML
	}
}

func openStore() (stationstore.Store, error) {
	switch b := resolveBackend(storePath, backend); b {
	case tuning.BackendYAML:
		return stationstore.OpenYAML(storePath)
	case tuning.BackendSQLite:
		return indexdb.OpenSQLite(storePath)
	default:
		return nil, fmt.Errorf("unknown backend %q", b)
	}
}

// catalogDigest is best effort: export and import still work without a readable catalog.
func catalogDigest() string {
	cat, err := catalogs.Load(configDir)
	if err != nil {
		return ""
	}
	return cat.Digest
}
