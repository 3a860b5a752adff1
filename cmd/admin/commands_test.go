package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"lavaforge.ai/internal/persistence/indexdb"
	"lavaforge.ai/internal/persistence/stationstore"
	"lavaforge.ai/internal/sim/station"
)

const testKey = "world@0,64,0"

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--backend=", "--configs", filepath.Join("..", "..", "configs")}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func seed(t *testing.T, path string) stationstore.Record {
	t.Helper()
	s, err := stationstore.OpenYAML(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	rec := stationstore.Record{Slots: map[int]station.Stack{
		station.SlotFuel:   station.Of("COAL_BLOCK", 10),
		21:                 station.Of("COBBLESTONE", 64),
		station.SlotOutput: station.Of("BUCKET", 1),
	}}
	if err := s.Put(testKey, rec); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return rec
}

func TestListAndShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stations.yaml")
	seed(t, path)

	out, err := execute(t, "--store", path, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, testKey) || !strings.Contains(out, "75") {
		t.Fatalf("list output:\n%s", out)
	}

	out, err = execute(t, "--store", path, "show", testKey)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	for _, want := range []string{"COAL_BLOCK", "COBBLESTONE", "BUCKET"} {
		if !strings.Contains(out, want) {
			t.Fatalf("show output missing %s:\n%s", want, out)
		}
	}

	if _, err := execute(t, "--store", path, "show", "world@9,9,9"); err == nil {
		t.Fatalf("show of missing station succeeded")
	}
	if _, err := execute(t, "--store", path, "show", "garbage"); err == nil {
		t.Fatalf("show of malformed key succeeded")
	}
}

func TestDelete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stations.yaml")
	seed(t, path)

	if _, err := execute(t, "--store", path, "delete", testKey); err != nil {
		t.Fatalf("delete: %v", err)
	}
	s, err := stationstore.OpenYAML(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if keys, _ := s.Keys(); len(keys) != 0 {
		t.Fatalf("keys after delete=%v", keys)
	}
}

func TestExportImportAcrossBackends(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "stations.yaml")
	dst := filepath.Join(dir, "stations.sqlite")
	snap := filepath.Join(dir, "export.snap.zst")
	want := seed(t, src)

	out, err := execute(t, "--store", src, "export", snap)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.Contains(out, "exported 1 stations") {
		t.Fatalf("export output: %s", out)
	}
	if _, err := execute(t, "--store", dst, "import", snap); err != nil {
		t.Fatalf("import: %v", err)
	}

	s, err := indexdb.OpenSQLite(dst)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer s.Close()
	got, err := s.Get(testKey)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("imported record mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveBackend(t *testing.T) {
	cases := []struct{ path, explicit, want string }{
		{"a/stations.yaml", "", "yaml"},
		{"a/stations.sqlite", "", "sqlite"},
		{"a/stations.db", "", "sqlite"},
		{"a/stations.db", "yaml", "yaml"},
	}
	for _, c := range cases {
		if got := resolveBackend(c.path, c.explicit); got != c.want {
			t.Fatalf("resolveBackend(%q,%q)=%q want %q", c.path, c.explicit, got, c.want)
		}
	}
}
