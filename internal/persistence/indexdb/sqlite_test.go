package indexdb

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"lavaforge.ai/internal/persistence/stationstore"
	"lavaforge.ai/internal/sim/catalogs"
	"lavaforge.ai/internal/sim/station"
	"lavaforge.ai/internal/sim/tuning"
)

func openTemp(t *testing.T) (*SQLiteStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stations.sqlite")
	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return s, path
}

func TestSQLiteStore_PutFlushReopen(t *testing.T) {
	s, path := openTemp(t)
	rec := stationstore.Record{Slots: map[int]station.Stack{
		station.SlotFuel:   station.Of("COAL_BLOCK", 10),
		21:                 station.Of("COBBLESTONE", 200),
		station.SlotOutput: station.Of("BUCKET", 1),
	}}
	if err := s.Put("world@1,64,-3", rec); err != nil {
		t.Fatalf("put: %v", err)
	}

	// Buffered writes are visible before Flush.
	got, err := s.Get("world@1,64,-3")
	if err != nil {
		t.Fatalf("get pending: %v", err)
	}
	if diff := cmp.Diff(rec, got); diff != "" {
		t.Fatalf("pending record (-want +got):\n%s", diff)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s2, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	got, err = s2.Get("world@1,64,-3")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if diff := cmp.Diff(rec, got); diff != "" {
		t.Fatalf("persisted record (-want +got):\n%s", diff)
	}
	keys, err := s2.Keys()
	if err != nil || !cmp.Equal(keys, []string{"world@1,64,-3"}) {
		t.Fatalf("keys=%v err=%v", keys, err)
	}
}

func TestSQLiteStore_PutReplacesSlots(t *testing.T) {
	s, _ := openTemp(t)
	defer s.Close()
	key := "world@0,0,0"
	_ = s.Put(key, stationstore.Record{Slots: map[int]station.Stack{21: station.Of("STONE", 5), 22: station.Of("STONE", 6)}})
	if err := s.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	_ = s.Put(key, stationstore.Record{Slots: map[int]station.Stack{21: station.Of("STONE", 1)}})
	if err := s.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	got, err := s.Get(key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Slots) != 1 || got.Slots[21].Count != 1 {
		t.Fatalf("got=%+v", got)
	}
}

func TestSQLiteStore_Delete(t *testing.T) {
	s, _ := openTemp(t)
	defer s.Close()
	key := "world@0,0,0"
	_ = s.Put(key, stationstore.Record{Slots: map[int]station.Stack{21: station.Of("STONE", 5)}})
	_ = s.Flush()

	for i := 0; i < 2; i++ {
		if err := s.Delete(key); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if err := s.Flush(); err != nil {
			t.Fatalf("flush: %v", err)
		}
	}
	if _, err := s.Get(key); !errors.Is(err, stationstore.ErrNotFound) {
		t.Fatalf("err=%v", err)
	}
	if keys, _ := s.Keys(); len(keys) != 0 {
		t.Fatalf("keys=%v", keys)
	}
}

func TestSQLiteStore_BridgeRoundTrip(t *testing.T) {
	cat, err := catalogs.Load(filepath.Join("..", "..", "..", "configs"))
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	layout := station.NewLayout(cat, tuning.Defaults())
	s, _ := openTemp(t)
	b := stationstore.NewBridge(stationstore.Config{Layout: layout, Catalog: cat, Store: s})

	loc := station.Location{World: "world", X: 3, Y: 70, Z: 9}
	st := layout.NewStation(loc)
	st.SetSlot(station.SlotFuel, station.Of("COAL_BLOCK", 12))
	st.SetSlot(30, station.Of("DIORITE", 40))
	st.MarkDirty()
	if err := b.Backup([]*station.Station{st}); err != nil {
		t.Fatalf("backup: %v", err)
	}

	got, found, err := b.Restore(loc)
	if err != nil || !found {
		t.Fatalf("found=%v err=%v", found, err)
	}
	if diff := cmp.Diff(st.Slots(), got.Slots()); diff != "" {
		t.Fatalf("restored (-want +got):\n%s", diff)
	}
	if err := b.Shutdown(nil); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestSQLiteStore_UpsertCatalog(t *testing.T) {
	cat, err := catalogs.Load(filepath.Join("..", "..", "..", "configs"))
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	s, _ := openTemp(t)
	defer s.Close()
	if d, _ := s.CatalogDigest("materials"); d != "" {
		t.Fatalf("digest before upsert=%q", d)
	}
	if err := s.UpsertCatalog(cat, tuning.Defaults()); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	d, err := s.CatalogDigest("materials")
	if err != nil || d != cat.Digest {
		t.Fatalf("digest=%q want %q err=%v", d, cat.Digest, err)
	}
	if d, _ := s.CatalogDigest("tuning"); d == "" {
		t.Fatalf("tuning digest missing")
	}
}
