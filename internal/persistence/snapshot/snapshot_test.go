package snapshot

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"lavaforge.ai/internal/persistence/stationstore"
	"lavaforge.ai/internal/sim/station"
)

func TestSnapshotRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src, err := stationstore.OpenYAML(filepath.Join(dir, "src.yaml"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_ = src.Put("world@1,64,-3", stationstore.Record{Slots: map[int]station.Stack{
		station.SlotOutput: station.Of("LAVA_BUCKET", 1),
		station.SlotFuel:   station.Of("COAL_BLOCK", 4),
	}})
	_ = src.Put("world#nether@0,10,0", stationstore.Record{Slots: map[int]station.Stack{
		21: station.Of("STONE", 64),
	}})

	snap, err := Capture(src, 4242, "abc")
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if snap.Header.Stations != 2 || snap.Records[0].Key != "world#nether@0,10,0" {
		t.Fatalf("header=%+v first=%q", snap.Header, snap.Records[0].Key)
	}
	if got := snap.Records[1].Slots; got[0].Slot != station.SlotFuel || got[1].Slot != station.SlotOutput {
		t.Fatalf("slots not ordered: %+v", got)
	}

	path := filepath.Join(dir, "out", "stations.snap.zst")
	if err := WriteSnapshot(path, snap); err != nil {
		t.Fatalf("write: %v", err)
	}
	back, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if diff := cmp.Diff(snap, back); diff != "" {
		t.Fatalf("snapshot (-want +got):\n%s", diff)
	}

	dst, err := stationstore.OpenYAML(filepath.Join(dir, "dst.yaml"))
	if err != nil {
		t.Fatalf("open dst: %v", err)
	}
	n, err := Apply(dst, back)
	if err != nil || n != 2 {
		t.Fatalf("apply n=%d err=%v", n, err)
	}
	for _, k := range []string{"world@1,64,-3", "world#nether@0,10,0"} {
		want, _ := src.Get(k)
		got, err := dst.Get(k)
		if err != nil {
			t.Fatalf("get %s: %v", k, err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("%s (-want +got):\n%s", k, diff)
		}
	}
}

func TestApplyRejectsBadKey(t *testing.T) {
	dst, err := stationstore.OpenYAML(filepath.Join(t.TempDir(), "dst.yaml"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	snap := SnapshotV1{Header: Header{Version: Version}, Records: []RecordV1{{Key: "garbage"}}}
	if _, err := Apply(dst, snap); err == nil {
		t.Fatalf("expected error")
	}
}
