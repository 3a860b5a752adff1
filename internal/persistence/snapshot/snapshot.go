package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/klauspost/compress/zstd"

	"lavaforge.ai/internal/persistence/stationstore"
	"lavaforge.ai/internal/sim/station"
)

const Version = 1

type Header struct {
	Version       int    `json:"version"`
	Tick          uint64 `json:"tick"`
	Stations      int    `json:"stations"`
	CatalogDigest string `json:"catalog_digest,omitempty"`
}

// SnapshotV1 is a portable dump of every persisted station record.
type SnapshotV1 struct {
	Header  Header     `json:"header"`
	Records []RecordV1 `json:"records"`
}

type RecordV1 struct {
	Key   string   `json:"key"`
	Slots []SlotV1 `json:"slots"`
}

type SlotV1 struct {
	Slot  int    `json:"slot"`
	Item  string `json:"item"`
	Count int    `json:"count"`
}

// Capture reads every record in store, ordered by key and slot.
func Capture(store stationstore.Store, tick uint64, catalogDigest string) (SnapshotV1, error) {
	keys, err := store.Keys()
	if err != nil {
		return SnapshotV1{}, err
	}
	snap := SnapshotV1{Header: Header{Version: Version, Tick: tick, CatalogDigest: catalogDigest}}
	for _, k := range keys {
		rec, err := store.Get(k)
		if err != nil {
			return SnapshotV1{}, fmt.Errorf("get %s: %w", k, err)
		}
		r := RecordV1{Key: k}
		for i, s := range rec.Slots {
			r.Slots = append(r.Slots, SlotV1{Slot: i, Item: s.Item, Count: s.Count})
		}
		sort.Slice(r.Slots, func(a, b int) bool { return r.Slots[a].Slot < r.Slots[b].Slot })
		snap.Records = append(snap.Records, r)
	}
	snap.Header.Stations = len(snap.Records)
	return snap, nil
}

// Apply writes every record of snap into store and flushes it. Existing records with the same
// key are replaced; others are left alone.
func Apply(store stationstore.Store, snap SnapshotV1) (int, error) {
	for _, r := range snap.Records {
		if _, err := stationstore.ParseKey(r.Key); err != nil {
			return 0, err
		}
		rec := stationstore.Record{Slots: make(map[int]station.Stack, len(r.Slots))}
		for _, s := range r.Slots {
			rec.Slots[s.Slot] = station.Of(s.Item, s.Count)
		}
		if err := store.Put(r.Key, rec); err != nil {
			return 0, err
		}
	}
	if err := store.Flush(); err != nil {
		return 0, err
	}
	return len(snap.Records), nil
}

func WriteSnapshot(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 256*1024)

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return f.Sync()
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	hb, err := br.ReadBytes('\n')
	if err != nil {
		return snap, fmt.Errorf("read header: %w", err)
	}
	var h Header
	if err := json.Unmarshal(hb, &h); err != nil {
		return snap, fmt.Errorf("decode header: %w", err)
	}
	if h.Version != Version {
		return snap, fmt.Errorf("unsupported snapshot version %d", h.Version)
	}

	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	return snap, nil
}
