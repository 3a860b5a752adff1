package stationstore

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"gopkg.in/yaml.v3"

	"lavaforge.ai/internal/sim/station"
)

// YAMLStore keeps every record in one yaml document:
//
//	stations:
//	  world@1,64,-3:
//	    "19": {item: COAL_BLOCK, count: 10}
//
// Records live in memory; Flush rewrites the file atomically.
type YAMLStore struct {
	path string

	mu      sync.Mutex
	records map[string]Record
	skipped []string
}

type yamlDoc struct {
	Stations map[string]yaml.Node `yaml:"stations"`
}

type yamlOut struct {
	Stations map[string]map[string]station.Stack `yaml:"stations"`
}

// OpenYAML loads path if it exists. A missing file is an empty store.
// Station entries that are not a slot mapping are left out and reported by Skipped.
func OpenYAML(path string) (*YAMLStore, error) {
	if path == "" {
		return nil, fmt.Errorf("empty store path")
	}
	s := &YAMLStore{path: path, records: map[string]Record{}}
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, err
	}
	var doc yamlDoc
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	for key, entry := range doc.Stations {
		var slots map[string]yaml.Node
		if err := entry.Decode(&slots); err != nil {
			s.skipped = append(s.skipped, key)
			continue
		}
		rec := Record{Slots: map[int]station.Stack{}}
		for k, node := range slots {
			i, err := strconv.Atoi(k)
			if err != nil {
				continue
			}
			var st station.Stack
			if err := node.Decode(&st); err != nil {
				continue
			}
			rec.Slots[i] = st
		}
		s.records[key] = rec
	}
	sort.Strings(s.skipped)
	return s, nil
}

// Skipped lists the station keys OpenYAML could not decode.
func (s *YAMLStore) Skipped() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.skipped...)
}

func (s *YAMLStore) Path() string { return s.path }

func (s *YAMLStore) Get(key string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	if !ok {
		return Record{}, ErrNotFound
	}
	return cloneRecord(rec), nil
}

func (s *YAMLStore) Put(key string, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = cloneRecord(rec)
	return nil
}

func (s *YAMLStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}

func (s *YAMLStore) Keys() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.records))
	for k := range s.records {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *YAMLStore) Flush() error {
	s.mu.Lock()
	out := yamlOut{Stations: make(map[string]map[string]station.Stack, len(s.records))}
	for key, rec := range s.records {
		slots := make(map[string]station.Stack, len(rec.Slots))
		for i, st := range rec.Slots {
			slots[strconv.Itoa(i)] = st
		}
		out.Stations[key] = slots
	}
	s.mu.Unlock()

	b, err := yaml.Marshal(out)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *YAMLStore) Close() error { return s.Flush() }

func cloneRecord(rec Record) Record {
	out := Record{Slots: make(map[int]station.Stack, len(rec.Slots))}
	for i, st := range rec.Slots {
		out.Slots[i] = st
	}
	return out
}
