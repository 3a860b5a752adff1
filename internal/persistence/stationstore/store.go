package stationstore

import (
	"errors"
	"fmt"
	"strings"

	"lavaforge.ai/internal/sim/station"
)

var ErrNotFound = errors.New("station record not found")

// Record is the persisted form of a station: its GUI slots keyed by slot index. Empty slots are
// absent.
type Record struct {
	Slots map[int]station.Stack `json:"slots" yaml:"slots"`
}

// Store is a flat key -> record document. Writes may be buffered until Flush.
type Store interface {
	Get(key string) (Record, error)
	Put(key string, rec Record) error
	// Delete is idempotent.
	Delete(key string) error
	Keys() ([]string, error)
	Flush() error
	Close() error
}

// KeyFor maps a location to its store key. Dots are path separators in some backends, so they
// are replaced with '#', so world ids must not contain '#' themselves.
func KeyFor(loc station.Location) string {
	return strings.ReplaceAll(loc.String(), ".", "#")
}

func ParseKey(key string) (station.Location, error) {
	loc, ok := station.ParseLocation(strings.ReplaceAll(key, "#", "."))
	if !ok {
		return station.Location{}, fmt.Errorf("malformed station key %q", key)
	}
	return loc, nil
}
