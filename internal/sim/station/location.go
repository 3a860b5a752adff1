package station

import (
	"fmt"
	"strconv"
	"strings"
)

// Location is the immutable block coordinate a station is anchored to.
type Location struct {
	World   string
	X, Y, Z int
}

// Point is a fractional world position used for effects and sounds.
type Point struct {
	World   string
	X, Y, Z float64
}

func (l Location) Up() Location   { return Location{World: l.World, X: l.X, Y: l.Y + 1, Z: l.Z} }
func (l Location) Down() Location { return Location{World: l.World, X: l.X, Y: l.Y - 1, Z: l.Z} }

// Center is the middle of the block.
func (l Location) Center() Point {
	return Point{World: l.World, X: float64(l.X) + 0.5, Y: float64(l.Y) + 0.5, Z: float64(l.Z) + 0.5}
}

func (l Location) Point() Point {
	return Point{World: l.World, X: float64(l.X), Y: float64(l.Y), Z: float64(l.Z)}
}

func (l Location) String() string {
	return fmt.Sprintf("%s@%d,%d,%d", l.World, l.X, l.Y, l.Z)
}

func ParseLocation(s string) (Location, bool) {
	i := strings.LastIndexByte(s, '@')
	if i <= 0 {
		return Location{}, false
	}
	coord := strings.Split(s[i+1:], ",")
	if len(coord) != 3 {
		return Location{}, false
	}
	x, err1 := strconv.Atoi(coord[0])
	y, err2 := strconv.Atoi(coord[1])
	z, err3 := strconv.Atoi(coord[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return Location{}, false
	}
	return Location{World: s[:i], X: x, Y: y, Z: z}, true
}
