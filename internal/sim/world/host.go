package world

import (
	"lavaforge.ai/internal/protocol"
	"lavaforge.ai/internal/sim/station"
)

// The methods below make *World the station.World the lifecycle talks to.

// IsAnchor reports whether loc holds the anchor block with a heat source directly below.
func (w *World) IsAnchor(loc station.Location) bool {
	if w.blocks[loc] != w.cat.Anchor.Block {
		return false
	}
	return w.cat.IsHeatSource(w.blocks[loc.Down()])
}

func (w *World) OpenContainer(viewer string, st *station.Station) {
	p := w.players[viewer]
	if p == nil {
		return
	}
	loc := st.Loc()
	p.Viewing = &loc
	if cl := w.clients[viewer]; cl != nil {
		cl.LastKey = ""
		cl.LastView = nil
	}
}

func (w *World) DropItem(loc station.Location, s station.Stack) {
	if s.Empty() {
		return
	}
	id := w.spawnItemEntity(w.sched.Now(), loc, s.Item, s.Count)
	w.worldEvents = append(w.worldEvents, protocol.Event{
		"type":      "DROP",
		"entity_id": id,
		"pos":       posOf(loc),
		"item":      s.Item,
		"count":     s.Count,
	})
}

func (w *World) SetAnchorBurning(loc station.Location, burning bool) {
	if burning {
		w.burning[loc] = true
	} else {
		delete(w.burning, loc)
	}
	w.worldEvents = append(w.worldEvents, protocol.Event{
		"type":    "BURNING",
		"pos":     posOf(loc),
		"burning": burning,
	})
}

func (w *World) SpawnEffect(p station.Point, kind string, count int) {
	w.worldEvents = append(w.worldEvents, protocol.Event{
		"type":   "EFFECT",
		"effect": kind,
		"pos":    []float64{p.X, p.Y, p.Z},
		"count":  count,
	})
}

func (w *World) PlaySound(p station.Point, kind string, volume, pitch float64) {
	w.worldEvents = append(w.worldEvents, protocol.Event{
		"type":   "SOUND",
		"sound":  kind,
		"pos":    []float64{p.X, p.Y, p.Z},
		"volume": volume,
		"pitch":  pitch,
	})
}

// Burning reports whether the anchor at loc is shown lit.
func (w *World) Burning(loc station.Location) bool { return w.burning[loc] }

func posOf(loc station.Location) [3]int { return [3]int{loc.X, loc.Y, loc.Z} }
