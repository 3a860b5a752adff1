package world

import (
	"fmt"
	"sort"

	"lavaforge.ai/internal/protocol"
	"lavaforge.ai/internal/sim/station"
)

type Player struct {
	ID        string
	Name      string
	Inventory map[string]int

	// Viewing is the station container the player has open, if any.
	Viewing *station.Location

	// Events queued for the player this tick.
	Events []protocol.Event
}

func (p *Player) AddEvent(e protocol.Event) { p.Events = append(p.Events, e) }

func (p *Player) inventoryList() []protocol.ItemStack {
	out := make([]protocol.ItemStack, 0, len(p.Inventory))
	for item, n := range p.Inventory {
		if n > 0 {
			out = append(out, protocol.ItemStack{Item: item, Count: n})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Item < out[j].Item })
	return out
}

func (w *World) newPlayerID() string {
	n := w.nextPlayerNum.Add(1)
	return fmt.Sprintf("P%d", n)
}
