package world

import (
	"fmt"
	"slices"

	"lavaforge.ai/internal/sim/station"
)

// ItemEntity is a dropped item stack lying in the world.
type ItemEntity struct {
	EntityID    string
	Loc         station.Location
	Item        string
	Count       int
	CreatedTick uint64
	ExpiresTick uint64
}

func (w *World) newItemEntityID() string {
	n := w.nextItemNum.Add(1)
	return fmt.Sprintf("IT%06d", n)
}

// spawnItemEntity merges into an existing stack of the same item at loc when there is one.
func (w *World) spawnItemEntity(nowTick uint64, loc station.Location, item string, count int) string {
	if item == "" || count <= 0 {
		return ""
	}
	exp := nowTick + uint64(w.cfg.ItemTTLTicks)
	for _, id := range w.itemsAt[loc] {
		if e := w.items[id]; e != nil && e.Item == item {
			e.Count += count
			if exp > e.ExpiresTick {
				e.ExpiresTick = exp
			}
			return e.EntityID
		}
	}
	id := w.newItemEntityID()
	w.items[id] = &ItemEntity{
		EntityID:    id,
		Loc:         loc,
		Item:        item,
		Count:       count,
		CreatedTick: nowTick,
		ExpiresTick: exp,
	}
	w.itemsAt[loc] = append(w.itemsAt[loc], id)
	return id
}

func (w *World) removeItemEntity(id string) {
	e := w.items[id]
	if e == nil {
		return
	}
	delete(w.items, id)
	ids := slices.DeleteFunc(w.itemsAt[e.Loc], func(s string) bool { return s == id })
	if len(ids) == 0 {
		delete(w.itemsAt, e.Loc)
	} else {
		w.itemsAt[e.Loc] = ids
	}
}

// ItemsAt lists the dropped stacks at loc.
func (w *World) ItemsAt(loc station.Location) []station.Stack {
	var out []station.Stack
	for _, id := range w.itemsAt[loc] {
		if e := w.items[id]; e != nil {
			out = append(out, station.Of(e.Item, e.Count))
		}
	}
	return out
}

func (w *World) expireItems(nowTick uint64) {
	var expired []string
	for id, e := range w.items {
		if e.ExpiresTick <= nowTick {
			expired = append(expired, id)
		}
	}
	slices.Sort(expired)
	for _, id := range expired {
		w.removeItemEntity(id)
	}
}
