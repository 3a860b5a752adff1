package world

import (
	"go.uber.org/zap"

	"lavaforge.ai/internal/protocol"
	"lavaforge.ai/internal/sim/catalogs"
	"lavaforge.ai/internal/sim/station"
)

// actionResult is the outcome of one action. A zero Code means success.
type actionResult struct {
	Code    string
	Message string
	Extra   map[string]any
}

func ok(extra map[string]any) actionResult { return actionResult{Extra: extra} }

func fail(code, msg string) actionResult { return actionResult{Code: code, Message: msg} }

type actionHandler func(w *World, p *Player, a protocol.Action) actionResult

var actionHandlers = map[string]actionHandler{
	protocol.ActPlace:  handlePlace,
	protocol.ActBreak:  handleBreak,
	protocol.ActSpread: handleSpread,
	protocol.ActOpen:   handleOpen,
	protocol.ActClose:  handleClose,
	protocol.ActClick:  handleClick,
	protocol.ActPut:    handlePut,
	protocol.ActTake:   handleTake,
	protocol.ActPickup: handlePickup,
}

// applyAct runs every action of act in order and reports one ACTION_RESULT per action.
func (w *World) applyAct(p *Player, act protocol.ActMsg, nowTick uint64) {
	for i, a := range act.Actions {
		res := fail(protocol.ErrBadRequest, "unknown action type")
		if h, found := actionHandlers[a.Type]; found {
			res = h(w, p, a)
		}
		if !protocol.IsKnownCode(res.Code) {
			w.log.Warn("action returned unknown code", zap.String("action", a.Type), zap.String("code", res.Code))
			res = fail(protocol.ErrInternal, res.Message)
		}
		ev := protocol.Event{
			"t":      nowTick,
			"type":   "ACTION_RESULT",
			"ref":    act.ID,
			"index":  i,
			"action": a.Type,
			"ok":     res.Code == "",
		}
		if res.Code != "" {
			ev["code"] = res.Code
			ev["message"] = res.Message
		}
		for k, v := range res.Extra {
			ev[k] = v
		}
		ev["inventory"] = p.inventoryList()
		p.AddEvent(ev)
	}
}

func handlePlace(w *World, p *Player, a protocol.Action) actionResult {
	def, err := w.cat.Lookup(a.Block)
	if err != nil || def.Kind != catalogs.KindBlock {
		return fail(protocol.ErrBadRequest, "not a placeable block")
	}
	loc := w.loc(a.Pos)
	if w.blocks[loc] != "" {
		return fail(protocol.ErrBlocked, "position occupied")
	}
	if p.Inventory[a.Block] < 1 {
		return fail(protocol.ErrNoResource, "missing "+a.Block)
	}
	p.Inventory[a.Block]--
	w.setBlock(loc, a.Block)
	return ok(nil)
}

func handleBreak(w *World, p *Player, a protocol.Action) actionResult {
	loc := w.loc(a.Pos)
	block := w.blocks[loc]
	if block == "" {
		return fail(protocol.ErrInvalidTarget, "no block")
	}
	res := w.lc.Dispatch(station.Event{Kind: station.EventBreak, Loc: loc})
	w.setBlock(loc, "")
	w.DropItem(loc, station.Of(block, 1))
	w.closeViewsOf(loc)
	return ok(map[string]any{"station": res.Handled})
}

// handleSpread lets the heat source at Pos try to spread. Unsuppressed fire burns out.
func handleSpread(w *World, p *Player, a protocol.Action) actionResult {
	loc := w.loc(a.Pos)
	block := w.blocks[loc]
	if !w.cat.IsHeatSource(block) {
		return fail(protocol.ErrInvalidTarget, "not a heat source")
	}
	res := w.lc.Dispatch(station.Event{Kind: station.EventSpread, Loc: loc})
	if res.Cancel {
		return ok(map[string]any{"suppressed": true})
	}
	if block == "FIRE" {
		w.setBlock(loc, "")
	}
	return ok(map[string]any{"suppressed": false})
}

func handleOpen(w *World, p *Player, a protocol.Action) actionResult {
	res := w.lc.Dispatch(station.Event{Kind: station.EventOpen, Loc: w.loc(a.Pos), Viewer: p.ID})
	if !res.Handled {
		return fail(protocol.ErrInvalidTarget, "not a station")
	}
	return ok(map[string]any{"station": res.Station.Loc().String()})
}

func handleClose(w *World, p *Player, a protocol.Action) actionResult {
	p.Viewing = nil
	return ok(nil)
}

func (w *World) viewing(p *Player, a protocol.Action) (station.Location, actionResult, bool) {
	loc := w.loc(a.Pos)
	if p.Viewing == nil || *p.Viewing != loc {
		return loc, fail(protocol.ErrBlocked, "container not open"), false
	}
	if a.Slot < 0 || a.Slot >= station.ContainerSize {
		return loc, fail(protocol.ErrBadRequest, "slot out of range"), false
	}
	return loc, actionResult{}, true
}

func (w *World) click(p *Player, loc station.Location, slot int) (station.Result, actionResult, bool) {
	res := w.lc.Dispatch(station.Event{Kind: station.EventClick, Loc: loc, Slot: slot, Clicker: loc.Point()})
	if !res.Handled {
		return res, fail(protocol.ErrInvalidTarget, "not a station"), false
	}
	return res, actionResult{}, true
}

func handleClick(w *World, p *Player, a protocol.Action) actionResult {
	loc, r, good := w.viewing(p, a)
	if !good {
		return r
	}
	res, r, good := w.click(p, loc, a.Slot)
	if !good {
		return r
	}
	return ok(map[string]any{"cancelled": res.Cancel, "status": res.Station.Status().String()})
}

func handlePut(w *World, p *Player, a protocol.Action) actionResult {
	loc, r, good := w.viewing(p, a)
	if !good {
		return r
	}
	st := w.reg.Get(loc)
	if st == nil {
		return fail(protocol.ErrInvalidTarget, "not a station")
	}
	if _, err := w.cat.Lookup(a.Item); err != nil || a.Count <= 0 {
		return fail(protocol.ErrBadRequest, "bad item or count")
	}
	if p.Inventory[a.Item] < a.Count {
		return fail(protocol.ErrNoResource, "missing "+a.Item)
	}
	cur := st.Slot(a.Slot)
	if !cur.Empty() && !cur.Is(a.Item) {
		return fail(protocol.ErrBlocked, "slot holds another item")
	}
	if cur.Count+a.Count > w.cat.MaxStack(a.Item) {
		return fail(protocol.ErrBlocked, "stack full")
	}

	res, r, good := w.click(p, loc, a.Slot)
	if !good {
		return r
	}
	if res.Cancel {
		return fail(protocol.ErrBlocked, "click cancelled")
	}
	p.Inventory[a.Item] -= a.Count
	st.SetSlot(a.Slot, station.Of(a.Item, cur.Count+a.Count))
	return ok(nil)
}

func handleTake(w *World, p *Player, a protocol.Action) actionResult {
	loc, r, good := w.viewing(p, a)
	if !good {
		return r
	}
	st := w.reg.Get(loc)
	if st == nil {
		return fail(protocol.ErrInvalidTarget, "not a station")
	}
	cur := st.Slot(a.Slot)
	if cur.Empty() {
		return fail(protocol.ErrNoResource, "slot empty")
	}
	n := a.Count
	if n <= 0 {
		n = cur.Count
	}
	if n > cur.Count {
		return fail(protocol.ErrNoResource, "not enough in slot")
	}

	res, r, good := w.click(p, loc, a.Slot)
	if !good {
		return r
	}
	if res.Cancel {
		return fail(protocol.ErrBlocked, "click cancelled")
	}
	p.Inventory[cur.Item] += n
	st.SetSlot(a.Slot, cur.WithCount(cur.Count-n))
	return ok(map[string]any{"item": cur.Item, "count": n})
}

func handlePickup(w *World, p *Player, a protocol.Action) actionResult {
	loc := w.loc(a.Pos)
	ids := append([]string(nil), w.itemsAt[loc]...)
	if len(ids) == 0 {
		return fail(protocol.ErrInvalidTarget, "nothing to pick up")
	}
	picked := 0
	for _, id := range ids {
		e := w.items[id]
		if e == nil {
			continue
		}
		p.Inventory[e.Item] += e.Count
		picked += e.Count
		w.removeItemEntity(id)
	}
	return ok(map[string]any{"count": picked})
}

func (w *World) setBlock(loc station.Location, block string) {
	if block == "" {
		delete(w.blocks, loc)
	} else {
		w.blocks[loc] = block
	}
	w.worldEvents = append(w.worldEvents, protocol.Event{
		"type":  "BLOCK",
		"pos":   posOf(loc),
		"block": block,
	})
}

func (w *World) closeViewsOf(loc station.Location) {
	for _, p := range w.players {
		if p.Viewing != nil && *p.Viewing == loc {
			p.Viewing = nil
		}
	}
}

// Block returns the block at loc ("" for air).
func (w *World) Block(loc station.Location) string { return w.blocks[loc] }
