package world

import (
	"context"
	"encoding/json"
	"slices"
	"time"

	"go.uber.org/zap"

	"lavaforge.ai/internal/protocol"
	"lavaforge.ai/internal/sim/station"
)

func (w *World) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(w.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pendingActions []ActionEnvelope
	var pendingJoins []JoinRequest
	var pendingLeaves []string
	var pendingAdmin []adminReq

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case req := <-w.join:
			pendingJoins = append(pendingJoins, req)
		case id := <-w.leave:
			pendingLeaves = append(pendingLeaves, id)
		case req := <-w.admin:
			pendingAdmin = append(pendingAdmin, req)
		case env := <-w.inbox:
			pendingActions = append(pendingActions, env)
		case <-ticker.C:
			w.step(pendingJoins, pendingLeaves, pendingActions)
			w.handleAdminRequests(pendingAdmin)
			pendingJoins = pendingJoins[:0]
			pendingLeaves = pendingLeaves[:0]
			pendingActions = pendingActions[:0]
			pendingAdmin = pendingAdmin[:0]
		}
	}
}

func (w *World) Stop() { close(w.stop) }

// StepOnce advances the world by a single tick using the same ordering semantics as Run.
func (w *World) StepOnce(joins []JoinRequest, leaves []string, actions []ActionEnvelope) uint64 {
	tick := w.sched.Now()
	w.step(joins, leaves, actions)
	return tick
}

// step runs one tick: leaves, joins, player actions in receive order, then every scheduled
// task due this tick, then outbound messages.
func (w *World) step(joins []JoinRequest, leaves []string, actions []ActionEnvelope) {
	nowTick := w.sched.Now()

	for _, p := range w.players {
		p.Events = p.Events[:0]
	}
	w.worldEvents = w.worldEvents[:0]

	for _, id := range leaves {
		w.handleLeave(id)
	}
	for _, req := range joins {
		w.handleJoin(req)
	}

	for _, env := range actions {
		p := w.players[env.PlayerID]
		if p == nil {
			continue
		}
		w.applyAct(p, env.Act, nowTick)
	}

	w.sched.Advance()
	w.expireItems(nowTick)

	w.flush(nowTick)

	w.tick.Store(w.sched.Now())
	if w.onTick != nil {
		w.onTick(nowTick, w.reg.Len())
	}
}

// flush sends each connected player its events and, when it changed, the view of the station it
// has open.
func (w *World) flush(nowTick uint64) {
	for id, p := range w.players {
		cl := w.clients[id]
		if cl == nil {
			continue
		}
		events := make([]protocol.Event, 0, len(w.worldEvents)+len(p.Events))
		events = append(events, w.worldEvents...)
		events = append(events, p.Events...)
		if len(events) > 0 {
			w.send(cl, protocol.EventMsg{
				Type:            protocol.TypeEvent,
				ProtocolVersion: protocol.Version,
				Tick:            nowTick,
				Events:          events,
			})
		}

		if p.Viewing == nil {
			cl.LastKey, cl.LastView = "", nil
			continue
		}
		st := w.reg.Get(*p.Viewing)
		if st == nil {
			p.Viewing = nil
			continue
		}
		slots := st.Slots()
		key := st.Loc().String()
		if cl.LastKey == key && slices.EqualFunc(cl.LastView, slots, station.Stack.Equal) {
			continue
		}
		cl.LastKey, cl.LastView = key, slots
		w.send(cl, stationView(nowTick, st))
	}
}

func stationView(nowTick uint64, st *station.Station) protocol.StationMsg {
	msg := protocol.StationMsg{
		Type:            protocol.TypeStation,
		ProtocolVersion: protocol.Version,
		Tick:            nowTick,
		Station:         st.Loc().String(),
		Title:           station.Title,
		Status:          st.Status().String(),
	}
	for i, s := range st.Slots() {
		if s.Empty() {
			continue
		}
		msg.Slots = append(msg.Slots, protocol.SlotView{
			Slot:  i,
			Item:  s.Item,
			Count: s.Count,
			Name:  s.Name,
			Lore:  s.Lore,
			Glint: s.Glint,
		})
	}
	return msg
}

func (w *World) send(cl *clientState, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		w.log.Warn("marshal outbound", zap.Error(err))
		return
	}
	sendLatest(cl.Out, b)
}

// sendLatest never blocks the loop: when the queue is full the oldest message is dropped.
func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}
