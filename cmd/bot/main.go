package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"lavaforge.ai/internal/protocol"
)

// bot connects as a player, builds a forge at -pos, runs it once and collects the product.
func main() {
	var (
		url     = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name    = flag.String("name", "bot", "player name")
		x       = flag.Int("x", 0, "forge x")
		y       = flag.Int("y", 64, "forge y")
		z       = flag.Int("z", 0, "forge z")
		timeout = flag.Duration("timeout", 3*time.Minute, "give up after")
	)
	flag.Parse()

	logger, _ := zap.NewDevelopment()
	defer func() { _ = logger.Sync() }()

	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatal("dial", zap.Error(err))
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		PlayerName:      *name,
		Capabilities:    protocol.HelloCapabilities{MaxQueue: 16},
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatal("send HELLO", zap.Error(err))
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	go func() {
		<-stop
		_ = conn.Close()
	}()

	b := &bot{conn: conn, log: logger, pos: [3]int{*x, *y, *z}}
	_ = conn.SetReadDeadline(time.Now().Add(*timeout))
	for !b.done {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			logger.Fatal("read", zap.Error(err))
		}
		if err := b.handle(msg); err != nil {
			logger.Fatal("forge", zap.Error(err))
		}
	}
	logger.Info("collected product", zap.Int("x", *x), zap.Int("y", *y), zap.Int("z", *z))
}

type phase int

const (
	phaseJoin phase = iota
	phaseRunning
	phaseCollect
)

type bot struct {
	conn  *websocket.Conn
	log   *zap.Logger
	pos   [3]int
	phase phase
	seq   int
	done  bool
}

func (b *bot) handle(msg []byte) error {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return nil
	}
	switch base.Type {
	case protocol.TypeWelcome:
		var w protocol.WelcomeMsg
		if err := json.Unmarshal(msg, &w); err != nil {
			return err
		}
		b.log.Info("welcome", zap.String("player", w.PlayerID), zap.String("world", w.WorldID),
			zap.Int("run_ticks", w.WorldParams.RunTicks))
		return b.build(w.WorldParams)

	case protocol.TypeEvent:
		var ev protocol.EventMsg
		if err := json.Unmarshal(msg, &ev); err != nil {
			return err
		}
		for _, e := range ev.Events {
			if e["type"] == "ACTION_RESULT" && e["ok"] != true {
				b.log.Warn("action failed", zap.Any("action", e["action"]), zap.Any("code", e["code"]), zap.Any("message", e["message"]))
			}
		}

	case protocol.TypeStation:
		var st protocol.StationMsg
		if err := json.Unmarshal(msg, &st); err != nil {
			return err
		}
		b.log.Debug("station", zap.String("status", st.Status), zap.Uint64("tick", st.Tick))
		switch {
		case b.phase == phaseRunning && st.Status == "IDLE" && hasProduct(st):
			b.phase = phaseCollect
			return b.send(protocol.Action{Type: protocol.ActTake, Pos: b.pos, Slot: 25})
		case b.phase == phaseCollect && !hasProduct(st):
			b.done = true
		}
	}
	return nil
}

// build places the forge, loads it with one run's worth of inputs and presses start.
func (b *bot) build(p protocol.WorldParams) error {
	below := [3]int{b.pos[0], b.pos[1] - 1, b.pos[2]}
	actions := []protocol.Action{
		{Type: protocol.ActPlace, Pos: below, Block: "CAMPFIRE"},
		{Type: protocol.ActPlace, Pos: b.pos, Block: "FURNACE"},
		{Type: protocol.ActOpen, Pos: b.pos},
		{Type: protocol.ActPut, Pos: b.pos, Slot: 19, Item: "COAL_BLOCK", Count: p.FuelCost},
		{Type: protocol.ActPut, Pos: b.pos, Slot: 25, Item: "BUCKET", Count: 1},
	}
	left := p.MaterialCost
	for _, slot := range []int{21, 22, 23, 30, 31, 32} {
		if left <= 0 {
			break
		}
		n := min(left, 64)
		actions = append(actions, protocol.Action{Type: protocol.ActPut, Pos: b.pos, Slot: slot, Item: "COBBLESTONE", Count: n})
		left -= n
	}
	actions = append(actions, protocol.Action{Type: protocol.ActClick, Pos: b.pos, Slot: 37})
	b.phase = phaseRunning
	return b.send(actions...)
}

func (b *bot) send(actions ...protocol.Action) error {
	b.seq++
	return b.conn.WriteJSON(protocol.ActMsg{
		Type:            protocol.TypeAct,
		ProtocolVersion: protocol.Version,
		ID:              fmt.Sprintf("bot-%d", b.seq),
		Actions:         actions,
	})
}

func hasProduct(st protocol.StationMsg) bool {
	for _, s := range st.Slots {
		if s.Slot == 25 && s.Item == "LAVA_BUCKET" {
			return true
		}
	}
	return false
}
