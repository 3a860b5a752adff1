package world

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"maps"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"lavaforge.ai/internal/protocol"
)

func (w *World) buildWelcome(playerID, sessionID string) protocol.WelcomeMsg {
	return protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       sessionID,
		PlayerID:        playerID,
		WorldID:         w.cfg.ID,
		WorldParams: protocol.WorldParams{
			TickRateHz:   w.cfg.TickRateHz,
			RunTicks:     w.tune.RunTicks,
			FuelCost:     w.tune.FuelCost,
			MaterialCost: w.tune.MaterialCost,
		},
		Catalogs: protocol.CatalogDigests{
			Materials:    protocol.DigestRef{Digest: w.cat.Digest, Count: len(w.cat.Palette)},
			TuningDigest: w.tuningDigest(),
		},
	}
}

func (w *World) tuningDigest() string {
	b, _ := json.Marshal(w.tune)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func (w *World) buildCatalogMsgs() []protocol.CatalogMsg {
	return []protocol.CatalogMsg{
		{
			Type:            protocol.TypeCatalog,
			ProtocolVersion: protocol.Version,
			Name:            "materials",
			Digest:          w.cat.Digest,
			Part:            1,
			TotalParts:      1,
			Data:            json.RawMessage(w.cat.Compact()),
		},
		{
			Type:            protocol.TypeCatalog,
			ProtocolVersion: protocol.Version,
			Name:            "tuning",
			Digest:          w.tuningDigest(),
			Part:            1,
			TotalParts:      1,
			Data:            w.tune,
		},
	}
}

func normalizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "player"
	}
	if len(name) > 32 {
		name = name[:32]
	}
	return name
}

func (w *World) joinPlayer(name string, out chan []byte) JoinResponse {
	p := &Player{
		ID:        w.newPlayerID(),
		Name:      normalizeName(name),
		Inventory: maps.Clone(w.cfg.StarterItems),
	}
	if p.Inventory == nil {
		p.Inventory = map[string]int{}
	}
	sessionID := uuid.NewString()
	w.players[p.ID] = p
	if out != nil {
		w.clients[p.ID] = &clientState{Out: out, SessionID: sessionID}
	}
	w.log.Info("player joined", zap.String("player", p.ID), zap.String("name", p.Name), zap.String("session", sessionID))
	return JoinResponse{
		Welcome:  w.buildWelcome(p.ID, sessionID),
		Catalogs: w.buildCatalogMsgs(),
	}
}

func (w *World) handleJoin(req JoinRequest) {
	resp := w.joinPlayer(req.Name, req.Out)
	if req.Resp != nil {
		req.Resp <- resp
	}
}

func (w *World) handleLeave(playerID string) {
	if _, found := w.players[playerID]; !found {
		return
	}
	delete(w.players, playerID)
	delete(w.clients, playerID)
	w.log.Info("player left", zap.String("player", playerID))
}

// Player returns the live player with id, for tests and the loop goroutine only.
func (w *World) Player(id string) *Player { return w.players[id] }
