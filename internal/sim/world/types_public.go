package world

import "lavaforge.ai/internal/protocol"

type JoinRequest struct {
	Name string
	Out  chan []byte
	Resp chan JoinResponse
}

type JoinResponse struct {
	Welcome  protocol.WelcomeMsg
	Catalogs []protocol.CatalogMsg
}

type ActionEnvelope struct {
	PlayerID string
	Act      protocol.ActMsg
}

// StationInfo is a read-only summary of a live station, safe to hand to other goroutines.
type StationInfo struct {
	Key    string `json:"key"`
	Status string `json:"status"`
	Dirty  bool   `json:"dirty"`
	RunID  string `json:"run_id,omitempty"`
	Ends   uint64 `json:"completes_tick,omitempty"`
}
