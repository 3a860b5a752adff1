package protocol

// EVENT (server -> client): things that happened this tick near the player.
type EventMsg struct {
	Type            string  `json:"type"`
	ProtocolVersion string  `json:"protocol_version"`
	Tick            uint64  `json:"tick"`
	Events          []Event `json:"events"`
}

// Event is a free-form payload keyed by "type" (SOUND, EFFECT, BURNING, DROP, BLOCK, ERROR, ...).
type Event map[string]any

// STATION (server -> client): the full container view of one station.
type StationMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	Tick            uint64     `json:"tick"`
	Station         string     `json:"station"`
	Title           string     `json:"title"`
	Status          string     `json:"status"`
	Slots           []SlotView `json:"slots"`
}

// SlotView is one non-empty slot.
type SlotView struct {
	Slot  int      `json:"slot"`
	Item  string   `json:"item"`
	Count int      `json:"count"`
	Name  string   `json:"name,omitempty"`
	Lore  []string `json:"lore,omitempty"`
	Glint bool     `json:"glint,omitempty"`
}

// ItemStack is a player inventory entry.
type ItemStack struct {
	Item  string `json:"item"`
	Count int    `json:"count"`
}
