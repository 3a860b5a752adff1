package protocol

// ACT (client -> server): a batch of player actions applied in order on the next tick.
type ActMsg struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version"`
	ID              string   `json:"id"`
	Actions         []Action `json:"actions"`
}

// Action kinds.
const (
	ActPlace  = "PLACE"  // set Block at Pos
	ActBreak  = "BREAK"  // clear the block at Pos
	ActSpread = "SPREAD" // fire at Pos tries to spread
	ActOpen   = "OPEN"   // open the container at Pos
	ActClose  = "CLOSE"  // stop viewing the container at Pos
	ActClick  = "CLICK"  // click Slot of the container at Pos
	ActPut    = "PUT"    // click Slot, then move Count of Item from the player into it
	ActTake   = "TAKE"   // click Slot, then move Count out of it to the player
	ActPickup = "PICKUP" // collect dropped items at Pos
)

type Action struct {
	Type  string `json:"type"`
	Pos   [3]int `json:"pos"`
	Block string `json:"block,omitempty"`
	Slot  int    `json:"slot,omitempty"`
	Item  string `json:"item,omitempty"`
	Count int    `json:"count,omitempty"`
}
