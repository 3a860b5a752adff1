package world

type WorldConfig struct {
	ID         string
	TickRateHz int

	// Starter items granted to newly joined players.
	// If nil, defaults are applied; if non-nil but empty, new players get no starter items.
	StarterItems map[string]int

	// Dropped items despawn after this many ticks.
	ItemTTLTicks int

	// Outbound queue size per session.
	MaxQueue int
}

func (c *WorldConfig) applyDefaults() {
	if c.ID == "" {
		c.ID = "world"
	}
	if c.TickRateHz <= 0 {
		c.TickRateHz = 20
	}
	if c.StarterItems == nil {
		c.StarterItems = map[string]int{
			"FURNACE":     1,
			"CAMPFIRE":    1,
			"COAL_BLOCK":  64,
			"COBBLESTONE": 256,
			"BUCKET":      4,
		}
	}
	if c.ItemTTLTicks <= 0 {
		c.ItemTTLTicks = 6000
	}
	if c.MaxQueue <= 0 {
		c.MaxQueue = 64
	}
}
