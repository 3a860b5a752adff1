package station

import (
	"slices"
	"strconv"

	"lavaforge.ai/internal/sim/catalogs"
	"lavaforge.ai/internal/sim/tuning"
)

const (
	Title = "Lava Forge"

	// 6 rows of 9.
	ContainerSize = 54

	SlotFuel   = 19
	SlotOutput = 25
	SlotLock   = 28
	SlotButton = 37

	slotFuelHint     = 10
	slotMaterialHint = 13
	slotOutputHint   = 16
	slotCredits      = 53

	itemFiller = "BLACK_STAINED_GLASS_PANE"
	itemMarker = "ORANGE_STAINED_GLASS_PANE"
	itemHint   = "HOPPER"
	itemButton = "BLAZE_POWDER"
)

// MaterialSlots are walked in this order by ConsumeMaterial.
var MaterialSlots = []int{21, 22, 23, 30, 31, 32}

// GUISlots are the player-editable slots; they are the only ones persisted.
var GUISlots = []int{21, 22, 23, 30, 31, 32, SlotFuel, SlotOutput}

// Layout is the shared read-only description of a station container and the costs of a run.
type Layout struct {
	FuelItem      string
	ContainerItem string
	ProductItem   string
	allowed       map[string]bool

	FuelCost     int
	MaterialCost int

	RunTicks        uint64
	EffectInterval  uint64
	EffectTicks     int
	CompletionDelay uint64
}

func NewLayout(cat *catalogs.Catalog, tune tuning.Tuning) *Layout {
	l := &Layout{
		FuelItem:        cat.Fuel,
		ContainerItem:   cat.Container,
		ProductItem:     cat.Product,
		allowed:         make(map[string]bool, len(cat.Materials)),
		FuelCost:        tune.FuelCost,
		MaterialCost:    tune.MaterialCost,
		RunTicks:        uint64(tune.RunTicks),
		EffectInterval:  uint64(tune.EffectIntervalTicks),
		EffectTicks:     tune.EffectTicks(),
		CompletionDelay: uint64(tune.RunTicks + tune.CompletionEpsilonTicks),
	}
	for _, m := range cat.Materials {
		l.allowed[m] = true
	}
	return l
}

func (l *Layout) AllowedMaterial(item string) bool { return l.allowed[item] }

func IsGUISlot(i int) bool { return slices.Contains(GUISlots, i) }

// Product is one unit of the run's output.
func (l *Layout) Product() Stack { return Of(l.ProductItem, 1) }

func LockMarker() Stack { return Display(itemMarker, 1, "Melting...") }

func IdleLock() Stack { return Display(itemFiller, 1, " ") }

// FreshSlots is the content of a newly built station: decorative filler everywhere except the
// empty GUI slots, plus hints, the start button and the credits pane.
func (l *Layout) FreshSlots() []Stack {
	slots := make([]Stack, ContainerSize)
	fill := Display(itemFiller, 1, " ")
	for i := range slots {
		slots[i] = fill
	}
	for _, i := range GUISlots {
		slots[i] = Stack{}
	}
	slots[slotMaterialHint] = Display(itemHint, 1, "⬇ Stone ⬇", " ", strconv.Itoa(l.MaterialCost)+" blocks,", "any type.")
	slots[slotFuelHint] = Display(itemHint, 1, "⬇ "+strconv.Itoa(l.FuelCost)+" Coal Blocks ⬇")
	slots[slotOutputHint] = Display(itemHint, 1, "⬇ Bucket ⬇", " ", "Place empty bucket")
	slots[SlotButton] = Display(itemButton, 1, "START FORGE")
	slots[slotCredits] = Display(itemFiller, 1, "Lava Forge").WithGlint()
	return slots
}

// NewStation builds a fresh idle station at loc.
func (l *Layout) NewStation(loc Location) *Station { return New(loc, l.FreshSlots()) }
