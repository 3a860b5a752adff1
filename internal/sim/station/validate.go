package station

// CanStart reports whether st holds enough fuel, enough allowed material and an empty container
// to start a run. It only inspects slots.
func (l *Layout) CanStart(st *Station) bool {
	fuel := st.Slot(SlotFuel)
	hasFuel := fuel.Is(l.FuelItem) && fuel.Count >= l.FuelCost

	hasMaterial := l.MaterialCount(st) >= l.MaterialCost

	hasContainer := st.Slot(SlotOutput).Is(l.ContainerItem)

	return hasFuel && hasMaterial && hasContainer
}

// MaterialCount sums allowed material across the material slots.
func (l *Layout) MaterialCount(st *Station) int {
	n := 0
	for _, i := range MaterialSlots {
		s := st.Slot(i)
		if s.Empty() || !l.AllowedMaterial(s.Item) {
			continue
		}
		n += s.Count
	}
	return n
}

// ReduceFuel debits the fuel cost. Callers must have checked CanStart; a short fuel slot is left
// alone rather than driven negative.
func (l *Layout) ReduceFuel(st *Station) {
	fuel := st.Slot(SlotFuel)
	if !fuel.Is(l.FuelItem) || fuel.Count < l.FuelCost {
		return
	}
	st.SetSlot(SlotFuel, fuel.WithCount(fuel.Count-l.FuelCost))
}

// ConsumeMaterial debits the material cost walking MaterialSlots in order. Whole stacks are
// cleared while they fit; the first stack that would overshoot keeps the remainder and stops
// the walk. Returns the amount consumed.
func (l *Layout) ConsumeMaterial(st *Station) int {
	consumed := 0
	for _, i := range MaterialSlots {
		s := st.Slot(i)
		if s.Empty() || !l.AllowedMaterial(s.Item) {
			continue
		}
		if consumed+s.Count <= l.MaterialCost {
			st.SetSlot(i, Stack{})
			consumed += s.Count
			continue
		}
		remainder := (consumed + s.Count) - l.MaterialCost
		st.SetSlot(i, s.WithCount(remainder))
		consumed = l.MaterialCost
		break
	}
	return consumed
}

// FillOutput turns the output slot into exactly one product. Extra empty containers are dropped
// next to the station; anything else found in the slot is dropped whole.
func (l *Layout) FillOutput(st *Station, w World) {
	out := st.Slot(SlotOutput)
	switch {
	case out.Is(l.ContainerItem):
		if out.Count > 1 {
			w.DropItem(st.Loc(), Of(l.ContainerItem, out.Count-1))
		}
	case !out.Empty():
		w.DropItem(st.Loc(), out)
	}
	st.SetSlot(SlotOutput, l.Product())
}
