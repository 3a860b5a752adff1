package station

import "slices"

// Stack is an item stack held in a slot. The zero value is an empty slot.
// Stacks are values: Lore is never mutated after construction.
type Stack struct {
	Item  string   `json:"item" yaml:"item"`
	Count int      `json:"count" yaml:"count"`
	Name  string   `json:"name,omitempty" yaml:"name,omitempty"`
	Lore  []string `json:"lore,omitempty" yaml:"lore,omitempty"`
	Glint bool     `json:"glint,omitempty" yaml:"glint,omitempty"`
}

func Of(item string, count int) Stack {
	if item == "" || count <= 0 {
		return Stack{}
	}
	return Stack{Item: item, Count: count}
}

// Display builds a decorative GUI item.
func Display(item string, count int, name string, lore ...string) Stack {
	s := Of(item, count)
	if s.Empty() {
		return s
	}
	s.Name = name
	if len(lore) > 0 {
		s.Lore = slices.Clone(lore)
	}
	return s
}

func (s Stack) Empty() bool { return s.Item == "" || s.Count <= 0 }

func (s Stack) Is(item string) bool { return !s.Empty() && s.Item == item }

// WithCount returns a copy holding n units; n <= 0 yields an empty slot.
func (s Stack) WithCount(n int) Stack {
	if n <= 0 {
		return Stack{}
	}
	s.Count = n
	return s
}

func (s Stack) WithGlint() Stack {
	s.Glint = true
	return s
}

func (s Stack) Equal(o Stack) bool {
	if s.Empty() || o.Empty() {
		return s.Empty() == o.Empty()
	}
	return s.Item == o.Item && s.Count == o.Count && s.Name == o.Name && s.Glint == o.Glint && slices.Equal(s.Lore, o.Lore)
}
