package station

import "sort"

// Registry maps locations to live stations. It is the single source of truth for loaded stations
// and, like the stations it holds, is only touched from the world loop goroutine.
type Registry struct {
	byLoc map[Location]*Station
}

func NewRegistry() *Registry {
	return &Registry{byLoc: map[Location]*Station{}}
}

func (r *Registry) Get(loc Location) *Station { return r.byLoc[loc] }

func (r *Registry) Contains(loc Location) bool {
	_, ok := r.byLoc[loc]
	return ok
}

// Put registers st at its location, replacing any previous entry.
func (r *Registry) Put(st *Station) { r.byLoc[st.Loc()] = st }

func (r *Registry) Remove(loc Location) *Station {
	st := r.byLoc[loc]
	delete(r.byLoc, loc)
	return st
}

func (r *Registry) Len() int { return len(r.byLoc) }

// All returns the live stations ordered by location string.
func (r *Registry) All() []*Station {
	out := make([]*Station, 0, len(r.byLoc))
	for _, st := range r.byLoc {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].loc.String() < out[j].loc.String() })
	return out
}
