package broadcast

import (
	"github.com/vk/tablegrid/internal/errdefs"
	"github.com/vk/tablegrid/internal/frame"
)

// Broadcast declares that Cast joins onto Onto. Each side joins either on a
// column (CastOn, OntoOn) or on its index (CastIndex, OntoIndex).
type Broadcast struct {
	Cast      string `json:"cast"`
	Onto      string `json:"onto"`
	CastOn    string `json:"cast_on,omitempty"`
	OntoOn    string `json:"onto_on,omitempty"`
	CastIndex bool   `json:"cast_index,omitempty"`
	OntoIndex bool   `json:"onto_index,omitempty"`
}

// Validate checks the table names and that each side names exactly one key.
func (b Broadcast) Validate() error {
	switch {
	case b.Cast == "":
		return errdefs.Validationf("cast", "table name is required")
	case b.Onto == "":
		return errdefs.Validationf("onto", "table name is required")
	case b.Cast == b.Onto:
		return errdefs.Validationf("onto", "table %q cannot broadcast onto itself", b.Cast)
	case b.CastIndex == (b.CastOn != ""):
		return errdefs.Validationf("cast_on", "exactly one of cast_on and cast_index must be set")
	case b.OntoIndex == (b.OntoOn != ""):
		return errdefs.Validationf("onto_on", "exactly one of onto_on and onto_index must be set")
	}
	return nil
}

// JoinSpec converts the join keys for frame.Join.
func (b Broadcast) JoinSpec() frame.JoinSpec {
	return frame.JoinSpec{
		CastOn:    b.CastOn,
		CastIndex: b.CastIndex,
		OntoOn:    b.OntoOn,
		OntoIndex: b.OntoIndex,
	}
}

// KeyColumns returns the join columns b needs from table, if any.
func (b Broadcast) KeyColumns(table string) []string {
	var out []string
	if table == b.Cast && b.CastOn != "" {
		out = append(out, b.CastOn)
	}
	if table == b.Onto && b.OntoOn != "" {
		out = append(out, b.OntoOn)
	}
	return out
}

type pair struct{ cast, onto string }

// Set is the ordered collection of registered broadcasts, holding at most
// one broadcast per (cast, onto) pair.
type Set struct {
	order []pair
	items map[pair]Broadcast
}

// NewSet returns an empty Set.
func NewSet() *Set {
	return &Set{items: make(map[pair]Broadcast)}
}

// Add validates and stores b, replacing any broadcast for the same pair in
// place. It reports whether a broadcast was replaced.
func (s *Set) Add(b Broadcast) (bool, error) {
	if err := b.Validate(); err != nil {
		return false, err
	}
	p := pair{b.Cast, b.Onto}
	_, replaced := s.items[p]
	if !replaced {
		s.order = append(s.order, p)
	}
	s.items[p] = b
	return replaced, nil
}

// Get returns the broadcast of cast onto onto.
func (s *Set) Get(cast, onto string) (Broadcast, bool) {
	b, ok := s.items[pair{cast, onto}]
	return b, ok
}

// Remove deletes the broadcast of cast onto onto and reports whether one
// existed.
func (s *Set) Remove(cast, onto string) bool {
	p := pair{cast, onto}
	if _, ok := s.items[p]; !ok {
		return false
	}
	delete(s.items, p)
	for i, q := range s.order {
		if q == p {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// RemoveTable deletes every broadcast naming table on either side.
func (s *Set) RemoveTable(table string) {
	for _, b := range s.List() {
		if b.Cast == table || b.Onto == table {
			s.Remove(b.Cast, b.Onto)
		}
	}
}

// List returns every broadcast in registration order.
func (s *Set) List() []Broadcast {
	out := make([]Broadcast, len(s.order))
	for i, p := range s.order {
		out[i] = s.items[p]
	}
	return out
}

// Among returns the broadcasts whose cast and onto are both in tables, in
// registration order.
func (s *Set) Among(tables []string) []Broadcast {
	in := make(map[string]bool, len(tables))
	for _, t := range tables {
		in[t] = true
	}
	var out []Broadcast
	for _, p := range s.order {
		if in[p.cast] && in[p.onto] {
			out = append(out, s.items[p])
		}
	}
	return out
}

// Len is the number of registered broadcasts.
func (s *Set) Len() int { return len(s.order) }

// Clear removes every broadcast.
func (s *Set) Clear() {
	s.order = nil
	s.items = make(map[pair]Broadcast)
}
