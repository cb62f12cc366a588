package frame

import (
	"github.com/vk/tablegrid/internal/errdefs"
	"github.com/zclconf/go-cty/cty"
)

// JoinSpec names the keys of a pairwise join. Each side joins either on a
// column (CastOn, OntoOn) or on its index (CastIndex, OntoIndex).
type JoinSpec struct {
	CastOn    string
	CastIndex bool
	OntoOn    string
	OntoIndex bool
}

// Join merges cast into onto with an inner equality join on the keys of
// spec. Rows follow onto's order; an onto row matching several cast rows
// fans out in cast order and an onto row matching none is dropped. The
// result keeps onto's index labels.
//
// Columns of cast that onto also has are dropped from the cast side, so the
// result holds cast's remaining columns followed by all of onto's.
func Join(cast, onto *Frame, spec JoinSpec) (*Frame, error) {
	castKeys, err := joinKeys(cast, spec.CastOn, spec.CastIndex, "cast_on")
	if err != nil {
		return nil, err
	}
	ontoKeys, err := joinKeys(onto, spec.OntoOn, spec.OntoIndex, "onto_on")
	if err != nil {
		return nil, err
	}

	byKey := positions(castKeys)
	var castRows, ontoRows []int
	for i, k := range ontoKeys {
		if k.IsNull() {
			continue
		}
		for _, j := range byKey[Key(k)] {
			castRows = append(castRows, j)
			ontoRows = append(ontoRows, i)
		}
	}

	index := make([]cty.Value, len(ontoRows))
	for i, r := range ontoRows {
		index[i] = onto.index[r]
	}
	out := New(index)
	for _, n := range cast.columns {
		if onto.HasColumn(n) {
			continue
		}
		out.columns = append(out.columns, n)
		out.data[n] = cast.data[n].take(castRows, out.index)
	}
	for _, n := range onto.columns {
		out.columns = append(out.columns, n)
		out.data[n] = onto.data[n].take(ontoRows, out.index)
	}
	return out, nil
}

func joinKeys(f *Frame, on string, useIndex bool, field string) ([]cty.Value, error) {
	switch {
	case useIndex && on != "":
		return nil, errdefs.Validationf(field, "cannot join on both the index and column %q", on)
	case useIndex:
		return f.index, nil
	case on == "":
		return nil, errdefs.Validationf(field, "join key is required when not joining on the index")
	}
	s, ok := f.data[on]
	if !ok {
		return nil, errdefs.NotFound("join column", on)
	}
	return s.values, nil
}
