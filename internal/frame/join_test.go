package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/tablegrid/internal/errdefs"
)

func TestJoin_IndexOntoColumn(t *testing.T) {
	aIdx := Strings("aa", "ab", "ac")
	a := MustFrame(aIdx, MustSeries("a1", aIdx, Ints(1, 2, 3)))

	bIdx := Strings("ba", "bb", "bc", "bd", "be")
	b := MustFrame(bIdx,
		MustSeries("b1", bIdx, Ints(10, 11, 12, 13, 14)),
		MustSeries("a_id", bIdx, Strings("ac", "ac", "ab", "aa", "ab")),
	)

	merged, err := Join(a, b, JoinSpec{CastIndex: true, OntoOn: "a_id"})
	require.NoError(t, err)

	want := MustFrame(bIdx,
		MustSeries("a1", bIdx, Ints(3, 3, 2, 1, 2)),
		MustSeries("b1", bIdx, Ints(10, 11, 12, 13, 14)),
		MustSeries("a_id", bIdx, Strings("ac", "ac", "ab", "aa", "ab")),
	)
	assert.True(t, want.Equal(merged), "got %v", merged)
}

func TestJoin_FanOutAndDrop(t *testing.T) {
	castIdx := Strings("c0", "c1", "c2")
	cast := MustFrame(castIdx,
		MustSeries("k", castIdx, Strings("x", "x", "y")),
		MustSeries("v", castIdx, Ints(1, 2, 3)),
	)
	ontoIdx := Strings("o0", "o1", "o2")
	onto := MustFrame(ontoIdx,
		MustSeries("key", ontoIdx, Strings("x", "z", "y")),
	)

	merged, err := Join(cast, onto, JoinSpec{CastOn: "k", OntoOn: "key"})
	require.NoError(t, err)

	idx := Strings("o0", "o0", "o2")
	want := MustFrame(idx,
		MustSeries("k", idx, Strings("x", "x", "y")),
		MustSeries("v", idx, Ints(1, 2, 3)),
		MustSeries("key", idx, Strings("x", "x", "y")),
	)
	assert.True(t, want.Equal(merged), "got %v", merged)
}

func TestJoin_DropsIntersectingCastColumns(t *testing.T) {
	castIdx := Strings("a", "b")
	cast := MustFrame(castIdx,
		MustSeries("shared", castIdx, Ints(1, 2)),
		MustSeries("only_cast", castIdx, Ints(3, 4)),
	)
	ontoIdx := Strings("o")
	onto := MustFrame(ontoIdx,
		MustSeries("shared", ontoIdx, Ints(9)),
		MustSeries("fk", ontoIdx, Strings("b")),
	)

	merged, err := Join(cast, onto, JoinSpec{CastIndex: true, OntoOn: "fk"})
	require.NoError(t, err)
	assert.Equal(t, []string{"only_cast", "shared", "fk"}, merged.Columns())

	shared, _ := merged.Column("shared")
	assert.Equal(t, "n:9", Key(shared.At(0)))
}

func TestJoin_IndexToIndex(t *testing.T) {
	idx := Strings("p", "q")
	left := MustFrame(idx, MustSeries("l", idx, Ints(1, 2)))
	rightIdx := Strings("q", "r")
	right := MustFrame(rightIdx, MustSeries("r", rightIdx, Ints(3, 4)))

	merged, err := Join(left, right, JoinSpec{CastIndex: true, OntoIndex: true})
	require.NoError(t, err)
	assert.Equal(t, 1, merged.Len())
	assert.Equal(t, "s:q", Key(merged.Index()[0]))
}

func TestJoin_Errors(t *testing.T) {
	idx := Strings("p")
	f := MustFrame(idx, MustSeries("c", idx, Ints(1)))

	_, err := Join(f, f, JoinSpec{CastOn: "missing", OntoIndex: true})
	assert.ErrorIs(t, err, errdefs.ErrNotFound)

	_, err = Join(f, f, JoinSpec{CastOn: "c", CastIndex: true, OntoIndex: true})
	assert.ErrorIs(t, err, errdefs.ErrValidation)

	_, err = Join(f, f, JoinSpec{CastIndex: true})
	assert.ErrorIs(t, err, errdefs.ErrValidation)
}
