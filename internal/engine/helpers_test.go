package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/tablegrid/internal/frame"
	"github.com/zclconf/go-cty/cty"
)

// df is the frame most tests start from: columns a and b over labels x, y, z.
func df() *frame.Frame {
	idx := frame.Strings("x", "y", "z")
	return frame.MustFrame(idx,
		frame.MustSeries("a", idx, frame.Ints(1, 2, 3)),
		frame.MustSeries("b", idx, frame.Ints(4, 5, 6)),
	)
}

func scale(f *frame.Frame, k float64) *frame.Frame {
	out := frame.New(f.Index())
	for _, c := range f.Columns() {
		s, _ := f.Column(c)
		_ = out.SetColumn(c, scaleSeries(s, k))
	}
	return out
}

func scaleSeries(s *frame.Series, k float64) *frame.Series {
	return s.Map(func(v cty.Value) cty.Value { return v.Multiply(cty.NumberFloatVal(k)) })
}

func addSeries(a, b *frame.Series) *frame.Series {
	out := a.Copy()
	for i := 0; i < out.Len(); i++ {
		out.Set(i, a.At(i).Add(b.At(i)))
	}
	return out
}

func requireFrame(t *testing.T, want, got *frame.Frame) {
	t.Helper()
	require.NotNil(t, got)
	require.Truef(t, want.Equal(got), "frames differ\nwant %v %v\n got %v %v", want, cells(want), got, cells(got))
}

func requireSeries(t *testing.T, want []cty.Value, got *frame.Series) {
	t.Helper()
	require.NotNil(t, got)
	require.Equal(t, keys(want), keys(got.Values()))
}

func keys(vs []cty.Value) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = frame.Key(v)
	}
	return out
}

func cells(f *frame.Frame) map[string][]string {
	out := make(map[string][]string)
	for _, c := range f.Columns() {
		s, _ := f.Column(c)
		out[c] = keys(s.Values())
	}
	return out
}
