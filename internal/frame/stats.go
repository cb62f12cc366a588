package frame

import (
	"fmt"
	"math"
	"sort"

	"github.com/vk/tablegrid/internal/errdefs"
	"github.com/zclconf/go-cty/cty"
)

// Aggregation names accepted by GroupBy.
const (
	AggSum    = "sum"
	AggMean   = "mean"
	AggMedian = "median"
	AggStd    = "std"
	AggSize   = "size"
)

var describeRows = []string{"count", "mean", "std", "min", "25%", "50%", "75%", "max"}

// Describe returns summary statistics of the numeric columns of f, one
// column per numeric input column and one row per statistic.
func Describe(f *Frame) *Frame {
	out := New(Strings(describeRows...))
	for _, n := range f.columns {
		nums := numbers(f.data[n].values)
		if nums == nil {
			continue
		}
		stats := make([]cty.Value, len(describeRows))
		stats[0] = cty.NumberIntVal(int64(len(nums)))
		if len(nums) == 0 {
			for i := 1; i < len(stats); i++ {
				stats[i] = cty.NullVal(cty.Number)
			}
		} else {
			sorted := append([]float64(nil), nums...)
			sort.Float64s(sorted)
			stats[1] = numberVal(mean(nums))
			stats[2] = numberVal(std(nums))
			stats[3] = numberVal(sorted[0])
			stats[4] = numberVal(quantile(sorted, 0.25))
			stats[5] = numberVal(quantile(sorted, 0.5))
			stats[6] = numberVal(quantile(sorted, 0.75))
			stats[7] = numberVal(sorted[len(sorted)-1])
		}
		out.columns = append(out.columns, n)
		out.data[n] = &Series{name: n, index: out.index, values: stats}
	}
	return out
}

// GroupBy aggregates values by the group labels in keys (one key per row of
// values). Groups are returned sorted by key. Null keys are dropped.
func GroupBy(values *Series, keys []cty.Value, agg string) (*Series, error) {
	if len(keys) != values.Len() {
		return nil, fmt.Errorf("group-by keys have %d rows, values have %d", len(keys), values.Len())
	}
	fn, ok := aggregations[agg]
	if !ok {
		return nil, errdefs.Validationf("agg", "unknown aggregation %q", agg)
	}

	groups := make(map[string][]cty.Value)
	labels := make(map[string]cty.Value)
	for i, k := range keys {
		if k.IsNull() {
			continue
		}
		key := Key(k)
		if _, seen := labels[key]; !seen {
			labels[key] = k
		}
		groups[key] = append(groups[key], values.values[i])
	}

	index := make([]cty.Value, 0, len(labels))
	for _, l := range labels {
		index = append(index, l)
	}
	sortValues(index)

	out := make([]cty.Value, len(index))
	for i, l := range index {
		v, err := fn(groups[Key(l)])
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return &Series{name: values.name, index: index, values: out}, nil
}

var aggregations = map[string]func([]cty.Value) (cty.Value, error){
	AggSize: func(vs []cty.Value) (cty.Value, error) {
		return cty.NumberIntVal(int64(len(vs))), nil
	},
	AggSum: numericAgg(func(xs []float64) float64 {
		total := 0.0
		for _, x := range xs {
			total += x
		}
		return total
	}),
	AggMean: numericAgg(mean),
	AggMedian: numericAgg(func(xs []float64) float64 {
		sorted := append([]float64(nil), xs...)
		sort.Float64s(sorted)
		return quantile(sorted, 0.5)
	}),
	AggStd: numericAgg(std),
}

func numericAgg(fn func([]float64) float64) func([]cty.Value) (cty.Value, error) {
	return func(vs []cty.Value) (cty.Value, error) {
		nums := numbers(vs)
		if nums == nil {
			return cty.NilVal, errdefs.Validationf("column", "aggregation requires a numeric column")
		}
		if len(nums) == 0 {
			return cty.NullVal(cty.Number), nil
		}
		return numberVal(fn(nums)), nil
	}
}

// numbers returns the non-null numeric cells of vs, or nil when vs holds a
// non-numeric cell.
func numbers(vs []cty.Value) []float64 {
	out := make([]float64, 0, len(vs))
	for _, v := range vs {
		if v.IsNull() {
			continue
		}
		f, ok := Float(v)
		if !ok {
			return nil
		}
		out = append(out, f)
	}
	return out
}

func numberVal(f float64) cty.Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return cty.NullVal(cty.Number)
	}
	return cty.NumberFloatVal(f)
}

func mean(xs []float64) float64 {
	total := 0.0
	for _, x := range xs {
		total += x
	}
	return total / float64(len(xs))
}

// std is the sample standard deviation (n-1 denominator).
func std(xs []float64) float64 {
	if len(xs) < 2 {
		return math.NaN()
	}
	m := mean(xs)
	ss := 0.0
	for _, x := range xs {
		ss += (x - m) * (x - m)
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}

// quantile interpolates linearly between the closest ranks of sorted.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}
