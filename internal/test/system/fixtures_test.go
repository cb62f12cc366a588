package system

import (
	"github.com/vk/tablegrid/internal/engine"
	"github.com/vk/tablegrid/internal/frame"
	"github.com/vk/tablegrid/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

const householdsCSV = `id,income,building_id
h1,10,b1
h2,20,b2
h3,30,b1
`

const buildingsCSV = `building_id,rent
b1,5
b2,7
`

const tablesHCL = `
table "households" {
  source = "data/households.csv"
  index  = "id"
}

table "buildings" {
  source = "data/buildings.csv"
  index  = "building_id"
}

broadcast "buildings" "households" {
  cast_index = true
  onto_on    = "building_id"
}
`

func files(extra map[string]string) map[string]string {
	out := map[string]string{
		"data/households.csv": householdsCSV,
		"data/buildings.csv":  buildingsCSV,
		"tables.hcl":          tablesHCL,
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// growModule registers "grow", which adds the growth injectable to every
// household income.
var growModule = engine.ModuleFunc(func(e *engine.Engine) error {
	fn := func(args registry.Args) (any, error) {
		income, err := registry.Arg[*frame.Series](args, "households.income")
		if err != nil {
			return nil, err
		}
		growth, err := registry.Arg[int64](args, "growth")
		if err != nil {
			return nil, err
		}
		t, err := e.Table("households")
		if err != nil {
			return nil, err
		}
		return nil, t.UpdateCol("income", income.Map(func(v cty.Value) cty.Value {
			return v.Add(cty.NumberIntVal(growth))
		}))
	}
	return e.AddStep("grow", registry.NewFunc(fn, registry.Params("households.income", "growth")...))
})

func column(f *frame.Frame, name string) []any {
	s, ok := f.Column(name)
	if !ok {
		return nil
	}
	out := make([]any, s.Len())
	for i, v := range s.Values() {
		out[i] = frame.ToGo(v)
	}
	return out
}
