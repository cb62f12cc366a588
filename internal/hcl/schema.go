package hcl

import "github.com/zclconf/go-cty/cty"

// fileRoot is a struct used to decode all possible top-level blocks from any
// file.
type fileRoot struct {
	Tables      []*tableBlock      `hcl:"table,block"`
	Injectables []*injectableBlock `hcl:"injectable,block"`
	Broadcasts  []*broadcastBlock  `hcl:"broadcast,block"`
	Runs        []*runBlock        `hcl:"run,block"`
}

type tableBlock struct {
	Name       string `hcl:"name,label"`
	Source     string `hcl:"source"`
	Index      string `hcl:"index,optional"`
	CopyCol    *bool  `hcl:"copy_col,optional"`
	Cache      bool   `hcl:"cache,optional"`
	CacheScope string `hcl:"cache_scope,optional"`
}

type injectableBlock struct {
	Name  string    `hcl:"name,label"`
	Value cty.Value `hcl:"value"`
}

type broadcastBlock struct {
	Cast      string `hcl:"cast,label"`
	Onto      string `hcl:"onto,label"`
	CastOn    string `hcl:"cast_on,optional"`
	OntoOn    string `hcl:"onto_on,optional"`
	CastIndex bool   `hcl:"cast_index,optional"`
	OntoIndex bool   `hcl:"onto_index,optional"`
}

type runBlock struct {
	Steps        []string `hcl:"steps"`
	Iterations   []int    `hcl:"iterations,optional"`
	IterationVar string   `hcl:"iteration_var,optional"`
	PersistTo    string   `hcl:"persist_to,optional"`
	PersistEvery *int     `hcl:"persist_every,optional"`
	Store        string   `hcl:"store,optional"`
}
