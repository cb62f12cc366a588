package config

import (
	"github.com/vk/tablegrid/internal/errdefs"
	"github.com/zclconf/go-cty/cty"
)

// Model is the unified, format-agnostic representation of a pipeline, merged
// from every loaded file.
type Model struct {
	Tables      []*Table
	Injectables []*Injectable
	Broadcasts  []*Broadcast
	Run         *Run
	// Files lists the files the model was loaded from, in load order.
	Files []string
}

// Table is a CSV-backed table.
type Table struct {
	Name string `validate:"required,varname"`
	// Source is the CSV file. Loaders resolve relative paths against the
	// directory of the file that declared the table.
	Source string `validate:"required"`
	// Index names the CSV column holding row labels. Empty labels the rows
	// 0..n-1.
	Index      string
	CopyCol    bool
	Cache      bool
	CacheScope string `validate:"omitempty,scope"`
}

// Injectable is a literal value.
type Injectable struct {
	Name  string `validate:"required,varname"`
	Value cty.Value
}

// Broadcast is a join relationship between two tables.
type Broadcast struct {
	Cast      string `validate:"required,varname"`
	Onto      string `validate:"required,varname"`
	CastOn    string
	OntoOn    string
	CastIndex bool
	OntoIndex bool
}

// Run is the run block.
type Run struct {
	Steps        []string `validate:"required,min=1,dive,required"`
	Iterations   []int
	IterationVar string `validate:"omitempty,varname"`
	PersistTo    string
	PersistEvery int    `validate:"gte=0"`
	Store        string `validate:"omitempty,oneof=memory sqlite badger"`
}

// NewModel returns an empty model.
func NewModel() *Model {
	return &Model{}
}

// Merge appends the blocks of o to m. A pipeline has at most one run
// block.
func (m *Model) Merge(o *Model) error {
	if o.Run != nil {
		if m.Run != nil {
			return errdefs.Validationf("run", "declared more than once, again in %v", o.Files)
		}
		m.Run = o.Run
	}
	m.Tables = append(m.Tables, o.Tables...)
	m.Injectables = append(m.Injectables, o.Injectables...)
	m.Broadcasts = append(m.Broadcasts, o.Broadcasts...)
	m.Files = append(m.Files, o.Files...)
	return nil
}
