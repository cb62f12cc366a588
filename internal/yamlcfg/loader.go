// Package yamlcfg loads pipeline files written in YAML into config.Model.
// It accepts the same blocks as the HCL loader, as lists under the keys
// tables, injectables and broadcasts plus an optional run mapping.
package yamlcfg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/vk/tablegrid/internal/config"
	"github.com/vk/tablegrid/internal/ctxlog"
	"github.com/vk/tablegrid/internal/errdefs"
	"github.com/vk/tablegrid/internal/frame"
	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v3"
)

// Extensions lists the file extensions the loader reads.
var Extensions = []string{".yaml", ".yml"}

type document struct {
	Tables []struct {
		Name       string `yaml:"name"`
		Source     string `yaml:"source"`
		Index      string `yaml:"index"`
		CopyCol    *bool  `yaml:"copy_col"`
		Cache      bool   `yaml:"cache"`
		CacheScope string `yaml:"cache_scope"`
	} `yaml:"tables"`
	Injectables []struct {
		Name  string `yaml:"name"`
		Value any    `yaml:"value"`
	} `yaml:"injectables"`
	Broadcasts []struct {
		Cast      string `yaml:"cast"`
		Onto      string `yaml:"onto"`
		CastOn    string `yaml:"cast_on"`
		OntoOn    string `yaml:"onto_on"`
		CastIndex bool   `yaml:"cast_index"`
		OntoIndex bool   `yaml:"onto_index"`
	} `yaml:"broadcasts"`
	Run *struct {
		Steps        []string `yaml:"steps"`
		Iterations   []int    `yaml:"iterations"`
		IterationVar string   `yaml:"iteration_var"`
		PersistTo    string   `yaml:"persist_to"`
		PersistEvery *int     `yaml:"persist_every"`
		Store        string   `yaml:"store"`
	} `yaml:"run"`
}

// Loader is the YAML implementation of config.Loader.
type Loader struct{}

// NewLoader creates a new YAML pipeline loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses every YAML file under paths and merges them into one
// validated model.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("YAML loader started.", "path_count", len(paths))

	files, err := config.FindFiles(paths, Extensions...)
	if err != nil {
		return nil, err
	}

	model := config.NewModel()
	for _, file := range files {
		m, err := loadFile(file)
		if err != nil {
			return nil, err
		}
		if err := model.Merge(m); err != nil {
			return nil, err
		}
	}

	if err := model.Validate(); err != nil {
		return nil, err
	}
	logger.Debug("YAML loading complete.", "files", len(files), "tables", len(model.Tables), "has_run", model.Run != nil)
	return model, nil
}

func loadFile(file string) (*config.Model, error) {
	raw, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read YAML file %s: %w", file, err)
	}

	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, errdefs.WrapValidation(file, err)
	}

	m := &config.Model{Files: []string{file}}
	for _, t := range doc.Tables {
		copyCol := true
		if t.CopyCol != nil {
			copyCol = *t.CopyCol
		}
		m.Tables = append(m.Tables, &config.Table{
			Name:       t.Name,
			Source:     config.ResolveSource(file, t.Source),
			Index:      t.Index,
			CopyCol:    copyCol,
			Cache:      t.Cache,
			CacheScope: t.CacheScope,
		})
	}
	for _, i := range doc.Injectables {
		v, err := toCty(i.Value)
		if err != nil {
			return nil, errdefs.WrapValidation(fmt.Sprintf("%s: injectable %q", file, i.Name), err)
		}
		m.Injectables = append(m.Injectables, &config.Injectable{Name: i.Name, Value: v})
	}
	for _, b := range doc.Broadcasts {
		m.Broadcasts = append(m.Broadcasts, &config.Broadcast{
			Cast:      b.Cast,
			Onto:      b.Onto,
			CastOn:    b.CastOn,
			OntoOn:    b.OntoOn,
			CastIndex: b.CastIndex,
			OntoIndex: b.OntoIndex,
		})
	}
	if r := doc.Run; r != nil {
		every := 1
		if r.PersistEvery != nil {
			every = *r.PersistEvery
		}
		m.Run = &config.Run{
			Steps:        r.Steps,
			Iterations:   r.Iterations,
			IterationVar: r.IterationVar,
			PersistTo:    r.PersistTo,
			PersistEvery: every,
			Store:        r.Store,
		}
	}
	return m, nil
}

// toCty converts a decoded YAML value. Sequences become tuples and
// mappings become objects so mixed element types survive.
func toCty(v any) (cty.Value, error) {
	switch v := v.(type) {
	case nil:
		return cty.NullVal(cty.DynamicPseudoType), nil
	case []any:
		vals := make([]cty.Value, len(v))
		for i, e := range v {
			cv, err := toCty(e)
			if err != nil {
				return cty.NilVal, err
			}
			vals[i] = cv
		}
		return cty.TupleVal(vals), nil
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		attrs := make(map[string]cty.Value, len(v))
		for _, k := range keys {
			cv, err := toCty(v[k])
			if err != nil {
				return cty.NilVal, err
			}
			attrs[k] = cv
		}
		return cty.ObjectVal(attrs), nil
	}
	return frame.Val(v)
}
