package hcl

import (
	"github.com/vk/tablegrid/internal/config"
)

// translate converts the blocks decoded from file into the agnostic model.
func translate(file string, root *fileRoot) *config.Model {
	m := &config.Model{Files: []string{file}}
	for _, t := range root.Tables {
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
	for _, i := range root.Injectables {
		m.Injectables = append(m.Injectables, &config.Injectable{Name: i.Name, Value: i.Value})
	}
	for _, b := range root.Broadcasts {
		m.Broadcasts = append(m.Broadcasts, &config.Broadcast{
			Cast:      b.Cast,
			Onto:      b.Onto,
			CastOn:    b.CastOn,
			OntoOn:    b.OntoOn,
			CastIndex: b.CastIndex,
			OntoIndex: b.OntoIndex,
		})
	}
	if len(root.Runs) > 0 {
		m.Run = translateRun(root.Runs[0])
	}
	return m
}

func translateRun(r *runBlock) *config.Run {
	every := 1
	if r.PersistEvery != nil {
		every = *r.PersistEvery
	}
	return &config.Run{
		Steps:        r.Steps,
		Iterations:   r.Iterations,
		IterationVar: r.IterationVar,
		PersistTo:    r.PersistTo,
		PersistEvery: every,
		Store:        r.Store,
	}
}
