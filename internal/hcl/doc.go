// Package hcl loads pipeline files written in HCL into the format-agnostic
// config.Model.
//
// A pipeline file may declare any of these blocks:
//
//	table "households" {
//	  source      = "data/households.csv"
//	  index       = "household_id"
//	  cache       = true
//	  cache_scope = "iteration"
//	}
//
//	injectable "rate" {
//	  value = 0.05
//	}
//
//	broadcast "buildings" "households" {
//	  cast_index = true
//	  onto_on    = "building_id"
//	}
//
//	run {
//	  steps         = ["grow"]
//	  iterations    = [2020, 2021, 2022]
//	  persist_to    = "out/run.db"
//	  persist_every = 1
//	}
package hcl
