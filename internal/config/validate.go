package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/vk/tablegrid/internal/broadcast"
	"github.com/vk/tablegrid/internal/cache"
	"github.com/vk/tablegrid/internal/errdefs"
)

// modelValidate checks the struct tags of the model blocks.
var modelValidate *validator.Validate

func init() {
	modelValidate = validator.New()
	_ = modelValidate.RegisterValidation("scope", validateScope)
	_ = modelValidate.RegisterValidation("varname", validateVarName)
}

func validateScope(fl validator.FieldLevel) bool {
	_, err := cache.ParseScope(fl.Field().String())
	return err == nil
}

// validateVarName rejects names the engine cannot address: dots split
// table from column in expressions.
func validateVarName(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	return name != "" && !strings.ContainsAny(name, ".\x1f")
}

// Validate checks every block and the relations between them. All problems
// are reported together.
func (m *Model) Validate() error {
	var errs []error
	check := func(block string, v any) {
		err := modelValidate.Struct(v)
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				errs = append(errs, errdefs.Validationf(block+"."+fe.Field(), "failed the %q rule (value %v)", fe.Tag(), fe.Value()))
			}
		} else if err != nil {
			errs = append(errs, errdefs.WrapValidation(block, err))
		}
	}

	tables := make(map[string]bool, len(m.Tables))
	for _, t := range m.Tables {
		check(fmt.Sprintf("table %q", t.Name), t)
		if tables[t.Name] {
			errs = append(errs, errdefs.Validationf("table", "%q is declared more than once", t.Name))
		}
		tables[t.Name] = true
	}

	injectables := make(map[string]bool, len(m.Injectables))
	for _, i := range m.Injectables {
		check(fmt.Sprintf("injectable %q", i.Name), i)
		if injectables[i.Name] {
			errs = append(errs, errdefs.Validationf("injectable", "%q is declared more than once", i.Name))
		}
		injectables[i.Name] = true
	}

	for _, b := range m.Broadcasts {
		block := fmt.Sprintf("broadcast %q %q", b.Cast, b.Onto)
		check(block, b)
		if err := b.Broadcast().Validate(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", block, err))
		}
	}

	if m.Run != nil {
		check("run", m.Run)
		if m.Run.PersistTo != "" && m.Run.PersistEvery < 1 {
			errs = append(errs, errdefs.Validationf("run.persist_every", "must be positive when persist_to is set, got %d", m.Run.PersistEvery))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("pipeline configuration is invalid: %w", errors.Join(errs...))
	}
	return nil
}

// Broadcast converts the block for the engine.
func (b *Broadcast) Broadcast() broadcast.Broadcast {
	return broadcast.Broadcast{
		Cast:      b.Cast,
		Onto:      b.Onto,
		CastOn:    b.CastOn,
		OntoOn:    b.OntoOn,
		CastIndex: b.CastIndex,
		OntoIndex: b.OntoIndex,
	}
}

// Scope parses the table's cache scope.
func (t *Table) Scope() (cache.Scope, error) {
	return cache.ParseScope(t.CacheScope)
}
