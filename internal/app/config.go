package app

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/vk/tablegrid/internal/errdefs"
	"github.com/vk/tablegrid/internal/resmon"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	// PipelinePath is a pipeline file or a directory of them.
	PipelinePath string `validate:"required"`

	LogFormat string `validate:"omitempty,oneof=text json"`
	LogLevel  string `validate:"omitempty,oneof=debug info warn error"`

	// PersistTo and Store override the run block's persist_to and store.
	PersistTo string
	Store     string `validate:"omitempty,oneof=memory sqlite badger"`
	// RunName keys the snapshots inside the store. It defaults to the
	// pipeline's base name.
	RunName string

	// Profile polls resource usage during Run.
	Profile         bool
	ProfileInterval time.Duration `validate:"gte=0"`

	// MaxDepth bounds nested resolutions. Zero keeps the engine default.
	MaxDepth int `validate:"gte=0"`
}

var configValidate = validator.New()

// NewConfig validates cfg and fills in defaults.
func NewConfig(cfg Config) (*Config, error) {
	if err := configValidate.Struct(cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return nil, errdefs.Validationf(fe.Field(), "failed the %q rule (value %v)", fe.Tag(), fe.Value())
		}
		return nil, errdefs.WrapValidation("config", err)
	}
	if cfg.Profile && cfg.ProfileInterval == 0 {
		cfg.ProfileInterval = resmon.DefaultInterval
	}
	return &cfg, nil
}
