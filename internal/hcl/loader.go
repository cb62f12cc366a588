package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/tablegrid/internal/config"
	"github.com/vk/tablegrid/internal/ctxlog"
	"github.com/vk/tablegrid/internal/errdefs"
)

// Extension is the file extension the loader reads.
const Extension = ".hcl"

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL pipeline loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses every .hcl file under paths and merges the blocks into one
// model. The model is validated before it is returned.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := config.FindFiles(paths, Extension)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	model := config.NewModel()
	parser := hclparse.NewParser()
	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		if diags := gohcl.DecodeBody(hclFile.Body, nil, &root); diags.HasErrors() {
			return nil, errdefs.WrapValidation(file, diags)
		}
		if len(root.Runs) > 1 {
			return nil, errdefs.Validationf(file, "declares %d run blocks, at most one is allowed", len(root.Runs))
		}
		if err := model.Merge(translate(file, &root)); err != nil {
			return nil, err
		}
	}

	if err := model.Validate(); err != nil {
		return nil, err
	}
	logger.Debug("HCL loading complete.", "files", len(files), "tables", len(model.Tables), "injectables", len(model.Injectables), "broadcasts", len(model.Broadcasts), "has_run", model.Run != nil)
	return model, nil
}
