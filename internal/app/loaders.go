package app

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/vk/tablegrid/internal/config"
	"github.com/vk/tablegrid/internal/errdefs"
	"github.com/vk/tablegrid/internal/hcl"
	"github.com/vk/tablegrid/internal/yamlcfg"
)

// LoaderFor picks the pipeline loader for path: by extension for a file,
// every supported format for a directory.
func LoaderFor(path string) (config.Loader, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errdefs.Validationf("pipeline", "path %s does not exist", path)
		}
		return nil, fmt.Errorf("error accessing path %s: %w", path, err)
	}
	if info.IsDir() {
		return config.Combine(hcl.NewLoader(), yamlcfg.NewLoader()), nil
	}

	ext := filepath.Ext(path)
	switch {
	case ext == hcl.Extension:
		return hcl.NewLoader(), nil
	case slices.Contains(yamlcfg.Extensions, ext):
		return yamlcfg.NewLoader(), nil
	}
	return nil, errdefs.Validationf("pipeline", "unsupported file type %q for %s", ext, path)
}
