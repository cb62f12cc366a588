package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
)

// FindFiles walks paths and returns every file whose extension is in exts.
// Directories are walked recursively and their files sorted; paths that do
// not exist are skipped. Each file appears once.
func FindFiles(paths []string, exts ...string) ([]string, error) {
	var all []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		all = append(all, p)
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}

		if !info.IsDir() {
			if slices.Contains(exts, filepath.Ext(path)) {
				add(path)
			}
			continue
		}
		var found []string
		err = filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !info.IsDir() && slices.Contains(exts, filepath.Ext(p)) {
				found = append(found, p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		sort.Strings(found)
		for _, p := range found {
			add(p)
		}
	}
	return all, nil
}

// ResolveSource makes a table source relative to the file that declared it.
func ResolveSource(declaredIn, source string) string {
	if source == "" || filepath.IsAbs(source) {
		return source
	}
	return filepath.Join(filepath.Dir(declaredIn), source)
}
