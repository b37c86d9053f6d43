package manifest

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// prunedDirs are never descended into. Pruning happens before descent,
// not by filtering results, so large node_modules or target trees cost
// nothing.
var prunedDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
	"target":       true,
	"bin":          true,
	"obj":          true,
	"__pycache__":  true,
	".venv":        true,
	"venv":         true,
}

// Discover walks root and returns the relative paths of all manifest
// files. Hidden directories (dot-prefixed) and the fixed build/VCS/cache
// set are pruned. vendor/modules.txt is the one file surfaced from a
// pruned directory, since it is itself a manifest of the vendored tree.
func Discover(root string) ([]string, error) {
	var matches []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path == root {
				return nil
			}
			name := d.Name()
			if strings.HasPrefix(name, ".") || prunedDirs[name] {
				if name == "vendor" {
					if rel, ok := vendoredModulesTxt(root, path); ok {
						matches = append(matches, rel)
					}
				}
				return filepath.SkipDir
			}
			return nil
		}
		if IsManifest(d.Name()) {
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			matches = append(matches, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return matches, nil
}

func vendoredModulesTxt(root, vendorDir string) (string, bool) {
	p := filepath.Join(vendorDir, "modules.txt")
	if _, err := os.Stat(p); err != nil {
		return "", false
	}
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return "", false
	}
	return filepath.ToSlash(rel), true
}
