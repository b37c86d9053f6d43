package manifest

import (
	"encoding/json"
	"fmt"
	"sort"
)

// packageFile is the subset of package.json this parser reads.
type packageFile struct {
	Dependencies     map[string]string `json:"dependencies"`
	DevDependencies  map[string]string `json:"devDependencies"`
	PeerDependencies map[string]string `json:"peerDependencies"`
}

// parsePackageJSON extracts the union of dependencies, devDependencies
// and peerDependencies from a package.json body.
func parsePackageJSON(_, content string) ([]Dependency, error) {
	var pkg packageFile
	if err := json.Unmarshal([]byte(content), &pkg); err != nil {
		return nil, fmt.Errorf("package.json: %v", err)
	}

	var deps []Dependency
	for _, section := range []map[string]string{pkg.Dependencies, pkg.DevDependencies, pkg.PeerDependencies} {
		for name, version := range section {
			deps = append(deps, Dependency{Name: name, Version: version})
		}
	}
	// Map iteration order is random; keep report order stable within a run.
	sort.Slice(deps, func(i, j int) bool { return deps[i].Name < deps[j].Name })
	return deps, nil
}
