package manifest

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
)

// parseRequirements handles pip-style line formats: one dependency per
// non-blank, non-comment line. "name==version" pins a version; any other
// line is kept whole with the version unset.
func parseRequirements(_, content string) ([]Dependency, error) {
	var deps []Dependency
	for _, raw := range strings.Split(content, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if name, version, ok := strings.Cut(line, "=="); ok {
			deps = append(deps, Dependency{
				Name:    strings.TrimSpace(name),
				Version: strings.TrimSpace(version),
			})
			continue
		}
		deps = append(deps, Dependency{Name: line})
	}
	return deps, nil
}

// pep508Name matches the leading package name of a PEP 508 requirement
// string ("requests>=2.28,<3; python_version>'3.8'" -> "requests").
var pep508Name = regexp.MustCompile(`^\s*([A-Za-z0-9][A-Za-z0-9._-]*)`)

type pyprojectFile struct {
	Project struct {
		Dependencies []string `toml:"dependencies"`
	} `toml:"project"`
	Tool struct {
		Poetry struct {
			Dependencies map[string]any `toml:"dependencies"`
		} `toml:"poetry"`
	} `toml:"tool"`
}

// parsePyproject reads [project] dependencies (PEP 621) and
// [tool.poetry.dependencies]. The poetry "python" constraint is not a
// package and is skipped.
func parsePyproject(_, content string) ([]Dependency, error) {
	var py pyprojectFile
	if err := toml.Unmarshal([]byte(content), &py); err != nil {
		return nil, fmt.Errorf("pyproject.toml: %v", err)
	}

	var deps []Dependency
	for _, req := range py.Project.Dependencies {
		d, ok := parsePEP508(req)
		if !ok {
			continue
		}
		deps = append(deps, d)
	}

	for name, spec := range py.Tool.Poetry.Dependencies {
		if strings.EqualFold(name, "python") {
			continue
		}
		d := Dependency{Name: name}
		if s, ok := spec.(string); ok {
			d.Version = s
		}
		deps = append(deps, d)
	}
	return deps, nil
}

func parsePEP508(req string) (Dependency, bool) {
	m := pep508Name.FindStringSubmatch(req)
	if m == nil {
		return Dependency{}, false
	}
	d := Dependency{Name: m[1]}
	rest := req[len(m[0]):]
	if _, version, ok := strings.Cut(rest, "=="); ok {
		version = strings.TrimSpace(version)
		// Drop trailing constraints and environment markers.
		for _, sep := range []string{",", ";", " "} {
			if i := strings.Index(version, sep); i >= 0 {
				version = version[:i]
			}
		}
		d.Version = version
	}
	return d, true
}
