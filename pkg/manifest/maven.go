package manifest

import (
	"encoding/xml"
	"fmt"
	"strings"
)

type pomProject struct {
	GroupID      string          `xml:"groupId"`
	ArtifactID   string          `xml:"artifactId"`
	Dependencies []pomDependency `xml:"dependencies>dependency"`
}

type pomDependency struct {
	GroupID    string `xml:"groupId"`
	ArtifactID string `xml:"artifactId"`
	Version    string `xml:"version"`
	Scope      string `xml:"scope"`
}

// parsePOM collects every <dependency> from a pom.xml, naming each as
// "groupId:artifactId". Test-scoped dependencies are skipped; entries
// with unresolved Maven properties in their coordinates are as well.
func parsePOM(_, content string) ([]Dependency, error) {
	var pom pomProject
	if err := xml.Unmarshal([]byte(content), &pom); err != nil {
		return nil, fmt.Errorf("pom.xml: %v", err)
	}

	var deps []Dependency
	for _, dep := range pom.Dependencies {
		if dep.Scope == "test" {
			continue
		}
		if strings.HasPrefix(dep.GroupID, "${") || strings.HasPrefix(dep.ArtifactID, "${") {
			continue
		}
		deps = append(deps, Dependency{
			Name:    dep.GroupID + ":" + dep.ArtifactID,
			Version: dep.Version,
		})
	}
	return deps, nil
}
