package manifest

import (
	"encoding/xml"
	"io"
	"strings"
)

// parseNuGet handles both .csproj project files and packages.config.
// If the body turns out not to be XML, it is re-read as pip-style lines.
func parseNuGet(filename, content string) ([]Dependency, error) {
	lower := strings.ToLower(filename)

	var (
		deps []Dependency
		err  error
	)
	if strings.HasSuffix(lower, "packages.config") {
		deps, err = parsePackagesConfig(content)
	} else {
		deps, err = parseCSProj(content)
	}
	if err != nil || (len(deps) == 0 && !strings.Contains(content, "<")) {
		// Not XML after all; some "nuget" detections are flat text lists.
		return parseRequirements(filename, content)
	}
	return deps, nil
}

// parseCSProj collects PackageReference elements. Matching is by local
// tag name so namespaced SDK-style projects parse the same as legacy
// ones. The package name comes from the Include (or Update) attribute;
// the version from a Version attribute or child element.
func parseCSProj(content string) ([]Dependency, error) {
	dec := xml.NewDecoder(strings.NewReader(content))

	var deps []Dependency
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		start, ok := tok.(xml.StartElement)
		if !ok || !strings.EqualFold(start.Name.Local, "PackageReference") {
			continue
		}

		var name, version string
		for _, attr := range start.Attr {
			switch {
			case strings.EqualFold(attr.Name.Local, "Include"), strings.EqualFold(attr.Name.Local, "Update"):
				if name == "" {
					name = attr.Value
				}
			case strings.EqualFold(attr.Name.Local, "Version"):
				version = attr.Value
			}
		}
		if version == "" {
			version = packageReferenceVersionChild(dec)
		}
		if name != "" {
			deps = append(deps, Dependency{Name: name, Version: version})
		}
	}
	return deps, nil
}

// packageReferenceVersionChild scans the children of an open
// PackageReference element for a <Version> value.
func packageReferenceVersionChild(dec *xml.Decoder) string {
	depth := 1
	inVersion := false
	var version string

	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return version
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			inVersion = strings.EqualFold(t.Name.Local, "Version")
		case xml.EndElement:
			depth--
			inVersion = false
		case xml.CharData:
			if inVersion && version == "" {
				version = strings.TrimSpace(string(t))
			}
		}
	}
	return version
}

type packagesConfig struct {
	Packages []struct {
		ID      string `xml:"id,attr"`
		Version string `xml:"version,attr"`
	} `xml:"package"`
}

func parsePackagesConfig(content string) ([]Dependency, error) {
	var cfg packagesConfig
	if err := xml.Unmarshal([]byte(content), &cfg); err != nil {
		return nil, err
	}
	var deps []Dependency
	for _, p := range cfg.Packages {
		if p.ID == "" {
			continue
		}
		deps = append(deps, Dependency{Name: p.ID, Version: p.Version})
	}
	return deps, nil
}
