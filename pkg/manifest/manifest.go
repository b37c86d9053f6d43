// Package manifest locates and parses dependency manifest files.
//
// Discovery walks a repository tree pruning build and VCS directories,
// detection maps a filename (with a content sniff as tiebreak) to a
// package manager, and one pure parser per ecosystem turns manifest text
// into (name, version) pairs. Parsers never fail hard: malformed input
// yields an empty or partial list and a soft parse error recorded on the
// enclosing [File].
package manifest

import "strings"

// Ecosystem identifiers. These match the vocabulary the document store
// and the discovery protocol use.
const (
	EcosystemNPM     = "npm"
	EcosystemPyPI    = "pypi"
	EcosystemMaven   = "maven"
	EcosystemNuGet   = "nuget"
	EcosystemGo      = "go"
	EcosystemUnknown = "unknown"
)

// Version provenance markers. A version resolved from a registry is
// distinguishable from one declared in the manifest.
const (
	VersionSourceManifest = "manifest"
	VersionSourceRegistry = "registry"
)

// Dependency is a single (name, version) pair parsed from a manifest.
// Version may be empty when the manifest does not pin one.
type Dependency struct {
	Name          string `json:"name"`
	Version       string `json:"version,omitempty"`
	Ecosystem     string `json:"ecosystem"`
	VersionSource string `json:"version_source,omitempty"`
}

// Key returns the dependency's deduplication identity: lower-cased name
// plus normalized version. "Foo"@"^1.2.3" and "foo"@"v1.2.3" share a key.
func (d Dependency) Key() string {
	return strings.ToLower(d.Name) + "@" + strings.ToLower(NormalizeVersion(d.Version))
}

// NormalizeVersion strips a single leading caret or "v" prefix from a
// version string. Range operators beyond that are left alone; identity
// normalization is deliberately shallow.
func NormalizeVersion(v string) string {
	v = strings.TrimSpace(v)
	if strings.HasPrefix(v, "^") {
		return v[1:]
	}
	if len(v) > 1 && (v[0] == 'v' || v[0] == 'V') && v[1] >= '0' && v[1] <= '9' {
		return v[1:]
	}
	return v
}

// File is one discovered manifest and its parse outcome. It is owned by
// a single scan run and is not persisted on its own.
type File struct {
	Path           string       `json:"path"`
	PackageManager string       `json:"package_manager"`
	Ecosystem      string       `json:"ecosystem"`
	Dependencies   []Dependency `json:"dependencies"`
	ParseErrors    []string     `json:"parse_errors,omitempty"`
}

// Analyze detects the package manager for filename/content and runs the
// matching parser. It never returns an error: parser failures degrade to
// an empty dependency list with the failure recorded in ParseErrors.
func Analyze(path, filename, content string) File {
	manager := DetectPackageManager(filename, content)
	f := File{
		Path:           path,
		PackageManager: manager,
		Ecosystem:      ecosystemFor(manager),
		Dependencies:   []Dependency{},
	}

	parse, ok := parsers[manager]
	if !ok {
		return f
	}

	deps, err := parse(filename, content)
	if err != nil {
		f.ParseErrors = append(f.ParseErrors, err.Error())
	}
	for i := range deps {
		deps[i].Ecosystem = f.Ecosystem
		if deps[i].Version != "" && deps[i].VersionSource == "" {
			deps[i].VersionSource = VersionSourceManifest
		}
	}
	if deps != nil {
		f.Dependencies = deps
	}
	return f
}

// parseFunc is the per-ecosystem parser contract: pure, no I/O, returns
// a (possibly partial) dependency list and at most one soft error.
type parseFunc func(filename, content string) ([]Dependency, error)

// parsers maps a package manager to its body parser. Managers recognized
// by detection but absent here (yarn, pipenv, gradle, govendor) are
// listed in reports with an empty dependency list.
var parsers = map[string]parseFunc{
	"npm":    parsePackageJSON,
	"pip":    parseRequirements,
	"poetry": parsePyproject,
	"maven":  parsePOM,
	"nuget":  parseNuGet,
	"gomod":  parseGoMod,
}

func ecosystemFor(manager string) string {
	switch manager {
	case "npm", "yarn", "pnpm":
		return EcosystemNPM
	case "pip", "poetry", "pipenv":
		return EcosystemPyPI
	case "maven", "gradle":
		return EcosystemMaven
	case "nuget":
		return EcosystemNuGet
	case "gomod", "govendor":
		return EcosystemGo
	default:
		return EcosystemUnknown
	}
}
