package manifest

import "strings"

// manifestNames maps exact (lower-cased) manifest filenames to their
// package manager. The set mirrors the discovery walk's known names.
var manifestNames = map[string]string{
	// JavaScript / Node
	"package.json":   "npm",
	"yarn.lock":      "yarn",
	"pnpm-lock.yaml": "pnpm",
	// Python
	"requirements.txt": "pip",
	"pipfile":          "pipenv",
	"pyproject.toml":   "poetry",
	// Java / Kotlin
	"pom.xml":          "maven",
	"build.gradle":     "gradle",
	"build.gradle.kts": "gradle",
	// .NET
	"packages.config": "nuget",
	// Go
	"go.mod":      "gomod",
	"modules.txt": "govendor",
}

// IsManifest reports whether filename names a dependency manifest,
// either exactly or by suffix (.csproj, requirements-*.txt).
func IsManifest(filename string) bool {
	lower := strings.ToLower(filename)
	if _, ok := manifestNames[lower]; ok {
		return true
	}
	if strings.HasSuffix(lower, ".csproj") {
		return true
	}
	// requirements-dev.txt, requirements_test.txt and friends
	if strings.HasPrefix(lower, "requirements") && strings.HasSuffix(lower, ".txt") {
		return true
	}
	return false
}

// DetectPackageManager determines the package manager for a manifest.
// Filename matching wins; a sniff of the leading content is only used as
// a tiebreak for unrecognized names. Unknown input yields "unknown".
func DetectPackageManager(filename, content string) string {
	lower := strings.ToLower(filename)

	if m, ok := manifestNames[lower]; ok {
		return m
	}
	if strings.HasSuffix(lower, ".csproj") {
		return "nuget"
	}
	if strings.HasPrefix(lower, "requirements") && strings.HasSuffix(lower, ".txt") {
		return "pip"
	}

	snippet := strings.ToLower(content)
	if len(snippet) > 200 {
		snippet = snippet[:200]
	}
	switch {
	case strings.Contains(snippet, `"dependencies"`):
		return "npm"
	case strings.Contains(snippet, "packagereference") || strings.Contains(snippet, "nuget"):
		return "nuget"
	case strings.Contains(snippet, "==") || strings.Contains(snippet, "pip"):
		return "pip"
	}
	return "unknown"
}
