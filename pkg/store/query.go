package store

import (
	"regexp"
	"strings"
)

// packagePatterns is an ordered list of extractors for loosely
// structured package queries. Earlier patterns win, so the order is
// load-bearing: the JSON-style "name": "^1.2.3" form must be tried
// before the bare name:version split, and "==" before "=".
var packagePatterns = []*regexp.Regexp{
	regexp.MustCompile(`"?([\w.\-@/]+)"?\s*:\s*"?(?:\^)?([\w.\-]+)"?`), // "name": "^1.2.3"
	regexp.MustCompile(`([\w.\-@/]+)==([\w.\-]+)`),                     // name==1.2.3
	regexp.MustCompile(`([\w.\-@/]+)=([\w.\-]+)`),                      // name=1.2.3
	regexp.MustCompile(`([\w.\-@/]+)@([\w.\-]+)`),                      // name@1.2.3
}

// ParsePackageQuery extracts a package name and version from free-form
// search text. Either return value may be empty when the text carries
// no recognizable pair.
func ParsePackageQuery(value string) (name, version string) {
	text := strings.Trim(strings.TrimSpace(value), `"`)
	for _, pattern := range packagePatterns {
		if m := pattern.FindStringSubmatch(text); m != nil {
			return m[1], strings.TrimPrefix(m[2], "^")
		}
	}
	if parts := strings.Split(text, ":"); len(parts) == 2 {
		name = strings.TrimSpace(parts[0])
		version = strings.TrimPrefix(strings.TrimSpace(parts[1]), "^")
		return name, version
	}
	return "", ""
}

// searchTerms expands a query into the set of strings worth matching
// against stored names and versions.
func searchTerms(query, name, version string) []string {
	seen := map[string]struct{}{}
	add := func(term string) {
		term = strings.TrimSpace(term)
		if term != "" {
			seen[term] = struct{}{}
		}
	}
	add(query)
	add(strings.Trim(strings.TrimSpace(query), `"`))
	add(strings.TrimPrefix(query, "^"))
	add(name)
	add(version)

	terms := make([]string, 0, len(seen))
	for term := range seen {
		terms = append(terms, term)
	}
	return terms
}
