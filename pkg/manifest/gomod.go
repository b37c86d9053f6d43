package manifest

import (
	"bufio"
	"strings"
)

// parseGoMod extracts direct requires from a go.mod body. Indirect
// dependencies belong to the module's own dependencies and are skipped,
// as is anything inside exclude/replace blocks.
func parseGoMod(_, content string) ([]Dependency, error) {
	var deps []Dependency
	seen := make(map[string]bool)
	inRequire := false
	inOtherBlock := false

	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}

		switch {
		case strings.HasPrefix(line, "require ("), line == "require(":
			inRequire = true
			continue
		case strings.HasSuffix(line, "("):
			// exclude (, replace (, retract (
			inOtherBlock = true
			continue
		case line == ")":
			inRequire = false
			inOtherBlock = false
			continue
		}
		if inOtherBlock {
			continue
		}

		// Single-line require
		if strings.HasPrefix(line, "require ") && !strings.Contains(line, "(") {
			line = strings.TrimPrefix(line, "require ")
		} else if !inRequire {
			continue
		}

		if d, ok := parseRequireLine(line); ok && !seen[d.Name] {
			seen[d.Name] = true
			deps = append(deps, d)
		}
	}
	return deps, scanner.Err()
}

// parseRequireLine reads "module/path v1.2.3 [// indirect]".
func parseRequireLine(line string) (Dependency, bool) {
	if strings.Contains(line, "// indirect") {
		return Dependency{}, false
	}
	if idx := strings.Index(line, "//"); idx != -1 {
		line = line[:idx]
	}

	fields := strings.Fields(strings.TrimSpace(line))
	if len(fields) == 0 {
		return Dependency{}, false
	}
	d := Dependency{Name: strings.Trim(fields[0], `"`)}
	if len(fields) > 1 {
		d.Version = fields[1]
	}
	return d, true
}
