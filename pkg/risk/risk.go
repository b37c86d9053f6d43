// Package risk classifies license text into a compliance risk class
// and derives a 0-100 score from it. The classification is a keyword
// heuristic over the license name and summary text, used only when a
// version record arrives without explicit risk data.
package risk

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

// Class is the license family a text was matched to.
type Class string

const (
	ClassStrongCopyleft Class = "strong copyleft"
	ClassWeakCopyleft   Class = "weak copyleft"
	ClassPermissive     Class = "permissive"
	ClassUnknown        Class = "unknown"
)

// Report-facing risk levels.
const (
	LevelHigh    = "high"
	LevelMedium  = "medium"
	LevelLow     = "low"
	LevelUnknown = "unknown"
)

// Base scores per class. Stricter obligations score higher.
const (
	scoreStrong     = 90
	scoreWeak       = 60
	scorePermissive = 10
	scoreUnknown    = 50
)

// Acronym markers are matched on word boundaries so that short tokens
// like "isc" or "osl" don't fire inside unrelated words. Phrase
// markers are plain substring matches.
var (
	strongAcronyms = wordRegexp("agpl", "gpl", "sspl", "osl", "eupl")
	strongPhrases  = []string{
		"affero", "server side public", "open software license",
		"european union public", "network use", "source must be disclosed",
		"disclose source", "same license",
	}

	weakAcronyms = wordRegexp("lgpl", "mpl", "epl", "cddl")
	weakPhrases  = []string{
		"lesser general public", "mozilla public", "eclipse public",
		"common development", "file-level copyleft", "per-file",
	}

	permissiveAcronyms = wordRegexp("mit", "bsd", "isc", "zlib")
	permissivePhrases  = []string{"apache", "unlicense", "permissive", "public domain"}
)

func wordRegexp(tokens ...string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b(` + strings.Join(tokens, "|") + `)[\w.-]*`)
}

// Classify assigns the combined license text to a risk class. Strong
// copyleft outranks weak when markers from both families appear; the
// word boundary in wordRegexp keeps "gpl" from firing inside "lgpl".
func Classify(text string) Class {
	t := strings.ToLower(text)
	if t == "" {
		return ClassUnknown
	}
	switch {
	case strongAcronyms.MatchString(t) || containsAny(t, strongPhrases):
		return ClassStrongCopyleft
	case weakAcronyms.MatchString(t) || containsAny(t, weakPhrases):
		return ClassWeakCopyleft
	case permissiveAcronyms.MatchString(t) || containsAny(t, permissivePhrases):
		return ClassPermissive
	default:
		return ClassUnknown
	}
}

func containsAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

// Level maps a class to the report-facing risk level.
func (c Class) Level() string {
	switch c {
	case ClassStrongCopyleft:
		return LevelHigh
	case ClassWeakCopyleft:
		return LevelMedium
	case ClassPermissive:
		return LevelLow
	default:
		return LevelUnknown
	}
}

// BaseScore is the class score before confidence weighting.
func (c Class) BaseScore() int {
	switch c {
	case ClassStrongCopyleft:
		return scoreStrong
	case ClassWeakCopyleft:
		return scoreWeak
	case ClassPermissive:
		return scorePermissive
	default:
		return scoreUnknown
	}
}

// Assessment is the computed risk for one version record.
type Assessment struct {
	Class       Class
	Level       string
	Score       int
	Explanation string
}

// Assess classifies the license name plus summary lines and computes
// the confidence-weighted score. A nil or out-of-range confidence
// defaults to 1.
func Assess(licenseName string, summary []string, confidence *float64) Assessment {
	parts := make([]string, 0, len(summary)+1)
	if licenseName != "" {
		parts = append(parts, licenseName)
	}
	parts = append(parts, summary...)

	class := Classify(strings.Join(parts, " "))
	return Assessment{
		Class:       class,
		Level:       class.Level(),
		Score:       Score(class, confidence),
		Explanation: fmt.Sprintf("license classified as %s", class),
	}
}

// Score computes round(base * confidence) clamped to [0, 100].
func Score(class Class, confidence *float64) int {
	conf := 1.0
	if confidence != nil && !math.IsNaN(*confidence) {
		conf = *confidence
	}
	score := int(math.Round(float64(class.BaseScore()) * conf))
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
