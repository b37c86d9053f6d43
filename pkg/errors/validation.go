package errors

import (
	"net/url"
	"strings"
	"unicode"
)

// ValidatePackageName validates a package name for safety and correctness.
// It rejects names that could be used for path traversal or injection attacks.
//
// The validation rules are intentionally conservative:
//   - No empty names
//   - No control characters
//   - No path traversal sequences (.., //, etc.)
//   - No null bytes
//   - Maximum length of 256 characters
//
// Ecosystem-specific validation should be done separately by the registry clients.
func ValidatePackageName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidPackage, "package name cannot be empty")
	}

	if len(name) > 256 {
		return New(ErrCodeInvalidPackage, "package name too long (max 256 characters)")
	}

	// Check for control characters and null bytes
	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidPackage, "package name contains invalid control characters")
		}
	}

	// Check for path traversal patterns
	dangerousPatterns := []string{
		"..",   // Parent directory
		"//",   // Double slash
		"\x00", // Null byte
		"\\",   // Backslash (Windows path)
	}

	for _, pattern := range dangerousPatterns {
		if strings.Contains(name, pattern) {
			return New(ErrCodeInvalidPackage, "package name contains invalid characters: %q", pattern)
		}
	}

	return nil
}

// ValidateRepoURL validates a clone URL before the acquirer touches it.
// Only http, https and ssh-style URLs are accepted; anything else is
// rejected up front so the git subprocess never sees it.
func ValidateRepoURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return New(ErrCodeInvalidRepoURL, "repository url cannot be empty")
	}

	// scp-like syntax: git@host:owner/repo.git
	if strings.HasPrefix(raw, "git@") && strings.Contains(raw, ":") {
		return nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Wrap(ErrCodeInvalidRepoURL, err, "unparseable repository url")
	}
	switch u.Scheme {
	case "http", "https", "ssh":
	default:
		return New(ErrCodeInvalidRepoURL, "unsupported url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return New(ErrCodeInvalidRepoURL, "repository url has no host")
	}
	return nil
}
