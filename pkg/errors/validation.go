package errors

import (
	"strings"
	"unicode"
)

// ValidateBranchName validates a branch name received from a snapshot.
// Only emptiness and control characters are rejected; git itself is the
// authority on what a ref may be called.
func ValidateBranchName(name string) error {
	if name == "" {
		return New(ErrCodeMalformedSnapshot, "branch name cannot be empty")
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeMalformedSnapshot, "branch name %q contains control characters", name)
		}
	}
	return nil
}

// ValidateWindow checks that a visible time window is ordered.
// A window with minTime == maxTime is valid (degenerate) and is handled by the
// time scale; a window with minTime > maxTime is rejected.
func ValidateWindow(minTime, maxTime int64) error {
	if minTime > maxTime {
		return New(ErrCodeInvalidWindow, "mintime %d is after maxtime %d", minTime, maxTime)
	}
	return nil
}

// ValidatePath validates a local directory path used for repository checkouts.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}
	return nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	// Simple scheme validation without full URL parsing
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}

	return nil
}

// ValidateRepositoryURL accepts http(s), ssh and scp-like git remotes as well
// as local paths (file://, absolute or relative).
func ValidateRepositoryURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "repository URL cannot be empty")
	}
	for _, r := range rawURL {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(ErrCodeInvalidInput, "repository URL contains invalid characters")
		}
	}
	return nil
}
