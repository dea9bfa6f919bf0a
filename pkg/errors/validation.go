package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// experimentNameRegex matches names usable as the leading part of a filename.
var experimentNameRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidateExperimentName validates an experiment name for use in output paths.
//
// The name becomes the first component of every artifact's filename, so the
// rules are conservative:
//   - No empty names
//   - Maximum length of 128 characters
//   - Only letters, digits, '.', '_' and '-', starting with a letter or digit
//   - No path traversal sequences (..)
func ValidateExperimentName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidName, "experiment name cannot be empty")
	}

	if len(name) > 128 {
		return New(ErrCodeInvalidName, "experiment name too long (max 128 characters)")
	}

	if strings.Contains(name, "..") {
		return New(ErrCodeInvalidName, "experiment name cannot contain %q", "..")
	}

	if !experimentNameRegex.MatchString(name) {
		return New(ErrCodeInvalidName, "invalid experiment name: %q (use letters, digits, '.', '_' or '-')", name)
	}

	return nil
}

// ValidatePath validates a relative artifact path for safety.
// It prevents path traversal and keeps every artifact inside the output root.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No absolute paths (must be relative)
//   - No path traversal sequences (..)
//   - No backslashes (Windows-style paths)
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

	if strings.HasPrefix(path, "/") {
		return New(ErrCodeInvalidPath, "path must be relative (cannot start with /)")
	}

	if strings.Contains(path, "..") {
		return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
	}

	if strings.Contains(path, "\\") {
		return New(ErrCodeInvalidPath, "path cannot contain backslashes")
	}

	return nil
}
