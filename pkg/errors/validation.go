package errors

import (
	"strings"
	"unicode"
)

// printable rejects empty, oversized, and control-character values. The
// named validators below share it and report under their own codes.
func printable(code Code, what, value string, maxLen int) error {
	if value == "" {
		return New(code, "%s cannot be empty", what)
	}
	if len(value) > maxLen {
		return New(code, "%s too long (max %d characters)", what, maxLen)
	}
	if strings.ContainsFunc(value, unicode.IsControl) {
		return New(code, "%s contains control characters", what)
	}
	return nil
}

// ValidateGraphName validates a graph name. Graph names appear in cache
// keys, file names, and API paths, so beyond being printable and at most
// 256 characters they must be free of path traversal sequences.
func ValidateGraphName(name string) error {
	if err := printable(ErrCodeInvalidGraph, "graph name", name, 256); err != nil {
		return err
	}
	for _, seq := range []string{"..", "//", "\\"} {
		if strings.Contains(name, seq) {
			return New(ErrCodeInvalidGraph, "graph name contains invalid sequence %q", seq)
		}
	}
	return nil
}

// ValidateValueName validates the name of a value handle (a tensor or
// other typed value flowing on an edge). Empty names are legal in node
// input/output lists, where they denote a skipped optional slot, so this
// helper is only applied to names that must resolve: declared graph
// inputs and outputs, initializer names, and filter metadata entries.
func ValidateValueName(name string) error {
	return printable(ErrCodeInvalidInput, "value name", name, 512)
}

// ValidateOutputPath validates a user-supplied output file path. Relative
// segments stay legal so users can write outside the working directory;
// the check only rejects input no filesystem call should ever see.
func ValidateOutputPath(path string) error {
	return printable(ErrCodeInvalidPath, "output path", path, 500)
}
