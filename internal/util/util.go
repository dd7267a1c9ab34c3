// Package util provides common string helpers shared by the file parsers.
package util

import (
	"path/filepath"
	"strings"
)

// TrimQuotes removes leading and trailing double quotes from a string.
func TrimQuotes(s string) string {
	return strings.Trim(s, `"`)
}

// FixEscapeQuotes replaces escaped double quotes ("") with single double quotes (").
func FixEscapeQuotes(s string) string {
	return strings.ReplaceAll(s, `""`, `"`)
}

// Unquote trims surrounding whitespace, strips one pair of enclosing double
// quotes and collapses escaped quotes.
func Unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	return FixEscapeQuotes(s)
}

// SplitRecord splits a tabular record on sep and trims every field.
// An empty line yields no fields.
func SplitRecord(line string, sep string) []string {
	if strings.TrimSpace(line) == "" {
		return nil
	}
	fields := strings.Split(line, sep)
	for i, f := range fields {
		fields[i] = strings.TrimSpace(f)
	}
	return fields
}

// SplitDelimited splits a data row on TAB when one is present, else on ','
// when one is present, else on runs of whitespace. Empty fields between two
// delimiters are kept.
func SplitDelimited(line string) []string {
	switch {
	case strings.ContainsRune(line, '\t'):
		return strings.Split(line, "\t")
	case strings.ContainsRune(line, ','):
		return strings.Split(line, ",")
	default:
		return strings.Fields(line)
	}
}

// Extension returns the lower-cased file extension without the dot.
func Extension(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}

// CutKeyValue splits "Key=Value" into trimmed halves. ok is false when the
// line has no '='.
func CutKeyValue(line string) (key, value string, ok bool) {
	key, value, ok = strings.Cut(line, "=")
	if !ok {
		return "", "", false
	}
	return strings.TrimSpace(key), strings.TrimSpace(value), true
}
