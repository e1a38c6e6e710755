package core

import "strings"

// CleanString normalizes user supplied text: surrounding whitespace is
// trimmed, and with lower set the result is lowercased too (emails, roles,
// payment methods and expense categories are stored lowercase).
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}
