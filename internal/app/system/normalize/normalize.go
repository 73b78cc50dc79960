// Package normalize canonicalizes user-supplied strings before they are
// validated or stored.
package normalize

import "strings"

// Email trims and lowercases an email address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims surrounding whitespace and collapses internal runs of
// whitespace to a single space. Case is preserved.
func Name(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Status canonicalizes an account status to its stored form
// ("Active", "Pending", "Banned"). Unknown values are returned trimmed.
func Status(s string) string {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "active":
		return "Active"
	case "pending":
		return "Pending"
	case "banned":
		return "Banned"
	}
	return s
}

// Role trims and lowercases an account or membership role.
// The legacy "students" spelling maps to "student".
func Role(s string) string {
	r := strings.ToLower(strings.TrimSpace(s))
	if r == "students" {
		return "student"
	}
	return r
}

// QueryParam trims a query or form value. Case is preserved.
func QueryParam(s string) string {
	return strings.TrimSpace(s)
}

// Filter trims a select-box value and maps "all" to the empty string.
func Filter(s string) string {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "all") {
		return ""
	}
	return s
}

// Text trims a free-text body and normalizes line endings to "\n".
func Text(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.TrimSpace(s)
}
