package sanitize

import "strings"

// Trim removes leading and trailing whitespace.
func Trim(s string) string {
	return strings.TrimSpace(s)
}

// ToLower converts the string to lowercase.
func ToLower(s string) string {
	return strings.ToLower(s)
}

// TrimToLower trims whitespace and converts to lowercase in one pass.
func TrimToLower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeEmail prepares an email address for use as a lookup key:
// trimmed, lowercased, and with angle brackets stripped so a pasted
// "Name <user@host>" value cannot smuggle markup into backend calls.
func NormalizeEmail(email string) string {
	return StripAngleBrackets(TrimToLower(email))
}

// StripAngleBrackets removes < and > characters.
func StripAngleBrackets(s string) string {
	return strings.NewReplacer("<", "", ">", "").Replace(s)
}

// MaxLength truncates the string to at most maxLen bytes.
// Returns the string unchanged when maxLen is non-positive.
func MaxLength(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}

// SingleLine collapses all whitespace runs, including newlines, into single
// spaces. Used for free-text profile fields that must never contain control
// characters.
func SingleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Name normalizes a human name field: trimmed, single-line, markup stripped.
func Name(s string) string {
	return SingleLine(StripAngleBrackets(strings.TrimSpace(s)))
}
