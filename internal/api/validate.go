package api

import (
	"unicode/utf8"
)

// maxTextLen is the longest message accepted for translation, in runes. It
// matches the message size of common chat transports.
const maxTextLen = 4096

// validateStringLen checks that a string does not exceed maxLen runes.
// Returns an error message if invalid, empty string if OK.
func validateStringLen(field, value string, maxLen int) string {
	if utf8.RuneCountInString(value) > maxLen {
		return field + " exceeds maximum length"
	}
	return ""
}

// validateRequiredStringLen checks that a non-empty string does not exceed
// maxLen runes.
func validateRequiredStringLen(field, value string, maxLen int) string {
	if value == "" {
		return field + " is required"
	}
	return validateStringLen(field, value, maxLen)
}
