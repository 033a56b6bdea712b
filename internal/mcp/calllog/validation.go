package calllog

import (
	"strings"
	"unicode/utf8"

	errors "github.com/Laisky/errors/v2"
)

const (
	// maxToolNameLength caps the tool name filter length.
	maxToolNameLength = 128
	// maxUserPrefixLength caps the user key prefix filter length.
	maxUserPrefixLength = 128
)

// sanitizeOptionalText trims the value, rejects null bytes, and enforces a
// rune length limit. Empty input is allowed and returns an empty string.
func sanitizeOptionalText(input string, maxLen int, field string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", nil
	}
	if strings.ContainsRune(trimmed, '\x00') {
		return "", errors.Errorf("%s contains invalid null byte", field)
	}
	if utf8.RuneCountInString(trimmed) > maxLen {
		return "", errors.Errorf("%s exceeds max length %d", field, maxLen)
	}
	return trimmed, nil
}
