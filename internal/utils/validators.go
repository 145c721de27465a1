package utils

import (
	"strings"
	"unicode/utf8"
)

// IsValidUserName checks the display name a learner types when starting an
// exam. It is not an identity credential, so the rules are loose: non-empty
// after trimming and short enough to fit the certificate layout.
func IsValidUserName(name string) bool {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return false
	}
	return utf8.RuneCountInString(trimmed) <= 60
}
