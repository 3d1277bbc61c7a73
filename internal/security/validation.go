// Package security validates text that arrives from clients before it reaches
// the chat backend or the turn log storage.
package security

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MaxMessageLength bounds a question in runes.
	MaxMessageLength = 4000
	// MaxLogRetentionDays bounds the cleanup window; 0 deletes everything.
	MaxLogRetentionDays = 365
)

var (
	ErrEmptyMessage = errors.New("message cannot be empty")

	scriptPattern = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)

	// answers are rendered as markdown, so markup a client could smuggle in
	// through a question is refused
	dangerousTags = []string{"<iframe", "<object", "<embed", "<form", "<input", "<meta"}
)

// SanitizeMessage checks a question and returns it with control characters
// removed. Line breaks and tabs are kept.
func SanitizeMessage(input string, maxLength int) (string, error) {
	if strings.TrimSpace(input) == "" {
		return "", ErrEmptyMessage
	}
	if !utf8.ValidString(input) {
		return "", fmt.Errorf("message is not valid UTF-8")
	}
	if utf8.RuneCountInString(input) > maxLength {
		return "", fmt.Errorf("message exceeds %d characters", maxLength)
	}

	if scriptPattern.MatchString(input) {
		return "", fmt.Errorf("message contains disallowed script tags")
	}
	lower := strings.ToLower(input)
	if strings.Contains(lower, "javascript:") {
		return "", fmt.Errorf("message contains disallowed javascript protocol")
	}
	for _, tag := range dangerousTags {
		if strings.Contains(lower, tag) {
			return "", fmt.Errorf("message contains disallowed HTML tag %s>", tag)
		}
	}

	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' || !unicode.IsControl(r) {
			return r
		}
		return -1
	}, input), nil
}

// ValidateLogDays checks a retention window for turn log cleanup
func ValidateLogDays(days int) error {
	if days < 0 {
		return fmt.Errorf("days must be >= 0 (0 means delete all logs)")
	}
	if days > MaxLogRetentionDays {
		return fmt.Errorf("days cannot exceed %d", MaxLogRetentionDays)
	}
	return nil
}
