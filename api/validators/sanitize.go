package validators

import "strings"

// SanitizeString trims surrounding whitespace from free-text input and
// caps it at maxLen bytes. A maxLen of 0 means no cap.
func SanitizeString(input string, maxLen int) string {
	trimmed := strings.TrimSpace(input)
	if maxLen > 0 && len(trimmed) > maxLen {
		return trimmed[:maxLen]
	}
	return trimmed
}

// SanitizeOptional applies SanitizeString to an optional field, dropping
// it entirely when nothing but whitespace was sent.
func SanitizeOptional(input *string, maxLen int) *string {
	if input == nil {
		return nil
	}
	clean := SanitizeString(*input, maxLen)
	if clean == "" {
		return nil
	}
	return &clean
}
