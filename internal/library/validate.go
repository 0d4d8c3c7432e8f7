package library

import (
	"fmt"
	"net/url"
	"strings"
)

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func validateURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", invalidInput("url is required")
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", invalidInput("url is malformed")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", invalidInput("url must use http or https")
	}
	if parsed.Host == "" {
		return "", invalidInput("url must include a host")
	}
	return trimmed, nil
}

func validateRequired(field, raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", invalidInput("%s is required", field)
	}
	return trimmed, nil
}

// normalizeTags trims every tag, drops empties and keeps the first occurrence of duplicates.
func normalizeTags(tags []string) []string {
	normalized := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		trimmed := strings.TrimSpace(tag)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		normalized = append(normalized, trimmed)
	}
	return normalized
}

func normalizeOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
