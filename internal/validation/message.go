package validation

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"warbler/internal/models"
)

// ValidateMessageText enforces a non-blank body of at most 140 characters.
func ValidateMessageText(text string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return fmt.Errorf("message text is required")
	}
	if utf8.RuneCountInString(trimmed) > models.MaxMessageLength {
		return fmt.Errorf("message must not exceed %d characters", models.MaxMessageLength)
	}
	return nil
}

// ValidateImageURL accepts an empty value, a site-absolute path, or an http(s) URL.
func ValidateImageURL(raw string) error {
	if raw == "" || strings.HasPrefix(raw, "/") {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("image URL must be an http(s) URL or a site path")
	}
	return nil
}
