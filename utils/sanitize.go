package utils

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var sanitizer = bluemonday.UGCPolicy()
var textSanitizer = bluemonday.StrictPolicy()

// Sanitize cleans HTML content to prevent XSS attacks.
func Sanitize(input string) string {
	return sanitizer.Sanitize(input)
}

// SanitizeText strips all markup and returns trimmed plain text.
func SanitizeText(input string) string {
	return strings.TrimSpace(html.UnescapeString(textSanitizer.Sanitize(input)))
}
