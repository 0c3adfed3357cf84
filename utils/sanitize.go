package utils

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	sanitizer = bluemonday.UGCPolicy()
	stripper  = bluemonday.StrictPolicy()
)

// Sanitize cleans HTML content to prevent XSS attacks. Used for post and comment bodies.
func Sanitize(input string) string {
	return sanitizer.Sanitize(input)
}

// SanitizeText strips all markup and surrounding space. Used for titles, reasons and notes.
func SanitizeText(input string) string {
	return strings.TrimSpace(stripper.Sanitize(input))
}
