// Package logger holds redaction helpers so credentials never reach log
// output in the clear.
package logger

import (
	"regexp"
	"strings"
)

// RedactSecret masks a credential for safe logging, keeping a two-character
// prefix for correlation. "sk-live-abc123" → "sk***"
// Short values (≤4 chars) are fully masked.
func RedactSecret(val string) string {
	if len(val) <= 4 {
		return "***"
	}
	return val[:2] + "***"
}

var urlCredRegex = regexp.MustCompile(`(//[^/:@\s]+:)[^@\s]+@`)

// RedactURL masks the password portion of a connection URL.
// "postgres://app:hunter2@db:5432/metrics" → "postgres://app:***@db:5432/metrics"
func RedactURL(val string) string {
	return urlCredRegex.ReplaceAllString(val, "$1***@")
}

var secretKeyMarkers = []string{"password", "secret", "token", "api_key", "apikey"}

func isSecretKey(key string) bool {
	key = strings.ToLower(key)
	for _, marker := range secretKeyMarkers {
		if strings.Contains(key, marker) {
			return true
		}
	}
	return false
}
