package logger

import (
	"regexp"
	"slices"
	"strings"
)

const redacted = "[REDACTED]"

type redaction struct {
	pattern     *regexp.Regexp
	replacement string
}

var dsnPattern = regexp.MustCompile(`([A-Za-z0-9_.\-]+:)[^@\s/]+@`)

// sensitivePatterns match secrets embedded in free-form text
var sensitivePatterns = []redaction{
	// user:password@ in MySQL DSNs and URLs
	{dsnPattern, "${1}" + redacted + "@"},
	{regexp.MustCompile(`(?i)(bearer\s+)[A-Za-z0-9\-._~+/]+=*`), "${1}" + redacted},
	{regexp.MustCompile(`(?i)((?:api[_-]?key|token|secret|passw(?:or)?d|pwd)\s*[:=]\s*)[^;,\s&]+`), "${1}" + redacted},
	// Sentry DSN public key
	{regexp.MustCompile(`(https?://)[0-9a-f]{16,}@`), "${1}" + redacted + "@"},
}

// sensitiveKeys mark Field keys whose values are never logged
var sensitiveKeys = []string{"password", "passwd", "secret", "token", "dsn", "api_key", "apikey", "authorization", "cookie"}

// RedactSensitiveData replaces credentials in s with [REDACTED].
func RedactSensitiveData(s string) string {
	if s == "" {
		return s
	}
	for _, r := range sensitivePatterns {
		s = r.pattern.ReplaceAllString(s, r.replacement)
	}
	return s
}

// RedactDSN hides the password of a database DSN such as
// "root:secret@tcp(localhost:3305)/binged".
func RedactDSN(dsn string) string {
	return dsnPattern.ReplaceAllString(dsn, "${1}"+redacted+"@")
}

// IsSensitiveKey reports whether a field key names secret material.
func IsSensitiveKey(key string) bool {
	k := strings.ToLower(key)
	return slices.ContainsFunc(sensitiveKeys, func(s string) bool {
		return strings.Contains(k, s)
	})
}

// redactField hides the value of a single sensitive string field
func redactField(f Field) Field {
	if v, ok := f.Value.(string); ok && v != "" && IsSensitiveKey(f.Key) {
		f.Value = redacted
	}
	return f
}
