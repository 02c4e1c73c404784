// Package logging provides utilities for secure logging with data masking.
//
// Token secrets must never reach a log line. Headers, JSON bodies and free
// text all pass through here before they are logged.
package logging

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Redacted replaces masked values.
const Redacted = "[REDACTED]"

// secretPattern matches an issued token secret anywhere in a string.
var secretPattern = regexp.MustCompile(`apiv3_[A-Za-z0-9_-]+`)

// DefaultAllowlist holds the JSON fields of tokend requests and responses
// that are safe to log verbatim. "token" is never listed.
var DefaultAllowlist = []string{
	"id", "name", "kind", "created_at", "expires_at", "revoked_at",
	"message", "error", "hint",
	"token_name", "expiry", "db", "level", "status", "database", "tokens", "databases",
}

// MaskHeader redacts sensitive header values based on header name.
// Returns the redacted value suitable for logging.
//
// Rules:
//   - Authorization: the scheme is kept, the credential is replaced
//   - Password/secret/token headers: fully redacted
//   - Other headers: secrets embedded in the value are still scrubbed
func MaskHeader(name, value string) string {
	lowerName := strings.ToLower(name)

	if lowerName == "authorization" {
		scheme, _, found := strings.Cut(value, " ")
		if !found {
			return Redacted
		}
		return scheme + " " + Redacted
	}

	if strings.Contains(lowerName, "password") ||
		strings.Contains(lowerName, "secret") ||
		strings.Contains(lowerName, "token") ||
		strings.Contains(lowerName, "private-key") ||
		lowerName == "x-api-key" {
		return Redacted
	}

	return RedactSecrets(value)
}

// RedactSecrets replaces every token secret in s.
func RedactSecrets(s string) string {
	return secretPattern.ReplaceAllString(s, "apiv3_"+Redacted)
}

// MaskJSONBody redacts non-allowlisted fields in a JSON body.
//
// If allowlist is nil only embedded secrets are scrubbed.
// If allowlist is non-nil, only fields in the allowlist are preserved.
// All other primitive fields are replaced with "[REDACTED]".
// Bodies that are not JSON (such as the plain-text token output) are
// returned with secrets scrubbed.
func MaskJSONBody(body []byte, allowlist []string) []byte {
	if len(body) == 0 {
		return body
	}
	if allowlist == nil {
		return []byte(RedactSecrets(string(body)))
	}

	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		return []byte(RedactSecrets(string(body)))
	}

	allowlistMap := make(map[string]bool, len(allowlist))
	for _, field := range allowlist {
		allowlistMap[field] = true
	}

	result, err := json.Marshal(maskJSONValue(data, allowlistMap))
	if err != nil {
		return []byte(RedactSecrets(string(body)))
	}

	// Allowlisted strings may still quote a secret, e.g. in an error message.
	return []byte(RedactSecrets(string(result)))
}

// maskJSONValue recursively masks JSON values based on allowlist
func maskJSONValue(value any, allowlist map[string]bool) any {
	switch v := value.(type) {
	case map[string]any:
		result := make(map[string]any, len(v))
		for key, val := range v {
			switch val.(type) {
			case map[string]any, []any:
				// Containers are always walked so nested fields get the same treatment.
				result[key] = maskJSONValue(val, allowlist)
			default:
				if allowlist[key] {
					result[key] = val
				} else {
					result[key] = Redacted
				}
			}
		}
		return result
	case []any:
		result := make([]any, len(v))
		for i, item := range v {
			result[i] = maskJSONValue(item, allowlist)
		}
		return result
	default:
		return value
	}
}

// FormatBinaryData formats binary data for logging.
// Returns a human-readable size indicator.
func FormatBinaryData(data []byte) string {
	return fmt.Sprintf("[BINARY: %d bytes]", len(data))
}
