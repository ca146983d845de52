package secret

import (
	"encoding/json"
	"regexp"
	"strings"
)

var defaultSecretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`sk-[A-Za-z0-9-_]{6,}`),
	regexp.MustCompile(`ghp_[A-Za-z0-9_]{6,}`),
	regexp.MustCompile(`(?i)password[\w-]+`),
	regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9._-]{10,}`),
}

// Redactor is a pure byte/string -> string transform applied at artifact
// write time in the support-bundle pipeline (spec §9: redaction MUST NOT
// touch the primary artifact store).
type Redactor struct {
	patterns []*regexp.Regexp
	literals []string
}

// NewRedactor builds a redactor with optional literal secret values to
// additionally strip (e.g. values resolved from secret bindings for the
// current task).
func NewRedactor(literals []string) *Redactor {
	filtered := make([]string, 0, len(literals))
	for _, literal := range literals {
		if literal != "" {
			filtered = append(filtered, literal)
		}
	}
	return &Redactor{patterns: defaultSecretPatterns, literals: filtered}
}

// Redact replaces recognizable secret material in a string with "[REDACTED]".
func (r *Redactor) Redact(input string) string {
	if input == "" {
		return input
	}
	redacted := input
	for _, literal := range r.literals {
		redacted = strings.ReplaceAll(redacted, literal, "[REDACTED]")
	}
	for _, re := range r.patterns {
		redacted = re.ReplaceAllString(redacted, "[REDACTED]")
	}
	return redacted
}

// SanitizeValue recursively redacts secrets from decoded JSON data, as used
// when redacting event payloads before they are written into a support
// bundle.
func (r *Redactor) SanitizeValue(value any) any {
	switch v := value.(type) {
	case string:
		return r.Redact(v)
	case map[string]any:
		sanitized := make(map[string]any, len(v))
		for key, val := range v {
			sanitized[key] = r.SanitizeValue(val)
		}
		return sanitized
	case []any:
		sanitized := make([]any, len(v))
		for i, item := range v {
			sanitized[i] = r.SanitizeValue(item)
		}
		return sanitized
	default:
		return value
	}
}

// RedactBytes redacts a JSON-encoded byte slice by round-tripping it through
// SanitizeValue. Non-JSON input is redacted as a plain string.
func (r *Redactor) RedactBytes(data []byte) []byte {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return []byte(r.Redact(string(data)))
	}
	sanitized := r.SanitizeValue(v)
	out, err := json.Marshal(sanitized)
	if err != nil {
		return []byte(r.Redact(string(data)))
	}
	return out
}
