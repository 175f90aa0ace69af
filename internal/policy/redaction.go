package policy

import (
	"regexp"
	"strings"
)

var (
	emailPattern  = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phonePattern  = regexp.MustCompile(`\+?[0-9][0-9\-() ]{7,}[0-9]`)
	cardPattern   = regexp.MustCompile(`\b(?:\d[ -]*?){13,19}\b`)
	apiKeyPattern = regexp.MustCompile(`\bsk-[A-Za-z0-9_\-*]{6,}`)
	bearerPattern = regexp.MustCompile(`(?i)\bbearer\s+[A-Za-z0-9._\-]+`)
)

// RedactPII masks common high-risk PII patterns.
func RedactPII(input string) (redacted string, changed bool) {
	out := input

	next := emailPattern.ReplaceAllString(out, "[REDACTED_EMAIL]")
	changed = changed || next != out
	out = next

	// Run card redaction before phone to avoid card numbers being classified as phone.
	next = cardPattern.ReplaceAllString(out, "[REDACTED_CARD]")
	changed = changed || next != out
	out = next

	next = phonePattern.ReplaceAllString(out, "[REDACTED_PHONE]")
	changed = changed || next != out
	out = next

	return out, changed
}

// RedactSecrets masks API keys and bearer tokens. Any extra secrets passed
// in (typically the credential currently held by a session) are masked
// verbatim as well.
func RedactSecrets(input string, secrets ...string) string {
	out := input
	for _, s := range secrets {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out = strings.ReplaceAll(out, s, "[REDACTED_SECRET]")
	}
	out = apiKeyPattern.ReplaceAllString(out, "[REDACTED_SECRET]")
	out = bearerPattern.ReplaceAllString(out, "Bearer [REDACTED_SECRET]")
	return out
}

// Redact applies secret and PII masking; it is what diagnostics should use.
func Redact(input string, secrets ...string) string {
	out := RedactSecrets(input, secrets...)
	out, _ = RedactPII(out)
	return out
}
