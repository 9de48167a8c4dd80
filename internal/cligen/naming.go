package cligen

import (
	"regexp"
	"strings"
)

var (
	// "fooBar" and "HTTPServer" style word starts: an upper case letter
	// followed by lower case letters, preceded by anything.
	wordStartRe = regexp.MustCompile(`(.)([A-Z][a-z]+)`)
	// "userID" / "v2Beta" style boundaries.
	lowerUpperRe = regexp.MustCompile(`([a-z0-9])([A-Z])`)
	disallowedRe = regexp.MustCompile(`[^a-z0-9-]`)
	dashRunRe    = regexp.MustCompile(`-+`)
)

// Token maps an arbitrary identifier (operationId, parameter name, security
// scheme name) to a lower-case, dash separated, shell safe name.
//
// Characters outside [a-z0-9-] after case folding, including '_' and '.',
// become separators rather than being dropped. Token is idempotent.
func Token(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	s = wordStartRe.ReplaceAllString(s, "${1}-${2}")
	s = lowerUpperRe.ReplaceAllString(s, "${1}-${2}")
	s = strings.ToLower(s)
	s = disallowedRe.ReplaceAllString(s, "-")
	s = dashRunRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// envName maps a security scheme name to its CLIFY_ environment variable.
func envName(scheme string) string {
	var b strings.Builder
	b.WriteString("CLIFY_")
	for _, r := range strings.ToUpper(scheme) {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
