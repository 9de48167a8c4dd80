package cligen

import (
	"net/url"
	"strings"

	"github.com/tarrence/clify/internal/openapi"
)

func extractPathParams(path string) []string {
	var out []string
	for i := 0; i < len(path); i++ {
		if path[i] != '{' {
			continue
		}
		j := strings.IndexByte(path[i:], '}')
		if j <= 1 {
			continue
		}
		name := path[i+1 : i+j]
		out = append(out, name)
		i = i + j
	}
	return out
}

// DefaultServer resolves the first declared server of doc. Relative server
// URLs are resolved against the base the document was fetched from.
func DefaultServer(doc *openapi.Document) string {
	return operationServer(doc, nil, nil)
}

// operationServer resolves the server an operation is sent to when none is
// configured.
func operationServer(doc *openapi.Document, item *openapi.PathItem, op *openapi.Operation) string {
	if doc == nil || doc.Spec == nil {
		return ""
	}
	raw := strings.TrimSpace(doc.Spec.ServerURL(item, op))
	return resolveServer(raw, doc.BaseRef)
}

func resolveServer(raw, base string) string {
	if raw == "" || base == "" {
		return raw
	}
	if strings.HasPrefix(raw, "/") {
		return strings.TrimRight(base, "/") + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "" {
		return raw
	}
	b, err := url.Parse(base)
	if err != nil {
		return raw
	}
	return b.ResolveReference(u).String()
}

// joinURL joins a server URL and a path with exactly one slash between them.
func joinURL(server, path string) string {
	return strings.TrimRight(server, "/") + "/" + strings.TrimLeft(path, "/")
}
