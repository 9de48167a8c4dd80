// Package specs holds sample API documents used by tests and examples.
package specs

import "embed"

// FS contains the sample OpenAPI and Swagger documents.
//
//go:embed *.yaml *.json
var FS embed.FS
