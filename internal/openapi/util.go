package openapi

import (
	"sort"
	"strings"
)

// CommandMethods are the HTTP methods that become commands, in dispatch order.
var CommandMethods = []string{"get", "post", "put", "delete", "patch", "head"}

// Endpoint is one operation bound to its path template.
type Endpoint struct {
	Method string // lower case
	Path   string
	Item   *PathItem
	Op     *Operation
}

func (pi *PathItem) Operation(method string) *Operation {
	switch strings.ToLower(method) {
	case "get":
		return pi.Get
	case "post":
		return pi.Post
	case "put":
		return pi.Put
	case "delete":
		return pi.Delete
	case "patch":
		return pi.Patch
	case "head":
		return pi.Head
	case "options":
		return pi.Options
	case "trace":
		return pi.Trace
	}
	return nil
}

// Endpoints lists every command-capable operation, ordered by path then by CommandMethods.
func (s *Spec) Endpoints() []Endpoint {
	paths := make([]string, 0, len(s.Paths))
	for p := range s.Paths {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var out []Endpoint
	for _, p := range paths {
		item := s.Paths[p]
		for _, m := range CommandMethods {
			op := item.Operation(m)
			if op == nil {
				continue
			}
			out = append(out, Endpoint{Method: m, Path: p, Item: &item, Op: op})
		}
	}
	return out
}

// ServerURL returns the expanded URL of the most specific server list that
// applies: the operation's, then the path item's, then the document's. Nil
// item and op select the document's.
func (s *Spec) ServerURL(item *PathItem, op *Operation) string {
	if op != nil && len(op.Servers) > 0 && op.Servers[0].URL != "" {
		return op.Servers[0].Expand()
	}
	if item != nil && len(item.Servers) > 0 && item.Servers[0].URL != "" {
		return item.Servers[0].Expand()
	}
	if len(s.Servers) > 0 {
		return s.Servers[0].Expand()
	}
	return ""
}

// Expand substitutes {variable} placeholders with their declared defaults.
func (sv Server) Expand() string {
	u := sv.URL
	for name, v := range sv.Variables {
		u = strings.ReplaceAll(u, "{"+name+"}", v.Default)
	}
	return u
}

// SecurityRequirements returns the requirement list that applies to op.
// Operation-level security overrides the document's.
func (s *Spec) SecurityRequirements(op *Operation) []map[string][]string {
	if op != nil && op.Security != nil {
		return op.Security
	}
	return s.Security
}

// ResolveParameter follows a #/components/parameters/ reference.
func (s *Spec) ResolveParameter(p Parameter) (Parameter, bool) {
	if p.Ref == "" {
		return p, true
	}
	const prefix = "#/components/parameters/"
	if !strings.HasPrefix(p.Ref, prefix) || s.Components.Parameters == nil {
		return p, false
	}
	target, ok := s.Components.Parameters[strings.TrimPrefix(p.Ref, prefix)]
	if !ok || target.Ref != "" {
		return p, false
	}
	return target, true
}

func refSchemaName(ref string) (string, bool) {
	const prefix = "#/components/schemas/"
	if !strings.HasPrefix(ref, prefix) {
		return "", false
	}
	return strings.TrimPrefix(ref, prefix), true
}

func (s *Spec) resolveSchemaRef(ref string) (*Schema, bool) {
	name, ok := refSchemaName(ref)
	if !ok {
		return nil, false
	}
	if s.Components.Schemas == nil {
		return nil, false
	}
	schema, ok := s.Components.Schemas[name]
	if !ok {
		return nil, false
	}
	cp := schema // copy so callers can mutate safely
	return &cp, true
}

func (s *Spec) derefSchema(schema *Schema, seen map[string]bool) *Schema {
	if schema == nil {
		return nil
	}
	if schema.Ref == "" {
		return schema
	}
	if seen[schema.Ref] {
		return schema
	}
	seen[schema.Ref] = true
	target, ok := s.resolveSchemaRef(schema.Ref)
	if !ok {
		return schema
	}
	return s.derefSchema(target, seen)
}

// FlattenSchema tries to produce a schema with merged object properties by expanding
// $ref and allOf. This is intentionally conservative and only supports what the CLI needs.
func (s *Spec) FlattenSchema(schema *Schema) *Schema {
	return s.flattenSchema(schema, map[string]bool{})
}

func (s *Spec) flattenSchema(schema *Schema, seen map[string]bool) *Schema {
	if schema == nil {
		return nil
	}

	schema = s.derefSchema(schema, seen)
	if schema == nil {
		return nil
	}

	// If this is just an allOf wrapper, flatten the children.
	if len(schema.AllOf) > 0 && schema.Properties == nil && schema.Type == "" && schema.Items == nil {
		merged := &Schema{
			Type:       "object",
			Properties: map[string]Schema{},
		}
		for _, sub := range schema.AllOf {
			subF := s.flattenSchema(sub, seen)
			if subF == nil {
				continue
			}
			if subF.Type != "" && merged.Type == "" {
				merged.Type = subF.Type
			}
			for k, v := range subF.Properties {
				merged.Properties[k] = v
			}
		}
		if len(merged.Properties) == 0 {
			// Fall back to the original schema if we couldn't merge anything useful.
			return schema
		}
		return merged
	}

	// Preserve the schema, but deref immediate properties/items where possible.
	if schema.Type.Is("object") && len(schema.Properties) > 0 {
		cp := *schema
		cp.Properties = map[string]Schema{}
		for k, v := range schema.Properties {
			vv := v
			d := s.derefSchema(&vv, seen)
			if d != nil {
				cp.Properties[k] = *d
			} else {
				cp.Properties[k] = v
			}
		}
		return &cp
	}
	if schema.Type.Is("array") && schema.Items != nil {
		cp := *schema
		cp.Items = s.derefSchema(schema.Items, seen)
		return &cp
	}
	return schema
}
