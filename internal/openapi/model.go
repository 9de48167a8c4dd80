package openapi

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// Document is a loaded and normalized API description.
type Document struct {
	// Source is the path or URL the document was loaded from.
	Source string
	// BaseRef is scheme://host of Source when it was fetched over HTTP, else empty.
	// Relative server URLs are resolved against it.
	BaseRef string
	// Upgraded reports whether the source was a Swagger 2.0 document.
	Upgraded bool
	// Warnings lists fields that could not be decoded into the model and were
	// left empty.
	Warnings []string
	Spec     *Spec
}

// Spec is a minimal OpenAPI 3-ish model sufficient for generating CLI commands.
// Unknown fields are ignored and scalars decode into string fields as text.
type Spec struct {
	OpenAPI string   `json:"openapi" yaml:"openapi"`
	Info    Info     `json:"info" yaml:"info"`
	Servers []Server `json:"servers,omitempty" yaml:"servers,omitempty"`

	Tags     []Tag                 `json:"tags,omitempty" yaml:"tags,omitempty"`
	Security []map[string][]string `json:"security,omitempty" yaml:"security,omitempty"`

	Paths      map[string]PathItem `json:"paths" yaml:"paths"`
	Components Components          `json:"components,omitempty" yaml:"components,omitempty"`
}

type Info struct {
	Title       string `json:"title,omitempty" yaml:"title,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Version     string `json:"version,omitempty" yaml:"version,omitempty"`
}

type Tag struct {
	Name        string `json:"name,omitempty" yaml:"name,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

type Server struct {
	URL         string                    `json:"url" yaml:"url"`
	Description string                    `json:"description,omitempty" yaml:"description,omitempty"`
	Variables   map[string]ServerVariable `json:"variables,omitempty" yaml:"variables,omitempty"`
}

type ServerVariable struct {
	Default     string   `json:"default" yaml:"default"`
	Enum        []string `json:"enum,omitempty" yaml:"enum,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
}

type Components struct {
	Schemas         map[string]Schema         `json:"schemas,omitempty" yaml:"schemas,omitempty"`
	Parameters      map[string]Parameter      `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	SecuritySchemes map[string]SecurityScheme `json:"securitySchemes,omitempty" yaml:"securitySchemes,omitempty"`
	Responses       map[string]Response       `json:"responses,omitempty" yaml:"responses,omitempty"`
}

// SecurityScheme covers the apiKey, http and oauth2 scheme types.
type SecurityScheme struct {
	Type        string `json:"type" yaml:"type"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// apiKey
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
	In   string `json:"in,omitempty" yaml:"in,omitempty"` // header, query, cookie

	// http
	Scheme       string `json:"scheme,omitempty" yaml:"scheme,omitempty"` // basic, bearer
	BearerFormat string `json:"bearerFormat,omitempty" yaml:"bearerFormat,omitempty"`

	// oauth2
	Flows map[string]OAuthFlow `json:"flows,omitempty" yaml:"flows,omitempty"`
}

type OAuthFlow struct {
	AuthorizationURL string            `json:"authorizationUrl,omitempty" yaml:"authorizationUrl,omitempty"`
	TokenURL         string            `json:"tokenUrl,omitempty" yaml:"tokenUrl,omitempty"`
	RefreshURL       string            `json:"refreshUrl,omitempty" yaml:"refreshUrl,omitempty"`
	Scopes           map[string]string `json:"scopes,omitempty" yaml:"scopes,omitempty"`
}

type PathItem struct {
	Summary     string      `json:"summary,omitempty" yaml:"summary,omitempty"`
	Description string      `json:"description,omitempty" yaml:"description,omitempty"`
	Parameters  []Parameter `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	Servers     []Server    `json:"servers,omitempty" yaml:"servers,omitempty"`

	Get     *Operation `json:"get,omitempty" yaml:"get,omitempty"`
	Post    *Operation `json:"post,omitempty" yaml:"post,omitempty"`
	Put     *Operation `json:"put,omitempty" yaml:"put,omitempty"`
	Delete  *Operation `json:"delete,omitempty" yaml:"delete,omitempty"`
	Patch   *Operation `json:"patch,omitempty" yaml:"patch,omitempty"`
	Head    *Operation `json:"head,omitempty" yaml:"head,omitempty"`
	Options *Operation `json:"options,omitempty" yaml:"options,omitempty"`
	Trace   *Operation `json:"trace,omitempty" yaml:"trace,omitempty"`
}

type Operation struct {
	OperationID string   `json:"operationId,omitempty" yaml:"operationId,omitempty"`
	Tags        []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Summary     string   `json:"summary,omitempty" yaml:"summary,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`

	Parameters  []Parameter         `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	RequestBody *RequestBody        `json:"requestBody,omitempty" yaml:"requestBody,omitempty"`
	Responses   map[string]Response `json:"responses,omitempty" yaml:"responses,omitempty"`
	// Security is nil when the operation inherits the document requirements.
	// An explicit empty list disables security for the operation.
	Security []map[string][]string `json:"security,omitempty" yaml:"security,omitempty"`
	Servers  []Server              `json:"servers,omitempty" yaml:"servers,omitempty"`
}

// UnmarshalYAML keeps the difference between an absent and an empty security list.
func (o *Operation) UnmarshalYAML(n *yaml.Node) error {
	type plain Operation
	var p plain
	err := n.Decode(&p)
	*o = Operation(p)
	if v := mappingValue(n, "security"); v != nil && v.Kind == yaml.SequenceNode && o.Security == nil {
		o.Security = []map[string][]string{}
	}
	return err
}

type Parameter struct {
	Ref         string `json:"$ref,omitempty" yaml:"$ref,omitempty"`
	Name        string `json:"name,omitempty" yaml:"name,omitempty"`
	In          string `json:"in,omitempty" yaml:"in,omitempty"` // path, query, header, cookie
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Required    bool   `json:"required,omitempty" yaml:"required,omitempty"`

	Schema  *Schema `json:"schema,omitempty" yaml:"schema,omitempty"`
	Style   string  `json:"style,omitempty" yaml:"style,omitempty"`
	Explode *bool   `json:"explode,omitempty" yaml:"explode,omitempty"`
}

type RequestBody struct {
	Ref         string               `json:"$ref,omitempty" yaml:"$ref,omitempty"`
	Description string               `json:"description,omitempty" yaml:"description,omitempty"`
	Required    bool                 `json:"required,omitempty" yaml:"required,omitempty"`
	Content     map[string]MediaType `json:"content,omitempty" yaml:"content,omitempty"`
}

type Response struct {
	Ref         string               `json:"$ref,omitempty" yaml:"$ref,omitempty"`
	Description string               `json:"description,omitempty" yaml:"description,omitempty"`
	Content     map[string]MediaType `json:"content,omitempty" yaml:"content,omitempty"`
}

type MediaType struct {
	Schema *Schema `json:"schema,omitempty" yaml:"schema,omitempty"`
}

type Schema struct {
	Ref        string            `json:"$ref,omitempty" yaml:"$ref,omitempty"`
	Type       SchemaType        `json:"type,omitempty" yaml:"type,omitempty"`
	Format     string            `json:"format,omitempty" yaml:"format,omitempty"`
	Nullable   bool              `json:"nullable,omitempty" yaml:"nullable,omitempty"`
	Enum       []any             `json:"enum,omitempty" yaml:"enum,omitempty"`
	Default    any               `json:"default,omitempty" yaml:"default,omitempty"`
	Items      *Schema           `json:"items,omitempty" yaml:"items,omitempty"`
	Properties map[string]Schema `json:"properties,omitempty" yaml:"properties,omitempty"`
	Required   NameList          `json:"required,omitempty" yaml:"required,omitempty"`
	AllOf      []*Schema         `json:"allOf,omitempty" yaml:"allOf,omitempty"`
	AnyOf      []*Schema         `json:"anyOf,omitempty" yaml:"anyOf,omitempty"`
	OneOf      []*Schema         `json:"oneOf,omitempty" yaml:"oneOf,omitempty"`
}

// SchemaType accepts both the 3.0 string form and the 3.1 list form of "type".
// For lists the first non-null entry wins.
type SchemaType string

func (t *SchemaType) UnmarshalYAML(n *yaml.Node) error {
	*t = ""
	switch n.Kind {
	case yaml.ScalarNode:
		if n.ShortTag() != "!!null" {
			*t = SchemaType(n.Value)
		}
	case yaml.SequenceNode:
		for _, c := range n.Content {
			if c.Kind == yaml.ScalarNode && c.ShortTag() != "!!null" && c.Value != "null" {
				*t = SchemaType(c.Value)
				break
			}
		}
	}
	return nil
}

func (t SchemaType) Is(name string) bool {
	return strings.EqualFold(string(t), name)
}

// NameList is a list of property names. Malformed values (such as the boolean
// "required: true" some Swagger files put on properties) decode as empty.
type NameList []string

func (l *NameList) UnmarshalYAML(n *yaml.Node) error {
	var list []string
	if n.Kind != yaml.SequenceNode || n.Decode(&list) != nil {
		*l = nil
		return nil
	}
	*l = list
	return nil
}

// mappingValue returns the value node stored under key in a mapping node.
func mappingValue(n *yaml.Node, key string) *yaml.Node {
	if n.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return n.Content[i+1]
		}
	}
	return nil
}
