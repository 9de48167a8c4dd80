package cligen

import (
	"sort"
)

// Tree is the command model built from one document. It is immutable once
// Build returns and does not reference the document.
type Tree struct {
	Title         string
	Description   string
	DefaultServer string

	// Collisions lists operations that replaced an earlier operation with the same command name.
	Collisions []Collision

	commands map[string]*Command
}

// Collision records two operations that derived the same command name.
// The later one (Kept) replaced the earlier one (Dropped).
type Collision struct {
	Name    string
	Dropped string // "GET /path"
	Kept    string
}

// Names returns the command names in sorted order.
func (t *Tree) Names() []string {
	if t == nil {
		return nil
	}
	out := make([]string, 0, len(t.commands))
	for name := range t.commands {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (t *Tree) Command(name string) (*Command, bool) {
	if t == nil {
		return nil, false
	}
	c, ok := t.commands[name]
	return c, ok
}

func (t *Tree) Len() int {
	if t == nil {
		return 0
	}
	return len(t.commands)
}

func (t *Tree) add(c *Command) {
	if t.commands == nil {
		t.commands = map[string]*Command{}
	}
	if prev, ok := t.commands[c.Name]; ok {
		t.Collisions = append(t.Collisions, Collision{Name: c.Name, Dropped: prev.Endpoint(), Kept: c.Endpoint()})
	}
	t.commands[c.Name] = c
}

// Command is a leaf bound to one operation.
type Command struct {
	Name        string
	OperationID string
	Method      string // upper case
	Path        string
	Summary     string
	Description string
	Tags        []string
	// Server is the operation's own default server, falling back to the
	// document's.
	Server string

	// Args are the path parameters in template order.
	Args  []ArgSpec
	Flags []FlagSpec
	Body  *BodySpec
	// Security lists the schemes that apply to this operation.
	Security []SchemeBinding
}

func (c *Command) Endpoint() string { return c.Method + " " + c.Path }

// Flag returns the flag spec with the given name.
func (c *Command) Flag(name string) (FlagSpec, bool) {
	for _, f := range c.Flags {
		if f.Name == name {
			return f, true
		}
	}
	return FlagSpec{}, false
}

// Location is where a bound value ends up in the request.
type Location string

const (
	InPath     Location = "path"
	InQuery    Location = "query"
	InHeader   Location = "header"
	InCookie   Location = "cookie"
	InBody     Location = "body"
	InSecurity Location = "security"
)

type ParamKind int

const (
	KindString ParamKind = iota
	KindInt
	KindBool
	KindFloat
	KindStringArray
)

// ArgSpec is a positional argument bound to a path template variable.
type ArgSpec struct {
	Name  string // token, also the key in Values
	Param string // template variable name
	Help  string
}

// FlagSpec describes one named flag and where its value goes.
type FlagSpec struct {
	Name      string
	Shorthand string
	In        Location
	Key       string // wire name: query key, header name, cookie name
	Kind      ParamKind
	Required  bool
	Help      string
	// EnvVar is consulted when the flag is not set.
	EnvVar string
	// Sensitive marks credentials; their Key is redacted from debug output.
	Sensitive bool
}

// BodySpec describes the request body an operation accepts.
type BodySpec struct {
	Required bool
	// JSONType is the JSON-compatible media type, empty if none.
	JSONType string
	// FormTypes are multipart/form-data or urlencoded media types.
	FormTypes []string
}

// SchemeBinding ties a security scheme to the flags that carry its credentials.
type SchemeBinding struct {
	Name   string // scheme name as declared
	Type   string // apiKey, http, oauth2
	Scheme string // basic, bearer (http only)
	In     string // header, query, cookie (apiKey only)
	Key    string // header/query/cookie name (apiKey only)
	Flag   string // apiKey value flag
}
