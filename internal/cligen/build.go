package cligen

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/tarrence/clify/internal/openapi"
)

// Names of the flags the builder itself defines on every operation that takes a body.
const (
	DataFlag = "data"
	FormFlag = "form"

	UsernameFlag = "username"
	PasswordFlag = "password"
	TokenFlag    = "token"
)

type buildSettings struct {
	strict   bool
	reserved []string
	logger   *slog.Logger
}

type BuildOption func(*buildSettings)

// WithStrictNames makes Build fail when two operations derive the same command name.
func WithStrictNames() BuildOption {
	return func(s *buildSettings) { s.strict = true }
}

// WithReservedFlags marks flag names already used by the parent command,
// typically the root's persistent flags. Derived flags are renamed around them.
func WithReservedFlags(names ...string) BuildOption {
	return func(s *buildSettings) { s.reserved = append(s.reserved, names...) }
}

func WithLogger(l *slog.Logger) BuildOption {
	return func(s *buildSettings) {
		if l != nil {
			s.logger = l
		}
	}
}

// CollisionError is returned by Build under WithStrictNames.
type CollisionError struct {
	Collision
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("duplicate command name %q (%s conflicts with %s)", e.Name, e.Kept, e.Dropped)
}

// Build derives the command tree for doc.
//
// Operations are visited in sorted path order, then in openapi.CommandMethods
// order. When two operations derive the same name the later one replaces the
// earlier; the replacement is recorded in Tree.Collisions.
func Build(doc *openapi.Document, opts ...BuildOption) (*Tree, error) {
	if doc == nil || doc.Spec == nil {
		return nil, fmt.Errorf("nil document")
	}
	st := buildSettings{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, o := range opts {
		o(&st)
	}

	spec := doc.Spec
	tree := &Tree{
		Title:         spec.Info.Title,
		Description:   spec.Info.Description,
		DefaultServer: DefaultServer(doc),
		commands:      map[string]*Command{},
	}

	for _, ep := range spec.Endpoints() {
		c := buildCommand(spec, ep, &st)
		c.Server = operationServer(doc, ep.Item, ep.Op)
		if c.Name == "" {
			st.logger.Warn("skipping operation without a usable name", "endpoint", c.Endpoint())
			continue
		}
		if prev, ok := tree.commands[c.Name]; ok {
			col := Collision{Name: c.Name, Dropped: prev.Endpoint(), Kept: c.Endpoint()}
			if st.strict {
				return nil, &CollisionError{col}
			}
			st.logger.Warn("command name collision, later operation wins",
				"command", c.Name, "dropped", col.Dropped, "kept", col.Kept)
		}
		tree.add(c)
	}
	return tree, nil
}

// commandName prefers the operationId. Without one the method and path are
// joined with slashes turned into separators and braces removed.
func commandName(method, path, operationID string) string {
	if name := Token(operationID); name != "" {
		return name
	}
	raw := method + strings.ReplaceAll(path, "/", "_")
	raw = strings.NewReplacer("{", "", "}", "").Replace(raw)
	return Token(raw)
}

func buildCommand(spec *openapi.Spec, ep openapi.Endpoint, st *buildSettings) *Command {
	op := ep.Op
	c := &Command{
		Name:        commandName(ep.Method, ep.Path, op.OperationID),
		OperationID: op.OperationID,
		Method:      strings.ToUpper(ep.Method),
		Path:        ep.Path,
		Summary:     strings.TrimSpace(op.Summary),
		Description: strings.TrimSpace(op.Description),
		Tags:        append([]string(nil), op.Tags...),
	}
	log := st.logger.With("endpoint", c.Endpoint())

	names := newNameSet(st.reserved)
	params := mergeParameters(spec, ep.Item.Parameters, op.Parameters, log)

	declared := map[string]openapi.Parameter{}
	for _, p := range params {
		if strings.EqualFold(p.In, "path") {
			declared[p.Name] = p
		}
	}
	for _, name := range extractPathParams(ep.Path) {
		arg := ArgSpec{Name: Token(name), Param: name}
		if p, ok := declared[name]; ok {
			arg.Help = p.Description
		}
		names.take(arg.Name)
		c.Args = append(c.Args, arg)
	}

	if b := bodySpec(op.RequestBody, log); b != nil {
		c.Body = b
		if b.JSONType != "" {
			c.Flags = append(c.Flags, FlagSpec{
				Name:      names.claim(DataFlag, "body"),
				Shorthand: "d",
				In:        InBody,
				Key:       DataFlag,
				Required:  b.Required && len(b.FormTypes) == 0,
				Help:      "Request body: inline JSON, '@file.json', or '-' for stdin",
			})
		}
		if len(b.FormTypes) > 0 {
			c.Flags = append(c.Flags, FlagSpec{
				Name:     names.claim(FormFlag, "body"),
				In:       InBody,
				Key:      FormFlag,
				Kind:     KindStringArray,
				Required: b.Required && b.JSONType == "",
				Help:     "Form field: key=value or key=@file (repeatable)",
			})
		}
	}

	c.Security, c.Flags = securityBindings(spec, op, names, c.Flags, log)

	for _, p := range params {
		in := Location(strings.ToLower(p.In))
		switch in {
		case InQuery, InHeader, InCookie:
		case InPath:
			continue
		default:
			log.Warn("ignoring parameter with unsupported location", "param", p.Name, "in", p.In)
			continue
		}
		tok := Token(p.Name)
		if tok == "" {
			log.Warn("ignoring parameter without a usable name", "param", p.Name)
			continue
		}
		desc := strings.TrimSpace(p.Description)
		if desc == "" {
			desc = fmt.Sprintf("%s parameter %q", in, p.Name)
		}
		if p.Required {
			desc += " (required)"
		}
		c.Flags = append(c.Flags, FlagSpec{
			Name:     names.claim(tok, string(in)),
			In:       in,
			Key:      p.Name,
			Kind:     detectParamKind(spec, p.Schema),
			Required: p.Required,
			Help:     desc,
		})
	}
	return c
}

// mergeParameters resolves references and merges path-level parameters ahead of
// the operation's. A later parameter with the same location and name replaces
// the earlier one in place.
func mergeParameters(spec *openapi.Spec, pathLevel, opLevel []openapi.Parameter, log *slog.Logger) []openapi.Parameter {
	var out []openapi.Parameter
	index := map[string]int{}
	for _, raw := range append(append([]openapi.Parameter(nil), pathLevel...), opLevel...) {
		p, ok := spec.ResolveParameter(raw)
		if !ok {
			log.Warn("ignoring unresolvable parameter reference", "ref", raw.Ref)
			continue
		}
		if p.Name == "" {
			continue
		}
		key := strings.ToLower(p.In) + "\x00" + p.Name
		if i, ok := index[key]; ok {
			out[i] = p
			continue
		}
		index[key] = len(out)
		out = append(out, p)
	}
	return out
}

func detectParamKind(spec *openapi.Spec, schema *openapi.Schema) ParamKind {
	if spec == nil || schema == nil {
		return KindString
	}
	s := spec.FlattenSchema(schema)
	if s == nil {
		return KindString
	}
	switch strings.ToLower(string(s.Type)) {
	case "boolean":
		return KindBool
	case "integer":
		return KindInt
	case "number":
		return KindFloat
	case "array":
		return KindStringArray
	default:
		return KindString
	}
}

func bodySpec(rb *openapi.RequestBody, log *slog.Logger) *BodySpec {
	if rb == nil {
		return nil
	}
	if rb.Ref != "" {
		log.Warn("ignoring request body reference", "ref", rb.Ref)
		return nil
	}
	cts := make([]string, 0, len(rb.Content))
	for ct := range rb.Content {
		cts = append(cts, ct)
	}
	sort.Strings(cts)

	b := &BodySpec{Required: rb.Required}
	for _, ct := range cts {
		switch {
		case isJSONMediaType(ct):
			if b.JSONType == "" || mediaBase(ct) == "application/json" && mediaBase(b.JSONType) != "application/json" {
				b.JSONType = ct
			}
		case isFormMediaType(ct):
			b.FormTypes = append(b.FormTypes, ct)
		}
	}
	if b.JSONType == "" && len(b.FormTypes) == 0 {
		log.Debug("request body has no JSON or form media type", "content", cts)
		return nil
	}
	return b
}

func mediaBase(ct string) string {
	base, _, _ := strings.Cut(ct, ";")
	return strings.ToLower(strings.TrimSpace(base))
}

func isJSONMediaType(ct string) bool {
	base := mediaBase(ct)
	return base == "application/json" || strings.HasSuffix(base, "+json")
}

func isFormMediaType(ct string) bool {
	switch mediaBase(ct) {
	case "multipart/form-data", "application/x-www-form-urlencoded":
		return true
	}
	return false
}

// nameSet hands out unique flag names for one command.
type nameSet map[string]bool

func newNameSet(reserved []string) nameSet {
	s := nameSet{"help": true}
	for _, n := range reserved {
		s[n] = true
	}
	return s
}

func (s nameSet) take(name string) { s[name] = true }

// claim returns name if free, else name-<qualifier>, else a numbered variant.
func (s nameSet) claim(name, qualifier string) string {
	candidates := []string{name}
	if qualifier != "" {
		candidates = append(candidates, name+"-"+qualifier)
	}
	for _, n := range candidates {
		if !s[n] {
			s[n] = true
			return n
		}
	}
	base := candidates[len(candidates)-1]
	for i := 2; ; i++ {
		n := base + "-" + strconv.Itoa(i)
		if !s[n] {
			s[n] = true
			return n
		}
	}
}
