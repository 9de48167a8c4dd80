package openapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings configures loader behavior.
type Settings struct {
	// HTTPTimeout bounds the fetch of a remote document.
	HTTPTimeout time.Duration
	// Client overrides the HTTP client used for remote documents.
	Client *http.Client
	// FS, when set, resolves non-URL sources instead of the OS filesystem.
	FS fs.FS
	// UserAgent is sent with remote fetches.
	UserAgent string
}

func DefaultSettings() Settings {
	return Settings{HTTPTimeout: 30 * time.Second}
}

// Option mutates Settings.
type Option func(*Settings)

func WithHTTPTimeout(d time.Duration) Option { return func(s *Settings) { s.HTTPTimeout = d } }
func WithHTTPClient(c *http.Client) Option   { return func(s *Settings) { s.Client = c } }
func WithFS(fsys fs.FS) Option              { return func(s *Settings) { s.FS = fsys } }
func WithUserAgent(ua string) Option        { return func(s *Settings) { s.UserAgent = ua } }

// Load reads, upgrades and validates an OpenAPI document.
//
// source may be a filesystem path or an http/https URL. Swagger 2.0 documents
// are upgraded to the 3.x shape before validation.
func Load(ctx context.Context, source string, opts ...Option) (*Document, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, &SpecError{Code: NotFoundError, Message: "openapi: source is empty"}
	}

	settings := DefaultSettings()
	for _, opt := range opts {
		opt(&settings)
	}

	doc := &Document{Source: source}

	var raw []byte
	u, uerr := url.Parse(source)
	if uerr == nil && (strings.EqualFold(u.Scheme, "http") || strings.EqualFold(u.Scheme, "https")) && u.Host != "" {
		doc.BaseRef = strings.ToLower(u.Scheme) + "://" + u.Host
		b, err := fetch(ctx, source, settings)
		if err != nil {
			return nil, &SpecError{Code: FetchError, Message: fmt.Sprintf("fetch %s: %v", source, err), Location: source, Cause: err}
		}
		raw = b
	} else {
		b, err := readSource(source, settings.FS)
		if err != nil {
			return nil, &SpecError{Code: NotFoundError, Message: fmt.Sprintf("read %s: %v", source, err), Location: source, Cause: err}
		}
		raw = b
	}

	tree, err := decode(source, raw)
	if err != nil {
		return nil, &SpecError{Code: ParseError, Message: fmt.Sprintf("parse %s: %v", source, err), Location: source, Cause: err}
	}

	if v, ok := tree["swagger"].(string); ok && v == "2.0" {
		tree = UpgradeV2(tree)
		doc.Upgraded = true
	}

	if err := validateTree(tree); err != nil {
		return nil, &SpecError{Code: InvalidSpecError, Message: err.Error(), Location: source, Cause: err}
	}

	spec, warnings, err := toSpec(tree)
	if err != nil {
		return nil, &SpecError{Code: InvalidSpecError, Message: fmt.Sprintf("decode %s: %v", source, err), Location: source, Cause: err}
	}
	doc.Spec = spec
	doc.Warnings = warnings
	return doc, nil
}

func readSource(path string, fsys fs.FS) ([]byte, error) {
	if fsys != nil {
		return fs.ReadFile(fsys, strings.TrimPrefix(path, "./"))
	}
	return os.ReadFile(path)
}

func fetch(ctx context.Context, rawURL string, settings Settings) ([]byte, error) {
	client := settings.Client
	if client == nil {
		client = &http.Client{Timeout: settings.HTTPTimeout}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	if settings.UserAgent != "" {
		req.Header.Set("User-Agent", settings.UserAgent)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("http %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// decode parses raw as JSON when the source names a .json file or the content
// looks like a JSON object, otherwise as YAML.
func decode(source string, raw []byte) (map[string]any, error) {
	var v any
	if strings.HasSuffix(strings.ToLower(source), ".json") || bytes.HasPrefix(bytes.TrimSpace(raw), []byte("{")) {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&v); err != nil {
			return nil, err
		}
	} else {
		if err := yaml.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		v = normalizeYAML(v)
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, errors.New("document is not a mapping")
	}
	return m, nil
}

// normalizeYAML rewrites map[any]any nodes (yaml.v3 produces them for
// non-string keys like unquoted status codes) into map[string]any.
func normalizeYAML(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, vv := range t {
			t[k] = normalizeYAML(vv)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[fmt.Sprint(k)] = normalizeYAML(vv)
		}
		return out
	case []any:
		for i, vv := range t {
			t[i] = normalizeYAML(vv)
		}
		return t
	default:
		return v
	}
}

func validateTree(tree map[string]any) error {
	v, ok := tree["openapi"]
	if !ok {
		return errors.New("not an OpenAPI document: missing 'openapi' field")
	}
	s, ok := v.(string)
	if !ok || !strings.HasPrefix(s, "3.") {
		return fmt.Errorf("unsupported OpenAPI version: %v", v)
	}
	if _, ok := tree["paths"].(map[string]any); !ok {
		return errors.New("not an OpenAPI document: 'paths' is not a mapping")
	}
	return nil
}

// toSpec decodes the validated tree into the typed model through yaml.v3, so
// scalars such as "version: 1.0" land in string fields as text. Fields whose
// shape does not fit the model are left empty and reported as warnings.
func toSpec(tree map[string]any) (*Spec, []string, error) {
	var n yaml.Node
	if err := n.Encode(plainNumbers(tree)); err != nil {
		return nil, nil, err
	}
	var (
		spec     Spec
		warnings []string
	)
	if err := n.Decode(&spec); err != nil {
		var te *yaml.TypeError
		if !errors.As(err, &te) {
			return nil, nil, err
		}
		warnings = append(warnings, te.Errors...)
	}
	if spec.Paths == nil {
		spec.Paths = map[string]PathItem{}
	}
	return &spec, warnings, nil
}

// plainNumbers replaces json.Number values, which yaml.v3 would encode as
// strings, with int64 or float64.
func plainNumbers(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, vv := range t {
			t[k] = plainNumbers(vv)
		}
		return t
	case []any:
		for i, vv := range t {
			t[i] = plainNumbers(vv)
		}
		return t
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	default:
		return v
	}
}
