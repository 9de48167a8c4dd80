package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"
)

// Mode selects how JSON bodies are rendered.
type Mode string

const (
	ModeJSON  Mode = "json"
	ModeYAML  Mode = "yaml"
	ModeTable Mode = "table"
)

// ParseMode validates a user supplied mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "", ModeJSON:
		return ModeJSON, nil
	case ModeYAML, ModeTable:
		return m, nil
	}
	return "", fmt.Errorf("unknown output format %q (want json, yaml or table)", s)
}

// Formatter renders HTTP responses as text.
type Formatter struct {
	Mode Mode
	// Warn receives fallback notices; nil discards them.
	Warn io.Writer
}

// Format renders a response. The result always starts with the status line
// and a blank line. JSON bodies are rendered per Mode; anything else is
// passed through as text.
func (f Formatter) Format(status int, reason string, headers http.Header, body []byte) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Status: %d %s\n\n", status, reason)

	if !strings.Contains(strings.ToLower(headers.Get("Content-Type")), "application/json") {
		b.Write(body)
		return b.String()
	}
	v, ok := decodeJSON(body)
	if !ok {
		b.Write(body)
		return b.String()
	}

	switch f.Mode {
	case ModeYAML:
		out, err := renderYAML(v)
		if err == nil {
			b.WriteString(out)
			return b.String()
		}
		f.warnf("yaml output unavailable (%v); using json", err)
	case ModeTable:
		out, ok := renderTable(v)
		if ok {
			b.WriteString(out)
			return b.String()
		}
		f.warnf("table output unavailable for this response; using json")
	}
	b.WriteString(renderJSON(v, body))
	return b.String()
}

// FormatError renders a user facing error message.
func FormatError(msg string) string {
	return "Error: " + msg
}

func (f Formatter) warnf(format string, args ...any) {
	if f.Warn == nil {
		return
	}
	fmt.Fprintf(f.Warn, "warning: "+format+"\n", args...)
}

func decodeJSON(body []byte) (any, bool) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	if dec.More() {
		return nil, false
	}
	return v, true
}

// renderJSON indents with two spaces and leaves non-ASCII and HTML characters as is.
func renderJSON(v any, raw []byte) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return string(raw)
	}
	return buf.String()
}

func renderYAML(v any) (out string, err error) {
	defer func() {
		// yaml.v3 panics on some values instead of returning an error.
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(yamlValue(v)); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// yamlValue converts json.Number into int64/float64 so numbers are not quoted.
func yamlValue(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = yamlValue(vv)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, vv := range t {
			out[i] = yamlValue(vv)
		}
		return out
	}
	return v
}

// renderTable handles a list of objects (columns from the first row) or a
// single object (Key/Value rows).
func renderTable(v any) (string, bool) {
	var buf bytes.Buffer
	tw := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)

	switch t := v.(type) {
	case []any:
		if len(t) == 0 {
			return "", false
		}
		first, ok := t[0].(map[string]any)
		if !ok {
			return "", false
		}
		cols := sortedKeys(first)
		fmt.Fprintln(tw, strings.Join(cols, "\t"))
		for _, row := range t {
			obj, ok := row.(map[string]any)
			if !ok {
				return "", false
			}
			cells := make([]string, len(cols))
			for i, c := range cols {
				cells[i] = cell(obj[c])
			}
			fmt.Fprintln(tw, strings.Join(cells, "\t"))
		}
	case map[string]any:
		fmt.Fprintln(tw, "Key\tValue")
		for _, k := range sortedKeys(t) {
			fmt.Fprintf(tw, "%s\t%s\n", k, cell(t[k]))
		}
	default:
		return "", false
	}
	if err := tw.Flush(); err != nil {
		return "", false
	}
	return buf.String(), true
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func cell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.NewReplacer("\t", " ", "\n", " ").Replace(t)
	case json.Number:
		return t.String()
	case bool:
		return fmt.Sprint(t)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
