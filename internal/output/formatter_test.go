package output

import (
	"bytes"
	"encoding/json"
	"net/http"
	"reflect"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func jsonHeaders() http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json; charset=utf-8")
	return h
}

func TestFormatError(t *testing.T) {
	if got := FormatError("x"); got != "Error: x" {
		t.Fatalf("FormatError = %q", got)
	}
}

func TestFormatJSONRoundTrip(t *testing.T) {
	got := Formatter{Mode: ModeJSON}.Format(200, "OK", jsonHeaders(), []byte(`{"id":1}`))
	const prefix = "Status: 200 OK\n\n"
	if !strings.HasPrefix(got, prefix) {
		t.Fatalf("missing status prefix: %q", got)
	}
	var v map[string]any
	if err := json.Unmarshal([]byte(strings.TrimPrefix(got, prefix)), &v); err != nil {
		t.Fatalf("rendered JSON does not parse: %v", err)
	}
	if !reflect.DeepEqual(v, map[string]any{"id": float64(1)}) {
		t.Fatalf("got %v", v)
	}
	if !strings.Contains(got, "{\n  \"id\": 1\n}") {
		t.Fatalf("expected two space indent, got %q", got)
	}
}

func TestFormatJSONPreservesUnicodeAndHTML(t *testing.T) {
	got := Formatter{}.Format(200, "OK", jsonHeaders(), []byte(`{"name":"Zoë <b>&</b>","n":12345678901234567890}`))
	if !strings.Contains(got, `"name": "Zoë <b>&</b>"`) {
		t.Fatalf("unicode or HTML escaped: %q", got)
	}
	if !strings.Contains(got, `"n": 12345678901234567890`) {
		t.Fatalf("large number altered: %q", got)
	}
}

func TestFormatNonJSON(t *testing.T) {
	h := http.Header{}
	h.Set("Content-Type", "text/plain")
	if got := (Formatter{}).Format(201, "Created", h, []byte(`{"id":1}`)); got != "Status: 201 Created\n\n{\"id\":1}" {
		t.Fatalf("non-JSON content type should render raw, got %q", got)
	}
	if got := (Formatter{}).Format(500, "Internal Server Error", jsonHeaders(), []byte("oops")); got != "Status: 500 Internal Server Error\n\noops" {
		t.Fatalf("unparsable JSON should render raw, got %q", got)
	}
	if got := (Formatter{}).Format(204, "No Content", nil, nil); got != "Status: 204 No Content\n\n" {
		t.Fatalf("empty body, got %q", got)
	}
}

func TestFormatYAML(t *testing.T) {
	got := Formatter{Mode: ModeYAML}.Format(200, "OK", jsonHeaders(), []byte(`{"id":1,"tags":["a","b"],"owner":{"name":"ann"}}`))
	body := strings.TrimPrefix(got, "Status: 200 OK\n\n")
	var v map[string]any
	if err := yaml.Unmarshal([]byte(body), &v); err != nil {
		t.Fatalf("yaml: %v\n%s", err, body)
	}
	if v["id"] != 1 || !reflect.DeepEqual(v["tags"], []any{"a", "b"}) {
		t.Fatalf("unexpected yaml %v", v)
	}
	if !strings.Contains(body, "owner:\n  name: ann\n") {
		t.Fatalf("expected block form, got %q", body)
	}
}

func TestFormatTableList(t *testing.T) {
	body := []byte(`[{"id":1,"name":"ann","tags":["x"]},{"id":2,"name":"bob"}]`)
	got := Formatter{Mode: ModeTable}.Format(200, "OK", jsonHeaders(), body)
	lines := strings.Split(strings.TrimSpace(strings.TrimPrefix(got, "Status: 200 OK\n\n")), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %q", lines)
	}
	if fields := strings.Fields(lines[0]); !reflect.DeepEqual(fields, []string{"id", "name", "tags"}) {
		t.Fatalf("unexpected header %q", lines[0])
	}
	if fields := strings.Fields(lines[1]); !reflect.DeepEqual(fields, []string{"1", "ann", `["x"]`}) {
		t.Fatalf("unexpected row %q", lines[1])
	}
}

func TestFormatTableObject(t *testing.T) {
	got := Formatter{Mode: ModeTable}.Format(200, "OK", jsonHeaders(), []byte(`{"b":true,"a":null}`))
	lines := strings.Split(strings.TrimSpace(strings.TrimPrefix(got, "Status: 200 OK\n\n")), "\n")
	if len(lines) != 3 || strings.Fields(lines[0])[0] != "Key" || strings.Fields(lines[1])[0] != "a" || strings.Fields(lines[2])[1] != "true" {
		t.Fatalf("unexpected table %q", lines)
	}
}

func TestFormatTableFallsBackToJSON(t *testing.T) {
	var warn bytes.Buffer
	got := Formatter{Mode: ModeTable, Warn: &warn}.Format(200, "OK", jsonHeaders(), []byte(`[1,2]`))
	if !strings.HasSuffix(got, "[\n  1,\n  2\n]\n") {
		t.Fatalf("expected JSON fallback, got %q", got)
	}
	if !strings.Contains(warn.String(), "warning: table output unavailable") {
		t.Fatalf("expected warning, got %q", warn.String())
	}
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"": ModeJSON, "JSON": ModeJSON, "yaml": ModeYAML, " table ": ModeTable} {
		got, err := ParseMode(in)
		if err != nil || got != want {
			t.Fatalf("ParseMode(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseMode("xml"); err == nil {
		t.Fatalf("expected error")
	}
}
