package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tarrence/clify/specs"
)

func sampleFile(t *testing.T, name string) string {
	t.Helper()
	b, err := specs.FS.ReadFile(name)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, b, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

type result struct {
	code   int
	stdout string
	stderr string
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"CLIFY_OPENAPI_FILE", "OPENAPI_FILE_PATH", "CLIFY_SERVER", "CLIFY_TOKEN", "CLIFY_USERNAME", "CLIFY_PASSWORD", "CLIFY_APIKEYAUTH", "CLIFY_OUTPUT"} {
		t.Setenv(k, "")
	}
}

func runCLI(t *testing.T, args ...string) result {
	t.Helper()
	clearEnv(t)
	var out, errBuf bytes.Buffer
	code := newApp(strings.NewReader(""), &out, &errBuf).run(context.Background(), args)
	return result{code: code, stdout: out.String(), stderr: errBuf.String()}
}

func TestGetUsersEndToEnd(t *testing.T) {
	var gotPath, gotLimit, gotAuth, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotLimit = r.URL.Path, r.URL.Query().Get("limit")
		gotAuth, gotUA = r.Header.Get("Authorization"), r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `[{"id":1,"name":"ann"}]`)
	}))
	t.Cleanup(srv.Close)

	res := runCLI(t, "-f", sampleFile(t, "users.yaml"), "--server", srv.URL+"/", "get-users", "--limit", "2", "--token", "t0k")
	if res.code != 0 {
		t.Fatalf("exit %d, stderr=%s", res.code, res.stderr)
	}
	if gotPath != "/users" || gotLimit != "2" || gotAuth != "Bearer t0k" || !strings.HasPrefix(gotUA, "clify/") {
		t.Fatalf("unexpected request path=%q limit=%q auth=%q ua=%q", gotPath, gotLimit, gotAuth, gotUA)
	}
	body := strings.TrimPrefix(res.stdout, "Status: 200 OK\n\n")
	if body == res.stdout {
		t.Fatalf("missing status line: %q", res.stdout)
	}
	var v []map[string]any
	if err := json.Unmarshal([]byte(body), &v); err != nil || v[0]["name"] != "ann" {
		t.Fatalf("unexpected body %q (%v)", body, err)
	}
}

func TestEnvSourcesAndYAMLOutput(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-API-Key")
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":123,"name":"ann"}`)
	}))
	t.Cleanup(srv.Close)

	clearEnv(t)
	var out, errBuf bytes.Buffer
	path := sampleFile(t, "users.yaml")
	t.Setenv("OPENAPI_FILE_PATH", path)
	t.Setenv("CLIFY_SERVER", srv.URL)
	t.Setenv("CLIFY_APIKEYAUTH", "k-env")
	code := newApp(strings.NewReader(""), &out, &errBuf).run(context.Background(), []string{"get-user-by-id", "123", "-o", "yaml"})
	if code != 0 {
		t.Fatalf("exit %d, stderr=%s", code, errBuf.String())
	}
	if gotKey != "k-env" {
		t.Fatalf("apiKey should come from CLIFY_APIKEYAUTH, got %q", gotKey)
	}
	if out.String() != "Status: 200 OK\n\nid: 123\nname: ann\n" {
		t.Fatalf("unexpected yaml output %q", out.String())
	}
}

func TestCreateUserFromFile(t *testing.T) {
	var gotCT string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCT = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
	}))
	t.Cleanup(srv.Close)

	data := filepath.Join(t.TempDir(), "user.json")
	if err := os.WriteFile(data, []byte(`{"name":"test","email":"t@example.com"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	res := runCLI(t, "-f", sampleFile(t, "users.yaml"), "-s", srv.URL, "create-user", "--data", "@"+data)
	if res.code != 0 {
		t.Fatalf("exit %d, stderr=%s", res.code, res.stderr)
	}
	if gotCT != "application/json" || gotBody["name"] != "test" {
		t.Fatalf("unexpected request ct=%q body=%v", gotCT, gotBody)
	}
	if res.stdout != "Status: 201 Created\n\n" {
		t.Fatalf("unexpected stdout %q", res.stdout)
	}
}

func TestMissingPathArgIsUsageError(t *testing.T) {
	res := runCLI(t, "-f", sampleFile(t, "users.yaml"), "get-user-by-id")
	if res.code != 1 {
		t.Fatalf("expected exit 1, got %d", res.code)
	}
	if !strings.Contains(res.stderr, `Error: missing required path parameter "userId"`) || !strings.Contains(res.stderr, "Run 'clify get-user-by-id --help' for usage.") {
		t.Fatalf("unexpected stderr %q", res.stderr)
	}
}

func TestBadJSONIsUsageError(t *testing.T) {
	res := runCLI(t, "-f", sampleFile(t, "users.yaml"), "-s", "http://127.0.0.1:1", "create-user", "--data", "{nope")
	if res.code != 1 || !strings.Contains(res.stderr, "Error: invalid JSON in inline") {
		t.Fatalf("exit %d stderr=%q", res.code, res.stderr)
	}
}

func TestTransportErrorPrintedOnce(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"message":"boom"}`)
	}))
	t.Cleanup(srv.Close)

	res := runCLI(t, "-f", sampleFile(t, "users.yaml"), "-s", srv.URL, "get-users")
	if res.code != 1 {
		t.Fatalf("expected exit 1, got %d", res.code)
	}
	if !strings.HasPrefix(res.stdout, "Error: HTTP 500 Internal Server Error\n") || !strings.Contains(res.stdout, `"message": "boom"`) {
		t.Fatalf("unexpected stdout %q", res.stdout)
	}
	if strings.Contains(res.stderr, "Error:") {
		t.Fatalf("error printed twice: %q", res.stderr)
	}
}

func TestBrokenSpecDegradesToHelp(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")

	res := runCLI(t, "-f", missing, "--help")
	if res.code != 0 {
		t.Fatalf("help should still work, exit %d", res.code)
	}
	if !strings.Contains(res.stderr, "Error: could not load OpenAPI document") {
		t.Fatalf("expected diagnostic, got %q", res.stderr)
	}
	if !strings.Contains(res.stdout, "Usage:") {
		t.Fatalf("expected help output, got %q", res.stdout)
	}

	res = runCLI(t, "-f", missing, "get-users")
	if res.code != 1 || !strings.Contains(res.stderr, `unknown command "get-users"`) {
		t.Fatalf("exit %d stderr=%q", res.code, res.stderr)
	}
}

func TestHelpListsOperations(t *testing.T) {
	res := runCLI(t, "-f", sampleFile(t, "users.yaml"), "--help")
	if res.code != 0 {
		t.Fatalf("exit %d", res.code)
	}
	for _, want := range []string{"Example API Commands:", "get-users", "create-user", "get-user-by-id", "https://api.example.com/v1"} {
		if !strings.Contains(res.stdout, want) {
			t.Fatalf("help missing %q:\n%s", want, res.stdout)
		}
	}
}

func TestSpecBuiltins(t *testing.T) {
	path := sampleFile(t, "petstore-v2.json")

	res := runCLI(t, "-f", path, "spec", "info")
	if res.code != 0 || !strings.Contains(res.stdout, "Petstore") || !strings.Contains(res.stdout, "from Swagger 2.0") || !strings.Contains(res.stdout, "https://api.example.com/v1") {
		t.Fatalf("spec info: exit %d\n%s%s", res.code, res.stdout, res.stderr)
	}

	res = runCLI(t, "-f", path, "spec", "endpoints")
	if res.code != 0 || !strings.Contains(res.stdout, "upload-photo") || !strings.Contains(res.stdout, "/pets/{petId}/photo") {
		t.Fatalf("spec endpoints: exit %d\n%s", res.code, res.stdout)
	}

	res = runCLI(t, "-f", path, "spec", "verify")
	if res.code != 0 || strings.TrimSpace(res.stdout) != "ok" {
		t.Fatalf("spec verify: exit %d\n%s%s", res.code, res.stdout, res.stderr)
	}

	res = runCLI(t, "spec", "info")
	if res.code != 1 || !strings.Contains(res.stderr, "no OpenAPI document") {
		t.Fatalf("spec info without a document: exit %d stderr=%q", res.code, res.stderr)
	}
}

func TestSpecVerifyReportsCollisions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dup.yaml")
	if err := os.WriteFile(path, []byte("openapi: 3.0.0\npaths:\n  /a:\n    get: {operationId: listThings}\n  /b:\n    get: {operationId: list_things}\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	res := runCLI(t, "-f", path, "spec", "verify")
	if res.code != 1 || !strings.Contains(res.stdout, `duplicate command "list-things"`) {
		t.Fatalf("exit %d stdout=%q", res.code, res.stdout)
	}
	if !strings.Contains(res.stderr, "command name collision") {
		t.Fatalf("expected collision warning on stderr, got %q", res.stderr)
	}

	res = runCLI(t, "-f", path, "--strict-names", "list-things")
	if res.code != 1 || !strings.Contains(res.stderr, `duplicate command name "list-things"`) {
		t.Fatalf("strict names: exit %d stderr=%q", res.code, res.stderr)
	}
}

func TestConfigFile(t *testing.T) {
	var hit bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hit = r.URL.Path == "/users"
	}))
	t.Cleanup(srv.Close)

	cfg := filepath.Join(t.TempDir(), "clify.yaml")
	content := "openapi-file: " + sampleFile(t, "users.yaml") + "\nserver: " + srv.URL + "\n"
	if err := os.WriteFile(cfg, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	res := runCLI(t, "--config", cfg, "get-users")
	if res.code != 0 || !hit {
		t.Fatalf("exit %d hit=%v stderr=%s", res.code, hit, res.stderr)
	}
}

func TestVersionSkipsDocument(t *testing.T) {
	res := runCLI(t, "-f", filepath.Join(t.TempDir(), "nope.yaml"), "version")
	if res.code != 0 || strings.TrimSpace(res.stdout) == "" || res.stderr != "" {
		t.Fatalf("exit %d stdout=%q stderr=%q", res.code, res.stdout, res.stderr)
	}
}

func TestUnknownOutputFormat(t *testing.T) {
	res := runCLI(t, "-f", sampleFile(t, "users.yaml"), "-o", "xml", "get-users")
	if res.code != 1 || !strings.Contains(res.stderr, `unknown output format "xml"`) {
		t.Fatalf("exit %d stderr=%q", res.code, res.stderr)
	}
}

func TestDebugRedactsCredentialFlags(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-API-Key")
	}))
	t.Cleanup(srv.Close)

	res := runCLI(t, "-f", sampleFile(t, "users.yaml"), "-s", srv.URL, "--debug", "get-user-by-id", "7", "--api-key-auth", "sekret-value")
	if res.code != 0 {
		t.Fatalf("exit %d stderr=%s", res.code, res.stderr)
	}
	if gotKey != "sekret-value" {
		t.Fatalf("key not sent, got %q", gotKey)
	}
	if !strings.Contains(res.stderr, "> GET ") || strings.Contains(res.stderr, "sekret-value") {
		t.Fatalf("debug log should be present and redacted:\n%s", res.stderr)
	}
}

func TestOperationMetadataInHelpAndEndpoints(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tags.yaml")
	doc := "openapi: 3.0.0\npaths:\n  /pets:\n    get: {operationId: listPets, tags: [pets, public], summary: List pets}\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}
	res := runCLI(t, "-f", path, "spec", "endpoints")
	if res.code != 0 || !strings.Contains(res.stdout, "TAGS") || !strings.Contains(res.stdout, "pets,public") {
		t.Fatalf("exit %d stdout=%q", res.code, res.stdout)
	}
	res = runCLI(t, "-f", path, "list-pets", "--help")
	if res.code != 0 || !strings.Contains(res.stdout, "GET /pets (operationId listPets)") {
		t.Fatalf("exit %d stdout=%q", res.code, res.stdout)
	}
}

func TestLooselyTypedDocumentKeepsCommands(t *testing.T) {
	var hit bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hit = r.URL.Path == "/v1/things"
	}))
	t.Cleanup(srv.Close)

	path := filepath.Join(t.TempDir(), "loose.yaml")
	doc := "openapi: 3.0.0\ninfo: {title: t, version: 1.0}\nservers:\n  - url: " + srv.URL + "/{ver}\n    variables:\n      ver: {default: v1}\npaths:\n  /things:\n    get: {operationId: listThings}\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}
	res := runCLI(t, "-f", path, "list-things")
	if res.code != 0 || !hit {
		t.Fatalf("exit %d hit=%v stderr=%s", res.code, hit, res.stderr)
	}
}
