package log

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewMasksSecrets(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, true)
	l.Debug("request", "token", "abcdefghi", "api_key", "123456", "url", "https://h")
	out := buf.String()
	if strings.Contains(out, "abcdefghi") || strings.Contains(out, "123456") {
		t.Fatalf("secret leaked: %s", out)
	}
	if !strings.Contains(out, "token=abc***ghi") || !strings.Contains(out, "url=https://h") {
		t.Fatalf("unexpected output: %s", out)
	}
	if strings.Contains(out, "time=") {
		t.Fatalf("time should be omitted: %s", out)
	}
}

func TestNewLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, false)
	l.Debug("hidden")
	l.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("unexpected output: %s", buf.String())
	}
}
