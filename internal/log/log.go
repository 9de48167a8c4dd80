// Package log builds the diagnostic logger. Output goes to stderr so it never
// mixes with formatted responses on stdout.
package log

import (
	"io"
	"log/slog"
	"strings"
)

var secretKeys = []string{
	"password",
	"token",
	"apikey",
	"authorization",
	"secret",
}

func isSecret(key string) bool {
	k := strings.ToLower(strings.NewReplacer("-", "", "_", "").Replace(key))
	for _, s := range secretKeys {
		if strings.Contains(k, s) {
			return true
		}
	}
	return false
}

// New returns a text logger at warn level, or debug level when debug is set.
// Attributes whose key looks like a credential are masked.
func New(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	opt := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			if isSecret(a.Key) && a.Value.Kind() == slog.KindString {
				return slog.String(a.Key, mask(a.Value.String()))
			}
			return a
		},
	}
	return slog.New(slog.NewTextHandler(w, opt))
}

// Discard drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mask hides the middle third of s.
func mask(s string) string {
	n := len(s)
	if n < 3 {
		return strings.Repeat("*", n)
	}
	start := n / 3
	end := start * 2
	b := []byte(s)
	for i := start; i < end; i++ {
		b[i] = '*'
	}
	return string(b)
}
