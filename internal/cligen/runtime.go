package cligen

import (
	"errors"
	"log/slog"
	"os"

	"github.com/tarrence/clify/internal/clifyhttp"
	"github.com/tarrence/clify/internal/output"
)

// Runtime is the per-invocation configuration handed to every generated
// command. The root command fills it in before dispatch.
type Runtime struct {
	// Server overrides the document's default server when set.
	Server string

	Client  *clifyhttp.Client
	Printer *output.Printer
	Builder RequestBuilder
	Logger  *slog.Logger

	// Getenv resolves credential fallbacks; nil means os.Getenv.
	Getenv func(string) string
	// PromptPassword reads a password interactively. Nil disables prompting.
	PromptPassword func(prompt string) (string, error)
}

func (rt *Runtime) check() error {
	if rt == nil {
		return errors.New("internal error: runtime missing")
	}
	if rt.Client == nil {
		return errors.New("internal error: HTTP client missing from runtime")
	}
	if rt.Printer == nil {
		return errors.New("internal error: printer missing from runtime")
	}
	return nil
}

func (rt *Runtime) getenv(key string) string {
	if rt.Getenv != nil {
		return rt.Getenv(key)
	}
	return os.Getenv(key)
}

func (rt *Runtime) logger() *slog.Logger {
	if rt.Logger != nil {
		return rt.Logger
	}
	return slog.Default()
}

// ReportedError wraps an error whose message has already been printed.
type ReportedError struct {
	Err error
}

func (e *ReportedError) Error() string { return e.Err.Error() }
func (e *ReportedError) Unwrap() error { return e.Err }
