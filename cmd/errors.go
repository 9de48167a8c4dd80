package cmd

import (
	"errors"
	"strings"

	"github.com/tarrence/clify/internal/cligen"
)

var ErrUsage = errors.New("cli usage error")

type usageError struct {
	msg string
}

func newUsageError(msg string) error {
	return usageError{msg: msg}
}

func (e usageError) Error() string {
	return e.msg
}

func (e usageError) Is(target error) bool {
	return target == ErrUsage
}

// isUsage reports whether err came from how the command was invoked rather
// than from the API or the network.
func isUsage(err error) bool {
	if errors.Is(err, ErrUsage) || errors.Is(err, cligen.ErrNoServer) || errors.Is(err, cligen.ErrBodyRequired) {
		return true
	}
	var (
		missing  *cligen.MissingPathParamError
		badJSON  *cligen.JSONParseError
		notFound *cligen.FileNotFoundError
	)
	if errors.As(err, &missing) || errors.As(err, &badJSON) || errors.As(err, &notFound) {
		return true
	}
	// cobra reports these as plain errors.
	msg := err.Error()
	return strings.HasPrefix(msg, "unknown command") ||
		strings.HasPrefix(msg, "required flag(s)") ||
		strings.HasPrefix(msg, "accepts ") ||
		strings.HasPrefix(msg, "invalid argument")
}
