package cligen

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/tarrence/clify/internal/clifyhttp"
	"github.com/tarrence/clify/internal/version"
)

// Values holds the values bound for one invocation, keyed by argument or flag
// name. Values are string, int, bool, float64 or []string.
type Values map[string]any

// MissingPathParamError means a path template variable had no bound value.
type MissingPathParamError struct {
	Param string
}

func (e *MissingPathParamError) Error() string {
	return fmt.Sprintf("missing required path parameter %q", e.Param)
}

// JSONParseError means a request body was not valid JSON.
type JSONParseError struct {
	Source string // "inline", "stdin" or the file path
	Cause  error
}

func (e *JSONParseError) Error() string {
	return fmt.Sprintf("invalid JSON in %s: %v", e.Source, e.Cause)
}

func (e *JSONParseError) Unwrap() error { return e.Cause }

// FileNotFoundError means an @file reference could not be read.
type FileNotFoundError struct {
	Path  string
	Cause error
}

func (e *FileNotFoundError) Error() string {
	return fmt.Sprintf("cannot read file %q: %v", e.Path, e.Cause)
}

func (e *FileNotFoundError) Unwrap() error { return e.Cause }

// ErrNoServer is returned when no server URL is known.
var ErrNoServer = errors.New("no server URL: pass --server, set CLIFY_SERVER, or declare servers in the document")

// RequestBuilder turns a command and its bound values into a request.
type RequestBuilder struct {
	UserAgent string
	// Stdin is read when the data flag is "-".
	Stdin io.Reader
}

// BuildRequest builds with the default client identifier and os.Stdin.
func BuildRequest(serverURL string, cmd *Command, values Values) (*clifyhttp.RequestDescriptor, error) {
	b := RequestBuilder{UserAgent: version.UserAgent(), Stdin: os.Stdin}
	return b.Build(serverURL, cmd, values)
}

func (b RequestBuilder) Build(serverURL string, cmd *Command, values Values) (*clifyhttp.RequestDescriptor, error) {
	if cmd == nil {
		return nil, errors.New("nil command")
	}
	serverURL = strings.TrimSpace(serverURL)
	if serverURL == "" {
		return nil, ErrNoServer
	}

	path := cmd.Path
	for _, a := range cmd.Args {
		s, ok := scalar(values[a.Name])
		if !ok || s == "" {
			return nil, &MissingPathParamError{Param: a.Param}
		}
		path = strings.ReplaceAll(path, "{"+a.Param+"}", url.PathEscape(s))
	}

	req := &clifyhttp.RequestDescriptor{
		Method: cmd.Method,
		URL:    joinURL(serverURL, path),
		Header: http.Header{},
		Query:  url.Values{},
	}
	if b.UserAgent != "" {
		req.Header.Set("User-Agent", b.UserAgent)
	}

	if hasBodyMethod(cmd.Method) && cmd.Body != nil {
		if err := b.applyBody(req, cmd, values); err != nil {
			return nil, err
		}
	}

	var cookies []string
	for _, f := range cmd.Flags {
		vals := stringsOf(values[f.Name])
		switch f.In {
		case InQuery:
			for _, v := range vals {
				req.Query.Add(f.Key, v)
			}
		case InHeader:
			for _, v := range vals {
				req.Header.Add(f.Key, v)
			}
		case InCookie:
			for _, v := range vals {
				cookies = append(cookies, f.Key+"="+v)
			}
		}
	}

	cookies = applySecurity(req, cmd, values, cookies)
	if len(cookies) > 0 {
		req.Header.Set("Cookie", strings.Join(cookies, "; "))
	}
	return req, nil
}

// applySecurity sets credentials: Basic when both username and password are
// bound, else Bearer when a token is bound and no Authorization header exists,
// then any apiKey values in their declared location.
func applySecurity(req *clifyhttp.RequestDescriptor, cmd *Command, values Values, cookies []string) []string {
	user := cmd.securityValue(values, UsernameFlag)
	pass := cmd.securityValue(values, PasswordFlag)
	token := cmd.securityValue(values, TokenFlag)

	switch {
	case user != "" && pass != "":
		req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(user+":"+pass)))
	case token != "" && req.Header.Get("Authorization") == "":
		req.Header.Set("Authorization", "Bearer "+token)
	}

	for _, s := range cmd.Security {
		if !strings.EqualFold(s.Type, "apiKey") || s.Flag == "" {
			continue
		}
		v, ok := scalar(values[s.Flag])
		if !ok || v == "" {
			continue
		}
		switch s.In {
		case "header":
			req.Header.Set(s.Key, v)
		case "query":
			req.Query.Set(s.Key, v)
		case "cookie":
			cookies = append(cookies, s.Key+"="+v)
		}
	}
	return cookies
}

// securityValue returns the value bound to the credential flag with the given key.
func (c *Command) securityValue(values Values, key string) string {
	for _, f := range c.Flags {
		if f.In == InSecurity && f.Key == key {
			s, _ := scalar(values[f.Name])
			return s
		}
	}
	return ""
}

func hasBodyMethod(method string) bool {
	switch strings.ToUpper(method) {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	}
	return false
}

// scalar stringifies a single bound value.
func scalar(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case bool:
		return strconv.FormatBool(t), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case []string:
		if len(t) == 0 {
			return "", false
		}
		return strings.Join(t, ","), true
	default:
		return fmt.Sprint(t), true
	}
}

func stringsOf(v any) []string {
	if list, ok := v.([]string); ok {
		return list
	}
	if s, ok := scalar(v); ok {
		return []string{s}
	}
	return nil
}
