package cligen

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/tarrence/clify/internal/clifyhttp"
)

// ErrBodyRequired is returned when the operation requires a body and none was bound.
var ErrBodyRequired = errors.New("request body required; provide --data or --form")

func (b RequestBuilder) applyBody(req *clifyhttp.RequestDescriptor, cmd *Command, values Values) error {
	spec := cmd.Body
	data := ""
	if f, ok := cmd.bodyFlag(DataFlag); ok {
		data, _ = scalar(values[f.Name])
		data = strings.TrimSpace(data)
	}
	var form []string
	if f, ok := cmd.bodyFlag(FormFlag); ok {
		form = stringsOf(values[f.Name])
	}

	switch {
	case data != "" && len(form) > 0:
		return errors.New("--data and --form cannot be combined")
	case data != "":
		v, err := b.readJSON(data)
		if err != nil {
			return err
		}
		req.Body = v
		req.JSONBody = true
		ct := mediaBase(spec.JSONType)
		if ct == "" {
			ct = "application/json"
		}
		req.Header.Set("Content-Type", ct)
		return nil
	case len(form) > 0:
		raw, ct, err := encodeForm(spec.FormTypes, form)
		if err != nil {
			return err
		}
		req.RawBody = raw
		req.Header.Set("Content-Type", ct)
		return nil
	case spec.Required:
		return ErrBodyRequired
	}
	return nil
}

func (c *Command) bodyFlag(key string) (FlagSpec, bool) {
	for _, f := range c.Flags {
		if f.In == InBody && f.Key == key {
			return f, true
		}
	}
	return FlagSpec{}, false
}

// readJSON decodes an inline JSON literal, "@path", or "-" for stdin.
// Numbers are kept as json.Number so large integers survive re-encoding.
func (b RequestBuilder) readJSON(arg string) (any, error) {
	var (
		raw    []byte
		source = "inline"
	)
	switch {
	case arg == "-":
		source = "stdin"
		if b.Stdin == nil {
			return nil, &JSONParseError{Source: source, Cause: errors.New("no stdin")}
		}
		var err error
		if raw, err = io.ReadAll(b.Stdin); err != nil {
			return nil, &JSONParseError{Source: source, Cause: err}
		}
	case strings.HasPrefix(arg, "@"):
		source = strings.TrimPrefix(arg, "@")
		var err error
		raw, err = os.ReadFile(source)
		if err != nil {
			return nil, &FileNotFoundError{Path: source, Cause: err}
		}
	default:
		raw = []byte(arg)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, &JSONParseError{Source: source, Cause: err}
	}
	if dec.More() {
		return nil, &JSONParseError{Source: source, Cause: errors.New("unexpected data after JSON value")}
	}
	return v, nil
}

func preferredFormType(types []string) string {
	for _, ct := range types {
		if mediaBase(ct) == "multipart/form-data" {
			return ct
		}
	}
	if len(types) > 0 {
		return types[0]
	}
	return ""
}

func encodeForm(types []string, entries []string) ([]byte, string, error) {
	selected := preferredFormType(types)
	switch mediaBase(selected) {
	case "application/x-www-form-urlencoded":
		vals := url.Values{}
		for _, entry := range entries {
			k, v, ok := strings.Cut(entry, "=")
			if !ok || strings.TrimSpace(k) == "" {
				return nil, "", fmt.Errorf("invalid --form %q (expected key=value)", entry)
			}
			if strings.HasPrefix(v, "@") {
				return nil, "", fmt.Errorf("file upload not supported for application/x-www-form-urlencoded: %q", entry)
			}
			vals.Add(k, v)
		}
		return []byte(vals.Encode()), "application/x-www-form-urlencoded", nil

	case "multipart/form-data":
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		for _, entry := range entries {
			k, v, ok := strings.Cut(entry, "=")
			if !ok || strings.TrimSpace(k) == "" {
				_ = w.Close()
				return nil, "", fmt.Errorf("invalid --form %q (expected key=value)", entry)
			}
			if !strings.HasPrefix(v, "@") {
				if err := w.WriteField(k, v); err != nil {
					_ = w.Close()
					return nil, "", err
				}
				continue
			}
			if err := writeFormFile(w, k, strings.TrimPrefix(v, "@")); err != nil {
				_ = w.Close()
				return nil, "", err
			}
		}
		if err := w.Close(); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), w.FormDataContentType(), nil
	}
	return nil, "", errors.New("this operation does not accept form bodies; use --data")
}

func writeFormFile(w *multipart.Writer, field, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return &FileNotFoundError{Path: path, Cause: err}
	}
	defer f.Close()
	part, err := w.CreateFormFile(field, filepath.Base(path))
	if err != nil {
		return err
	}
	_, err = io.Copy(part, f)
	return err
}
