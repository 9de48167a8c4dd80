package clifyhttp

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
)

// RequestDescriptor is a fully resolved request, built fresh per invocation.
// Body holds a decoded JSON value; RawBody holds already encoded bytes
// (form and multipart bodies). At most one of them is set.
type RequestDescriptor struct {
	Method string
	URL    string
	Header http.Header
	Query  url.Values
	Body   any
	// JSONBody marks Body as bound even when it holds JSON null.
	JSONBody bool
	RawBody  []byte
}

// HasBody reports whether the descriptor carries a body.
func (d *RequestDescriptor) HasBody() bool {
	return d.JSONBody || d.Body != nil || len(d.RawBody) > 0
}

// FullURL is URL with Query appended.
func (d *RequestDescriptor) FullURL() string {
	if len(d.Query) == 0 {
		return d.URL
	}
	sep := "?"
	if strings.Contains(d.URL, "?") {
		sep = "&"
	}
	return d.URL + sep + d.Query.Encode()
}

// Payload encodes the body for the wire.
func (d *RequestDescriptor) Payload() ([]byte, error) {
	if len(d.RawBody) > 0 {
		return d.RawBody, nil
	}
	if d.Body == nil && !d.JSONBody {
		return nil, nil
	}
	return json.Marshal(d.Body)
}
