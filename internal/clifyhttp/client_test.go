package clifyhttp

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestExecuteSendsDescriptor(t *testing.T) {
	var (
		gotMethod, gotQuery, gotCT, gotUA, gotAccept string
		gotBody                                      []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotQuery = r.Method, r.URL.RawQuery
		gotCT, gotUA, gotAccept = r.Header.Get("Content-Type"), r.Header.Get("User-Agent"), r.Header.Get("Accept")
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"id":1}`)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(ClientOptions{UserAgent: "clify/test"})
	d := &RequestDescriptor{
		Method: http.MethodPost,
		URL:    srv.URL + "/users",
		Header: http.Header{"Content-Type": {"application/json"}},
		Query:  url.Values{"dry": {"true"}},
		Body:   map[string]any{"name": "test"},
	}
	res, err := c.Execute(context.Background(), d)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Status != 201 || res.Reason != "Created" || string(res.Body) != `{"id":1}` {
		t.Fatalf("unexpected response %+v", res)
	}
	if gotMethod != "POST" || gotQuery != "dry=true" || gotCT != "application/json" || string(gotBody) != `{"name":"test"}` {
		t.Fatalf("unexpected request %s ?%s %s %s", gotMethod, gotQuery, gotCT, gotBody)
	}
	if gotUA != "clify/test" || gotAccept != "application/json" {
		t.Fatalf("unexpected default headers UA=%q Accept=%q", gotUA, gotAccept)
	}
}

func TestExecuteNon2xxIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, "denied")
	}))
	t.Cleanup(srv.Close)

	_, err := NewClient(ClientOptions{}).Execute(context.Background(), &RequestDescriptor{Method: "GET", URL: srv.URL})
	var te *TransportError
	if !errors.As(err, &te) || te.Response == nil {
		t.Fatalf("expected TransportError with response, got %v", err)
	}
	if te.Response.Status != 403 || string(te.Response.Body) != "denied" || te.Error() != "HTTP 403 Forbidden" {
		t.Fatalf("unexpected error %v %+v", te, te.Response)
	}
}

func TestExecuteNetworkError(t *testing.T) {
	_, err := NewClient(ClientOptions{}).Execute(context.Background(), &RequestDescriptor{Method: "GET", URL: "http://127.0.0.1:1/x?api_key=secret"})
	var te *TransportError
	if !errors.As(err, &te) || te.Cause == nil || te.Response != nil {
		t.Fatalf("expected TransportError with cause, got %v", err)
	}
	if strings.Contains(te.Error(), "secret") {
		t.Fatalf("query string leaked into error: %v", te)
	}
}

func TestExecuteTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)

	_, err := NewClient(ClientOptions{Timeout: 50 * time.Millisecond}).Execute(context.Background(), &RequestDescriptor{Method: "GET", URL: srv.URL})
	var te *TransportError
	if !errors.As(err, &te) || !te.Timeout() {
		t.Fatalf("expected timeout TransportError, got %v", err)
	}
}

func TestExecuteRetries(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		io.WriteString(w, "ok")
	}))
	t.Cleanup(srv.Close)

	res, err := NewClient(ClientOptions{Retries: 2}).Execute(context.Background(), &RequestDescriptor{Method: "GET", URL: srv.URL})
	if err != nil || string(res.Body) != "ok" || hits.Load() != 3 {
		t.Fatalf("res=%v err=%v hits=%d", res, err, hits.Load())
	}

	hits.Store(0)
	_, err = NewClient(ClientOptions{}).Execute(context.Background(), &RequestDescriptor{Method: "GET", URL: srv.URL})
	if err == nil || hits.Load() != 1 {
		t.Fatalf("retries default to zero, got hits=%d err=%v", hits.Load(), err)
	}

	hits.Store(0)
	_, err = NewClient(ClientOptions{Retries: 2}).Execute(context.Background(), &RequestDescriptor{Method: "POST", URL: srv.URL, Body: map[string]any{}})
	if err == nil || hits.Load() != 1 {
		t.Fatalf("POST is not retried by default, got hits=%d err=%v", hits.Load(), err)
	}
}

func TestDebugLogRedacts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	t.Cleanup(srv.Close)

	var log bytes.Buffer
	c := NewClient(ClientOptions{Debug: true, Out: &log, Redact: []string{"X-API-Key", "api_key"}})
	d := &RequestDescriptor{
		Method: "GET",
		URL:    srv.URL,
		Header: http.Header{"Authorization": {"Bearer tok"}, "X-Api-Key": {"k1"}},
		Query:  url.Values{"api_key": {"k2"}, "q": {"v"}},
	}
	if _, err := c.Execute(context.Background(), d); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	out := log.String()
	for _, secret := range []string{"tok", "k1", "k2"} {
		if strings.Contains(out, secret) {
			t.Fatalf("debug log leaked %q:\n%s", secret, out)
		}
	}
	if !strings.Contains(out, "> GET ") || !strings.Contains(out, "q=v") || !strings.Contains(out, "< 200 OK") {
		t.Fatalf("unexpected debug log:\n%s", out)
	}
}

func TestFullURL(t *testing.T) {
	d := &RequestDescriptor{URL: "https://h/a", Query: url.Values{"b": {"2"}, "a": {"1"}}}
	if got := d.FullURL(); got != "https://h/a?a=1&b=2" {
		t.Fatalf("FullURL = %q", got)
	}
	d = &RequestDescriptor{URL: "https://h/a?x=1", Query: url.Values{"y": {"2"}}}
	if got := d.FullURL(); got != "https://h/a?x=1&y=2" {
		t.Fatalf("FullURL = %q", got)
	}
}

func TestExecuteSendsJSONNull(t *testing.T) {
	var got []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = io.ReadAll(r.Body)
	}))
	t.Cleanup(srv.Close)

	d := &RequestDescriptor{Method: http.MethodPut, URL: srv.URL, Header: http.Header{}, JSONBody: true}
	if _, err := NewClient(ClientOptions{}).Execute(context.Background(), d); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if string(got) != "null" {
		t.Fatalf("body = %q", got)
	}
}
