package clifyhttp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const DefaultTimeout = 30 * time.Second

type ClientOptions struct {
	Timeout time.Duration
	// Retries is the number of extra attempts on 429/5xx. Zero disables retrying.
	Retries            int
	Debug              bool
	Trace              bool
	RetryNonIdempotent bool
	UserAgent          string
	// Redact lists header and query names whose values are masked in debug output.
	Redact []string
	Out    io.Writer
	// HTTPClient overrides the underlying client; Timeout still applies when it has none.
	HTTPClient *http.Client
}

type Client struct {
	http *http.Client
	opts ClientOptions
}

// Response is a fully read HTTP response.
type Response struct {
	Status  int
	Reason  string
	Headers http.Header
	Body    []byte
}

func NewClient(opts ClientOptions) *Client {
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	if hc.Timeout == 0 {
		cp := *hc
		cp.Timeout = opts.Timeout
		hc = &cp
	}
	return &Client{http: hc, opts: opts}
}

// Execute sends d and reads the whole response. Network failures and non-2xx
// statuses are returned as *TransportError; for the latter the error carries
// the response.
func (c *Client) Execute(ctx context.Context, d *RequestDescriptor) (*Response, error) {
	if d == nil {
		return nil, errors.New("nil request")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	endpoint := d.FullURL()
	payload, err := d.Payload()
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, d.Method, endpoint, nil)
	if err != nil {
		return nil, &TransportError{Method: d.Method, URL: endpoint, Cause: err}
	}
	for k, vv := range d.Header {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	if c.opts.UserAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.opts.UserAgent)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	if c.opts.Debug || c.opts.Trace {
		c.logRequest(req, payload)
	}

	maxAttempts := 1 + c.opts.Retries
	for attempt := 1; ; attempt++ {
		if len(payload) > 0 {
			req.Body = io.NopCloser(bytes.NewReader(payload))
			req.ContentLength = int64(len(payload))
			req.GetBody = func() (io.ReadCloser, error) {
				return io.NopCloser(bytes.NewReader(payload)), nil
			}
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, &TransportError{Method: d.Method, URL: endpoint, Cause: err}
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return nil, &TransportError{Method: d.Method, URL: endpoint, Cause: readErr}
		}

		if c.opts.Debug || c.opts.Trace {
			c.logResponse(resp, body)
		}

		if shouldRetry(resp.StatusCode, req.Method, c.opts.RetryNonIdempotent) && attempt < maxAttempts {
			sleep := retryBackoff(resp, attempt)
			select {
			case <-time.After(sleep):
				continue
			case <-ctx.Done():
				return nil, &TransportError{Method: d.Method, URL: endpoint, Cause: ctx.Err()}
			}
		}

		res := &Response{
			Status:  resp.StatusCode,
			Reason:  reasonPhrase(resp),
			Headers: resp.Header.Clone(),
			Body:    body,
		}
		if res.Status < 200 || res.Status > 299 {
			return nil, &TransportError{Method: d.Method, URL: endpoint, Response: res}
		}
		return res, nil
	}
}

func reasonPhrase(resp *http.Response) string {
	code := strconv.Itoa(resp.StatusCode)
	if r := strings.TrimSpace(strings.TrimPrefix(resp.Status, code)); r != "" {
		return r
	}
	return http.StatusText(resp.StatusCode)
}

func shouldRetry(status int, method string, retryNonIdempotent bool) bool {
	if status == http.StatusTooManyRequests || status >= 500 {
		switch strings.ToUpper(method) {
		case http.MethodGet, http.MethodHead, http.MethodPut, http.MethodDelete, http.MethodOptions:
			return true
		default:
			return retryNonIdempotent
		}
	}
	return false
}

func retryBackoff(resp *http.Response, attempt int) time.Duration {
	if resp != nil {
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			// Retry-After can be an integer seconds or a HTTP date.
			if secs, err := strconv.Atoi(strings.TrimSpace(ra)); err == nil && secs >= 0 {
				return time.Duration(secs) * time.Second
			}
			if t, err := http.ParseTime(ra); err == nil {
				d := time.Until(t)
				if d > 0 {
					return d
				}
			}
		}
	}

	// Exponential backoff with jitter: 200ms * 2^(attempt-1), capped at 5s.
	base := 200 * time.Millisecond
	d := base * (1 << (attempt - 1))
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	// +/- 50% jitter
	j := time.Duration(rand.Int63n(int64(d))) - d/2
	return d + j
}

func (c *Client) redacted(name string) bool {
	switch strings.ToLower(name) {
	case "authorization", "proxy-authorization", "cookie":
		return true
	}
	for _, r := range c.opts.Redact {
		if strings.EqualFold(r, name) {
			return true
		}
	}
	return false
}

func (c *Client) logRequest(req *http.Request, body []byte) {
	u := *req.URL
	if q := u.Query(); len(q) > 0 {
		for k := range q {
			if c.redacted(k) {
				q.Set(k, "<redacted>")
			}
		}
		u.RawQuery = q.Encode()
	}
	fmt.Fprintf(c.opts.Out, "> %s %s\n", req.Method, u.String())
	for k, vv := range req.Header {
		v := strings.Join(vv, ", ")
		if c.redacted(k) {
			v = "<redacted>"
		}
		fmt.Fprintf(c.opts.Out, "> %s: %s\n", k, v)
	}
	if c.opts.Trace && len(body) > 0 {
		fmt.Fprintf(c.opts.Out, ">\n")
		_, _ = c.opts.Out.Write(body)
		if body[len(body)-1] != '\n' {
			_, _ = c.opts.Out.Write([]byte("\n"))
		}
	}
}

func (c *Client) logResponse(resp *http.Response, body []byte) {
	if resp == nil {
		return
	}
	fmt.Fprintf(c.opts.Out, "< %s\n", resp.Status)
	if c.opts.Debug {
		ct := resp.Header.Get("Content-Type")
		if ct != "" {
			fmt.Fprintf(c.opts.Out, "< Content-Type: %s\n", ct)
		}
		fmt.Fprintf(c.opts.Out, "< Content-Length: %d\n", len(body))
	}
	if c.opts.Trace && len(body) > 0 {
		fmt.Fprintf(c.opts.Out, "<\n")
		_, _ = c.opts.Out.Write(body)
		if body[len(body)-1] != '\n' {
			_, _ = c.opts.Out.Write([]byte("\n"))
		}
	}
}

// TransportError reports a failed request: either no response (Cause set) or
// a non-2xx response (Response set).
type TransportError struct {
	Method   string
	URL      string
	Response *Response
	Cause    error
}

func (e *TransportError) Error() string {
	if e.Response != nil {
		return fmt.Sprintf("HTTP %d %s", e.Response.Status, e.Response.Reason)
	}
	return fmt.Sprintf("%s %s: %v", e.Method, redactURL(e.URL), e.Cause)
}

func (e *TransportError) Unwrap() error { return e.Cause }

// Timeout reports whether the request failed because a deadline expired.
func (e *TransportError) Timeout() bool {
	if e.Cause == nil {
		return false
	}
	if errors.Is(e.Cause, context.DeadlineExceeded) {
		return true
	}
	var t interface{ Timeout() bool }
	return errors.As(e.Cause, &t) && t.Timeout()
}

// redactURL drops the query string, which may carry API keys.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.RawQuery = ""
	return u.String()
}
