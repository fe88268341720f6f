package request

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// ErrConflictingBody is returned by Do when more than one body option is set.
var ErrConflictingBody = errors.New("request: more than one body option set")

// RequestOptions holds the settings of a single HTTP exchange.
type RequestOptions struct {
	Timeout        time.Duration
	Body           io.Reader
	Headers        map[string]string
	Query          url.Values
	Ctx            context.Context
	Client         *http.Client
	PreRequestHook func(*http.Request) error

	form      url.Values
	json      any
	hasJSON   bool
	multipart *Multipart
}

// RequestOption applies a setting to RequestOptions.
type RequestOption func(*RequestOptions)

// WithTimeout bounds the whole exchange. It only applies when no client is
// supplied through WithHTTPClient.
func WithTimeout(timeout time.Duration) RequestOption {
	return func(o *RequestOptions) {
		o.Timeout = timeout
	}
}

// WithBody sends body as-is.
func WithBody(body io.Reader) RequestOption {
	return func(o *RequestOptions) {
		o.Body = body
	}
}

// WithForm sends values as an application/x-www-form-urlencoded body.
func WithForm(values url.Values) RequestOption {
	return func(o *RequestOptions) {
		o.form = values
	}
}

// WithJSON sends v encoded as JSON.
func WithJSON(v any) RequestOption {
	return func(o *RequestOptions) {
		o.json = v
		o.hasJSON = true
	}
}

// WithMultipart sends a multipart/form-data body.
func WithMultipart(m *Multipart) RequestOption {
	return func(o *RequestOptions) {
		o.multipart = m
	}
}

// WithQuery merges values into the URL query string.
func WithQuery(values url.Values) RequestOption {
	return func(o *RequestOptions) {
		if o.Query == nil {
			o.Query = url.Values{}
		}
		for k, vs := range values {
			o.Query[k] = append(o.Query[k], vs...)
		}
	}
}

// WithHeader adds a single header.
func WithHeader(key, value string) RequestOption {
	return func(o *RequestOptions) {
		if o.Headers == nil {
			o.Headers = make(map[string]string)
		}
		o.Headers[key] = value
	}
}

// WithHeaders adds several headers at once.
func WithHeaders(headers map[string]string) RequestOption {
	return func(o *RequestOptions) {
		if o.Headers == nil {
			o.Headers = make(map[string]string)
		}
		for k, v := range headers {
			o.Headers[k] = v
		}
	}
}

// WithContext sets the request context.
func WithContext(ctx context.Context) RequestOption {
	return func(o *RequestOptions) {
		o.Ctx = ctx
	}
}

// WithHTTPClient executes the request with c instead of a one-off client.
func WithHTTPClient(c *http.Client) RequestOption {
	return func(o *RequestOptions) {
		o.Client = c
	}
}

// WithPreRequestHook runs hook right before the request is sent. A hook
// error aborts the exchange.
func WithPreRequestHook(hook func(*http.Request) error) RequestOption {
	return func(o *RequestOptions) {
		o.PreRequestHook = hook
	}
}

// Do executes an HTTP request built from opts. The caller owns the
// response body.
func Do(method, rawURL string, opts ...RequestOption) (*http.Response, error) {
	options := &RequestOptions{
		Timeout: 10 * time.Second,
		Ctx:     context.Background(),
	}

	for _, opt := range opts {
		opt(options)
	}

	body, contentType, err := options.encodeBody()
	if err != nil {
		return nil, err
	}

	target, err := withQuery(rawURL, options.Query)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(options.Ctx, method, target, body)
	if err != nil {
		return nil, err
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range options.Headers {
		req.Header.Set(k, v)
	}

	if options.PreRequestHook != nil {
		if err := options.PreRequestHook(req); err != nil {
			return nil, err
		}
	}

	client := options.Client
	if client == nil {
		client = &http.Client{Timeout: options.Timeout}
	}

	return client.Do(req)
}

func (o *RequestOptions) encodeBody() (io.Reader, string, error) {
	set := 0
	for _, present := range []bool{o.Body != nil, o.form != nil, o.hasJSON, o.multipart != nil} {
		if present {
			set++
		}
	}
	if set > 1 {
		return nil, "", ErrConflictingBody
	}

	switch {
	case o.form != nil:
		return strings.NewReader(o.form.Encode()), "application/x-www-form-urlencoded", nil
	case o.hasJSON:
		b, err := json.Marshal(o.json)
		if err != nil {
			return nil, "", fmt.Errorf("marshal request body: %w", err)
		}
		return bytes.NewReader(b), "application/json", nil
	case o.multipart != nil:
		return o.multipart.Encode()
	default:
		return o.Body, "", nil
	}
}

func withQuery(rawURL string, query url.Values) (string, error) {
	if len(query) == 0 {
		return rawURL, nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	for k, vs := range query {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
