package qbt

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jfxdev/go-qbtapi/request"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// APIBasePath prefixes every endpoint of the Web API.
const APIBasePath = "/api/v2"

// maxErrorBody bounds how much of a failed body ends up in error messages.
const maxErrorBody = 512

// Endpoints answering with plain text even when the text happens to be
// valid JSON (e.g. "2.11").
var plainTextEndpoints = map[string]bool{
	"/app/version":       true,
	"/app/webapiVersion": true,
	"/torrents/add":      true,
}

// SendOptions describes the payload of one exchange. At most one of Form,
// JSON, Multipart and Raw may be set.
type SendOptions struct {
	Query     url.Values
	Form      url.Values
	JSON      any
	Multipart *request.Multipart
	Raw       []byte
	Headers   map[string]string
}

// Transport performs the network I/O of the client and owns the session
// cookie. Implementations must be safe for concurrent use.
type Transport interface {
	// Send executes method on path (relative to the API base path, or an
	// absolute URL). Network failures, 401/403 and other >=400 answers are
	// returned as *ClientError; the latter two carry the response.
	Send(ctx context.Context, method, path string, opts SendOptions) (*TransportResponse, error)
	BaseURL() string
	SetBaseURL(baseURL string) error
	// Authentication returns the stored session id, "" when none.
	Authentication() string
	// SetAuthentication replaces the stored session id; "" clears it.
	SetAuthentication(sid string)
}

// HTTPTransport is the net/http implementation of Transport.
type HTTPTransport struct {
	mu          sync.RWMutex
	baseURL     *url.URL
	sid         string
	options     request.ClientOptions
	userAgent   string
	limiter     *rate.Limiter
	client      *http.Client
	fixedClient bool
	dirty       bool
	log         zerolog.Logger
}

// TransportOption configures an HTTPTransport at construction.
type TransportOption func(*HTTPTransport)

// WithTransportLogger sets the transport logger.
func WithTransportLogger(l zerolog.Logger) TransportOption {
	return func(t *HTTPTransport) { t.log = l }
}

// WithTransportHTTPClient makes the transport use c as-is. Timeout, TLS and proxy
// setters are then recorded but do not rebuild the client.
func WithTransportHTTPClient(c *http.Client) TransportOption {
	return func(t *HTTPTransport) {
		t.client = c
		t.fixedClient = true
	}
}

// WithClientOptions sets timeouts, TLS and proxy settings.
func WithClientOptions(opts request.ClientOptions) TransportOption {
	return func(t *HTTPTransport) { t.options = opts }
}

// WithUserAgent sets the User-Agent header sent on every request.
func WithUserAgent(ua string) TransportOption {
	return func(t *HTTPTransport) { t.userAgent = ua }
}

// WithRateLimiter throttles outgoing requests.
func WithRateLimiter(l *rate.Limiter) TransportOption {
	return func(t *HTTPTransport) { t.limiter = l }
}

// NewHTTPTransport creates a transport for the daemon at baseURL.
func NewHTTPTransport(baseURL string, opts ...TransportOption) (*HTTPTransport, error) {
	t := &HTTPTransport{
		options: request.ClientOptions{
			Timeout:        DefaultRequestTimeout,
			ConnectTimeout: DefaultConnectTimeout,
		},
		userAgent: DefaultUserAgent,
		dirty:     true,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if err := t.SetBaseURL(baseURL); err != nil {
		return nil, err
	}
	return t, nil
}

// BaseURL returns the daemon origin, without the API base path.
func (t *HTTPTransport) BaseURL() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.baseURL == nil {
		return ""
	}
	return t.baseURL.String()
}

// SetBaseURL validates and stores the daemon origin. A trailing
// "/api/v2" is accepted and stripped.
func (t *HTTPTransport) SetBaseURL(baseURL string) error {
	u, err := parseBaseURL(baseURL)
	if err != nil {
		return err
	}
	t.mu.Lock()
	t.baseURL = u
	t.mu.Unlock()
	return nil
}

func (t *HTTPTransport) Authentication() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.sid
}

func (t *HTTPTransport) SetAuthentication(sid string) {
	t.mu.Lock()
	t.sid = sid
	t.mu.Unlock()
}

// SetTimeout bounds whole exchanges.
func (t *HTTPTransport) SetTimeout(d time.Duration) {
	t.mutate(func() { t.options.Timeout = d })
}

// SetConnectTimeout bounds dialing and the TLS handshake.
func (t *HTTPTransport) SetConnectTimeout(d time.Duration) {
	t.mutate(func() { t.options.ConnectTimeout = d })
}

// SetVerifySSL toggles server certificate verification.
func (t *HTTPTransport) SetVerifySSL(verify bool) {
	t.mutate(func() { t.options.InsecureSkipVerify = !verify })
}

// SetSSLCertPath sets the PEM file used for TLS.
func (t *HTTPTransport) SetSSLCertPath(path string) {
	t.mutate(func() { t.options.CertPath = path })
}

// SetProxy routes requests through proxyURL; "" restores the environment
// proxy settings.
func (t *HTTPTransport) SetProxy(proxyURL, username, password string) {
	t.mutate(func() {
		t.options.ProxyURL = proxyURL
		t.options.ProxyUsername = username
		t.options.ProxyPassword = password
	})
}

// SetUserAgent sets the User-Agent header.
func (t *HTTPTransport) SetUserAgent(ua string) {
	t.mu.Lock()
	t.userAgent = ua
	t.mu.Unlock()
}

// SetRateLimiter replaces the limiter; nil disables throttling.
func (t *HTTPTransport) SetRateLimiter(l *rate.Limiter) {
	t.mu.Lock()
	t.limiter = l
	t.mu.Unlock()
}

// ClientOptions returns the current connection settings.
func (t *HTTPTransport) ClientOptions() request.ClientOptions {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.options
}

func (t *HTTPTransport) mutate(fn func()) {
	t.mu.Lock()
	fn()
	t.dirty = true
	t.mu.Unlock()
}

func (t *HTTPTransport) httpClient() (*http.Client, error) {
	t.mu.RLock()
	c, rebuild := t.client, t.dirty && !t.fixedClient
	t.mu.RUnlock()
	if c != nil && !rebuild {
		return c, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.client != nil && (!t.dirty || t.fixedClient) {
		return t.client, nil
	}
	c, err := request.NewHTTPClient(t.options)
	if err != nil {
		return nil, err
	}
	t.client, t.dirty = c, false
	return c, nil
}

// Send implements Transport.
func (t *HTTPTransport) Send(ctx context.Context, method, path string, opts SendOptions) (*TransportResponse, error) {
	t.mu.RLock()
	target, err := t.resolve(path)
	sid, ua, limiter := t.sid, t.userAgent, t.limiter
	referer := ""
	if t.baseURL != nil {
		referer = t.baseURL.String()
	}
	t.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	client, err := t.httpClient()
	if err != nil {
		e := NewClientError(KindConfig, ErrorCodeConfig, "cannot build http client", err, true)
		e.Method, e.URI = method, target
		return nil, e
	}

	reqOpts := []request.RequestOption{
		request.WithContext(ctx),
		request.WithHTTPClient(client),
		request.WithHeaders(opts.Headers),
	}
	if len(opts.Query) > 0 {
		reqOpts = append(reqOpts, request.WithQuery(opts.Query))
	}
	if opts.Form != nil {
		reqOpts = append(reqOpts, request.WithForm(opts.Form))
	}
	if opts.Multipart != nil {
		reqOpts = append(reqOpts, request.WithMultipart(opts.Multipart))
	}
	if opts.Raw != nil {
		reqOpts = append(reqOpts, request.WithBody(bytes.NewReader(opts.Raw)))
	}
	if opts.JSON != nil {
		reqOpts = append(reqOpts, request.WithJSON(opts.JSON))
	}
	if sid != "" {
		reqOpts = append(reqOpts, request.WithHeader("Cookie", SessionCookieName+"="+sid))
	}
	if ua != "" {
		reqOpts = append(reqOpts, request.WithHeader("User-Agent", ua))
	}
	if referer != "" {
		reqOpts = append(reqOpts, request.WithHeader("Referer", referer))
	}
	if limiter != nil {
		reqOpts = append(reqOpts, request.WithPreRequestHook(func(r *http.Request) error {
			return waitLimiter(r.Context(), limiter)
		}))
	}

	start := time.Now()
	resp, err := request.Do(method, target, reqOpts...)
	if err != nil {
		return nil, t.networkError(ctx, method, target, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, t.networkError(ctx, method, target, err)
	}

	tr := NewTransportResponse(resp.StatusCode, resp.Header, body)
	tr.plainText = plainTextEndpoints[endpointOf(path)]

	t.captureSession(resp.Header)

	t.log.Debug().
		Str("request_id", requestIDFrom(ctx)).
		Str("method", method).
		Str("url", target).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("exchange")

	if resp.StatusCode >= 400 {
		e := classifyHTTPStatusCode(resp.StatusCode, truncate(tr.Text(), maxErrorBody))
		if resp.StatusCode == http.StatusForbidden && endpointOf(path) == endpoints[OpAuthLogin].path {
			e.Code, e.Message = ErrorCodeIPBanned, ipBannedMessage
		}
		e.StatusCode = resp.StatusCode
		e.Method, e.URI = method, target
		e.Response = tr
		return nil, e
	}

	if tr.IsSuccess() && len(tr.Body) > 0 && !tr.plainText && declaresJSON(tr.Header) && tr.JSON() == nil {
		e := NewClientError(KindHTTP, ErrorCodeParse, "response declared JSON but is not valid JSON", nil, false)
		e.StatusCode = resp.StatusCode
		e.Method, e.URI = method, target
		e.Response = tr
		return nil, e
	}

	return tr, nil
}

// waitLimiter waits for a request slot. A slot that would only come after
// the context deadline is reported as context.DeadlineExceeded.
func waitLimiter(ctx context.Context, limiter *rate.Limiter) error {
	err := limiter.Wait(ctx)
	if err == nil || ctx.Err() != nil {
		return err
	}
	if _, ok := ctx.Deadline(); ok {
		return errors.Join(context.DeadlineExceeded, err)
	}
	return err
}

// captureSession stores the SID of a response, replacing the previous one.
func (t *HTTPTransport) captureSession(h http.Header) {
	sid, ok := sessionFromHeader(h)
	if !ok {
		return
	}
	if !isSafeSessionID(sid) {
		t.log.Warn().Int("length", len(sid)).Msg("session id contains unexpected characters")
	}
	t.SetAuthentication(sid)
}

func (t *HTTPTransport) networkError(ctx context.Context, method, target string, err error) *ClientError {
	var e *ClientError
	if errors.Is(err, request.ErrConflictingBody) {
		e = NewClientError(KindValidation, ErrorCodeValidation, "conflicting request bodies", err, true)
	} else {
		classified := ClassifyError(err)
		copied := *classified
		e = &copied
	}
	e.Method, e.URI = method, target

	t.log.Debug().
		Str("request_id", requestIDFrom(ctx)).
		Str("method", method).
		Str("url", target).
		Str("code", string(e.Code)).
		Err(err).
		Msg("exchange failed")
	return e
}

// resolve must be called with t.mu held.
func (t *HTTPTransport) resolve(path string) (string, error) {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path, nil
	}
	if t.baseURL == nil {
		return "", NewClientError(KindConfig, ErrorCodeConfig, "base url not set", nil, true)
	}
	u := *t.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + APIBasePath + "/" + strings.TrimLeft(path, "/")
	return u.String(), nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" {
		e := NewClientError(KindConfig, ErrorCodeConfig, "base url must be an absolute URL", err, true)
		e.Fields = map[string]string{"base_url": "must be an absolute http(s) URL"}
		return nil, e
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		e := NewClientError(KindConfig, ErrorCodeConfig, "base url scheme must be http or https", nil, true)
		e.Fields = map[string]string{"base_url": "scheme must be http or https"}
		return nil, e
	}
	u.Path = strings.TrimSuffix(strings.TrimRight(u.Path, "/"), APIBasePath)
	u.RawQuery, u.Fragment = "", ""
	return u, nil
}

// endpointOf strips the API base path and any query from path.
func endpointOf(path string) string {
	if u, err := url.Parse(path); err == nil {
		path = u.Path
	}
	if i := strings.Index(path, APIBasePath); i >= 0 {
		path = path[i+len(APIBasePath):]
	}
	return "/" + strings.TrimLeft(path, "/")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
