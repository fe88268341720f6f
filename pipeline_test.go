package qbt

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
)

// spyTransport records every Send and answers with respond.
type spyTransport struct {
	mu      sync.Mutex
	calls   []string
	sid     string
	base    string
	respond func(method, path string, opts SendOptions) (*TransportResponse, error)
}

func (s *spyTransport) Send(ctx context.Context, method, path string, opts SendOptions) (*TransportResponse, error) {
	s.mu.Lock()
	s.calls = append(s.calls, method+" "+path)
	respond := s.respond
	s.mu.Unlock()
	if respond == nil {
		return NewTransportResponse(200, http.Header{}, nil), nil
	}
	return respond(method, path, opts)
}

func (s *spyTransport) BaseURL() string { return s.base }

func (s *spyTransport) SetBaseURL(baseURL string) error {
	s.base = baseURL
	return nil
}

func (s *spyTransport) Authentication() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sid
}

func (s *spyTransport) SetAuthentication(sid string) {
	s.mu.Lock()
	s.sid = sid
	s.mu.Unlock()
}

func (s *spyTransport) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func newSpyClient(t *testing.T, spy *spyTransport, opts ...Option) *Client {
	t.Helper()
	client, err := New(Config{BaseURL: "http://localhost:8080"}, append(opts, WithTransport(spy))...)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	return client
}

func loginAnswer(sid string) *TransportResponse {
	h := http.Header{}
	h.Add("Set-Cookie", "SID="+sid+"; HttpOnly; path=/")
	return NewTransportResponse(200, h, []byte("Ok."))
}

func TestAuthenticatedCallWithoutSessionSendsNothing(t *testing.T) {
	spy := &spyTransport{}
	client := newSpyClient(t, spy)

	calls := []func() error{
		func() error { _, err := client.Application().Version(context.Background()); return err },
		func() error { _, err := client.Torrents().List(context.Background(), ListOptions{}); return err },
		func() error { _, err := client.Transfer().Info(context.Background()); return err },
		func() error { _, err := client.Search().Plugins(context.Background()); return err },
		func() error { _, err := client.RSS().Items(context.Background(), false); return err },
	}
	for i, call := range calls {
		err := call()
		if !errors.Is(err, ErrNotLoggedIn) {
			t.Errorf("call %d: Expected ErrNotLoggedIn, got %v", i, err)
		}
	}

	if spy.callCount() != 0 {
		t.Errorf("Expected no transport calls, got %v", spy.calls)
	}
}

func TestValidationRunsBeforeLoginGuard(t *testing.T) {
	spy := &spyTransport{}
	client := newSpyClient(t, spy)

	_, err := client.Torrents().Properties(context.Background(), "not-a-hash")

	var ce *ClientError
	if !errors.As(err, &ce) {
		t.Fatalf("Expected *ClientError, got %v", err)
	}
	if ce.Kind != KindValidation {
		t.Errorf("Expected KindValidation, got %v", ce.Kind)
	}
	if _, ok := ce.Fields["hash"]; !ok {
		t.Errorf("Expected a hash field error, got %v", ce.Fields)
	}
	if spy.callCount() != 0 {
		t.Errorf("Expected no transport calls, got %d", spy.callCount())
	}
}

func TestLoginStoresSessionFromCookie(t *testing.T) {
	spy := &spyTransport{respond: func(method, path string, opts SendOptions) (*TransportResponse, error) {
		if opts.Form.Get("username") != "admin" || opts.Form.Get("password") != "secret" {
			t.Errorf("Expected credentials in the form, got %v", opts.Form)
		}
		return loginAnswer("abc123"), nil
	}}
	client := newSpyClient(t, spy)

	res, err := client.Auth().Login(context.Background(), "admin", "secret")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if !res.IsSuccess() {
		t.Fatalf("Expected success, got %v", res.Errors())
	}
	if client.Auth().SessionID() != "abc123" {
		t.Errorf("Expected SID abc123, got %q", client.Auth().SessionID())
	}
	if spy.Authentication() != "abc123" {
		t.Errorf("Expected transport SID abc123, got %q", spy.Authentication())
	}
	if res.Data().Username != "admin" {
		t.Errorf("Expected username admin, got %q", res.Data().Username)
	}
	if client.Auth().IsSessionExpired() {
		t.Error("Expected a fresh session not to be expired")
	}
	if spy.calls[0] != "POST /auth/login" {
		t.Errorf("Expected POST /auth/login, got %v", spy.calls)
	}
}

func TestRotatedSessionIDIsAdopted(t *testing.T) {
	spy := &spyTransport{}
	spy.respond = func(method, path string, opts SendOptions) (*TransportResponse, error) {
		switch path {
		case "/auth/login":
			return loginAnswer("first"), nil
		case "/app/version":
			spy.SetAuthentication("second")
		}
		return NewTransportResponse(200, http.Header{}, []byte("v5.0.1")), nil
	}
	client := newSpyClient(t, spy)
	ctx := context.Background()

	if res, err := client.Auth().Login(ctx, "admin", "secret"); err != nil || !res.IsSuccess() {
		t.Fatalf("Login failed: %v", err)
	}
	if res, err := client.Application().Version(ctx); err != nil || !res.IsSuccess() {
		t.Fatalf("Version failed: %v", err)
	}

	if got := client.Auth().SessionID(); got != "second" {
		t.Errorf("Expected SID second, got %q", got)
	}
	if got := spy.Authentication(); got != client.Auth().SessionID() {
		t.Errorf("Expected session and transport to agree, got %q and %q", client.Auth().SessionID(), got)
	}
	if !client.Auth().IsLoggedIn() || client.Auth().Username() != "admin" {
		t.Error("Expected the session to stay open for admin")
	}
}

func TestLoginWithoutCookieFails(t *testing.T) {
	spy := &spyTransport{respond: func(string, string, SendOptions) (*TransportResponse, error) {
		return NewTransportResponse(200, http.Header{}, []byte("Ok.")), nil
	}}
	client := newSpyClient(t, spy)

	res, err := client.Auth().Login(context.Background(), "admin", "secret")
	if err != nil {
		t.Fatalf("Expected a failed response, got error %v", err)
	}
	if res.IsSuccess() {
		t.Error("Expected failure without a SID cookie")
	}
	if client.Auth().IsLoggedIn() {
		t.Error("Expected client to stay logged out")
	}
}

func TestAccessDeniedInvalidatesSession(t *testing.T) {
	tests := []struct {
		name       string
		invalidate bool
		loggedIn   bool
	}{
		{"invalidation on", true, false},
		{"invalidation off", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spy := &spyTransport{}
			spy.respond = func(method, path string, opts SendOptions) (*TransportResponse, error) {
				if path == "/auth/login" {
					return loginAnswer("sid1"), nil
				}
				tr := NewTransportResponse(403, http.Header{}, []byte("Forbidden"))
				e := classifyHTTPStatusCode(403, "Forbidden")
				e.StatusCode = 403
				e.Response = tr
				return nil, e
			}
			client := newSpyClient(t, spy, WithSessionInvalidation(tt.invalidate))
			if _, err := client.Auth().Login(context.Background(), "admin", "secret"); err != nil {
				t.Fatalf("Login failed: %v", err)
			}

			res, err := client.Application().Version(context.Background())
			if err != nil {
				t.Fatalf("Expected a failed response, got error %v", err)
			}
			if res.StatusCode() != 403 {
				t.Errorf("Expected status 403, got %d", res.StatusCode())
			}
			if client.Auth().IsLoggedIn() != tt.loggedIn {
				t.Errorf("Expected IsLoggedIn=%v, got %v", tt.loggedIn, client.Auth().IsLoggedIn())
			}
			if tt.invalidate && spy.Authentication() != "" {
				t.Errorf("Expected transport SID to be cleared, got %q", spy.Authentication())
			}
		})
	}
}

func TestNetworkFailureIsAPIRuntimeError(t *testing.T) {
	spy := &spyTransport{}
	spy.respond = func(method, path string, opts SendOptions) (*TransportResponse, error) {
		if path == "/auth/login" {
			return loginAnswer("sid1"), nil
		}
		return nil, ClassifyError(errors.New("dial tcp 127.0.0.1:8080: connect: connection refused"))
	}
	client := newSpyClient(t, spy)
	if _, err := client.Auth().Login(context.Background(), "admin", "secret"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	ctx := ContextWithRequestID(context.Background(), "req-42")
	res, err := client.Transfer().Info(ctx)
	if res != nil {
		t.Errorf("Expected no response, got %v", res)
	}

	var ce *ClientError
	if !errors.As(err, &ce) {
		t.Fatalf("Expected *ClientError, got %v", err)
	}
	if ce.Kind != KindAPIRuntime {
		t.Errorf("Expected KindAPIRuntime, got %v", ce.Kind)
	}
	if !errors.Is(err, ErrNetwork) {
		t.Error("Expected the network cause to be reachable")
	}
	if ce.Details["request_id"] != "req-42" {
		t.Errorf("Expected request id req-42, got %v", ce.Details["request_id"])
	}
	if !client.Auth().IsLoggedIn() {
		t.Error("Expected a network failure to keep the session")
	}
}

func TestDeclaredJSONThatDoesNotParseIsFailure(t *testing.T) {
	spy := &spyTransport{}
	spy.respond = func(method, path string, opts SendOptions) (*TransportResponse, error) {
		if path == "/auth/login" {
			return loginAnswer("sid1"), nil
		}
		h := http.Header{"Content-Type": []string{"application/json"}}
		tr := NewTransportResponse(200, h, []byte("{broken"))
		e := NewClientError(KindHTTP, ErrorCodeParse, "response declared JSON but is not valid JSON", nil, false)
		e.StatusCode = 200
		e.Response = tr
		return nil, e
	}
	client := newSpyClient(t, spy)
	if _, err := client.Auth().Login(context.Background(), "admin", "secret"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	res, err := client.Application().BuildInfo(context.Background())
	if err != nil {
		t.Fatalf("Expected a failed response, got error %v", err)
	}
	if res.IsSuccess() {
		t.Error("Expected failure for an unparsable body")
	}
	if res.RawResponse() != "{broken" {
		t.Errorf("Expected raw body to be kept, got %q", res.RawResponse())
	}
}

func TestSendOptionsFor(t *testing.T) {
	get, err := sendOptionsFor(NewTorrentPropertiesRequest("0123456789abcdef0123456789abcdef01234567"))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if get.Query.Get("hash") == "" || get.Form != nil {
		t.Errorf("Expected GET params in the query, got %+v", get)
	}

	post, err := sendOptionsFor(NewDeleteTorrentsRequest(true, AllTorrents))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if post.Form.Get("hashes") != AllTorrents || post.Query != nil {
		t.Errorf("Expected POST params in the form, got %+v", post)
	}

	add, err := sendOptionsFor(NewAddTorrentRequest("magnet:?xt=urn:btih:0123456789abcdef0123456789abcdef01234567"))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if add.Multipart == nil || add.Form != nil {
		t.Errorf("Expected a multipart body, got %+v", add)
	}
}
