package qbt

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/jfxdev/go-qbtapi/internal/qbttest"
	"github.com/rs/zerolog"
)

func newTestClient(t *testing.T, opts ...Option) (*Client, *qbttest.Server) {
	t.Helper()
	srv := qbttest.New()
	t.Cleanup(srv.Close)

	client, err := New(Config{
		BaseURL:  srv.URL,
		Username: qbttest.DefaultUsername,
		Password: qbttest.DefaultPassword,
	}, opts...)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	return client, srv
}

func newLoggedInClient(t *testing.T, opts ...Option) (*Client, *qbttest.Server) {
	t.Helper()
	client, srv := newTestClient(t, opts...)
	res, err := client.Login(context.Background())
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if !res.IsSuccess() {
		t.Fatalf("Login failed: %v", res.Errors())
	}
	return client, srv
}

func TestNewClient(t *testing.T) {
	config := Config{
		BaseURL:        "http://localhost:8080",
		Username:       "test",
		Password:       "test",
		RequestTimeout: 45 * time.Second,
	}

	client, err := New(config)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	if client == nil {
		t.Fatal("Client should not be nil")
	}

	if client.Config().RequestTimeout != 45*time.Second {
		t.Errorf("Expected timeout: 45s, got: %v", client.Config().RequestTimeout)
	}

	if client.Auth().IsLoggedIn() {
		t.Error("A new client should not be logged in")
	}
}

func TestNewClientDefaults(t *testing.T) {
	client, err := New(Config{BaseURL: "http://localhost:8080"})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	cfg := client.Config()
	if cfg.RequestTimeout != DefaultRequestTimeout {
		t.Errorf("Expected default RequestTimeout: %v, got: %v", DefaultRequestTimeout, cfg.RequestTimeout)
	}
	if cfg.ConnectTimeout != DefaultConnectTimeout {
		t.Errorf("Expected default ConnectTimeout: %v, got: %v", DefaultConnectTimeout, cfg.ConnectTimeout)
	}
	if cfg.UserAgent != DefaultUserAgent {
		t.Errorf("Expected default UserAgent: %q, got: %q", DefaultUserAgent, cfg.UserAgent)
	}
	if cfg.SessionDuration != DefaultSessionDuration {
		t.Errorf("Expected default SessionDuration: %v, got: %v", DefaultSessionDuration, cfg.SessionDuration)
	}
	if client.Transport().BaseURL() != "http://localhost:8080" {
		t.Errorf("Expected base URL http://localhost:8080, got %q", client.Transport().BaseURL())
	}
}

func TestNewClientInvalidConfig(t *testing.T) {
	_, err := New(Config{BaseURL: "localhost:8080", Username: "admin"})
	if !errors.Is(err, ErrConfig) {
		t.Fatalf("Expected ErrConfig, got %v", err)
	}

	var ce *ClientError
	errors.As(err, &ce)
	for _, field := range []string{"base_url", "credentials"} {
		if _, ok := ce.Fields[field]; !ok {
			t.Errorf("Expected a %s error, got %v", field, ce.Fields)
		}
	}
}

func TestLoginThenVersionCarriesSessionCookie(t *testing.T) {
	client, srv := newLoggedInClient(t)

	sid := client.Auth().SessionID()
	if sid == "" {
		t.Fatal("Expected a session id after login")
	}
	if client.Auth().Username() != qbttest.DefaultUsername {
		t.Errorf("Expected username %q, got %q", qbttest.DefaultUsername, client.Auth().Username())
	}

	res, err := client.Application().Version(context.Background())
	if err != nil {
		t.Fatalf("Version failed: %v", err)
	}
	if !res.IsSuccess() {
		t.Fatalf("Expected success, got %v", res.Errors())
	}
	if res.Data() != qbttest.DefaultVersion {
		t.Errorf("Expected version %q, got %q", qbttest.DefaultVersion, res.Data())
	}

	rec, ok := srv.LastRequest("/app/version")
	if !ok {
		t.Fatal("Expected the daemon to receive /app/version")
	}
	if rec.SessionID != sid {
		t.Errorf("Expected cookie SID %q, got %q", sid, rec.SessionID)
	}
	if rec.UserAgent != DefaultUserAgent {
		t.Errorf("Expected User-Agent %q, got %q", DefaultUserAgent, rec.UserAgent)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	client, _ := newTestClient(t)

	res, err := client.Auth().Login(context.Background(), "admin", "wrong")
	if err != nil {
		t.Fatalf("Expected a failed response, got error %v", err)
	}
	if res.IsSuccess() {
		t.Fatal("Expected login to fail")
	}
	if res.Errors()[0] != "invalid credentials" {
		t.Errorf("Expected 'invalid credentials', got %v", res.Errors())
	}
	if client.Auth().IsLoggedIn() {
		t.Error("Expected client to stay logged out")
	}
}

func TestLoginIPBanned(t *testing.T) {
	client, srv := newTestClient(t)
	srv.Ban(true)

	res, err := client.Login(context.Background())
	if err != nil {
		t.Fatalf("Expected a failed response, got error %v", err)
	}
	if res.StatusCode() != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d", res.StatusCode())
	}
	if len(res.Errors()) != 1 || !strings.Contains(res.Errors()[0], "IP banned") {
		t.Errorf("Expected a single IP ban error, got %v", res.Errors())
	}
	if client.Auth().IsLoggedIn() {
		t.Error("Expected client to stay logged out")
	}
}

func TestLoginValidation(t *testing.T) {
	client, srv := newTestClient(t)

	_, err := client.Auth().Login(context.Background(), "", strings.Repeat("x", 256))
	var ce *ClientError
	if !errors.As(err, &ce) || ce.Kind != KindValidation {
		t.Fatalf("Expected a validation error, got %v", err)
	}
	if len(ce.Fields) != 2 {
		t.Errorf("Expected username and password errors, got %v", ce.Fields)
	}
	if len(srv.Requests()) != 0 {
		t.Errorf("Expected no request, got %d", len(srv.Requests()))
	}
}

func TestLogoutClearsSessionOnServerError(t *testing.T) {
	client, srv := newLoggedInClient(t)
	srv.FailWith("/auth/logout", http.StatusInternalServerError)

	res, err := client.Auth().Logout(context.Background())
	if err != nil {
		t.Fatalf("Expected a failed response, got error %v", err)
	}
	if res.IsSuccess() {
		t.Error("Expected logout to report the daemon failure")
	}
	if res.StatusCode() != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", res.StatusCode())
	}
	if client.Auth().IsLoggedIn() {
		t.Error("Expected local session to be cleared")
	}
	if client.Auth().SessionID() != "" {
		t.Errorf("Expected empty session id, got %q", client.Auth().SessionID())
	}
	if client.Transport().Authentication() != "" {
		t.Errorf("Expected transport cookie to be cleared, got %q", client.Transport().Authentication())
	}
}

func TestLogoutWhenNotLoggedIn(t *testing.T) {
	client, srv := newTestClient(t)

	_, err := client.Auth().Logout(context.Background())
	if !errors.Is(err, ErrNotLoggedIn) {
		t.Errorf("Expected ErrNotLoggedIn, got %v", err)
	}
	if len(srv.Requests()) != 0 {
		t.Errorf("Expected no request, got %d", len(srv.Requests()))
	}
}

func TestLogoutClosesDaemonSession(t *testing.T) {
	client, srv := newLoggedInClient(t)
	if srv.Sessions() != 1 {
		t.Fatalf("Expected 1 daemon session, got %d", srv.Sessions())
	}

	if err := client.Close(context.Background()); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if srv.Sessions() != 0 {
		t.Errorf("Expected daemon session to be closed, got %d", srv.Sessions())
	}
	if err := client.Close(context.Background()); err != nil {
		t.Errorf("Expected a second Close to be a no-op, got %v", err)
	}
}

func TestDaemonRejectionLogsOut(t *testing.T) {
	client, srv := newLoggedInClient(t)
	srv.FailWith("/transfer/info", http.StatusForbidden)

	res, err := client.Transfer().Info(context.Background())
	if err != nil {
		t.Fatalf("Expected a failed response, got error %v", err)
	}
	if res.StatusCode() != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d", res.StatusCode())
	}
	if client.Auth().IsLoggedIn() {
		t.Error("Expected a 403 to clear the session")
	}

	_, err = client.Transfer().Info(context.Background())
	if !errors.Is(err, ErrNotLoggedIn) {
		t.Errorf("Expected ErrNotLoggedIn after invalidation, got %v", err)
	}
}

func TestUpdateConfig(t *testing.T) {
	client, srv := newLoggedInClient(t)

	cfg := client.Config()
	cfg.RequestTimeout = 60 * time.Second
	if err := client.Update(cfg); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if !client.Auth().IsLoggedIn() {
		t.Error("Changing timeouts should keep the session")
	}
	if client.httpTransport.ClientOptions().Timeout != 60*time.Second {
		t.Errorf("Expected timeout: 60s, got: %v", client.httpTransport.ClientOptions().Timeout)
	}

	cfg.BaseURL = srv.URL + "/api/v2"
	cfg.Password = "other"
	if err := client.Update(cfg); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if client.Auth().IsLoggedIn() {
		t.Error("Changing credentials should clear the session")
	}
	if client.Transport().BaseURL() != srv.URL {
		t.Errorf("Expected base URL %q, got %q", srv.URL, client.Transport().BaseURL())
	}

	if err := client.Update(Config{BaseURL: "ftp://nope"}); !errors.Is(err, ErrConfig) {
		t.Errorf("Expected ErrConfig for an invalid update, got %v", err)
	}
}

func TestDebugMode(t *testing.T) {
	client, err := New(Config{
		BaseURL: "http://localhost:8080",
		Debug:   false,
	})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	if client.core.logger().GetLevel() != zerolog.Disabled {
		t.Errorf("Expected a disabled logger, got %v", client.core.logger().GetLevel())
	}

	clientDebug, err := New(Config{
		BaseURL: "http://localhost:8080",
		Debug:   true,
	})
	if err != nil {
		t.Fatalf("Failed to create client with debug: %v", err)
	}
	if clientDebug.core.logger().GetLevel() != zerolog.DebugLevel {
		t.Errorf("Expected debug level, got %v", clientDebug.core.logger().GetLevel())
	}
}

func TestExecuteBuiltRequests(t *testing.T) {
	client, srv := newTestClient(t)
	srv.AddTorrent(qbttest.Torrent{Hash: strings.Repeat("a", 40), Name: "ubuntu", Category: "linux"})
	srv.AddTorrent(qbttest.Torrent{Hash: strings.Repeat("b", 40), Name: "movie", Category: "movies"})
	ctx := context.Background()

	login, err := BuildRequest(OpAuthLogin, map[string]string{
		"username": qbttest.DefaultUsername,
		"password": qbttest.DefaultPassword,
	})
	if err != nil {
		t.Fatalf("BuildRequest failed: %v", err)
	}
	res, err := client.Execute(ctx, login)
	if err != nil || !res.IsSuccess() {
		t.Fatalf("Execute login failed: %v %v", err, res.Errors())
	}
	if !client.Auth().IsLoggedIn() {
		t.Fatal("Expected Execute(login) to open the session")
	}

	info, err := BuildRequest(OpTorrentsInfo, map[string]string{"category": "linux"})
	if err != nil {
		t.Fatalf("BuildRequest failed: %v", err)
	}
	res, err = client.Execute(ctx, info)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	var torrents []map[string]any
	if err := json.Unmarshal(res.Data(), &torrents); err != nil {
		t.Fatalf("Expected a JSON array, got %s", res.Data())
	}
	if len(torrents) != 1 || torrents[0]["name"] != "ubuntu" {
		t.Errorf("Expected only ubuntu, got %v", torrents)
	}

	version, _ := BuildRequest(OpAppVersion, nil)
	res, err = client.Execute(ctx, version)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if string(res.Data()) != `"`+qbttest.DefaultVersion+`"` {
		t.Errorf("Expected version as a JSON string, got %s", res.Data())
	}

	logout, _ := BuildRequest(OpAuthLogout, nil)
	if _, err := client.Execute(ctx, logout); err != nil {
		t.Fatalf("Execute logout failed: %v", err)
	}
	if client.Auth().IsLoggedIn() {
		t.Error("Expected Execute(logout) to close the session")
	}

	if _, err := client.Execute(ctx, nil); !errors.Is(err, ErrValidation) {
		t.Errorf("Expected ErrValidation for a nil request, got %v", err)
	}
}

func TestCanceledContext(t *testing.T) {
	client, _ := newLoggedInClient(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Application().BuildInfo(ctx)
	if !errors.Is(err, ErrAPIRuntime) {
		t.Fatalf("Expected ErrAPIRuntime, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled in the chain, got %v", err)
	}
	if GetErrorCode(err) != ErrorCodeRequestFailed {
		t.Errorf("Expected REQUEST_FAILED, got %v", GetErrorCode(err))
	}
}

func TestUnreachableDaemon(t *testing.T) {
	srv := qbttest.New()
	url := srv.URL
	srv.Close()

	client, err := New(Config{BaseURL: url, ConnectTimeout: time.Second})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	_, err = client.Auth().Login(context.Background(), "admin", "adminadmin")
	if !errors.Is(err, ErrNetwork) {
		t.Errorf("Expected a network cause, got %v", err)
	}
	if !IsRetryableError(err) {
		t.Errorf("Expected a refused connection to be retryable, got %v", err)
	}
}
