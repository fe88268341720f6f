package qbt

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func TestTransportBaseURL(t *testing.T) {
	tests := []struct {
		in       string
		expected string
		wantErr  bool
	}{
		{"http://localhost:8080", "http://localhost:8080", false},
		{"http://localhost:8080/", "http://localhost:8080", false},
		{"https://nas.local/qbt/api/v2/", "https://nas.local/qbt", false},
		{" http://localhost:8080?x=1 ", "http://localhost:8080", false},
		{"localhost:8080", "", true},
		{"ftp://localhost", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			tr, err := NewHTTPTransport(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrConfig) {
					t.Errorf("Expected ErrConfig, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if tr.BaseURL() != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, tr.BaseURL())
			}
		})
	}
}

func TestEndpointOf(t *testing.T) {
	tests := map[string]string{
		"/app/version":                    "/app/version",
		"app/version":                     "/app/version",
		"/api/v2/torrents/info?limit=1":   "/torrents/info",
		"http://h:8080/api/v2/auth/login": "/auth/login",
	}
	for in, expected := range tests {
		if got := endpointOf(in); got != expected {
			t.Errorf("endpointOf(%q) = %q, expected %q", in, got, expected)
		}
	}
}

func TestTransportSendsSessionAndHeaders(t *testing.T) {
	var (
		gotPath, gotCookie, gotUA, gotReferer string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUA = r.UserAgent()
		gotReferer = r.Referer()
		if c, err := r.Cookie(SessionCookieName); err == nil {
			gotCookie = c.Value
		}
		if r.URL.Path == "/api/v2/auth/login" {
			http.SetCookie(w, &http.Cookie{Name: SessionCookieName, Value: "fresh", Path: "/"})
		}
		w.Write([]byte("Ok."))
	}))
	defer server.Close()

	tr, err := NewHTTPTransport(server.URL, WithUserAgent("qbt-test/1.0"))
	if err != nil {
		t.Fatalf("NewHTTPTransport failed: %v", err)
	}

	if _, err := tr.Send(context.Background(), http.MethodPost, "/auth/login", SendOptions{}); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if tr.Authentication() != "fresh" {
		t.Errorf("Expected the SID to be captured, got %q", tr.Authentication())
	}

	if _, err := tr.Send(context.Background(), http.MethodGet, "/app/version", SendOptions{}); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if gotPath != "/api/v2/app/version" {
		t.Errorf("Expected /api/v2/app/version, got %s", gotPath)
	}
	if gotCookie != "fresh" {
		t.Errorf("Expected cookie fresh, got %q", gotCookie)
	}
	if gotUA != "qbt-test/1.0" {
		t.Errorf("Expected user agent, got %q", gotUA)
	}
	if gotReferer != server.URL {
		t.Errorf("Expected referer %s, got %q", server.URL, gotReferer)
	}

	tr.SetAuthentication("")
	gotCookie = ""
	if _, err := tr.Send(context.Background(), http.MethodGet, "/app/version", SendOptions{}); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if gotCookie != "" {
		t.Errorf("Expected no cookie after clearing, got %q", gotCookie)
	}
}

func TestTransportClassifiesAnswers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v2/app/webapiVersion":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte("2.11"))
		case "/api/v2/app/buildInfo":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte("{broken"))
		case "/api/v2/torrents/properties":
			http.Error(w, "Torrent hash was not found", http.StatusNotFound)
		case "/api/v2/app/preferences", "/api/v2/auth/login":
			http.Error(w, "Forbidden", http.StatusForbidden)
		}
	}))
	defer server.Close()

	tr, err := NewHTTPTransport(server.URL)
	if err != nil {
		t.Fatalf("NewHTTPTransport failed: %v", err)
	}
	ctx := context.Background()

	version, err := tr.Send(ctx, http.MethodGet, "/app/webapiVersion", SendOptions{})
	if err != nil {
		t.Fatalf("Expected a plain text answer, got %v", err)
	}
	if version.IsJSON() || version.JSON() != nil {
		t.Error("Expected the version to stay plain text")
	}

	tests := []struct {
		name   string
		path   string
		code   ErrorCode
		status int
	}{
		{"invalid declared json", "/app/buildInfo", ErrorCodeParse, 200},
		{"not found", "/torrents/properties", ErrorCodeHTTP, 404},
		{"forbidden", "/app/preferences", ErrorCodeAccessDenied, 403},
		{"banned login", "/auth/login", ErrorCodeIPBanned, 403},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tr.Send(ctx, http.MethodGet, tt.path, SendOptions{})
			var ce *ClientError
			if !errors.As(err, &ce) {
				t.Fatalf("Expected *ClientError, got %v", err)
			}
			if ce.Code != tt.code || ce.StatusCode != tt.status {
				t.Errorf("Expected %s/%d, got %s/%d", tt.code, tt.status, ce.Code, ce.StatusCode)
			}
			if ce.Response == nil {
				t.Fatal("Expected the response to be attached")
			}
			if ce.Method != http.MethodGet || ce.URI != server.URL+APIBasePath+tt.path {
				t.Errorf("Unexpected exchange %s %s", ce.Method, ce.URI)
			}
		})
	}
}

func TestTransportRateLimiter(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	tr, err := NewHTTPTransport(server.URL, WithRateLimiter(rate.NewLimiter(rate.Every(time.Hour), 1)))
	if err != nil {
		t.Fatalf("NewHTTPTransport failed: %v", err)
	}

	if _, err := tr.Send(context.Background(), http.MethodGet, "/app/version", SendOptions{}); err != nil {
		t.Fatalf("First request failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = tr.Send(ctx, http.MethodGet, "/app/version", SendOptions{})
	if err == nil {
		t.Fatal("Expected the limiter to stop the second request")
	}
	if code := GetErrorCode(err); code != ErrorCodeTimeout {
		t.Errorf("Expected %s for a slot beyond the deadline, got %s", ErrorCodeTimeout, code)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected the deadline to stay reachable, got %v", err)
	}
	if hits.Load() != 1 {
		t.Errorf("Expected 1 request to reach the server, got %d", hits.Load())
	}
}

func TestTransportRejectsConflictingBodies(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	tr, err := NewHTTPTransport(server.URL)
	if err != nil {
		t.Fatalf("NewHTTPTransport failed: %v", err)
	}
	_, err = tr.Send(context.Background(), http.MethodPost, "/app/setPreferences", SendOptions{
		Form: map[string][]string{"a": {"1"}},
		Raw:  []byte("x"),
	})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("Expected ErrValidation, got %v", err)
	}
}
