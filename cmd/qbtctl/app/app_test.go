package app

import (
	"bytes"
	"strings"
	"testing"

	"github.com/jfxdev/go-qbtapi/internal/qbttest"
)

const testHash = "0123456789abcdef0123456789abcdef01234567"

func run(t *testing.T, srv *qbttest.Server, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--url", srv.URL, "-u", qbttest.DefaultUsername, "-p", qbttest.DefaultPassword}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	srv := qbttest.New()
	defer srv.Close()

	out, err := run(t, srv, "version")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if want := "qBittorrent v5.0.1 (Web API 2.11.2)\n"; out != want {
		t.Errorf("Expected %q, got %q", want, out)
	}
	if srv.Sessions() != 0 {
		t.Errorf("Expected the session to be closed, got %d open", srv.Sessions())
	}
}

func TestLoginCommand(t *testing.T) {
	srv := qbttest.New()
	defer srv.Close()

	out, err := run(t, srv, "login")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !strings.Contains(out, "Logged in to "+srv.URL+" as admin") {
		t.Errorf("Expected a login confirmation, got %q", out)
	}
}

func TestLoginFailure(t *testing.T) {
	srv := qbttest.New()
	defer srv.Close()

	_, err := run(t, srv, "version", "-p", "wrong")
	if err == nil {
		t.Fatal("Expected a login error")
	}
	if !strings.Contains(err.Error(), "login to") {
		t.Errorf("Expected a login error, got %v", err)
	}
}

func TestTorrentsCommands(t *testing.T) {
	srv := qbttest.New()
	defer srv.Close()

	magnet := "magnet:?xt=urn:btih:" + testHash + "&dn=debian.iso"
	out, err := run(t, srv, "torrents", "add", magnet, "--category", "linux", "--paused")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !strings.Contains(out, "added "+testHash) {
		t.Errorf("Expected the added hash, got %q", out)
	}

	out, err = run(t, srv, "torrents", "ls")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !strings.Contains(out, testHash) || !strings.Contains(out, "debian.iso") || !strings.Contains(out, "linux") {
		t.Errorf("Expected the torrent in the listing, got %q", out)
	}

	if _, err := run(t, srv, "torrents", "resume", testHash); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if tr, _ := srv.Torrent(testHash); tr.State != "downloading" {
		t.Errorf("Expected state downloading, got %q", tr.State)
	}

	if _, err := run(t, srv, "torrents", "pause", "nothex"); err == nil {
		t.Error("Expected a validation error for a bad hash")
	}

	if _, err := run(t, srv, "torrents", "rm", testHash, "--files"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if _, ok := srv.Torrent(testHash); ok {
		t.Error("Expected the torrent to be deleted")
	}
	if rec, _ := srv.LastRequest("/torrents/delete"); rec.Form.Get("deleteFiles") != "true" {
		t.Errorf("Expected deleteFiles=true, got %q", rec.Form.Get("deleteFiles"))
	}

	out, err = run(t, srv, "torrents", "ls")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if out != "No torrents.\n" {
		t.Errorf("Expected an empty listing, got %q", out)
	}
}

func TestStatusCommand(t *testing.T) {
	srv := qbttest.New()
	defer srv.Close()
	srv.AddTorrent(qbttest.Torrent{Hash: testHash, Name: "debian.iso", State: "uploading"})

	out, err := run(t, srv, "status")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	for _, want := range []string{"v5.0.1", "Torrents:", "uploading:", "Speed limits:"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in status output, got %q", want, out)
		}
	}
}

func TestSearchCommand(t *testing.T) {
	srv := qbttest.New()
	defer srv.Close()

	out, err := run(t, srv, "search", "debian", "--wait", "20ms", "--interval", "5ms", "--limit", "1")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !strings.Contains(out, "debian 1080p") {
		t.Errorf("Expected the first hit, got %q", out)
	}
	if strings.Contains(out, "debian 720p") {
		t.Errorf("Expected the limit to apply, got %q", out)
	}
	if !strings.Contains(out, "1 of 2 results") {
		t.Errorf("Expected the result count, got %q", out)
	}
	if _, ok := srv.LastRequest("/search/stop"); !ok {
		t.Error("Expected the running job to be stopped")
	}
	if _, ok := srv.LastRequest("/search/delete"); !ok {
		t.Error("Expected the job to be deleted")
	}
}

func TestCallCommand(t *testing.T) {
	srv := qbttest.New()
	defer srv.Close()

	out, err := run(t, srv, "call", "--list")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if lines := strings.Split(strings.TrimSpace(out), "\n"); len(lines) != 45 {
		t.Errorf("Expected 45 kinds, got %d", len(lines))
	}

	out, err = run(t, srv, "call", "app.version")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if out != "\"v5.0.1\"\n" {
		t.Errorf("Expected the version as JSON, got %q", out)
	}

	out, err = run(t, srv, "call", "app.preferences")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !strings.Contains(out, `"save_path": "/downloads"`) {
		t.Errorf("Expected indented preferences, got %q", out)
	}

	tests := []struct {
		name string
		args []string
	}{
		{"no kind", []string{"call"}},
		{"unknown kind", []string{"call", "torrents.explode"}},
		{"bad parameter", []string{"call", "torrents.info", "limit"}},
		{"invalid value", []string{"call", "torrents.info", "limit=many"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := run(t, srv, tt.args...); err == nil {
				t.Error("Expected an error")
			}
		})
	}
}

func TestParseParams(t *testing.T) {
	params, err := parseParams([]string{"hashes=a|b", "tags=x=y", "empty="})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if params["hashes"] != "a|b" || params["tags"] != "x=y" || params["empty"] != "" {
		t.Errorf("Unexpected params: %v", params)
	}
	if _, err := parseParams([]string{"=value"}); err == nil {
		t.Error("Expected an error for an empty key")
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{1 << 30, "1.0 GiB"},
		{1536 << 20, "1.5 GiB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.in); got != tt.want {
			t.Errorf("Expected %q for %d, got %q", tt.want, tt.in, got)
		}
	}
	if got := formatLimit(0); got != "none" {
		t.Errorf("Expected none, got %q", got)
	}
}
