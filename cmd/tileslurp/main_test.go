package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/barrygee/tileslurp/internal/config"
	slurphttp "github.com/barrygee/tileslurp/internal/http"
	"github.com/barrygee/tileslurp/internal/tile"
)

type recordingServer struct {
	*httptest.Server
	mu         sync.Mutex
	userAgents []string
}

func startServer(t *testing.T) *recordingServer {
	t.Helper()
	rs := &recordingServer{}
	rs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rs.mu.Lock()
		rs.userAgents = append(rs.userAgents, r.UserAgent())
		rs.mu.Unlock()
		fmt.Fprintf(w, "tile%s", r.URL.Path)
	}))
	t.Cleanup(rs.Close)
	return rs
}

func (rs *recordingServer) requests() []string {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return append([]string(nil), rs.userAgents...)
}

func testConfig(baseURL, out string, maxZoom int) config.Config {
	cfg := config.Default()
	cfg.BaseURL = baseURL
	cfg.Out = out
	cfg.MaxZoom = maxZoom
	return cfg
}

func TestFetchPopulatesLayout(t *testing.T) {
	server := startServer(t)
	out := t.TempDir()

	var stdout bytes.Buffer
	code := fetch(context.Background(), testConfig(server.URL, out, 1), zerolog.Nop(), &stdout)
	if code != ExitSuccess {
		t.Fatalf("fetch returned %d, want %d", code, ExitSuccess)
	}

	for a := range tile.Enumerate(1) {
		data, err := os.ReadFile(filepath.Join(out, filepath.FromSlash(tile.Key(a))))
		if err != nil {
			t.Fatalf("read %s: %v", tile.Key(a), err)
		}
		if want := "tile/" + tile.Key(a); string(data) != want {
			t.Errorf("%s = %q, want %q", tile.Key(a), data, want)
		}
	}

	uas := server.requests()
	if len(uas) != 5 {
		t.Fatalf("expected 5 requests, got %d", len(uas))
	}
	for _, ua := range uas {
		if ua != slurphttp.DefaultUserAgent {
			t.Errorf("User-Agent %q, want %q", ua, slurphttp.DefaultUserAgent)
		}
	}

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	if want := "[tileslurp] Downloading 5 tiles (zoom 0-1) with 6 workers"; lines[0] != want {
		t.Errorf("header = %q, want %q", lines[0], want)
	}
	if !strings.Contains(lines[len(lines)-1], "[tileslurp] Done. ok=5 skipped=0 errors=0") {
		t.Errorf("unexpected summary %q", lines[len(lines)-1])
	}
}

func TestFetchThenValidate(t *testing.T) {
	server := startServer(t)
	out := t.TempDir()
	cfg := testConfig(server.URL, out, 2)

	var stdout bytes.Buffer
	if code := validate(context.Background(), cfg, zerolog.Nop(), &stdout); code != ExitValidationFailed {
		t.Fatalf("validate on empty cache returned %d, want %d", code, ExitValidationFailed)
	}
	if !strings.Contains(stdout.String(), "Missing: 21") || !strings.Contains(stdout.String(), "... and 1 more") {
		t.Errorf("unexpected validate output:\n%s", stdout.String())
	}

	if code := fetch(context.Background(), cfg, zerolog.Nop(), &bytes.Buffer{}); code != ExitSuccess {
		t.Fatalf("fetch returned %d", code)
	}

	stdout.Reset()
	if code := validate(context.Background(), cfg, zerolog.Nop(), &stdout); code != ExitSuccess {
		t.Fatalf("validate after fetch returned %d\n%s", code, stdout.String())
	}
	if !strings.Contains(stdout.String(), "Status: VALID") {
		t.Errorf("unexpected validate output:\n%s", stdout.String())
	}

	// A second fetch touches the network zero times.
	before := len(server.requests())
	stdout.Reset()
	if code := fetch(context.Background(), cfg, zerolog.Nop(), &stdout); code != ExitSuccess {
		t.Fatalf("second fetch returned %d", code)
	}
	if after := len(server.requests()); after != before {
		t.Errorf("second fetch made %d requests", after-before)
	}
	if !strings.Contains(stdout.String(), "ok=0 skipped=21 errors=0") {
		t.Errorf("unexpected summary:\n%s", stdout.String())
	}
}

func TestFetchToMemBucket(t *testing.T) {
	server := startServer(t)
	code := fetch(context.Background(), testConfig(server.URL, "mem://", 0), zerolog.Nop(), &bytes.Buffer{})
	if code != ExitSuccess {
		t.Errorf("fetch to mem:// returned %d", code)
	}
}

func TestFetchTileFailuresStillSucceed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	var stdout bytes.Buffer
	code := fetch(context.Background(), testConfig(server.URL, t.TempDir(), 1), zerolog.Nop(), &stdout)
	if code != ExitSuccess {
		t.Errorf("fetch returned %d, want %d", code, ExitSuccess)
	}
	if !strings.Contains(stdout.String(), "ok=0 skipped=0 errors=5 (status=5)") {
		t.Errorf("unexpected summary:\n%s", stdout.String())
	}
}

func TestFetchReportEvery(t *testing.T) {
	server := startServer(t)
	cfg := testConfig(server.URL, t.TempDir(), 1)
	cfg.ReportEvery = 2

	var stdout bytes.Buffer
	if code := fetch(context.Background(), cfg, zerolog.Nop(), &stdout); code != ExitSuccess {
		t.Fatalf("fetch returned %d", code)
	}
	// Lines at 2, 4 and the final 5.
	if n := strings.Count(stdout.String(), "/5  ok="); n != 3 {
		t.Errorf("expected 3 progress lines, got %d:\n%s", n, stdout.String())
	}
}

func TestFetchInterrupted(t *testing.T) {
	server := startServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	code := fetch(ctx, testConfig(server.URL, t.TempDir(), 3), zerolog.Nop(), &bytes.Buffer{})
	if code != ExitInterrupted {
		t.Errorf("fetch returned %d, want %d", code, ExitInterrupted)
	}
}

func TestFetchUnopenableStore(t *testing.T) {
	code := fetch(context.Background(), testConfig("http://127.0.0.1:1", "nosuchscheme://bucket", 0), zerolog.Nop(), &bytes.Buffer{})
	if code != ExitStorageError {
		t.Errorf("fetch returned %d, want %d", code, ExitStorageError)
	}
}

func TestResolvePrecedence(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "tileslurp.yaml")
	yamlContent := "workers: 3\nmax_zoom: 2\ntimeout: 20s\nreport_every: 10\n"
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	t.Setenv("TILESLURP_WORKERS", "4")
	t.Setenv("TILESLURP_USER_AGENT", "from-env")
	t.Setenv("TILESLURP_REPORT_EVERY", "20")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	var flags commonFlags
	flags.register(fs)
	args := []string{"-config", configPath, "-max-zoom", "0", "-out", dir, "-report-every", "50"}
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := flags.resolve(fs)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	// Flag beats file, even for zoom 0
	if cfg.MaxZoom != 0 {
		t.Errorf("expected max zoom 0, got %d", cfg.MaxZoom)
	}
	// Env beats file
	if cfg.Workers != 4 {
		t.Errorf("expected workers 4, got %d", cfg.Workers)
	}
	// File beats default
	if cfg.Timeout != 20*time.Second {
		t.Errorf("expected timeout 20s, got %v", cfg.Timeout)
	}
	// Flag beats env
	if cfg.ReportEvery != 50 {
		t.Errorf("expected report interval 50, got %d", cfg.ReportEvery)
	}
	if cfg.UserAgent != "from-env" {
		t.Errorf("expected user agent from-env, got %s", cfg.UserAgent)
	}
	if cfg.Out != dir {
		t.Errorf("expected out %s, got %s", dir, cfg.Out)
	}
}

func TestResolveRejectsInvalidFlags(t *testing.T) {
	tests := [][]string{
		{"-workers", "0"},
		{"-timeout", "-1s"},
		{"-max-zoom", "-1"},
		{"-max-zoom", "31"},
		{"-base-url", ""},
		{"-report-every", "0"},
	}
	for _, args := range tests {
		fs := flag.NewFlagSet("test", flag.ContinueOnError)
		var flags commonFlags
		flags.register(fs)
		if err := fs.Parse(args); err != nil {
			t.Fatalf("parse %v: %v", args, err)
		}

		if _, err := flags.resolve(fs); err == nil {
			t.Errorf("expected error for args %v", args)
		}
	}
}

func TestRunCommands(t *testing.T) {
	tests := []struct {
		args []string
		want int
	}{
		{[]string{"help"}, ExitSuccess},
		{[]string{"bogus"}, ExitInvalidArgs},
		{[]string{"-workers", "0"}, ExitInvalidArgs},
		{[]string{"fetch", "-log-format", "xml"}, ExitInvalidArgs},
		{[]string{"fetch", "extra"}, ExitInvalidArgs},
		{[]string{"fetch", "-h"}, ExitSuccess},
	}
	for _, tt := range tests {
		if got := run(tt.args); got != tt.want {
			t.Errorf("run(%v) = %d, want %d", tt.args, got, tt.want)
		}
	}
}
