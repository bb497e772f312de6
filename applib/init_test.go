package applib

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"path"
	"strings"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		env      map[string]string
		expected Config
	}{
		{
			"Defaults",
			nil,
			nil,
			Config{DBPath: DefaultDBPath, ListenAddr: DefaultListenAddr},
		},
		{
			"Environment",
			nil,
			map[string]string{"TODO_DB_PATH": "/tmp/env.db", "TODO_ADDR": ":9000"},
			Config{DBPath: "/tmp/env.db", ListenAddr: ":9000"},
		},
		{
			"FlagsOverrideEnvironment",
			[]string{"-dbPath", "/tmp/flag.db", "-addr", "127.0.0.1:4000"},
			map[string]string{"TODO_DB_PATH": "/tmp/env.db", "TODO_ADDR": ":9000"},
			Config{DBPath: "/tmp/flag.db", ListenAddr: "127.0.0.1:4000"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			getenv := func(key string) string { return tt.env[key] }
			cfg, err := LoadConfig(tt.args, getenv)
			if err != nil {
				t.Fatalf("LoadConfig returned error: %v", err)
			}
			if cfg != tt.expected {
				t.Errorf("Expected %+v, got %+v", tt.expected, cfg)
			}
		})
	}
}

func TestLoadConfigErrors(t *testing.T) {
	getenv := func(string) string { return "" }
	for _, args := range [][]string{
		{"-dbPath", ""},
		{"-addr", ""},
		{"-unknown"},
	} {
		if _, err := LoadConfig(args, getenv); err == nil {
			t.Errorf("Expected error for args %v", args)
		}
	}
}

func TestInitFailsOnUnopenableDatabase(t *testing.T) {
	cfg := Config{
		DBPath:     path.Join(t.TempDir(), "missing-dir", "todo.db"),
		ListenAddr: DefaultListenAddr,
	}
	if _, err := Init(cfg, testLogger()); err == nil {
		t.Fatal("Expected Init to fail for a database in a missing directory")
	}
}

func TestInitWiresRoutes(t *testing.T) {
	cfg := Config{DBPath: path.Join(t.TempDir(), "todo.db"), ListenAddr: DefaultListenAddr}
	app, err := Init(cfg, testLogger())
	if err != nil {
		t.Fatalf("Init returned error: %v", err)
	}
	defer app.GetDatabase().Close()

	server := httptest.NewServer(app.Handler())
	defer server.Close()

	resp, err := server.Client().Post(server.URL+"/todos", "application/json",
		strings.NewReader(`{"author":"alice","body":"buy milk"}`))
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected status %d, got %d", http.StatusCreated, resp.StatusCode)
	}

	resp, err = server.Client().Get(server.URL + "/todos")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	expected := `[{"id":1,"author":"alice","body":"buy milk","done":false}]`
	if string(body) != expected {
		t.Errorf("Expected %s, got %s", expected, body)
	}
	if resp.Header.Get("X-Request-Id") == "" {
		t.Error("Expected request id header from default middleware")
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	cfg := Config{DBPath: path.Join(t.TempDir(), "todo.db"), ListenAddr: "127.0.0.1:0"}
	app, err := Init(cfg, testLogger())
	if err != nil {
		t.Fatalf("Init returned error: %v", err)
	}

	listener, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- app.serve(ctx, listener)
	}()

	resp, err := http.Get("http://" + listener.Addr().String() + "/todos")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("serve returned error: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not stop after cancel")
	}
}

func TestInitAppliesMiddlewareToUnmatchedRequests(t *testing.T) {
	t.Setenv("ENABLE_CROSS_ORIGIN", "1")
	cfg := Config{DBPath: path.Join(t.TempDir(), "todo.db"), ListenAddr: DefaultListenAddr}
	app, err := Init(cfg, testLogger())
	if err != nil {
		t.Fatalf("Init returned error: %v", err)
	}
	defer app.GetDatabase().Close()

	for _, target := range []string{"/todos", "/todos/1"} {
		w := httptest.NewRecorder()
		app.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodOptions, target, nil))

		if w.Code != http.StatusOK {
			t.Errorf("OPTIONS %s: expected status %d, got %d", target, http.StatusOK, w.Code)
		}
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
			t.Errorf("OPTIONS %s: expected Access-Control-Allow-Origin *, got %q", target, got)
		}
	}

	tests := []struct {
		method string
		target string
		status int
	}{
		{http.MethodPut, "/todos", http.StatusMethodNotAllowed},
		{http.MethodGet, "/nope", http.StatusNotFound},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		app.Handler().ServeHTTP(w, httptest.NewRequest(tt.method, tt.target, strings.NewReader("{}")))

		if w.Code != tt.status {
			t.Errorf("%s %s: expected status %d, got %d", tt.method, tt.target, tt.status, w.Code)
		}
		if w.Header().Get("X-Request-Id") == "" {
			t.Errorf("%s %s: expected X-Request-Id header", tt.method, tt.target)
		}
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
			t.Errorf("%s %s: expected CORS header, got %q", tt.method, tt.target, got)
		}
	}
}
