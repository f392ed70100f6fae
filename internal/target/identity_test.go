package target

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
)

func splitHostPort(t *testing.T, rawURL string) (string, int) {
	t.Helper()
	parsed, err := url.Parse(rawURL)
	if err != nil {
		t.Fatal(err)
	}
	port, err := strconv.Atoi(parsed.Port())
	if err != nil {
		t.Fatal(err)
	}
	return parsed.Hostname(), port
}

func TestResolveWithServerVersion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != InfoPath {
			t.Errorf("request path = %q, want %q", r.URL.Path, InfoPath)
		}
		_, _ = w.Write([]byte(`{"serverVersion":"10.0.1","availableProcessors":8}`))
	}))
	defer srv.Close()

	host, port := splitHostPort(t, srv.URL)
	id, err := Resolve(context.Background(), srv.Client(), "http", host, port, "fallback")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if id.ServerVersion != "10.0.1" {
		t.Errorf("ServerVersion = %q, want 10.0.1", id.ServerVersion)
	}
	if id.Host != host || id.Port != port || id.Scheme != "http" {
		t.Errorf("identity = %+v, want resolved scheme/host/port", id)
	}
}

func TestResolveVersionFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"availableProcessors":8}`))
	}))
	defer srv.Close()

	host, port := splitHostPort(t, srv.URL)
	id, err := Resolve(context.Background(), srv.Client(), "http", host, port, "9.4.0")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if id.ServerVersion != "9.4.0" {
		t.Errorf("ServerVersion = %q, want fallback 9.4.0", id.ServerVersion)
	}
}

func TestResolveLegacyVersionField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"jettyVersion":"9.4.44"}`))
	}))
	defer srv.Close()

	host, port := splitHostPort(t, srv.URL)
	id, err := Resolve(context.Background(), srv.Client(), "http", host, port, "")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if id.ServerVersion != "9.4.44" {
		t.Errorf("ServerVersion = %q, want 9.4.44", id.ServerVersion)
	}
}

func TestResolveBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	host, port := splitHostPort(t, srv.URL)
	_, err := Resolve(context.Background(), srv.Client(), "http", host, port, "")
	if err == nil {
		t.Fatal("Resolve() error = nil, want error on non-200")
	}
	if !strings.Contains(err.Error(), "503") {
		t.Errorf("error %q should carry the status code", err)
	}
}
