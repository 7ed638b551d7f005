package session_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jonesrussell/gospider/internal/session"
)

func TestManager_DisabledReturnsNil(t *testing.T) {
	m := session.NewManager(session.Config{Enabled: false})

	if client := m.ClientFor("example.com"); client != nil {
		t.Error("ClientFor() with sessions disabled should return nil")
	}
}

func TestManager_ReusesClientPerHost(t *testing.T) {
	m := session.NewManager(session.Config{Enabled: true})

	a1 := m.ClientFor("a.example.com")
	a2 := m.ClientFor("a.example.com")
	b := m.ClientFor("b.example.com")

	if a1 == nil || b == nil {
		t.Fatal("ClientFor() returned nil with sessions enabled")
	}
	if a1 != a2 {
		t.Error("ClientFor() should return the same client for repeat visits to a host")
	}
	if a1 == b {
		t.Error("ClientFor() should return distinct clients for distinct hosts")
	}
	if got := m.HostCount(); got != 2 {
		t.Errorf("HostCount() = %d, want 2", got)
	}
}

func TestManager_CookiesPersistAcrossRequests(t *testing.T) {
	var sawCookie bool

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("session"); err == nil && c.Value == "abc123" {
			sawCookie = true
		}
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc123"})
	}))
	defer srv.Close()

	m := session.NewManager(session.Config{Enabled: true})
	client := m.ClientFor("test-host")

	for _i := 0; _i < 2; _i++ {
		resp, err := client.Get(srv.URL)
		if err != nil {
			t.Fatalf("Get() unexpected error: %v", err)
		}
		resp.Body.Close()
	}

	if !sawCookie {
		t.Error("second request should carry the cookie set by the first")
	}
}

func TestManager_Reset(t *testing.T) {
	m := session.NewManager(session.Config{Enabled: true})

	m.ClientFor("example.com")
	m.Reset()

	if got := m.HostCount(); got != 0 {
		t.Errorf("HostCount() after Reset() = %d, want 0", got)
	}
}
