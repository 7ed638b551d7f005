// Package session maintains per-host HTTP clients with isolated cookie
// jars so stateful sites see a consistent visitor across requests.
package session

import (
	"net/http"
	"net/http/cookiejar"
	"sync"
	"time"
)

// DefaultTimeout is the request timeout applied to session clients.
const DefaultTimeout = 30 * time.Second

// Config holds session management configuration.
type Config struct {
	// Enabled turns per-host sessions on.
	Enabled bool `mapstructure:"enabled"`
	// Timeout is the per-request timeout for session clients.
	Timeout time.Duration `mapstructure:"timeout"`
}

// Manager hands out one HTTP client per host, each with its own cookie
// jar. With sessions disabled ClientFor returns nil and callers fall back
// to their shared client.
type Manager struct {
	cfg     Config
	mu      sync.Mutex
	clients map[string]*http.Client
}

// NewManager creates a session manager.
func NewManager(cfg Config) *Manager {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Manager{
		cfg:     cfg,
		clients: make(map[string]*http.Client),
	}
}

// ClientFor returns the host's session client, creating it on first use.
// Returns nil when sessions are disabled or the jar cannot be built.
func (m *Manager) ClientFor(host string) *http.Client {
	if !m.cfg.Enabled {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if client, ok := m.clients[host]; ok {
		return client
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil
	}

	client := &http.Client{
		Jar:     jar,
		Timeout: m.cfg.Timeout,
	}
	m.clients[host] = client
	return client
}

// HostCount returns the number of active sessions.
func (m *Manager) HostCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.clients)
}

// Reset discards all sessions.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.clients = make(map[string]*http.Client)
}
