package urlutil_test

import (
	"strings"
	"testing"

	"github.com/jonesrussell/gospider/internal/urlutil"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		// Scheme and host normalization
		{"lowercase scheme", "HTTP://Example.com/Path", "https://example.com/Path", false},
		{"lowercase host", "https://EXAMPLE.COM/path", "https://example.com/path", false},
		{"upgrade http to https", "http://example.com/path", "https://example.com/path", false},
		{"www subdomain preserved", "https://WWW.Example.COM/path", "https://www.example.com/path", false},

		// Port handling
		{"remove default https port", "https://example.com:443/path", "https://example.com/path", false},
		{"remove default http port", "http://example.com:80/path", "https://example.com/path", false},
		{"keep non-default port", "https://example.com:8080/path", "https://example.com:8080/path", false},

		// Path normalization
		{"remove trailing slash", "https://example.com/path/", "https://example.com/path", false},
		{"keep root slash", "https://example.com/", "https://example.com/", false},
		{"resolve dot segments", "https://example.com/a/b/../c", "https://example.com/a/c", false},
		{"resolve current dir segments", "https://example.com/a/./b", "https://example.com/a/b", false},

		// Fragment removal
		{"remove fragment", "https://example.com/path#section", "https://example.com/path", false},

		// Query parameter handling
		{"sort query params", "https://example.com/path?z=1&a=2", "https://example.com/path?a=2&z=1", false},
		{"strip utm params", "https://example.com/path?utm_source=twitter&id=1", "https://example.com/path?id=1", false},
		{"strip fbclid", "https://example.com/path?fbclid=abc123&id=1", "https://example.com/path?id=1", false},
		{"empty query after stripping", "https://example.com/path?utm_source=x", "https://example.com/path", false},

		// Combined transformations
		{
			"port fragment and query together",
			"https://WWW.Example.COM:443/path/?z=3&a=1#frag",
			"https://www.example.com/path?a=1&z=3",
			false,
		},

		// Error cases
		{"empty string", "", "", true},
		{"invalid url", "://not-a-url", "", true},
		{"missing scheme", "example.com/path", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := urlutil.Normalize(tt.input)

			if tt.wantErr {
				if err == nil {
					t.Errorf("Normalize(%q) expected error, got nil", tt.input)
				}
				return
			}

			if err != nil {
				t.Errorf("Normalize(%q) unexpected error: %v", tt.input, err)
				return
			}

			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"https://WWW.Example.COM:443/path/?z=3&a=1#frag",
		"http://example.com:80/a/b/../c?utm_source=x&id=1",
		"https://example.com/",
		"https://example.com/news/article-123",
	}

	for _, input := range inputs {
		once, err := urlutil.Normalize(input)
		if err != nil {
			t.Fatalf("Normalize(%q) unexpected error: %v", input, err)
		}

		twice, err := urlutil.Normalize(once)
		if err != nil {
			t.Fatalf("Normalize(%q) unexpected error: %v", once, err)
		}

		if once != twice {
			t.Errorf("Normalize not idempotent for %q: first %q, second %q", input, once, twice)
		}
	}
}

func TestHash_EquivalentURLs(t *testing.T) {
	hash1, err := urlutil.Hash("HTTP://Example.com/path?b=2&a=1")
	if err != nil {
		t.Fatalf("Hash() unexpected error: %v", err)
	}

	hash2, err := urlutil.Hash("https://example.com/path?a=1&b=2")
	if err != nil {
		t.Fatalf("Hash() unexpected error: %v", err)
	}

	if hash1 != hash2 {
		t.Errorf("expected identical hashes for equivalent URLs, got %q and %q", hash1, hash2)
	}
}

func TestHash_Length(t *testing.T) {
	const sha256HexLength = 64

	hash, err := urlutil.Hash("https://example.com")
	if err != nil {
		t.Fatalf("Hash() unexpected error: %v", err)
	}

	if len(hash) != sha256HexLength {
		t.Errorf("expected hash length %d, got %d", sha256HexLength, len(hash))
	}

	for _, c := range hash {
		if !strings.ContainsRune("0123456789abcdef", c) {
			t.Errorf("hash contains non-hex character: %c", c)
			break
		}
	}
}

func TestExtractHost(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"simple", "https://example.com/path", "example.com", false},
		{"with port", "https://example.com:8080/path", "example.com", false},
		{"with www", "https://www.example.com/path", "www.example.com", false},
		{"uppercase host", "https://EXAMPLE.COM/path", "example.com", false},
		{"empty string", "", "", true},
		{"invalid url", "://bad", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := urlutil.ExtractHost(tt.input)

			if tt.wantErr {
				if err == nil {
					t.Errorf("ExtractHost(%q) expected error, got nil", tt.input)
				}
				return
			}

			if err != nil {
				t.Errorf("ExtractHost(%q) unexpected error: %v", tt.input, err)
				return
			}

			if got != tt.want {
				t.Errorf("ExtractHost(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
