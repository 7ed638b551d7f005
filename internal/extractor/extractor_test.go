package extractor_test

import (
	"strings"
	"testing"

	"github.com/jonesrussell/gospider/internal/extractor"
)

const samplePage = `<html>
<head><title>Sample Page</title></head>
<body>
<nav><a href="/nav-link">Navigation</a></nav>
<article>
<p>Main article text about interesting topics.</p>
<a href="/relative/page">Relative</a>
<a href="https://other.example.org/absolute">Absolute</a>
<a href="#section">Fragment</a>
<a href="mailto:someone@example.com">Mail</a>
<a href="ftp://files.example.com/file">FTP</a>
</article>
<footer>Footer text</footer>
</body>
</html>`

func TestExtractURLs(t *testing.T) {
	links, err := extractor.ExtractURLs([]byte(samplePage), "https://example.com/articles/")
	if err != nil {
		t.Fatalf("ExtractURLs() unexpected error: %v", err)
	}

	want := []string{
		"https://example.com/nav-link",
		"https://example.com/relative/page",
		"https://other.example.org/absolute",
	}

	if len(links) != len(want) {
		t.Fatalf("ExtractURLs() = %v, want %v", links, want)
	}
	for i := range want {
		if links[i] != want[i] {
			t.Errorf("ExtractURLs()[%d] = %q, want %q", i, links[i], want[i])
		}
	}
}

func TestExtractURLs_InvalidBase(t *testing.T) {
	if _, err := extractor.ExtractURLs([]byte(samplePage), "://bad"); err == nil {
		t.Error("ExtractURLs() with invalid base expected error, got nil")
	}
}

func TestExtractText_PrefersArticle(t *testing.T) {
	text := extractor.ExtractText([]byte(samplePage))

	if text == "" {
		t.Fatal("ExtractText() returned empty text")
	}
	if !strings.Contains(text, "Main article text") {
		t.Errorf("text = %q, want it to contain the article body", text)
	}
	if strings.Contains(text, "Footer text") {
		t.Errorf("text = %q, should not contain footer content", text)
	}
}

func TestExtractText_StripsScripts(t *testing.T) {
	page := `<html><body><script>var x = 1;</script><p>Visible content</p></body></html>`

	text := extractor.ExtractText([]byte(page))
	if strings.Contains(text, "var x") {
		t.Errorf("text = %q, should not contain script content", text)
	}
	if !strings.Contains(text, "Visible content") {
		t.Errorf("text = %q, want it to contain visible content", text)
	}
}

func TestExtractTitle(t *testing.T) {
	if got := extractor.ExtractTitle([]byte(samplePage)); got != "Sample Page" {
		t.Errorf("ExtractTitle() = %q, want %q", got, "Sample Page")
	}

	ogPage := `<html><head><meta property="og:title" content="OG Title"/></head><body></body></html>`
	if got := extractor.ExtractTitle([]byte(ogPage)); got != "OG Title" {
		t.Errorf("ExtractTitle() og fallback = %q, want %q", got, "OG Title")
	}
}
