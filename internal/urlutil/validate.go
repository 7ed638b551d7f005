package urlutil

import (
	"net/url"
	"path"
	"strings"
)

// excludedExtensions lists file extensions that are skipped during crawling.
// These are binary, media, and style assets that carry no crawlable links.
var excludedExtensions = map[string]struct{}{
	".css":   {},
	".js":    {},
	".json":  {},
	".xml":   {},
	".png":   {},
	".jpg":   {},
	".jpeg":  {},
	".gif":   {},
	".svg":   {},
	".ico":   {},
	".webp":  {},
	".woff":  {},
	".woff2": {},
	".ttf":   {},
	".eot":   {},
	".mp3":   {},
	".mp4":   {},
	".avi":   {},
	".mov":   {},
	".pdf":   {},
	".zip":   {},
	".tar":   {},
	".gz":    {},
	".rar":   {},
	".exe":   {},
	".dmg":   {},
}

// Validator checks whether URLs are eligible for crawling.
// The zero value accepts any http(s) URL without an excluded extension.
type Validator struct {
	// ExcludePatterns are substrings that disqualify a URL when present.
	ExcludePatterns []string
	// IncludePatterns, when non-empty, require at least one substring match.
	IncludePatterns []string
}

// IsValidForCrawling reports whether a URL should be admitted to the frontier.
// It checks the scheme, the path extension, and the configured patterns.
func (v *Validator) IsValidForCrawling(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return false
	}

	if parsed.Host == "" {
		return false
	}

	ext := strings.ToLower(path.Ext(parsed.Path))
	if _, excluded := excludedExtensions[ext]; excluded {
		return false
	}

	lower := strings.ToLower(rawURL)
	for _, pattern := range v.ExcludePatterns {
		if strings.Contains(lower, strings.ToLower(pattern)) {
			return false
		}
	}

	if len(v.IncludePatterns) == 0 {
		return true
	}

	for _, pattern := range v.IncludePatterns {
		if strings.Contains(lower, strings.ToLower(pattern)) {
			return true
		}
	}

	return false
}

// FilterURLs returns the subset of urls that pass IsValidForCrawling,
// preserving input order.
func (v *Validator) FilterURLs(urls []string) []string {
	filtered := make([]string, 0, len(urls))

	for _, u := range urls {
		if v.IsValidForCrawling(u) {
			filtered = append(filtered, u)
		}
	}

	return filtered
}
