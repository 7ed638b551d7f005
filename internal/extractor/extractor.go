// Package extractor pulls outbound links and readable text out of fetched
// HTML documents.
package extractor

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// nonContentSelectors lists elements stripped before extracting body text.
const nonContentSelectors = "script, style, nav, header, footer"

// ExtractURLs parses the document and returns all absolute http(s) links,
// resolving relative hrefs against the base URL. Fragment-only and
// non-web links are skipped.
func ExtractURLs(body []byte, baseURL string) ([]string, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var links []string

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}

		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}

		resolved, parseErr := base.Parse(href)
		if parseErr != nil {
			return
		}

		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return
		}

		links = append(links, resolved.String())
	})

	return links, nil
}

// ExtractText returns the readable text of the document. Article content
// is preferred; otherwise the body text with non-content elements removed.
func ExtractText(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}

	article := doc.Find("article").First()
	if article.Length() > 0 {
		article.Find(nonContentSelectors).Remove()
		return collapseWhitespace(article.Text())
	}

	docBody := doc.Find("body").First()
	if docBody.Length() > 0 {
		docBody.Find(nonContentSelectors).Remove()
		return collapseWhitespace(docBody.Text())
	}

	return ""
}

// ExtractTitle returns the page title, preferring <title> then og:title.
func ExtractTitle(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}

	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title
	}

	if ogTitle, exists := doc.Find("meta[property='og:title']").Attr("content"); exists {
		return strings.TrimSpace(ogTitle)
	}

	return ""
}

// collapseWhitespace normalizes runs of whitespace to single spaces.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
