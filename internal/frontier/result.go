package frontier

import "time"

// CrawlResult is the outcome of processing one crawl request. Results are
// ephemeral: the orchestrator feeds them into the frontier, the budget
// manager, and the scorers, then drops them.
type CrawlResult struct {
	// Request is the request that produced this result.
	Request *CrawlRequest
	// Success reports whether the fetch and extraction succeeded.
	Success bool
	// ExtractedURLs are the candidate child URLs, in document order.
	ExtractedURLs []string
	// TextContent is the extracted page text, empty when unavailable.
	TextContent string
	// ContentSize is the fetched body size in bytes.
	ContentSize int64
	// ProcessingTime is the wall time spent fetching and extracting.
	ProcessingTime time.Duration
	// Error describes the failure when Success is false.
	Error string
}

// NewCrawlResult creates a successful result for the given request.
func NewCrawlResult(req *CrawlRequest) *CrawlResult {
	return &CrawlResult{Request: req, Success: true}
}

// NewFailedResult creates a failed result carrying the error description.
func NewFailedResult(req *CrawlRequest, errMsg string) *CrawlResult {
	return &CrawlResult{Request: req, Success: false, Error: errMsg}
}
