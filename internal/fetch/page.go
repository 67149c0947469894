package fetch

import (
	"context"
	"fmt"
	"log"
)

// PageOptions configures document page retrieval.
type PageOptions struct {
	// UseBrowser enables the headless-browser fallback for pages whose
	// plain HTTP response carries too little text.
	UseBrowser bool
	Verbose    bool
	Fetch      *Options
}

// PageResult is the text content of a fetched document page.
type PageResult struct {
	URL      string
	Title    string
	Platform Platform
	Text     string
	HTML     string
}

// Page fetches a URL and extracts its main text using platform-aware
// selectors. When the plain fetch yields too little text and the browser
// fallback is enabled, the page is re-rendered headlessly and extracted
// again.
func Page(ctx context.Context, urlStr string, opts *PageOptions) (*PageResult, error) {
	if opts == nil {
		opts = &PageOptions{}
	}

	platform := DetectPlatform(urlStr)
	if opts.Verbose {
		log.Printf("[FETCH] %s (platform: %s)", urlStr, platform)
	}

	result, err := URL(ctx, urlStr, opts.Fetch)
	if err != nil {
		return nil, err
	}

	contentSelectors := PlatformContentSelectors(platform)
	noiseSelectors := PlatformNoiseSelectors(platform)

	text, err := ExtractMainText(result.HTML, contentSelectors, noiseSelectors...)
	if err != nil {
		return nil, &Error{URL: urlStr, Message: "content extraction failed", Cause: err}
	}

	html := result.HTML
	if opts.UseBrowser && ShouldUseBrowser(text) {
		if opts.Verbose {
			log.Printf("[FETCH] content too short (%d chars), rendering with browser", len(text))
		}
		browserHTML, browserErr := BrowserSimple(ctx, urlStr, opts.Verbose)
		if browserErr == nil {
			if rendered, extractErr := ExtractMainText(browserHTML, contentSelectors, noiseSelectors...); extractErr == nil {
				text = rendered
				html = browserHTML
			}
		} else if opts.Verbose {
			log.Printf("[FETCH] browser rendering failed: %v, keeping HTTP content", browserErr)
		}
	}

	if len(text) == 0 {
		return nil, &Error{URL: urlStr, Message: "page contains no extractable text"}
	}

	title := ExtractTitle(html)
	if title == "" {
		title = fmt.Sprintf("page from %s", urlStr)
	}

	return &PageResult{
		URL:      urlStr,
		Title:    title,
		Platform: platform,
		Text:     text,
		HTML:     html,
	}, nil
}
