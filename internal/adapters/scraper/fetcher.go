package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/go-shiori/go-readability"

	"stockcrew/pkg/errors"
)

// maxPageBytes caps a downloaded document
const maxPageBytes = 8 << 20

// Fetcher downloads raw HTML for a URL
type Fetcher interface {
	FetchHTML(ctx context.Context, rawURL string) (string, error)
}

// HTTPFetcher downloads pages with a plain GET
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
}

// NewHTTPFetcher creates a fetcher with its own client
func NewHTTPFetcher(userAgent string, timeout time.Duration) *HTTPFetcher {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &HTTPFetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

func (f *HTTPFetcher) FetchHTML(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", errors.Wrap(err, "failed to create request")
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "fetch page")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("%s returned status %d", rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", errors.Wrap(err, "read page")
	}
	return string(body), nil
}

// BrowserFetcher renders pages in headless Chrome, for sites that build content with JavaScript
type BrowserFetcher struct {
	userAgent string
}

// NewBrowserFetcher creates a chromedp-backed fetcher
func NewBrowserFetcher(userAgent string) *BrowserFetcher {
	return &BrowserFetcher{userAgent: userAgent}
}

func (f *BrowserFetcher) FetchHTML(ctx context.Context, rawURL string) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
	)
	if f.userAgent != "" {
		opts = append(opts, chromedp.UserAgent(f.userAgent))
	}

	actx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	bctx, cancelBrowser := chromedp.NewContext(actx)
	defer cancelBrowser()

	var html string
	err := chromedp.Run(bctx,
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", errors.Wrap(err, "render page")
	}
	return html, nil
}

// Page is the readable part of a document
type Page struct {
	URL   string
	Title string
	Text  string
}

// Extract pulls the main article text out of html
func Extract(html, rawURL string) (Page, error) {
	pageURL, err := url.Parse(rawURL)
	if err != nil {
		pageURL = &url.URL{}
	}

	article, err := readability.FromReader(strings.NewReader(html), pageURL)
	if err != nil {
		return Page{}, errors.Wrap(err, "extract readable text")
	}

	return Page{
		URL:   rawURL,
		Title: strings.TrimSpace(article.Title),
		Text:  strings.TrimSpace(article.TextContent),
	}, nil
}

// NormalizeURL adds a scheme when the model passes a bare host
func NormalizeURL(raw string) (string, error) {
	raw = strings.Trim(strings.TrimSpace(raw), `"'`)
	if raw == "" {
		return "", errors.Wrap(errors.ErrInvalidInput, "empty url")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", errors.Wrapf(errors.ErrInvalidInput, "invalid url %q", raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", errors.Wrapf(errors.ErrInvalidInput, "unsupported scheme %q", u.Scheme)
	}
	return u.String(), nil
}
