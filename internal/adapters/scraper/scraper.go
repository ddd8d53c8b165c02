package scraper

import (
	"context"

	"stockcrew/pkg/errors"
	"stockcrew/pkg/logger"
)

// Scraper fetches a page, extracts its readable text and summarises it
type Scraper struct {
	fetcher    Fetcher
	summarizer *Summarizer
	log        *logger.Logger
}

// New creates a scraper
func New(fetcher Fetcher, summarizer *Summarizer) *Scraper {
	return &Scraper{
		fetcher:    fetcher,
		summarizer: summarizer,
		log:        logger.Get().With("component", "scraper"),
	}
}

// ScrapeAndSummarize returns the chunked summary of the page at rawURL
func (s *Scraper) ScrapeAndSummarize(ctx context.Context, rawURL string) (string, error) {
	target, err := NormalizeURL(rawURL)
	if err != nil {
		return "", err
	}

	html, err := s.fetcher.FetchHTML(ctx, target)
	if err != nil {
		return "", err
	}

	page, err := Extract(html, target)
	if err != nil {
		return "", err
	}
	if page.Text == "" {
		return "", errors.Wrapf(errors.ErrNotFound, "no readable text at %s", target)
	}

	s.log.Debugw("Scraped page", "url", target, "title", page.Title)
	return s.summarizer.Summarize(ctx, page.Text)
}
