package tools

import (
	"context"
	"fmt"
	"strings"

	"stockcrew/internal/adapters/serper"
)

const (
	searchSorry   = "Sorry, I couldn't find anything about that, there could be an error with you serper api key."
	resultDivider = "\n-----------------"
)

// SearchInternet returns the top organic hits for a query.
func (k *Toolkit) SearchInternet(ctx context.Context, query string) Result {
	results, err := k.deps.Search.Search(ctx, query, k.deps.SearchResults)
	if err != nil {
		k.log.Warnw("Web search failed", "query", query, "error", err)
		return failure(err, searchSorry)
	}
	if len(results) == 0 {
		return Fail(searchSorry)
	}
	return Ok(formatSearchResults(results, k.deps.SearchResults))
}

// SearchNews returns the top news hits for a query.
func (k *Toolkit) SearchNews(ctx context.Context, query string) Result {
	results, err := k.deps.Search.News(ctx, query, k.deps.SearchResults)
	if err != nil {
		k.log.Warnw("News search failed", "query", query, "error", err)
		return failure(err, searchSorry)
	}
	if len(results) == 0 {
		return Fail(searchSorry)
	}
	return Ok(formatSearchResults(results, k.deps.SearchResults))
}

func formatSearchResults(results []serper.Result, limit int) string {
	if len(results) > limit {
		results = results[:limit]
	}
	blocks := make([]string, 0, len(results))
	for _, r := range results {
		blocks = append(blocks, strings.Join([]string{
			"Title: " + r.Title,
			"Link: " + r.Link,
			"Snippet: " + r.Snippet,
			resultDivider,
		}, "\n"))
	}
	return strings.Join(blocks, "\n")
}

// YahooFinanceNews lists recent headlines for a ticker.
func (k *Toolkit) YahooFinanceNews(ctx context.Context, ticker string) Result {
	ticker = strings.TrimSpace(ticker)
	items, err := k.deps.Market.News(ctx, ticker, k.deps.NewsItems)
	if err != nil {
		k.log.Warnw("Yahoo news failed", "ticker", ticker, "error", err)
		return failure(err, fmt.Sprintf("Error fetching news for %s: %v", ticker, err))
	}
	if len(items) == 0 {
		return Failf("No news found for company that searched with %s ticker.", ticker)
	}

	blocks := make([]string, 0, len(items))
	for _, item := range items {
		blocks = append(blocks, fmt.Sprintf("Title: %s\nPublisher: %s\nLink: %s", item.Title, item.Publisher, item.Link))
	}
	return Ok(strings.Join(blocks, "\n\n"))
}

// ScrapeAndSummarize fetches a page and returns its chunk summaries.
func (k *Toolkit) ScrapeAndSummarize(ctx context.Context, website string) Result {
	website = strings.TrimSpace(website)
	summary, err := k.deps.Scraper.ScrapeAndSummarize(ctx, website)
	if err != nil {
		k.log.Warnw("Scrape failed", "url", website, "error", err)
		return failure(err, fmt.Sprintf("Error scraping %s: %v", website, err))
	}
	return Ok(summary)
}
