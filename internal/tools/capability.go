package tools

import (
	"context"
	"time"

	"stockcrew/internal/adapters/edgar"
	"stockcrew/internal/adapters/serper"
	"stockcrew/internal/adapters/yahoo"
	"stockcrew/pkg/errors"
	"stockcrew/pkg/logger"
)

// Capability is the set of operations the agents can invoke.
type Capability interface {
	SearchInternet(ctx context.Context, query string) Result
	SearchNews(ctx context.Context, query string) Result
	YahooFinanceNews(ctx context.Context, ticker string) Result
	ScrapeAndSummarize(ctx context.Context, website string) Result
	Calculate(ctx context.Context, operation string) Result
	Search10Q(ctx context.Context, query string) Result
	Search10K(ctx context.Context, query string) Result
	GetStockInfo(ctx context.Context, symbol, key string) Result
	GetHistoricalPrice(ctx context.Context, symbol, startDate, endDate string) Result
	GetCompanyInfo(ctx context.Context, symbol string) Result
	GetFinancialRatios(ctx context.Context, symbol string) Result
	GetPriceIndicators(ctx context.Context, symbol string, periodDays int) Result
	CreateChart(ctx context.Context, metricName string, data []float64) Result
	WriteMarkdown(ctx context.Context, markdownText any) Result
}

// WebSearcher runs web and news queries.
type WebSearcher interface {
	Search(ctx context.Context, query string, num int) ([]serper.Result, error)
	News(ctx context.Context, query string, num int) ([]serper.Result, error)
}

// MarketData serves quotes, daily history and headlines.
type MarketData interface {
	QuoteSummary(ctx context.Context, symbol string) (map[string]any, error)
	History(ctx context.Context, symbol string, start, end time.Time) ([]yahoo.Bar, error)
	News(ctx context.Context, ticker string, count int) ([]yahoo.NewsItem, error)
}

// PageSummarizer fetches a page and condenses it.
type PageSummarizer interface {
	ScrapeAndSummarize(ctx context.Context, url string) (string, error)
}

// FilingSearcher returns the passages of the latest filing relevant to a question.
type FilingSearcher interface {
	Search(ctx context.Context, ticker, form, question string) (edgar.Filing, []string, error)
}

// ChartRenderer draws a bar chart and returns its path.
type ChartRenderer interface {
	BarChart(metric string, data []float64) (string, error)
}

// ToolkitDeps are the collaborators behind the toolkit.
type ToolkitDeps struct {
	Search  WebSearcher
	Market  MarketData
	Scraper PageSummarizer
	Filings FilingSearcher
	Charts  ChartRenderer
	WorkDir string

	// SearchResults is the number of search hits returned per query.
	SearchResults int
	// NewsItems caps the Yahoo headlines returned per ticker.
	NewsItems int
	Now       func() time.Time
}

// Toolkit implements Capability over the data-source adapters.
type Toolkit struct {
	deps ToolkitDeps
	log  *logger.Logger
}

// NewToolkit validates the dependencies and builds a toolkit.
func NewToolkit(deps ToolkitDeps) (*Toolkit, error) {
	if deps.Search == nil || deps.Market == nil || deps.Scraper == nil || deps.Filings == nil || deps.Charts == nil {
		return nil, errors.Wrap(errors.ErrInvalidInput, "toolkit requires search, market, scraper, filings and charts")
	}
	if deps.WorkDir == "" {
		deps.WorkDir = "."
	}
	if deps.SearchResults <= 0 {
		deps.SearchResults = 4
	}
	if deps.NewsItems <= 0 {
		deps.NewsItems = 10
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Toolkit{
		deps: deps,
		log:  logger.Get().Component("toolkit"),
	}, nil
}

// failure turns an adapter error into a result. Input and lookup errors are
// final, anything else may be retried.
func failure(err error, message string) Result {
	switch {
	case errors.Is(err, errors.ErrInvalidInput),
		errors.Is(err, errors.ErrNotFound),
		errors.Is(err, errors.ErrFilingNotFound),
		errors.Is(err, errors.ErrMissingCredentials):
		return Fail(message)
	default:
		return Transient(message)
	}
}

var _ Capability = (*Toolkit)(nil)
