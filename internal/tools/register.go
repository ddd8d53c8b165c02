package tools

import (
	"context"
	"time"

	"google.golang.org/adk/tool"

	"stockcrew/pkg/errors"
	"stockcrew/pkg/logger"
)

type queryArgs struct {
	Query string `json:"query" jsonschema:"the search query"`
}

type tickerArgs struct {
	Ticker string `json:"ticker" jsonschema:"company ticker, for example AAPL"`
}

type websiteArgs struct {
	Website string `json:"website" jsonschema:"full URL of the page to scrape"`
}

type operationArgs struct {
	Operation string `json:"operation" jsonschema:"arithmetic expression, for example 200*7"`
}

type filingArgs struct {
	Query string `json:"query" jsonschema:"TICKER|what to look for"`
}

type stockInfoArgs struct {
	Symbol string `json:"symbol" jsonschema:"stock ticker symbol"`
	Key    string `json:"key" jsonschema:"stock info field name"`
}

type historyArgs struct {
	Symbol    string `json:"symbol" jsonschema:"stock ticker symbol"`
	StartDate string `json:"start_date,omitempty" jsonschema:"YYYY-MM-DD, defaults to 180 days before end_date"`
	EndDate   string `json:"end_date,omitempty" jsonschema:"YYYY-MM-DD, defaults to today"`
}

type symbolArgs struct {
	Symbol string `json:"symbol" jsonschema:"stock ticker symbol"`
}

type indicatorArgs struct {
	Symbol string `json:"symbol" jsonschema:"stock ticker symbol"`
	Period int    `json:"period,omitempty" jsonschema:"look-back in days, defaults to 365"`
}

type chartArgs struct {
	MetricName string    `json:"metric_name" jsonschema:"the name of the metric to be visualized on the chart"`
	Data       []float64 `json:"data" jsonschema:"numerical data points representing the metric over time"`
}

type markdownArgs struct {
	MarkdownText any `json:"markdown_text" jsonschema:"the markdown content to write to report.md, as a string"`
}

// MiddlewareConfig applies to every registered tool.
type MiddlewareConfig struct {
	Timeout       time.Duration
	RetryAttempts int
	RetryBackoff  time.Duration
	// Cache is optional; only read-only tools use it.
	Cache    Cache
	CacheTTL time.Duration
}

// RegisterAll builds every catalog tool over capability and registers it.
func RegisterAll(registry *Registry, capability Capability, mw MiddlewareConfig) error {
	log := logger.Get().With("component", "tool_registration")

	regs := []func() (tool.Tool, error){
		func() (tool.Tool, error) {
			return build(ToolSearchInternet, mw, func(ctx context.Context, a queryArgs) Result {
				return capability.SearchInternet(ctx, a.Query)
			})
		},
		func() (tool.Tool, error) {
			return build(ToolSearchNews, mw, func(ctx context.Context, a queryArgs) Result {
				return capability.SearchNews(ctx, a.Query)
			})
		},
		func() (tool.Tool, error) {
			return build(ToolYahooFinanceNews, mw, func(ctx context.Context, a tickerArgs) Result {
				return capability.YahooFinanceNews(ctx, a.Ticker)
			})
		},
		func() (tool.Tool, error) {
			return build(ToolScrapeAndSummarize, mw, func(ctx context.Context, a websiteArgs) Result {
				return capability.ScrapeAndSummarize(ctx, a.Website)
			})
		},
		func() (tool.Tool, error) {
			return build(ToolCalculate, mw, func(ctx context.Context, a operationArgs) Result {
				return capability.Calculate(ctx, a.Operation)
			})
		},
		func() (tool.Tool, error) {
			return build(ToolSearch10Q, mw, func(ctx context.Context, a filingArgs) Result {
				return capability.Search10Q(ctx, a.Query)
			})
		},
		func() (tool.Tool, error) {
			return build(ToolSearch10K, mw, func(ctx context.Context, a filingArgs) Result {
				return capability.Search10K(ctx, a.Query)
			})
		},
		func() (tool.Tool, error) {
			return build(ToolGetStockInfo, mw, func(ctx context.Context, a stockInfoArgs) Result {
				return capability.GetStockInfo(ctx, a.Symbol, a.Key)
			})
		},
		func() (tool.Tool, error) {
			return build(ToolGetHistoricalPrice, mw, func(ctx context.Context, a historyArgs) Result {
				return capability.GetHistoricalPrice(ctx, a.Symbol, a.StartDate, a.EndDate)
			})
		},
		func() (tool.Tool, error) {
			return build(ToolGetCompanyInfo, mw, func(ctx context.Context, a symbolArgs) Result {
				return capability.GetCompanyInfo(ctx, a.Symbol)
			})
		},
		func() (tool.Tool, error) {
			return build(ToolGetFinancialRatios, mw, func(ctx context.Context, a symbolArgs) Result {
				return capability.GetFinancialRatios(ctx, a.Symbol)
			})
		},
		func() (tool.Tool, error) {
			return build(ToolGetPriceIndicators, mw, func(ctx context.Context, a indicatorArgs) Result {
				return capability.GetPriceIndicators(ctx, a.Symbol, a.Period)
			})
		},
		func() (tool.Tool, error) {
			return build(ToolCreateChart, mw, func(ctx context.Context, a chartArgs) Result {
				return capability.CreateChart(ctx, a.MetricName, a.Data)
			})
		},
		func() (tool.Tool, error) {
			return build(ToolWriteMarkdown, mw, func(ctx context.Context, a markdownArgs) Result {
				return capability.WriteMarkdown(ctx, a.MarkdownText)
			})
		},
	}

	for _, reg := range regs {
		t, err := reg()
		if err != nil {
			return err
		}
		registry.Register(t.Name(), t)
	}

	log.Infow("Registered tools", "count", len(regs), "cache", mw.Cache != nil && mw.CacheTTL > 0)
	return nil
}

func build[A any](name string, mw MiddlewareConfig, fn Func[A]) (tool.Tool, error) {
	def, ok := DefinitionFor(name)
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "tool %s is not in the catalog", name)
	}

	b := NewBuilder(def.Name, def.Description, fn).
		WithTimeout(mw.Timeout).
		WithRetry(mw.RetryAttempts, mw.RetryBackoff).
		WithStats()
	if def.ReadOnly && mw.Cache != nil {
		b = b.WithCache(mw.Cache, mw.CacheTTL)
	}
	return b.Build()
}
