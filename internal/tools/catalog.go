package tools

// Tool names as exposed to the model.
const (
	ToolSearchInternet     = "search_internet"
	ToolSearchNews         = "search_news"
	ToolYahooFinanceNews   = "yahoo_finance_news"
	ToolScrapeAndSummarize = "scrape_and_summarize_website"
	ToolCalculate          = "calculate"
	ToolSearch10Q          = "search_10q"
	ToolSearch10K          = "search_10k"
	ToolGetStockInfo       = "get_stock_info"
	ToolGetHistoricalPrice = "get_historical_price"
	ToolGetCompanyInfo     = "get_company_info"
	ToolGetFinancialRatios = "get_financial_ratios"
	ToolGetPriceIndicators = "get_price_indicators"
	ToolCreateChart        = "create_chart"
	ToolWriteMarkdown      = "write_text_to_markdown_file"
)

// Definition describes a tool's metadata for registration and documentation.
type Definition struct {
	Name        string
	Description string
	Category    string
	// ReadOnly tools have no side effects and may be served from cache.
	ReadOnly bool
}

var toolDefinitions = []Definition{
	{
		Name:        ToolSearchInternet,
		Description: "Useful to search the internet about a given topic and return relevant results.",
		Category:    "search",
		ReadOnly:    true,
	},
	{
		Name:        ToolSearchNews,
		Description: "Useful to search news about a company, stock or any other topic and return relevant results.",
		Category:    "search",
		ReadOnly:    true,
	},
	{
		Name:        ToolYahooFinanceNews,
		Description: "Useful for when you need to find financial news about a public company. Input should be a company ticker. For example, AAPL for Apple, MSFT for Microsoft.",
		Category:    "search",
		ReadOnly:    true,
	},
	{
		Name:        ToolScrapeAndSummarize,
		Description: "Useful to scrape and summarize a website content.",
		Category:    "search",
		ReadOnly:    true,
	},
	{
		Name: ToolCalculate,
		Description: "Useful to perform any mathematical calculations, like sum, minus, multiplication, division, etc. " +
			"The input to this tool should be a mathematical expression, a couple examples are `200*7` or `5000/2*10`.",
		Category: "math",
	},
	{
		Name: ToolSearch10Q,
		Description: "Useful to search information from the latest 10-Q form for a given stock. " +
			"The input to this tool should be a pipe (|) separated text of length two, representing the stock ticker you are interested and what question you have from it. " +
			"For example, `AAPL|what was last quarter's revenue`.",
		Category: "filings",
		ReadOnly: true,
	},
	{
		Name: ToolSearch10K,
		Description: "Useful to search information from the latest 10-K form for a given stock. " +
			"The input to this tool should be a pipe (|) separated text of length two, representing the stock ticker you are interested, what question you have from it. " +
			"For example, `AAPL|what was last year's revenue`.",
		Category: "filings",
		ReadOnly: true,
	},
	{
		Name: ToolGetStockInfo,
		Description: "Return the correct stock info value given the appropriate symbol and key. Infer a valid key from the user prompt, for example: " +
			"country, website, industry, sector, longBusinessSummary, fullTimeEmployees, previousClose, open, dayLow, dayHigh, dividendRate, dividendYield, " +
			"beta, trailingPE, forwardPE, volume, averageVolume, marketCap, fiftyTwoWeekLow, fiftyTwoWeekHigh, priceToSalesTrailing12Months, fiftyDayAverage, " +
			"twoHundredDayAverage, currency, enterpriseValue, profitMargins, sharesOutstanding, bookValue, priceToBook, trailingEps, forwardEps, pegRatio, " +
			"shortName, longName, currentPrice, targetHighPrice, targetLowPrice, targetMeanPrice, recommendationKey, numberOfAnalystOpinions, totalCash, ebitda, " +
			"totalDebt, quickRatio, currentRatio, totalRevenue, debtToEquity, returnOnAssets, returnOnEquity, freeCashflow, operatingCashflow, earningsGrowth, " +
			"revenueGrowth, grossMargins, operatingMargins.",
		Category: "market_data",
		ReadOnly: true,
	},
	{
		Name: ToolGetHistoricalPrice,
		Description: "Fetches historical daily closing prices for a symbol from start_date to end_date (YYYY-MM-DD). " +
			"end_date defaults to today; start_date defaults to 180 days before end_date and must be before end_date.",
		Category: "market_data",
		ReadOnly: true,
	},
	{
		Name:        ToolGetCompanyInfo,
		Description: "Fetches basic company information (name, sector, industry, country, website, summary) for a stock symbol.",
		Category:    "market_data",
		ReadOnly:    true,
	},
	{
		Name:        ToolGetFinancialRatios,
		Description: "Fetches key financial ratios (P/E, forward P/E, PEG, price/book, dividend yield, ROE, debt to equity) for a stock symbol.",
		Category:    "market_data",
		ReadOnly:    true,
	},
	{
		Name:        ToolGetPriceIndicators,
		Description: "Computes SMA(20), SMA(50), EMA(20) and RSI(14) over daily closes for a stock symbol. period is the look-back in days (default 365).",
		Category:    "market_data",
		ReadOnly:    true,
	},
	{
		Name: ToolCreateChart,
		Description: "Creates a bar chart graphic based on the provided metric and data, a list of numerical data points representing the metric over time. " +
			"Returns the file path of the saved chart image, for example ./revenue_chart.png.",
		Category: "output",
	},
	{
		Name: ToolWriteMarkdown,
		Description: "Writes markdown text to a file. The input to this tool should be a string representing markdown syntax. " +
			"It creates or overwrites a file named 'report.md' with the provided content.",
		Category: "output",
	},
}

// Definitions returns the catalog of every tool.
func Definitions() []Definition {
	out := make([]Definition, len(toolDefinitions))
	copy(out, toolDefinitions)
	return out
}

// DefinitionFor looks up one tool's metadata.
func DefinitionFor(name string) (Definition, bool) {
	for _, d := range toolDefinitions {
		if d.Name == name {
			return d, true
		}
	}
	return Definition{}, false
}
