package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"stockcrew/pkg/errors"
)

const dateLayout = "2006-01-02"

// DefaultHistoryWindow is the look-back used when no start date is given.
const DefaultHistoryWindow = 180 * 24 * time.Hour

type labelledField struct {
	label string
	key   string
}

var companyFields = []labelledField{
	{"Name", "longName"},
	{"Sector", "sector"},
	{"Industry", "industry"},
	{"Country", "country"},
	{"Website", "website"},
	{"Summary", "longBusinessSummary"},
}

var ratioFields = []labelledField{
	{"P/E Ratio", "trailingPE"},
	{"Forward P/E", "forwardPE"},
	{"PEG Ratio", "pegRatio"},
	{"Price/Book", "priceToBook"},
	{"Dividend Yield", "dividendYield"},
	{"Return on Equity", "returnOnEquity"},
	{"Debt to Equity", "debtToEquity"},
}

// GetStockInfo returns a single quote field.
func (k *Toolkit) GetStockInfo(ctx context.Context, symbol, key string) Result {
	info, err := k.deps.Market.QuoteSummary(ctx, symbol)
	if err != nil && !errors.Is(err, errors.ErrNotFound) {
		return failure(err, fmt.Sprintf("Error fetching stock info: %v", err))
	}
	value, ok := info[key]
	if !ok {
		return Failf("Key '%s' not found in stock info for %s.", key, symbol)
	}
	return Ok(formatValue(value))
}

// GetHistoricalPrice returns daily closes as JSON records. Dates are
// YYYY-MM-DD; end defaults to now and start to 180 days before end.
func (k *Toolkit) GetHistoricalPrice(ctx context.Context, symbol, startDate, endDate string) Result {
	start, end, err := k.historyWindow(startDate, endDate)
	if err != nil {
		return Failf("Error fetching historical price data: %v", err)
	}

	bars, err := k.deps.Market.History(ctx, symbol, start, end)
	if err != nil {
		return failure(err, fmt.Sprintf("Error fetching historical price data: %v", err))
	}
	if len(bars) == 0 {
		return Failf("No historical data found for %s in the specified date range.", symbol)
	}

	type record struct {
		Date  string      `json:"Date"`
		Close json.Number `json:"Close"`
	}
	records := make([]record, 0, len(bars))
	for _, b := range bars {
		records = append(records, record{
			Date:  b.Date.Format(dateLayout),
			Close: json.Number(b.Close.String()),
		})
	}

	out, err := json.Marshal(records)
	if err != nil {
		return Failf("Error fetching historical price data: %v", err)
	}
	return Ok(string(out))
}

func (k *Toolkit) historyWindow(startDate, endDate string) (time.Time, time.Time, error) {
	end := k.deps.Now()
	if s := strings.TrimSpace(endDate); s != "" {
		parsed, err := time.Parse(dateLayout, s)
		if err != nil {
			return time.Time{}, time.Time{}, errors.Wrapf(errors.ErrInvalidInput, "end_date %q does not match YYYY-MM-DD", s)
		}
		end = parsed
	}

	start := end.Add(-DefaultHistoryWindow)
	if s := strings.TrimSpace(startDate); s != "" {
		parsed, err := time.Parse(dateLayout, s)
		if err != nil {
			return time.Time{}, time.Time{}, errors.Wrapf(errors.ErrInvalidInput, "start_date %q does not match YYYY-MM-DD", s)
		}
		start = parsed
	}
	return start, end, nil
}

// GetCompanyInfo returns the company profile lines.
func (k *Toolkit) GetCompanyInfo(ctx context.Context, symbol string) Result {
	info, err := k.deps.Market.QuoteSummary(ctx, symbol)
	if err != nil {
		return failure(err, fmt.Sprintf("Error fetching company info: %v", err))
	}
	return Ok(labelledLines(info, companyFields, formatValue))
}

// GetFinancialRatios returns the valuation and balance-sheet ratios.
func (k *Toolkit) GetFinancialRatios(ctx context.Context, symbol string) Result {
	info, err := k.deps.Market.QuoteSummary(ctx, symbol)
	if err != nil {
		return failure(err, fmt.Sprintf("Error fetching financial ratios: %v", err))
	}
	return Ok(labelledLines(info, ratioFields, formatRatio))
}

func labelledLines(info map[string]any, fields []labelledField, format func(any) string) string {
	lines := make([]string, 0, len(fields))
	for _, f := range fields {
		value := "N/A"
		if v, ok := info[f.key]; ok {
			value = format(v)
		}
		lines = append(lines, f.label+": "+value)
	}
	return strings.Join(lines, "\n")
}

// ratioPlaces bounds ratio precision; the quote feed carries float noise
// such as 0.004399999976158142.
const ratioPlaces = 4

// formatRatio rounds numeric ratios and leaves anything else to formatValue.
func formatRatio(v any) string {
	var (
		d   decimal.Decimal
		err error
	)
	switch val := v.(type) {
	case json.Number:
		d, err = decimal.NewFromString(val.String())
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return formatValue(v)
		}
		d = decimal.NewFromFloat(val)
	default:
		return formatValue(v)
	}
	if err != nil {
		return formatValue(v)
	}
	return d.Round(ratioPlaces).String()
}

// formatValue renders a quote field the way the agents' prompts expect:
// numbers verbatim, booleans capitalised, nested values as JSON.
func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "None"
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		if val {
			return "True"
		}
		return "False"
	case float64:
		return fmt.Sprint(val)
	default:
		out, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(out)
	}
}
